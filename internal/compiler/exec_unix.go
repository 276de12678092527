//go:build !windows

package compiler

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcGroup starts the bundler in its own process group so child
// watchers die with it.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// terminateProcess asks the bundler's process group to exit.
func terminateProcess(p *os.Process) {
	if pgid, err := syscall.Getpgid(p.Pid); err == nil {
		syscall.Kill(-pgid, syscall.SIGTERM)
		return
	}
	p.Kill()
}

// forceKillProcess kills the process group after a graceful stop timed out.
func forceKillProcess(p *os.Process) {
	if pgid, err := syscall.Getpgid(p.Pid); err == nil {
		syscall.Kill(-pgid, syscall.SIGKILL)
		return
	}
	p.Kill()
}
