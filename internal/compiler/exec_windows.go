//go:build windows

package compiler

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcGroup starts the bundler in its own process group so a group kill
// cannot take the CLI down with it.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// terminateProcess stops the bundler. Windows has no SIGTERM equivalent for
// arbitrary processes, so this kills outright.
func terminateProcess(p *os.Process) {
	p.Kill()
}

// forceKillProcess kills the process after a graceful stop timed out.
func forceKillProcess(p *os.Process) {
	p.Kill()
}
