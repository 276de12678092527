package compiler

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ExecConfig configures an external bundler process.
type ExecConfig struct {
	// Dir is the working directory for the bundler.
	Dir string

	// Command is the bundler executable.
	Command string

	// Args are arguments passed on every invocation.
	Args []string

	// WatchArgs are appended for long-running watch mode (default: --watch).
	WatchArgs []string

	// Env are additional environment variables.
	Env []string
}

// BuildResult contains the result of one bundler run.
type BuildResult struct {
	// Success indicates if the build succeeded.
	Success bool

	// Duration is how long the build took.
	Duration time.Duration

	// Output is the bundler's combined output.
	Output string

	// Error is the run error, if any.
	Error error
}

// Exec runs an external bundler command and adapts its runs into compiler
// lifecycle events. It implements Compiler via the embedded Emitter.
type Exec struct {
	*Emitter
	name    string
	config  ExecConfig
	process *os.Process
	mu      sync.Mutex
}

// NewExec creates an exec-based compiler adapter.
func NewExec(name string, config ExecConfig) *Exec {
	if len(config.WatchArgs) == 0 {
		config.WatchArgs = []string{"--watch"}
	}
	return &Exec{
		Emitter: &Emitter{},
		name:    name,
		config:  config,
	}
}

// Name identifies the compiler instance.
func (e *Exec) Name() string {
	return e.name
}

// Build runs the bundler once, emitting compile before the run and done
// (with stats) after it.
func (e *Exec) Build(ctx context.Context) BuildResult {
	e.EmitCompile()
	start := time.Now()

	cmd := exec.CommandContext(ctx, e.config.Command, e.config.Args...)
	cmd.Dir = e.config.Dir
	cmd.Env = append(os.Environ(), e.config.Env...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	duration := time.Since(start)
	output := out.String()

	stats := Stats{Duration: duration, Output: output}
	if err != nil {
		stats.Errors = splitDiagnostics(output, err)
	}
	e.EmitDone(stats)

	return BuildResult{
		Success:  err == nil,
		Duration: duration,
		Output:   output,
		Error:    err,
	}
}

// StartWatch starts the bundler in watch mode as a long-running process.
// The bundler's own output streams through to the terminal.
func (e *Exec) StartWatch(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.process != nil {
		e.killProcess()
	}

	args := append(append([]string{}, e.config.Args...), e.config.WatchArgs...)
	cmd := exec.CommandContext(ctx, e.config.Command, args...)
	cmd.Dir = e.config.Dir
	cmd.Env = append(os.Environ(), e.config.Env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// New process group so child watchers die with the bundler.
	setProcGroup(cmd)

	if err := cmd.Start(); err != nil {
		return err
	}

	e.process = cmd.Process
	return nil
}

// Stop stops the watch-mode process, if running.
func (e *Exec) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.killProcess()
}

// killProcess kills the current process group and waits for exit.
func (e *Exec) killProcess() {
	if e.process == nil {
		return
	}

	terminateProcess(e.process)

	done := make(chan struct{})
	go func() {
		e.process.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		forceKillProcess(e.process)
		<-done
	}

	e.process = nil
}

// IsRunning returns whether the watch process is running.
func (e *Exec) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.process != nil
}

// splitDiagnostics turns bundler output into individual error lines.
func splitDiagnostics(output string, err error) []string {
	var diags []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			diags = append(diags, line)
		}
	}
	if len(diags) == 0 && err != nil {
		diags = []string{err.Error()}
	}
	return diags
}
