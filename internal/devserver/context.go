package devserver

import (
	"fmt"
	"os"
	"time"

	"github.com/iDestin/rsbuild/internal/config"
	"github.com/iDestin/rsbuild/internal/hooks"
)

// AfterStartPayload is passed to after-start hook callbacks.
type AfterStartPayload struct {
	// Port is the port the server actually bound.
	Port int
}

// Hooks holds the lifecycle extension points of one dev-server run. A fresh
// set is built for every run; nothing registered here survives a restart.
type Hooks struct {
	// BeforeStart fires after the port is resolved, before the server binds.
	BeforeStart *hooks.Hook[hooks.None]

	// AfterStart fires once the server is listening.
	AfterStart *hooks.Hook[AfterStartPayload]

	// BeforeRestart fires before a restart tears the current run down.
	BeforeRestart *hooks.Hook[hooks.None]
}

// NewHooks creates an empty hook set for one lifecycle run.
func NewHooks() *Hooks {
	return &Hooks{
		BeforeStart:   hooks.New[hooks.None]("onBeforeStartDevServer"),
		AfterStart:    hooks.New[AfterStartPayload]("onAfterStartDevServer"),
		BeforeRestart: hooks.New[hooks.None]("onBeforeRestartServer"),
	}
}

// Context is the mutable state of one lifecycle run. It is owned exclusively
// by the controller that created it, is never shared across concurrent runs,
// and is discarded on teardown.
type Context struct {
	// Config is the resolved configuration for this run.
	Config *config.Config

	// Hooks is this run's hook registry.
	Hooks *Hooks

	// Host is the bind host.
	Host string

	// Port is the resolved port.
	Port int

	// Protocol is "http" or "https".
	Protocol string

	// Open requests opening the browser after startup.
	Open bool
}

// Logger is the injected logging capability. The orchestrator never assumes
// a concrete implementation.
type Logger interface {
	Logf(format string, args ...any)
	Errorf(format string, args ...any)
}

// consoleLogger is the default timestamped terminal logger.
type consoleLogger struct{}

func (consoleLogger) Logf(format string, args ...any) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] %s\n", timestamp, fmt.Sprintf(format, args...))
}

func (consoleLogger) Errorf(format string, args ...any) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Fprintf(os.Stderr, "[%s] \033[31m%s\033[0m\n", timestamp, fmt.Sprintf(format, args...))
}

// NewConsoleLogger returns the default timestamped terminal logger.
func NewConsoleLogger() Logger {
	return consoleLogger{}
}
