package compiler

import (
	"sync"
	"time"
)

// Role tags a compiler instance by what it bundles. The dev server only
// bridges client-facing compilers; a server-role compiler in a multi-compiler
// setup does not drive browser notifications.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// String returns the role name.
func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Stats describes a finished compilation.
type Stats struct {
	// Errors are compiler diagnostics; empty on success.
	Errors []string

	// Duration is how long the compilation took.
	Duration time.Duration

	// Output is the raw compiler output.
	Output string
}

// HasErrors reports whether the compilation failed.
func (s Stats) HasErrors() bool {
	return len(s.Errors) > 0
}

// Compiler is the injected bundler capability. It exposes named
// hook-registration points for its lifecycle events; the orchestrator never
// looks inside the bundler beyond these.
type Compiler interface {
	// Name identifies the compiler instance.
	Name() string

	// OnCompile registers a callback fired when a compilation starts.
	OnCompile(name string, fn func())

	// OnInvalid registers a callback fired when the current output is
	// invalidated by a change.
	OnInvalid(name string, fn func())

	// OnDone registers a callback fired when a compilation finishes.
	OnDone(name string, fn func(stats Stats))
}

// Instance pairs a compiler capability with its explicit role tag.
type Instance struct {
	Compiler Compiler
	Role     Role
}

// IsClientTarget reports whether any of the configured target values is
// browser-facing. It accepts the flattened form of both single-string and
// list-of-strings target declarations.
func IsClientTarget(targets ...string) bool {
	for _, target := range targets {
		switch target {
		case "web", "web-worker":
			return true
		}
	}
	return false
}

type namedFunc struct {
	name string
	fn   func()
}

type namedDoneFunc struct {
	name string
	fn   func(Stats)
}

// Emitter is a reusable event fan-out for Compiler implementations. Embed it
// and call the Emit methods at the matching lifecycle points.
type Emitter struct {
	mu      sync.Mutex
	compile []namedFunc
	invalid []namedFunc
	done    []namedDoneFunc
}

// OnCompile registers a compile-started callback.
func (e *Emitter) OnCompile(name string, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compile = append(e.compile, namedFunc{name, fn})
}

// OnInvalid registers an invalidation callback.
func (e *Emitter) OnInvalid(name string, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalid = append(e.invalid, namedFunc{name, fn})
}

// OnDone registers a compilation-finished callback.
func (e *Emitter) OnDone(name string, fn func(stats Stats)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.done = append(e.done, namedDoneFunc{name, fn})
}

// EmitCompile fires all compile-started callbacks in registration order.
func (e *Emitter) EmitCompile() {
	for _, entry := range e.snapshot(&e.compile) {
		entry.fn()
	}
}

// EmitInvalid fires all invalidation callbacks in registration order.
func (e *Emitter) EmitInvalid() {
	for _, entry := range e.snapshot(&e.invalid) {
		entry.fn()
	}
}

// EmitDone fires all compilation-finished callbacks in registration order.
func (e *Emitter) EmitDone(stats Stats) {
	e.mu.Lock()
	entries := make([]namedDoneFunc, len(e.done))
	copy(entries, e.done)
	e.mu.Unlock()

	for _, entry := range entries {
		entry.fn(stats)
	}
}

func (e *Emitter) snapshot(list *[]namedFunc) []namedFunc {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := make([]namedFunc, len(*list))
	copy(entries, *list)
	return entries
}
