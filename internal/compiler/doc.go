// Package compiler defines the bundler capability consumed by the
// orchestrator and the bridge that adapts bundler lifecycle events into
// dev-server notifications.
//
// The orchestrator never inspects the bundler itself: it sees an opaque
// Compiler exposing named hook-registration points (compile, invalid, done)
// and an explicit Role tag. BindDevServer wires a client-role compiler's
// events into the live-reload channel; server-role compilers are skipped.
//
// Exec is the built-in implementation: it runs an external bundler command,
// manages its process group in watch mode, and emits the lifecycle events
// around each run.
package compiler
