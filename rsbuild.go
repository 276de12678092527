// Package rsbuild is the embedding API for the build-tool orchestrator.
//
// This is the recommended import for programmatic use:
//
//	import "github.com/iDestin/rsbuild"
//
// Usage:
//
//	app, err := rsbuild.New(rsbuild.Options{Cwd: "."})
//	app.OnAfterStartDevServer("banner", func(ctx context.Context, p rsbuild.AfterStartPayload) error {
//		log.Printf("listening on %d", p.Port)
//		return nil
//	})
//	handle, err := app.StartDevServer(ctx, rsbuild.DevServerOptions{})
package rsbuild

import (
	"context"
	"encoding/json"

	"github.com/iDestin/rsbuild/internal/compiler"
	"github.com/iDestin/rsbuild/internal/config"
	"github.com/iDestin/rsbuild/internal/devserver"
	"github.com/iDestin/rsbuild/internal/errors"
	"github.com/iDestin/rsbuild/internal/hooks"
	"github.com/iDestin/rsbuild/internal/preview"
)

// Re-exported types, so embedders rarely need the internal packages.
type (
	// Config is the resolved configuration.
	Config = config.Config

	// MergeFunc combines two configuration fragments.
	MergeFunc = config.MergeFunc

	// AfterStartPayload is passed to after-start hook callbacks.
	AfterStartPayload = devserver.AfterStartPayload

	// PrintURLsFunc replaces or filters the printed URL list.
	PrintURLsFunc = devserver.PrintURLsFunc

	// Logger is the injected logging capability.
	Logger = devserver.Logger

	// ServerFactory constructs the dev server transport.
	ServerFactory = devserver.ServerFactory

	// BuildResult is the outcome of one production build.
	BuildResult = compiler.BuildResult
)

// DeepMerge is the default merge strategy: maps merge recursively, arrays
// and scalars are replaced by the override.
var DeepMerge MergeFunc = config.DeepMerge

// Options configures an orchestrator instance.
type Options struct {
	// Cwd is the project directory. Config discovery walks up from here.
	Cwd string

	// ConfigPath overrides config discovery with an explicit file path.
	ConfigPath string

	// EnvMode selects which .env.<mode> files are loaded.
	EnvMode string

	// Overrides is a configuration fragment layered over the file config.
	Overrides map[string]any

	// MergeFn combines configuration layers; DeepMerge when nil.
	MergeFn MergeFunc

	// Logger receives advisory output.
	Logger Logger
}

// Rsbuild is one orchestrator instance bound to a resolved configuration.
// Hook registrations live on the instance and are applied to every run it
// starts.
type Rsbuild struct {
	options Options
	config  *config.Config
	env     *config.EnvResult

	beforeStart   []namedHook[hooks.None]
	afterStart    []namedHook[AfterStartPayload]
	beforeRestart []namedHook[hooks.None]
}

type namedHook[T any] struct {
	name string
	fn   hooks.Callback[T]
}

// New resolves the configuration and environment files and returns an
// orchestrator instance.
func New(options Options) (*Rsbuild, error) {
	if options.MergeFn == nil {
		options.MergeFn = config.DeepMerge
	}
	if options.Logger == nil {
		options.Logger = devserver.NewConsoleLogger()
	}

	cfg, err := config.Resolve(config.ResolveOptions{
		Path:      options.ConfigPath,
		Dir:       options.Cwd,
		Overrides: options.Overrides,
		MergeFn:   options.MergeFn,
	})
	if err != nil {
		return nil, err
	}

	envDir := options.Cwd
	if cfg.Dir() != "" {
		envDir = cfg.Dir()
	}
	env, err := config.LoadEnv(envDir, options.EnvMode)
	if err != nil {
		return nil, err
	}

	return &Rsbuild{options: options, config: cfg, env: env}, nil
}

// Config returns the resolved configuration.
func (r *Rsbuild) Config() *config.Config {
	return r.config
}

// EnvFiles returns the environment files that were loaded, in load order.
func (r *Rsbuild) EnvFiles() []string {
	return r.env.Files
}

// OnBeforeStartDevServer registers a callback fired after the port is
// resolved and before the server binds.
func (r *Rsbuild) OnBeforeStartDevServer(name string, fn func(ctx context.Context) error) {
	r.beforeStart = append(r.beforeStart, namedHook[hooks.None]{name, func(ctx context.Context, _ hooks.None) error {
		return fn(ctx)
	}})
}

// OnAfterStartDevServer registers a callback fired once the server is
// listening.
func (r *Rsbuild) OnAfterStartDevServer(name string, fn func(ctx context.Context, payload AfterStartPayload) error) {
	r.afterStart = append(r.afterStart, namedHook[AfterStartPayload]{name, fn})
}

// OnBeforeRestartServer registers a callback fired before a restart tears
// the current run down.
func (r *Rsbuild) OnBeforeRestartServer(name string, fn func(ctx context.Context) error) {
	r.beforeRestart = append(r.beforeRestart, namedHook[hooks.None]{name, func(ctx context.Context, _ hooks.None) error {
		return fn(ctx)
	}})
}

// buildHooks materializes the instance's registrations into a fresh hook
// set for one run.
func (r *Rsbuild) buildHooks() *devserver.Hooks {
	h := devserver.NewHooks()
	for _, reg := range r.beforeStart {
		h.BeforeStart.Register(reg.name, reg.fn)
	}
	for _, reg := range r.afterStart {
		h.AfterStart.Register(reg.name, reg.fn)
	}
	for _, reg := range r.beforeRestart {
		h.BeforeRestart.Register(reg.name, reg.fn)
	}
	return h
}

// DevServerOptions configures one dev-server start.
type DevServerOptions struct {
	// Factory builds the server transport; the built-in HTTP factory when
	// nil.
	Factory ServerFactory

	// Compiler is the bundler driving live updates; built from the
	// tools.bundler config when unset and a command is configured.
	Compiler compiler.Instance

	// PrintURLs optionally replaces or filters the printed URL list.
	PrintURLs PrintURLsFunc

	// Metrics records lifecycle counters; nil disables recording.
	Metrics *devserver.Metrics
}

// DevServerHandle is a started dev server.
type DevServerHandle struct {
	// Port is the bound port.
	Port int

	// URLs are the reachable addresses.
	URLs []string

	controller *devserver.Controller
	result     *devserver.StartResult
}

// Close tears the dev server down.
func (h *DevServerHandle) Close(ctx context.Context) error {
	return h.controller.Teardown(ctx, h.result)
}

// StartDevServer runs the dev-server lifecycle to completion and returns a
// handle to the running server.
func (r *Rsbuild) StartDevServer(ctx context.Context, options DevServerOptions) (*DevServerHandle, error) {
	if options.Factory == nil {
		options.Factory = devserver.NewHTTPFactory(devserver.HTTPFactoryOptions{
			Logger:  r.options.Logger,
			Metrics: options.Metrics,
		})
	}
	if options.Compiler.Compiler == nil && r.config.Tools.Bundler.Command != "" {
		options.Compiler = compiler.Instance{
			Compiler: r.newExec(),
			Role:     compiler.RoleClient,
		}
	}

	controller := devserver.NewController(devserver.StartOptions{
		Config:    r.config,
		Hooks:     r.buildHooks(),
		Factory:   options.Factory,
		Compiler:  options.Compiler,
		PrintURLs: options.PrintURLs,
		Logger:    r.options.Logger,
		Metrics:   options.Metrics,
	})

	result, err := controller.Start(ctx)
	if err != nil {
		return nil, err
	}
	return &DevServerHandle{
		Port:       result.Port,
		URLs:       result.URLs,
		controller: controller,
		result:     result,
	}, nil
}

// RestartDevServer replaces a running dev server after a configuration
// change: before-restart hooks fire, the old server is torn down, the
// configuration and env files are resolved from scratch, and a fresh run
// starts. The returned instance supersedes the receiver; hook registrations
// carry over. A non-nil overrides fragment replaces the instance's original
// one for the re-resolution — the restart coordinator passes the retained
// command-line fragment here.
func (r *Rsbuild) RestartDevServer(ctx context.Context, handle *DevServerHandle, options DevServerOptions, overrides map[string]any) (*Rsbuild, *DevServerHandle, error) {
	if handle != nil {
		beforeRestart := r.buildHooks().BeforeRestart
		if err := hooks.CallNone(ctx, beforeRestart); err != nil {
			return r, handle, err
		}
		if err := handle.Close(ctx); err != nil {
			return r, nil, err
		}
	}

	nextOptions := r.options
	if overrides != nil {
		nextOptions.Overrides = overrides
	}
	next, err := New(nextOptions)
	if err != nil {
		return r, nil, err
	}
	next.beforeStart = r.beforeStart
	next.afterStart = r.afterStart
	next.beforeRestart = r.beforeRestart

	nextHandle, err := next.StartDevServer(ctx, options)
	if err != nil {
		return next, nil, err
	}
	options.Metrics.Restarted()
	return next, nextHandle, nil
}

// newExec builds the external bundler adapter from the resolved config.
func (r *Rsbuild) newExec() *compiler.Exec {
	bundler := r.config.Tools.Bundler
	return compiler.NewExec(bundler.Command, compiler.ExecConfig{
		Dir:     r.config.Dir(),
		Command: bundler.Command,
		Args:    bundler.Args,
	})
}

// Build runs the configured bundler once for a production build.
func (r *Rsbuild) Build(ctx context.Context) (BuildResult, error) {
	if r.config.Tools.Bundler.Command == "" {
		return BuildResult{}, errors.New(errors.CodeConfigInvalid).
			WithDetail("No bundler command configured").
			WithSuggestion("Set tools.bundler.command in rsbuild.json")
	}
	return r.newExec().Build(ctx), nil
}

// Preview serves the finished build output. The returned server is already
// listening.
func (r *Rsbuild) Preview(ctx context.Context) (*preview.Server, error) {
	server, err := preview.New(preview.Options{
		Config: r.config,
		Logger: r.options.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := server.Start(ctx); err != nil {
		return nil, err
	}
	return server, nil
}

// InspectConfig renders the resolved configuration as indented JSON. With
// verbose set, loaded env files and values are included.
func (r *Rsbuild) InspectConfig(verbose bool) (string, error) {
	if !verbose {
		data, err := json.MarshalIndent(r.config, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	payload := map[string]any{
		"config":   r.config,
		"envFiles": r.env.Files,
		"env":      r.env.Values,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
