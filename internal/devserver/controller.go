package devserver

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iDestin/rsbuild/internal/compiler"
	"github.com/iDestin/rsbuild/internal/config"
	"github.com/iDestin/rsbuild/internal/errors"
	"github.com/iDestin/rsbuild/internal/hooks"
)

// tracerName identifies the orchestrator's tracer.
const tracerName = "rsbuild/devserver"

// State is the lifecycle controller's state.
type State int

const (
	StateIdle State = iota
	StateConfigResolved
	StatePortBound
	StatePreHooksRun
	StateServerInitializing
	StateListening
	StateRunning
	StateFailed
	StateTeardown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigResolved:
		return "config-resolved"
	case StatePortBound:
		return "port-bound"
	case StatePreHooksRun:
		return "pre-hooks-run"
	case StateServerInitializing:
		return "server-initializing"
	case StateListening:
		return "listening"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateTeardown:
		return "teardown"
	}
	return "unknown"
}

// ServerAPI is the handle to a running (or startable) server returned by a
// ServerFactory. Listen is a suspension point: it returns once the socket is
// bound and serving has started, or with the bind error.
type ServerAPI interface {
	// Init prepares the server before binding.
	Init(ctx context.Context) error

	// Listen binds the socket and starts serving. It returns the bind
	// outcome; serving continues in the background on success.
	Listen(host string, port int) error

	// Shutdown stops serving and releases the socket.
	Shutdown(ctx context.Context) error
}

// ServerFactory constructs the underlying server transport. It is the sole
// extension point for swapping the transport implementation.
type ServerFactory interface {
	Create(ctx context.Context, devCtx *Context, port int, serverOptions map[string]any, comp compiler.Instance) (ServerAPI, error)
}

// ServerFactoryFunc adapts a function to the ServerFactory interface.
type ServerFactoryFunc func(ctx context.Context, devCtx *Context, port int, serverOptions map[string]any, comp compiler.Instance) (ServerAPI, error)

// Create implements ServerFactory.
func (f ServerFactoryFunc) Create(ctx context.Context, devCtx *Context, port int, serverOptions map[string]any, comp compiler.Instance) (ServerAPI, error) {
	return f(ctx, devCtx, port, serverOptions, comp)
}

// StartResult is the outcome of one successful start.
type StartResult struct {
	// Port is the bound port.
	Port int

	// URLs are the reachable addresses, after any print transform.
	URLs []string

	// Server is the opaque handle used later to request shutdown.
	Server ServerAPI

	// Context is the run's context, owned by this run only.
	Context *Context
}

// StartOptions configures one lifecycle run.
type StartOptions struct {
	// Config is the resolved configuration (required).
	Config *config.Config

	// Hooks is the run's hook registry; a fresh one is built when nil.
	Hooks *Hooks

	// Factory builds the server transport (required).
	Factory ServerFactory

	// Compiler is the bundler driving live updates.
	Compiler compiler.Instance

	// PrintURLs optionally replaces or filters the printed URL list.
	PrintURLs PrintURLsFunc

	// Logger receives advisory output; defaults to the console logger.
	Logger Logger

	// Metrics records lifecycle counters; nil disables recording.
	Metrics *Metrics
}

// Controller drives one dev-server lifecycle run through its states. Create
// a new controller per run; a torn-down run's controller is never reused.
type Controller struct {
	options StartOptions
	state   State
	tracer  trace.Tracer
}

// NewController creates a controller for one lifecycle run.
func NewController(options StartOptions) *Controller {
	if options.Logger == nil {
		options.Logger = NewConsoleLogger()
	}
	if options.Hooks == nil {
		options.Hooks = NewHooks()
	}
	return &Controller{
		options: options,
		state:   StateIdle,
		tracer:  otel.Tracer(tracerName),
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Start runs the lifecycle state machine to Listening and returns the
// startup result. Every failure propagates to the caller; nothing is
// retried here — retry is the restart coordinator's business, and only on
// file-change events, never on a failed start.
func (c *Controller) Start(ctx context.Context) (*StartResult, error) {
	ctx, span := c.tracer.Start(ctx, "devserver.start")
	defer span.End()

	result, err := c.run(ctx, span)
	if err != nil {
		c.state = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("devserver.port", result.Port))
	return result, nil
}

func (c *Controller) run(ctx context.Context, span trace.Span) (*StartResult, error) {
	cfg := c.options.Config
	log := c.options.Logger

	// Idle -> ConfigResolved. Setting NODE_ENV is a deliberate
	// process-wide side effect, applied only when unset.
	if os.Getenv("NODE_ENV") == "" {
		os.Setenv("NODE_ENV", "development")
	}
	c.state = StateConfigResolved
	span.AddEvent("config-resolved")

	// ConfigResolved -> PortBound.
	alloc, err := ResolvePort(cfg.Dev.Port, PortOptions{
		Strict: cfg.Server.StrictPort,
		Silent: cfg.Server.Silent,
		Host:   cfg.Dev.Host,
		Notify: func(requested, chosen int) {
			log.Logf("Port %d is in use, using port %d instead", requested, chosen)
		},
	})
	if err != nil {
		return nil, err
	}
	c.state = StatePortBound
	span.AddEvent("port-bound", trace.WithAttributes(attribute.Int("port", alloc.Port)))

	// PortBound -> PreHooksRun.
	devCtx := &Context{
		Config:   cfg,
		Hooks:    c.options.Hooks,
		Host:     cfg.Dev.Host,
		Port:     alloc.Port,
		Protocol: cfg.Protocol(),
		Open:     cfg.Dev.Open,
	}

	urls, err := ApplyPrintTransform(Strings(ComputeURLs(devCtx.Protocol, devCtx.Port, devCtx.Host)), c.options.PrintURLs)
	if err != nil {
		return nil, err
	}
	if cfg.Server.PrintURLs {
		for _, u := range urls {
			log.Logf("  ➜  %s", u)
		}
	}

	if err := hooks.CallNone(ctx, devCtx.Hooks.BeforeStart); err != nil {
		return nil, err
	}
	c.state = StatePreHooksRun
	span.AddEvent("pre-hooks-run")

	// PreHooksRun -> ServerInitializing.
	server, err := c.options.Factory.Create(ctx, devCtx, devCtx.Port, cfg.Tools.DevServer, c.options.Compiler)
	if err != nil {
		return nil, errors.FromError(err, errors.CodeServerInit)
	}
	c.state = StateServerInitializing
	span.AddEvent("server-initializing")

	if err := server.Init(ctx); err != nil {
		return nil, errors.FromError(err, errors.CodeServerInit)
	}

	// ServerInitializing -> Listening. The bind outcome is authoritative:
	// the probed port may have been claimed in the meantime.
	if err := server.Listen(devCtx.Host, devCtx.Port); err != nil {
		return nil, errors.New(errors.CodeBindFailed).
			WithDetailf("listen on %s:%d failed", devCtx.Host, devCtx.Port).
			Wrap(err)
	}
	c.state = StateListening
	span.AddEvent("listening")

	if err := devCtx.Hooks.AfterStart.Call(ctx, AfterStartPayload{Port: devCtx.Port}); err != nil {
		// The server is listening but the run failed: tear it down so no
		// half-started server leaks past a failed start.
		server.Shutdown(context.Background())
		return nil, err
	}

	c.state = StateRunning
	c.options.Metrics.ServerStarted()

	return &StartResult{
		Port:    devCtx.Port,
		URLs:    urls,
		Server:  server,
		Context: devCtx,
	}, nil
}

// Teardown shuts the run's server down and marks the controller torn down.
// It is driven externally, by the restart coordinator or signal handling.
func (c *Controller) Teardown(ctx context.Context, result *StartResult) error {
	c.state = StateTeardown
	if result == nil || result.Server == nil {
		return nil
	}
	return result.Server.Shutdown(ctx)
}
