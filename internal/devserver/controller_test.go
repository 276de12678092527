package devserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/iDestin/rsbuild/internal/compiler"
	"github.com/iDestin/rsbuild/internal/config"
	"github.com/iDestin/rsbuild/internal/errors"
	"github.com/iDestin/rsbuild/internal/hooks"
)

// quietLogger discards all output during tests.
type quietLogger struct{}

func (quietLogger) Logf(string, ...any)   {}
func (quietLogger) Errorf(string, ...any) {}

// spyServer records lifecycle calls in order.
type spyServer struct {
	mu       sync.Mutex
	calls    []string
	initErr  error
	bindErr  error
	bound    int
	shutdown bool
}

func (s *spyServer) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *spyServer) Init(ctx context.Context) error {
	s.record("init")
	return s.initErr
}

func (s *spyServer) Listen(host string, port int) error {
	s.record("listen")
	if s.bindErr != nil {
		return s.bindErr
	}
	s.bound = port
	return nil
}

func (s *spyServer) Shutdown(ctx context.Context) error {
	s.record("shutdown")
	s.shutdown = true
	return nil
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Dev.Host = "127.0.0.1"
	cfg.Dev.Port = freePort(t)
	cfg.Server.Silent = true
	cfg.Server.PrintURLs = false
	return cfg
}

func factoryFor(server ServerAPI, err error) ServerFactory {
	return ServerFactoryFunc(func(ctx context.Context, devCtx *Context, port int, serverOptions map[string]any, comp compiler.Instance) (ServerAPI, error) {
		if err != nil {
			return nil, err
		}
		return server, nil
	})
}

func TestController_StartSequence(t *testing.T) {
	cfg := testConfig(t)
	server := &spyServer{}
	h := NewHooks()

	var order []string
	h.BeforeStart.Register("t", func(ctx context.Context, _ hooks.None) error {
		order = append(order, "before")
		return nil
	})
	h.AfterStart.Register("t", func(ctx context.Context, p AfterStartPayload) error {
		order = append(order, "after")
		if p.Port != cfg.Dev.Port {
			t.Errorf("after-start got port %d, want %d", p.Port, cfg.Dev.Port)
		}
		return nil
	})

	c := NewController(StartOptions{
		Config:  cfg,
		Hooks:   h,
		Factory: factoryFor(server, nil),
		Logger:  quietLogger{},
	})

	result, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State() != StateRunning {
		t.Errorf("state = %s, want running", c.State())
	}
	if result.Port != cfg.Dev.Port {
		t.Errorf("result port = %d, want %d", result.Port, cfg.Dev.Port)
	}
	if len(result.URLs) == 0 {
		t.Error("expected urls in result")
	}

	if len(order) != 2 || order[0] != "before" || order[1] != "after" {
		t.Errorf("hook order = %v, want [before after]", order)
	}
	wantCalls := []string{"init", "listen"}
	if len(server.calls) != len(wantCalls) {
		t.Fatalf("server calls = %v, want %v", server.calls, wantCalls)
	}
	for i := range wantCalls {
		if server.calls[i] != wantCalls[i] {
			t.Errorf("call %d = %q, want %q", i, server.calls[i], wantCalls[i])
		}
	}
	if server.bound != cfg.Dev.Port {
		t.Errorf("server bound %d, want %d", server.bound, cfg.Dev.Port)
	}
}

func TestController_BindFailure(t *testing.T) {
	cfg := testConfig(t)
	server := &spyServer{bindErr: fmt.Errorf("address already in use")}

	afterCalls := 0
	h := NewHooks()
	h.AfterStart.Register("t", func(ctx context.Context, _ AfterStartPayload) error {
		afterCalls++
		return nil
	})

	c := NewController(StartOptions{
		Config:  cfg,
		Hooks:   h,
		Factory: factoryFor(server, nil),
		Logger:  quietLogger{},
	})

	_, err := c.Start(context.Background())
	if !errors.IsCode(err, errors.CodeBindFailed) {
		t.Fatalf("got %v, want %s", err, errors.CodeBindFailed)
	}
	if c.State() != StateFailed {
		t.Errorf("state = %s, want failed", c.State())
	}
	if afterCalls != 0 {
		t.Errorf("after-start ran %d times after bind failure, want 0", afterCalls)
	}
}

func TestController_FactoryFailure(t *testing.T) {
	cfg := testConfig(t)
	c := NewController(StartOptions{
		Config:  cfg,
		Factory: factoryFor(nil, fmt.Errorf("no transport")),
		Logger:  quietLogger{},
	})

	_, err := c.Start(context.Background())
	if !errors.IsCode(err, errors.CodeServerInit) {
		t.Fatalf("got %v, want %s", err, errors.CodeServerInit)
	}
}

func TestController_InitFailure(t *testing.T) {
	cfg := testConfig(t)
	server := &spyServer{initErr: fmt.Errorf("middleware setup failed")}
	c := NewController(StartOptions{
		Config:  cfg,
		Factory: factoryFor(server, nil),
		Logger:  quietLogger{},
	})

	_, err := c.Start(context.Background())
	if !errors.IsCode(err, errors.CodeServerInit) {
		t.Fatalf("got %v, want %s", err, errors.CodeServerInit)
	}
}

func TestController_BeforeStartFailureStopsRun(t *testing.T) {
	cfg := testConfig(t)
	server := &spyServer{}

	h := NewHooks()
	h.BeforeStart.Register("t", func(ctx context.Context, _ hooks.None) error {
		return fmt.Errorf("plugin refused")
	})

	c := NewController(StartOptions{
		Config:  cfg,
		Hooks:   h,
		Factory: factoryFor(server, nil),
		Logger:  quietLogger{},
	})

	_, err := c.Start(context.Background())
	if !errors.IsCode(err, errors.CodeHookFailed) {
		t.Fatalf("got %v, want %s", err, errors.CodeHookFailed)
	}
	if len(server.calls) != 0 {
		t.Errorf("server touched after pre-hook failure: %v", server.calls)
	}
}

func TestController_AfterStartFailureShutsDown(t *testing.T) {
	cfg := testConfig(t)
	server := &spyServer{}

	h := NewHooks()
	h.AfterStart.Register("t", func(ctx context.Context, _ AfterStartPayload) error {
		return fmt.Errorf("post-start check failed")
	})

	c := NewController(StartOptions{
		Config:  cfg,
		Hooks:   h,
		Factory: factoryFor(server, nil),
		Logger:  quietLogger{},
	})

	_, err := c.Start(context.Background())
	if !errors.IsCode(err, errors.CodeHookFailed) {
		t.Fatalf("got %v, want %s", err, errors.CodeHookFailed)
	}
	if !server.shutdown {
		t.Error("listening server must be shut down when after-start fails")
	}
}

func TestController_PrintTransformFailure(t *testing.T) {
	cfg := testConfig(t)
	c := NewController(StartOptions{
		Config:  cfg,
		Factory: factoryFor(&spyServer{}, nil),
		Logger:  quietLogger{},
		PrintURLs: func([]string) ([]string, error) {
			return nil, nil
		},
	})

	_, err := c.Start(context.Background())
	if !errors.IsCode(err, errors.CodeInvalidPrintURLs) {
		t.Fatalf("got %v, want %s", err, errors.CodeInvalidPrintURLs)
	}
}

func TestController_Teardown(t *testing.T) {
	cfg := testConfig(t)
	server := &spyServer{}
	c := NewController(StartOptions{
		Config:  cfg,
		Factory: factoryFor(server, nil),
		Logger:  quietLogger{},
	})

	result, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Teardown(context.Background(), result); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	if !server.shutdown {
		t.Error("teardown should shut the server down")
	}
	if c.State() != StateTeardown {
		t.Errorf("state = %s, want teardown", c.State())
	}
}
