package hooks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/iDestin/rsbuild/internal/errors"
)

func TestHook_Ordering(t *testing.T) {
	h := New[None]("test")

	var order []string
	h.Register("a", func(ctx context.Context, _ None) error {
		order = append(order, "a")
		return nil
	})
	h.Register("b", func(ctx context.Context, _ None) error {
		order = append(order, "b")
		return nil
	})

	if err := CallNone(context.Background(), h); err != nil {
		t.Fatal(err)
	}

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("order = %v, want [a b]", order)
	}
}

func TestHook_OrderingWithSlowFirstCallback(t *testing.T) {
	h := New[None]("test")

	var order []string
	h.Register("slow", func(ctx context.Context, _ None) error {
		// Simulate slow asynchronous work; "fast" must still run after.
		time.Sleep(30 * time.Millisecond)
		order = append(order, "slow")
		return nil
	})
	h.Register("fast", func(ctx context.Context, _ None) error {
		order = append(order, "fast")
		return nil
	})

	if err := CallNone(context.Background(), h); err != nil {
		t.Fatal(err)
	}

	if len(order) != 2 || order[0] != "slow" || order[1] != "fast" {
		t.Errorf("order = %v, want [slow fast]", order)
	}
}

func TestHook_FailureAbortsRemaining(t *testing.T) {
	h := New[None]("test")

	calls := 0
	h.Register("first", func(ctx context.Context, _ None) error {
		calls++
		return fmt.Errorf("boom")
	})
	h.Register("second", func(ctx context.Context, _ None) error {
		calls++
		return nil
	})

	err := CallNone(context.Background(), h)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeHookFailed) {
		t.Errorf("expected %s, got %v", errors.CodeHookFailed, err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (second callback must not run)", calls)
	}
}

func TestHook_TypedPayload(t *testing.T) {
	type payload struct{ Port int }

	h := New[payload]("after-start")
	var got int
	h.Register("record", func(ctx context.Context, p payload) error {
		got = p.Port
		return nil
	})

	if err := h.Call(context.Background(), payload{Port: 3001}); err != nil {
		t.Fatal(err)
	}
	if got != 3001 {
		t.Errorf("payload port = %d, want 3001", got)
	}
}

func TestHook_RecallReinvokesAll(t *testing.T) {
	h := New[None]("test")

	calls := 0
	h.Register("count", func(ctx context.Context, _ None) error {
		calls++
		return nil
	})

	for i := 0; i < 3; i++ {
		if err := CallNone(context.Background(), h); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestHook_NilCallbackIgnored(t *testing.T) {
	h := New[None]("test")
	h.Register("nil", nil)
	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}

func TestHook_CancelledContext(t *testing.T) {
	h := New[None]("test")

	calls := 0
	h.Register("count", func(ctx context.Context, _ None) error {
		calls++
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := CallNone(ctx, h); err == nil {
		t.Error("expected context error")
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestHook_Name(t *testing.T) {
	h := New[None]("onBeforeStartDevServer")
	if h.Name() != "onBeforeStartDevServer" {
		t.Errorf("Name() = %q", h.Name())
	}
}
