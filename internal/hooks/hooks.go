package hooks

import (
	"context"
	"sync"

	"github.com/iDestin/rsbuild/internal/errors"
)

// Callback is a hook callback with a typed payload.
type Callback[T any] func(ctx context.Context, payload T) error

// entry pairs a registrant name with its callback.
type entry[T any] struct {
	name string
	fn   Callback[T]
}

// Hook is an ordered, append-only registry of asynchronous callbacks for one
// lifecycle event. Callbacks run strictly in registration order; there is no
// removal API. A hook may be called any number of times over its lifetime.
type Hook[T any] struct {
	name    string
	mu      sync.Mutex
	entries []entry[T]
}

// New creates a hook for the named lifecycle event.
func New[T any](name string) *Hook[T] {
	return &Hook[T]{name: name}
}

// Name returns the lifecycle event name of the hook.
func (h *Hook[T]) Name() string {
	return h.name
}

// Register appends a callback under the given registrant name.
// Registration order is the invocation order.
func (h *Hook[T]) Register(name string, fn Callback[T]) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry[T]{name: name, fn: fn})
}

// Len returns the number of registered callbacks.
func (h *Hook[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Call invokes every registered callback sequentially with the payload.
// Each callback is awaited before the next begins, so later callbacks may
// depend on side effects of earlier ones. The first failing callback aborts
// the remaining sequence and its error is returned wrapped as a hook error.
func (h *Hook[T]) Call(ctx context.Context, payload T) error {
	h.mu.Lock()
	entries := make([]entry[T], len(h.entries))
	copy(entries, h.entries)
	h.mu.Unlock()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.fn(ctx, payload); err != nil {
			return errors.New(errors.CodeHookFailed).
				WithDetailf("callback %q of hook %q failed", e.name, h.name).
				Wrap(err)
		}
	}
	return nil
}

// None is the payload type for hooks that carry no data.
type None = struct{}

// CallNone is a convenience for hooks with no payload.
func CallNone(ctx context.Context, h *Hook[None]) error {
	return h.Call(ctx, None{})
}
