package devserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestCoordinator_RestartsOnChange(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rsbuild.json")
	if err := os.WriteFile(cfgPath, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var restarts atomic.Int32
	coord, err := NewCoordinator(CoordinatorOptions{
		Paths:    []string{cfgPath},
		Debounce: 30 * time.Millisecond,
		Logger:   quietLogger{},
		Restart: func(ctx context.Context, overrides map[string]any) error {
			restarts.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	defer coord.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Start(ctx)

	if err := os.WriteFile(cfgPath, []byte(`{"dev":{"port":4000}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return restarts.Load() >= 1 }) {
		t.Fatal("restart was not triggered by config change")
	}
}

func TestCoordinator_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rsbuild.json")
	if err := os.WriteFile(cfgPath, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var restarts atomic.Int32
	coord, err := NewCoordinator(CoordinatorOptions{
		Paths:    []string{cfgPath},
		Debounce: 150 * time.Millisecond,
		Logger:   quietLogger{},
		Restart: func(ctx context.Context, overrides map[string]any) error {
			restarts.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	defer coord.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Start(ctx)

	for i := 0; i < 5; i++ {
		content := fmt.Sprintf(`{"dev":{"port":%d}}`, 4000+i)
		if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !waitFor(t, 3*time.Second, func() bool { return restarts.Load() >= 1 }) {
		t.Fatal("restart never fired")
	}
	// Settle past one more debounce window, then confirm the burst
	// collapsed into a single restart.
	time.Sleep(300 * time.Millisecond)
	if got := restarts.Load(); got != 1 {
		t.Errorf("got %d restarts for one burst, want 1", got)
	}
}

func TestCoordinator_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rsbuild.json")
	otherPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(cfgPath, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var restarts atomic.Int32
	coord, err := NewCoordinator(CoordinatorOptions{
		Paths:    []string{cfgPath},
		Debounce: 30 * time.Millisecond,
		Logger:   quietLogger{},
		Restart: func(ctx context.Context, overrides map[string]any) error {
			restarts.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	defer coord.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Start(ctx)

	if err := os.WriteFile(otherPath, []byte("unrelated"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := restarts.Load(); got != 0 {
		t.Errorf("got %d restarts for unrelated change, want 0", got)
	}
}

func TestCoordinator_SurvivesFailedRestart(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rsbuild.json")
	if err := os.WriteFile(cfgPath, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var attempts atomic.Int32
	coord, err := NewCoordinator(CoordinatorOptions{
		Paths:    []string{cfgPath},
		Debounce: 30 * time.Millisecond,
		Logger:   quietLogger{},
		Restart: func(ctx context.Context, overrides map[string]any) error {
			if attempts.Add(1) == 1 {
				return fmt.Errorf("port probe failed")
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	defer coord.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Start(ctx)

	if err := os.WriteFile(cfgPath, []byte(`{"dev":{"port":4001}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return attempts.Load() >= 1 }) {
		t.Fatal("first restart never attempted")
	}

	// The loop must stay alive and pick the next change up.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(cfgPath, []byte(`{"dev":{"port":4002}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return attempts.Load() >= 2 }) {
		t.Fatal("watch loop died after a failed restart")
	}
}

func TestCoordinator_OverridesAreCopied(t *testing.T) {
	coord, err := NewCoordinator(CoordinatorOptions{
		Paths:     nil,
		Overrides: map[string]any{"dev": map[string]any{"port": 9000}},
		Restart:   func(context.Context, map[string]any) error { return nil },
		Logger:    quietLogger{},
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	defer coord.Close()

	first := coord.Overrides()
	first["dev"] = "mutated"
	second := coord.Overrides()
	if _, ok := second["dev"].(map[string]any); !ok {
		t.Error("mutating a returned override map must not affect the retained fragment")
	}
}
