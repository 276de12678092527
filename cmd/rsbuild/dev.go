package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iDestin/rsbuild"
	"github.com/iDestin/rsbuild/internal/devserver"
)

func devCmd() *cobra.Command {
	var (
		port        int
		host        string
		openBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with live reload.

The server serves the build output, pushes build results to connected
browsers, and restarts itself when the config or env files change.

Examples:
  rsbuild dev
  rsbuild dev --port=8080
  rsbuild dev --host=0.0.0.0 --open`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(port, host, openBrowser)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to run on (default from rsbuild.json)")
	cmd.Flags().StringVar(&host, "host", "", "Host to bind to (default from rsbuild.json)")
	cmd.Flags().BoolVarP(&openBrowser, "open", "o", false, "Open browser on start")

	return cmd
}

// devOverrides builds the command-line override fragment. It is assembled
// once and reused unchanged on every restart.
func devOverrides(port int, host string, openBrowser bool) map[string]any {
	dev := map[string]any{}
	if port > 0 {
		dev["port"] = port
	}
	if host != "" {
		dev["host"] = host
	}
	if openBrowser {
		dev["open"] = true
	}
	if len(dev) == 0 {
		return nil
	}
	return map[string]any{"dev": dev}
}

func runDev(port int, host string, openBrowser bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	app, err := rsbuild.New(rsbuild.Options{
		Cwd:        cwd,
		ConfigPath: configPath,
		EnvMode:    envMode,
		Overrides:  devOverrides(port, host, openBrowser),
	})
	if err != nil {
		return err
	}

	metrics := devserver.NewMetrics(nil)
	serverOptions := rsbuild.DevServerOptions{Metrics: metrics}

	handle, err := app.StartDevServer(context.Background(), serverOptions)
	if err != nil {
		return err
	}
	success("Dev server running on port %d", handle.Port)

	if app.Config().Dev.Open {
		go openURL(startURL(app.Config(), handle.Port))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The running instance is swapped out on every restart; the mutex keeps
	// the coordinator and the shutdown path off each other's state.
	var mu sync.Mutex

	watch := append([]string{}, app.EnvFiles()...)
	if app.Config().Path() != "" {
		watch = append(watch, app.Config().Path())
	}
	watch = append(watch, app.Config().Dev.WatchFiles...)

	coordinator, err := devserver.NewCoordinator(devserver.CoordinatorOptions{
		Paths:     watch,
		Overrides: devOverrides(port, host, openBrowser),
		Restart: func(ctx context.Context, overrides map[string]any) error {
			mu.Lock()
			defer mu.Unlock()
			nextApp, nextHandle, err := app.RestartDevServer(ctx, handle, serverOptions, overrides)
			app = nextApp
			handle = nextHandle
			if err != nil {
				return err
			}
			success("Dev server restarted on port %d", handle.Port)
			return nil
		},
	})
	if err != nil {
		return err
	}
	defer coordinator.Close()

	go coordinator.Start(ctx)

	<-ctx.Done()
	fmt.Println("\n  Shutting down...")

	mu.Lock()
	defer mu.Unlock()
	if handle != nil {
		return handle.Close(context.Background())
	}
	return nil
}

// startURL is the address opened in the browser after startup.
func startURL(cfg *rsbuild.Config, port int) string {
	if cfg.Dev.StartURL != "" {
		return cfg.Dev.StartURL
	}
	return fmt.Sprintf("%s://localhost:%d", cfg.Protocol(), port)
}
