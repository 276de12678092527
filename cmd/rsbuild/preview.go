package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iDestin/rsbuild"
)

func previewCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview the production build locally",
		Long: `Serve the build output directory over HTTP.

The pages go out exactly as built: no live reload, no injection. Run a
build first.

Examples:
  rsbuild preview
  rsbuild preview --port=8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to run on (default from rsbuild.json)")
	cmd.Flags().StringVar(&host, "host", "", "Host to bind to (default from rsbuild.json)")

	return cmd
}

func runPreview(port int, host string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	dev := map[string]any{}
	if port > 0 {
		dev["port"] = port
	}
	if host != "" {
		dev["host"] = host
	}
	var overrides map[string]any
	if len(dev) > 0 {
		overrides = map[string]any{"dev": dev}
	}

	app, err := rsbuild.New(rsbuild.Options{
		Cwd:        cwd,
		ConfigPath: configPath,
		EnvMode:    envMode,
		Overrides:  overrides,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := app.Preview(ctx)
	if err != nil {
		return err
	}
	success("Preview server running on port %d", server.Port)

	<-ctx.Done()
	return server.Shutdown(context.Background())
}
