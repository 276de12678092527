package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iDestin/rsbuild"
	"github.com/iDestin/rsbuild/internal/compiler"
)

func buildCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run a production build",
		Long: `Run the configured bundler for a production build.

With --watch the bundler stays running and rebuilds on source changes.

Examples:
  rsbuild build
  rsbuild build --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild on source changes")

	return cmd
}

func runBuild(watch bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	app, err := rsbuild.New(rsbuild.Options{
		Cwd:        cwd,
		ConfigPath: configPath,
		EnvMode:    envMode,
	})
	if err != nil {
		return err
	}

	if os.Getenv("NODE_ENV") == "" {
		os.Setenv("NODE_ENV", "production")
	}

	if !watch {
		result, err := app.Build(context.Background())
		if err != nil {
			return err
		}
		if !result.Success {
			if result.Output != "" {
				info("%s", result.Output)
			}
			return result.Error
		}
		success("Built in %s", result.Duration.Round(time.Millisecond))
		return nil
	}

	return runWatchBuild(app)
}

// runWatchBuild keeps the bundler running until interrupted, reporting
// each finished compilation.
func runWatchBuild(app *rsbuild.Rsbuild) error {
	cfg := app.Config().Tools.Bundler
	exec := compiler.NewExec(cfg.Command, compiler.ExecConfig{
		Dir:     app.Config().Dir(),
		Command: cfg.Command,
		Args:    cfg.Args,
	})
	exec.OnDone("rsbuild-cli", func(stats compiler.Stats) {
		if stats.HasErrors() {
			warn("Build failed with %d errors", len(stats.Errors))
			return
		}
		success("Rebuilt in %s", stats.Duration.Round(time.Millisecond))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := exec.StartWatch(ctx); err != nil {
		return err
	}
	info("Watching for changes...")

	<-ctx.Done()
	exec.Stop()
	return nil
}
