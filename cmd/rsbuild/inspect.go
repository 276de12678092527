package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iDestin/rsbuild"
)

func inspectCmd() *cobra.Command {
	var (
		inspectEnvMode string
		output         string
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the resolved configuration",
		Long: `Print the fully resolved configuration as JSON: the config file
layered with defaults, after validation.

Examples:
  rsbuild inspect
  rsbuild inspect --env production
  rsbuild inspect --verbose --output=inspect.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(inspectEnvMode, output, verbose)
		},
	}

	cmd.Flags().StringVar(&inspectEnvMode, "env", "", "Inspect under this env mode")
	cmd.Flags().StringVar(&output, "output", "", "Write the result to a file instead of stdout")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include loaded env files and values")

	return cmd
}

func runInspect(inspectEnvMode, output string, verbose bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	mode := envMode
	if inspectEnvMode != "" {
		mode = inspectEnvMode
	}

	app, err := rsbuild.New(rsbuild.Options{
		Cwd:        cwd,
		ConfigPath: configPath,
		EnvMode:    mode,
	})
	if err != nil {
		return err
	}

	out, err := app.InspectConfig(verbose)
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Println(out)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(output, []byte(out+"\n"), 0o644); err != nil {
		return err
	}
	success("Config written to %s", output)
	return nil
}
