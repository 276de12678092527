package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	"github.com/iDestin/rsbuild/internal/errors"
)

// LoadFragment reads a configuration fragment from a JSON file.
func LoadFragment(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Create " + ConfigFileName + " or pass --config with the right path")
		}
		return nil, errors.New(errors.CodeConfigParse).Wrap(err)
	}

	fragment := map[string]any{}
	if err := json.Unmarshal(data, &fragment); err != nil {
		return nil, errors.New(errors.CodeConfigParse).
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}
	return fragment, nil
}

// Decode converts a merged fragment into the typed configuration.
func Decode(fragment map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.New(errors.CodeConfigParse).Wrap(err)
	}
	if err := decoder.Decode(fragment); err != nil {
		return nil, errors.New(errors.CodeConfigParse).
			WithDetail("Configuration does not match the expected schema: " + err.Error())
	}
	return cfg, nil
}

// ResolveOptions controls configuration resolution.
type ResolveOptions struct {
	// Path is an explicit config file path. Empty means discover via
	// FindProjectRoot from Dir; a project without a config file resolves
	// to pure defaults plus overrides.
	Path string

	// Dir is the directory discovery starts from (default: cwd).
	Dir string

	// Overrides is the server-injected layer (user file plus CLI flags).
	Overrides map[string]any

	// ToolOverrides is the tool-declared layer applied last.
	ToolOverrides map[string]any

	// MergeFn combines layers; defaults to DeepMerge.
	MergeFn MergeFunc
}

// Resolve produces the authoritative configuration by layering the user
// fragment and overrides over framework defaults, decoding, and validating.
func Resolve(opts ResolveOptions) (*Config, error) {
	fn := opts.MergeFn
	if fn == nil {
		fn = DeepMerge
	}

	configPath := opts.Path
	userFragment := map[string]any{}
	if configPath != "" {
		fragment, err := LoadFragment(configPath)
		if err != nil {
			return nil, err
		}
		userFragment = fragment
	} else {
		dir := opts.Dir
		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, errors.New(errors.CodeConfigNotFound).Wrap(err)
			}
			dir = wd
		}
		if root, err := FindProjectRoot(dir); err == nil {
			configPath = filepath.Join(root, ConfigFileName)
			fragment, err := LoadFragment(configPath)
			if err != nil {
				return nil, err
			}
			userFragment = fragment
		}
	}

	serverLayer, err := Merge(userFragment, opts.Overrides, fn)
	if err != nil {
		return nil, err
	}

	merged, err := ResolveLayers(defaultFragment(), serverLayer, opts.ToolOverrides, fn)
	if err != nil {
		return nil, err
	}

	cfg, err := Decode(merged)
	if err != nil {
		return nil, err
	}
	cfg.configPath = configPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing rsbuild.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeConfigNotFound).
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
