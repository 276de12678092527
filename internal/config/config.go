package config

import (
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/iDestin/rsbuild/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "rsbuild.json"

	// DefaultPort is the default development server port.
	DefaultPort = 3000

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultDistRoot is the default build output directory.
	DefaultDistRoot = "dist"
)

// Config is the resolved configuration: every field read by downstream
// components has a defined value after Resolve, achieved by layering user
// fragments over the built-in defaults. Treat it as immutable after merge.
type Config struct {
	// Dev contains development server settings.
	Dev DevConfig `json:"dev,omitempty" mapstructure:"dev"`

	// Server contains serving policy shared by dev and preview.
	Server ServerConfig `json:"server,omitempty" mapstructure:"server"`

	// Output contains build output settings.
	Output OutputConfig `json:"output,omitempty" mapstructure:"output"`

	// Source contains entry and resolution settings forwarded to the bundler.
	Source SourceConfig `json:"source,omitempty" mapstructure:"source"`

	// Tools contains raw passthrough options for underlying engines.
	Tools ToolsConfig `json:"tools,omitempty" mapstructure:"tools"`

	// Security contains security-related output policy.
	Security SecurityConfig `json:"security,omitempty" mapstructure:"security"`

	// Performance contains build performance policy.
	Performance PerformanceConfig `json:"performance,omitempty" mapstructure:"performance"`

	// ModuleFederation contains module federation settings.
	ModuleFederation ModuleFederationConfig `json:"moduleFederation,omitempty" mapstructure:"moduleFederation"`

	// HTML contains HTML generation settings.
	HTML HTMLConfig `json:"html,omitempty" mapstructure:"html"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the requested dev server port.
	Port int `json:"port,omitempty" mapstructure:"port" validate:"gte=0,lte=65535"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty" mapstructure:"host"`

	// HMR enables hot module replacement notifications.
	HMR bool `json:"hmr,omitempty" mapstructure:"hmr"`

	// HTTPS serves the dev server over https.
	HTTPS bool `json:"https,omitempty" mapstructure:"https"`

	// StartURL is opened in the browser after startup when Open is set.
	StartURL string `json:"startUrl,omitempty" mapstructure:"startUrl"`

	// Open opens the browser automatically on start.
	Open bool `json:"open,omitempty" mapstructure:"open"`

	// WatchFiles are extra paths whose changes trigger a server restart.
	WatchFiles []string `json:"watchFiles,omitempty" mapstructure:"watchFiles"`
}

// ServerConfig contains serving policy shared by dev and preview.
type ServerConfig struct {
	// StrictPort fails startup instead of falling back when the requested
	// port is occupied.
	StrictPort bool `json:"strictPort,omitempty" mapstructure:"strictPort"`

	// Silent suppresses the advisory notice printed when a fallback port
	// is chosen.
	Silent bool `json:"silent,omitempty" mapstructure:"silent"`

	// PrintURLs controls whether reachable URLs are printed on startup.
	PrintURLs bool `json:"printUrls,omitempty" mapstructure:"printUrls"`

	// Proxy contains path-prefix proxy rules for forwarding requests.
	Proxy map[string]string `json:"proxy,omitempty" mapstructure:"proxy"`
}

// OutputConfig contains build output settings.
type OutputConfig struct {
	// DistPath locates build output directories.
	DistPath DistPathConfig `json:"distPath,omitempty" mapstructure:"distPath"`

	// AssetPrefix is the public URL prefix for emitted assets.
	AssetPrefix string `json:"assetPrefix,omitempty" mapstructure:"assetPrefix"`

	// CleanDistPath removes the output directory before builds.
	CleanDistPath bool `json:"cleanDistPath,omitempty" mapstructure:"cleanDistPath"`
}

// DistPathConfig locates build output directories.
type DistPathConfig struct {
	// Root is the root output directory.
	Root string `json:"root,omitempty" mapstructure:"root"`
}

// SourceConfig contains entry and resolution settings forwarded to the bundler.
type SourceConfig struct {
	// Entry maps entry names to source paths.
	Entry map[string]string `json:"entry,omitempty" mapstructure:"entry"`

	// Alias maps import aliases to paths.
	Alias map[string]string `json:"alias,omitempty" mapstructure:"alias"`

	// Include are extra paths compiled by the bundler.
	Include []string `json:"include,omitempty" mapstructure:"include"`
}

// ToolsConfig contains raw passthrough options for underlying engines.
type ToolsConfig struct {
	// DevServer is forwarded verbatim to the injected server factory.
	DevServer map[string]any `json:"devServer,omitempty" mapstructure:"devServer"`

	// Bundler configures the external bundler process.
	Bundler BundlerConfig `json:"bundler,omitempty" mapstructure:"bundler"`
}

// BundlerConfig configures the external bundler process.
type BundlerConfig struct {
	// Command is the bundler executable to run.
	Command string `json:"command,omitempty" mapstructure:"command"`

	// Args are extra arguments passed to the bundler.
	Args []string `json:"args,omitempty" mapstructure:"args"`
}

// SecurityConfig contains security-related output policy.
type SecurityConfig struct {
	// Nonce is applied to injected script tags.
	Nonce string `json:"nonce,omitempty" mapstructure:"nonce"`
}

// PerformanceConfig contains build performance policy.
type PerformanceConfig struct {
	// PrintFileSize prints emitted asset sizes after builds.
	PrintFileSize bool `json:"printFileSize,omitempty" mapstructure:"printFileSize"`

	// RemoveConsole strips console calls in production output.
	RemoveConsole bool `json:"removeConsole,omitempty" mapstructure:"removeConsole"`
}

// ModuleFederationConfig contains module federation settings.
type ModuleFederationConfig struct {
	// Name is the federated container name.
	Name string `json:"name,omitempty" mapstructure:"name"`

	// Remotes maps remote names to their entry URLs.
	Remotes map[string]string `json:"remotes,omitempty" mapstructure:"remotes"`

	// Exposes maps exposed module names to source paths.
	Exposes map[string]string `json:"exposes,omitempty" mapstructure:"exposes"`
}

// HTMLConfig contains HTML generation settings.
type HTMLConfig struct {
	// Title is the generated page title.
	Title string `json:"title,omitempty" mapstructure:"title"`

	// Template is the path to a custom HTML template.
	Template string `json:"template,omitempty" mapstructure:"template"`

	// Meta maps meta tag names to contents.
	Meta map[string]string `json:"meta,omitempty" mapstructure:"meta"`
}

// defaultFragment is the framework-defaults layer. Every field downstream
// components read is defined here, so no merge result can leave a required
// field unset.
func defaultFragment() map[string]any {
	return map[string]any{
		"dev": map[string]any{
			"port":     DefaultPort,
			"host":     DefaultHost,
			"hmr":      true,
			"https":    false,
			"startUrl": "",
			"open":     false,
		},
		"server": map[string]any{
			"strictPort": false,
			"silent":     false,
			"printUrls":  true,
		},
		"output": map[string]any{
			"distPath": map[string]any{
				"root": DefaultDistRoot,
			},
			"assetPrefix":   "/",
			"cleanDistPath": true,
		},
		"source": map[string]any{
			"entry": map[string]any{
				"index": "src/index",
			},
		},
		"tools": map[string]any{},
		"security": map[string]any{
			"nonce": "",
		},
		"performance": map[string]any{
			"printFileSize": true,
			"removeConsole": false,
		},
		"moduleFederation": map[string]any{},
		"html": map[string]any{
			"title": "Rsbuild App",
		},
	}
}

// DefaultFragment returns a copy of the framework-defaults layer.
func DefaultFragment() map[string]any {
	return defaultFragment()
}

// Default returns the resolved configuration with only default values.
func Default() *Config {
	cfg, err := Decode(defaultFragment())
	if err != nil {
		// The default fragment is a literal under our control.
		panic(err)
	}
	return cfg
}

// Path returns the path where the config was loaded from, if any.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// Protocol returns the URL scheme for the dev server.
func (c *Config) Protocol() string {
	if c.Dev.HTTPS {
		return "https"
	}
	return "http"
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DistPath returns the absolute path to the build output directory.
func (c *Config) DistPath() string {
	root := c.Output.DistPath.Root
	if root == "" {
		root = DefaultDistRoot
	}
	if filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(c.Dir(), root)
}

// Validate checks the resolved configuration for contradictory or
// out-of-range values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail(err.Error()).
			WithSuggestion("Check rsbuild.json against the documented option ranges")
	}
	return nil
}

var validate = validator.New()
