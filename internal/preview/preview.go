// Package preview serves a finished production build locally. It shares the
// port resolution and URL printing behavior of the dev server but injects
// nothing into the pages it serves.
package preview

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iDestin/rsbuild/internal/config"
	"github.com/iDestin/rsbuild/internal/devserver"
	"github.com/iDestin/rsbuild/internal/errors"
)

// Options configures a preview server.
type Options struct {
	// Config is the resolved configuration.
	Config *config.Config

	// Logger receives startup advisories.
	Logger devserver.Logger

	// PrintURLs optionally replaces or filters the printed URL list.
	PrintURLs devserver.PrintURLsFunc
}

// Server serves the build output directory over HTTP.
type Server struct {
	options Options
	server  *http.Server

	// Port is the bound port, set by Start.
	Port int

	// URLs are the reachable addresses, set by Start.
	URLs []string
}

// New creates a preview server. The output directory must already exist;
// previewing a project that was never built is an error.
func New(options Options) (*Server, error) {
	if options.Logger == nil {
		options.Logger = devserver.NewConsoleLogger()
	}

	dist := options.Config.DistPath()
	if _, err := os.Stat(dist); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetailf("Build output directory %q does not exist", dist).
			WithSuggestion("Run a build before previewing")
	}

	return &Server{options: options}, nil
}

// Start resolves a port, binds, and serves in the background. The same
// strictPort policy as the dev server applies.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.options.Config
	log := s.options.Logger

	alloc, err := devserver.ResolvePort(cfg.Dev.Port, devserver.PortOptions{
		Strict: cfg.Server.StrictPort,
		Silent: cfg.Server.Silent,
		Host:   cfg.Dev.Host,
		Notify: func(requested, chosen int) {
			log.Logf("Port %d is in use, using port %d instead", requested, chosen)
		},
	})
	if err != nil {
		return err
	}
	s.Port = alloc.Port

	urls, err := devserver.ApplyPrintTransform(
		devserver.Strings(devserver.ComputeURLs(cfg.Protocol(), s.Port, cfg.Dev.Host)),
		s.options.PrintURLs,
	)
	if err != nil {
		return err
	}
	s.URLs = urls

	r := chi.NewRouter()
	r.NotFound(s.serveStatic)
	s.server = &http.Server{Handler: r}

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Dev.Host, strconv.Itoa(s.Port)))
	if err != nil {
		return errors.New(errors.CodeBindFailed).
			WithDetailf("listen on %s:%d failed", cfg.Dev.Host, s.Port).
			Wrap(err)
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("preview server stopped: %v", err)
		}
	}()

	if cfg.Server.PrintURLs {
		for _, u := range urls {
			log.Logf("  ➜  %s", u)
		}
	}
	return nil
}

// Shutdown stops serving.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the preview router, for embedding into another server.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// serveStatic serves the output directory with index.html directory
// fallback. Pages go out exactly as built.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	dist := s.options.Config.DistPath()

	name, ok := devserver.StaticRelPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if name == "" {
		name = "index.html"
	}
	path := filepath.Join(dist, name)

	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		path = filepath.Join(path, "index.html")
		_, err = os.Stat(path)
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, path)
}
