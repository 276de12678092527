package devserver

import (
	"context"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iDestin/rsbuild/internal/compiler"
)

// HTTPFactoryOptions configures the built-in HTTP server factory.
type HTTPFactoryOptions struct {
	// Logger receives request-level advisories.
	Logger Logger

	// Metrics records build and reload counters.
	Metrics *Metrics
}

// NewHTTPFactory returns the built-in ServerFactory: a chi-routed HTTP
// server that serves the build output, exposes the live-update channel, and
// applies proxy rules from the resolved configuration.
func NewHTTPFactory(opts HTTPFactoryOptions) ServerFactory {
	return ServerFactoryFunc(func(ctx context.Context, devCtx *Context, port int, serverOptions map[string]any, comp compiler.Instance) (ServerAPI, error) {
		logger := opts.Logger
		if logger == nil {
			logger = NewConsoleLogger()
		}
		return &httpServer{
			devCtx:  devCtx,
			comp:    comp,
			logger:  logger,
			metrics: opts.Metrics,
			raw:     serverOptions,
		}, nil
	})
}

// httpServer is the built-in ServerAPI implementation.
type httpServer struct {
	devCtx  *Context
	comp    compiler.Instance
	logger  Logger
	metrics *Metrics
	raw     map[string]any

	reload *ReloadServer
	server *http.Server
}

// Init builds the router and wires the compiler bridge. It runs before the
// socket binds so hooks can still observe a server that never listened.
func (s *httpServer) Init(ctx context.Context) error {
	cfg := s.devCtx.Config

	r := chi.NewRouter()

	if cfg.Dev.HMR {
		s.reload = NewReloadServer(s.metrics)
		r.Get("/rsbuild-hmr", s.reload.HandleWebSocket)

		compiler.BindDevServer(s.comp,
			s.reload.BecomeInvalid,
			func(stats compiler.Stats) {
				s.metrics.BuildFinished(stats.HasErrors())
				s.reload.Done(stats)
			},
		)
	}

	r.Handle("/rsbuild-metrics", promhttp.Handler())

	for prefix, target := range cfg.Server.Proxy {
		r.Handle(prefix+"/*", s.proxyTo(target))
	}

	r.NotFound(s.serveStatic)

	s.server = &http.Server{Handler: r}
	return nil
}

// Listen binds the socket and starts serving in the background. The bind
// outcome is returned directly so a lost port race fails cleanly.
func (s *httpServer) Listen(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("dev server stopped: %v", err)
		}
	}()
	return nil
}

// Shutdown stops serving and closes all live-update connections.
func (s *httpServer) Shutdown(ctx context.Context) error {
	if s.reload != nil {
		s.reload.Close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// serveStatic serves files from the dist directory, injecting the
// live-update client into HTML pages.
func (s *httpServer) serveStatic(w http.ResponseWriter, r *http.Request) {
	dist := s.devCtx.Config.DistPath()

	name, ok := StaticRelPath(r.URL.Path)
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

	if strings.HasSuffix(path, ".html") && s.devCtx.Config.Dev.HMR {
		data, err := os.ReadFile(path)
		if err != nil {
			http.Error(w, "failed to read page", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(injectReloadScript(data))
		return
	}

	http.ServeFile(w, r, path)
}

// injectReloadScript places the live-update client before </body>, falling
// back to appending when the page has no closing tags.
func injectReloadScript(page []byte) []byte {
	body := string(page)
	if idx := strings.LastIndex(body, "</body>"); idx != -1 {
		body = body[:idx] + ReloadClientScript + body[idx:]
	} else if idx := strings.LastIndex(body, "</html>"); idx != -1 {
		body = body[:idx] + ReloadClientScript + body[idx:]
	} else {
		body += ReloadClientScript
	}
	return []byte(body)
}

// proxyTo forwards matching requests to an external target.
func (s *httpServer) proxyTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetURL, err := url.Parse(target)
		if err != nil {
			http.Error(w, "Invalid proxy target", http.StatusInternalServerError)
			return
		}
		proxy := httputil.NewSingleHostReverseProxy(targetURL)
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.Errorf("proxy to %s failed: %v", target, err)
			w.WriteHeader(http.StatusBadGateway)
		}
		proxy.ServeHTTP(w, r)
	}
}
