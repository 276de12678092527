package devserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iDestin/rsbuild/internal/compiler"
	"github.com/iDestin/rsbuild/internal/config"
)

// buildHTTPServer creates the built-in server over a temp dist directory
// and returns a test server wrapping its router.
func buildHTTPServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, string) {
	t.Helper()

	dist := t.TempDir()
	cfg := config.Default()
	cfg.Output.DistPath.Root = dist
	if mutate != nil {
		mutate(cfg)
	}

	devCtx := &Context{Config: cfg, Hooks: NewHooks(), Protocol: "http"}
	factory := NewHTTPFactory(HTTPFactoryOptions{Logger: quietLogger{}})
	api, err := factory.Create(context.Background(), devCtx, 0, nil, compiler.Instance{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := api.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	server := httptest.NewServer(api.(*httpServer).server.Handler)
	t.Cleanup(func() {
		server.Close()
		api.Shutdown(context.Background())
	})
	return server, dist
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestHTTPServer_ServesIndexWithReloadClient(t *testing.T) {
	server, dist := buildHTTPServer(t, nil)

	page := "<html><body><h1>app</h1></body></html>"
	if err := os.WriteFile(filepath.Join(dist, "index.html"), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}

	status, body := get(t, server.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "<h1>app</h1>") {
		t.Error("page content missing")
	}
	if !strings.Contains(body, "/rsbuild-hmr") {
		t.Error("live-update client not injected")
	}
}

func TestHTTPServer_ServesAssetsUnmodified(t *testing.T) {
	server, dist := buildHTTPServer(t, nil)

	js := "console.log('hello');"
	if err := os.WriteFile(filepath.Join(dist, "main.js"), []byte(js), 0o644); err != nil {
		t.Fatal(err)
	}

	status, body := get(t, server.URL+"/main.js")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body != js {
		t.Errorf("asset body changed: %q", body)
	}
}

func TestHTTPServer_MissingFile(t *testing.T) {
	server, _ := buildHTTPServer(t, nil)

	status, _ := get(t, server.URL+"/nope.css")
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestHTTPServer_NoInjectionWithoutHMR(t *testing.T) {
	server, dist := buildHTTPServer(t, func(cfg *config.Config) {
		cfg.Dev.HMR = false
	})

	page := "<html><body>static</body></html>"
	if err := os.WriteFile(filepath.Join(dist, "index.html"), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}

	_, body := get(t, server.URL+"/")
	if strings.Contains(body, "/rsbuild-hmr") {
		t.Error("client injected with hmr disabled")
	}
}

func TestHTTPServer_BlocksDirectoryTraversal(t *testing.T) {
	tmp := t.TempDir()
	dist := filepath.Join(tmp, "dist")
	if err := os.MkdirAll(dist, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dist, "ok.html"), []byte("<body>ok</body>"), 0o644); err != nil {
		t.Fatalf("WriteFile ok.html: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "secret.html"), []byte("secret"), 0o644); err != nil {
		t.Fatalf("WriteFile secret.html: %v", err)
	}

	server, _ := buildHTTPServer(t, func(cfg *config.Config) {
		cfg.Output.DistPath.Root = dist
	})

	status, body := get(t, server.URL+"/ok.html")
	if status != http.StatusOK || !strings.Contains(body, "ok") {
		t.Fatalf("GET /ok.html = %d %q, want it served", status, body)
	}

	cases := []string{
		"/../secret.html",
		"/%2e%2e/secret.html",
		"/..//secret.html",
		"//" + filepath.ToSlash(tmp) + "/secret.html",
	}
	client := &http.Client{}
	for _, p := range cases {
		// Raw request: Go's client normalizes dot segments, the handler
		// must not rely on that.
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		if err != nil {
			t.Fatal(err)
		}
		req.URL.Opaque = p
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("GET %s: %v", p, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if strings.Contains(string(body), "secret") {
			t.Fatalf("GET %s unexpectedly served secret content", p)
		}
		if resp.StatusCode == http.StatusOK {
			t.Fatalf("GET %s status = %d, want a rejection", p, resp.StatusCode)
		}
	}
}

func TestStaticRelPath(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/", "", true},
		{"/index.html", "index.html", true},
		{"/assets/main.js", filepath.Join("assets", "main.js"), true},
		{"/../secret.html", "", false},
		{"/a/../../secret.html", "", false},
		{"/./secret.html", "", false},
		{"//etc/passwd", "", false},
		{"/a\\b", "", false},
		{"/a/..", "", false},
	}
	for _, tt := range tests {
		got, ok := StaticRelPath(tt.path)
		if ok != tt.ok || got != tt.want {
			t.Errorf("StaticRelPath(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHTTPServer_MetricsEndpoint(t *testing.T) {
	server, _ := buildHTTPServer(t, nil)

	status, _ := get(t, server.URL+"/rsbuild-metrics")
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
}

func TestHTTPServer_Proxy(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("from backend: " + r.URL.Path))
	}))
	defer backend.Close()

	server, _ := buildHTTPServer(t, func(cfg *config.Config) {
		cfg.Server.Proxy = map[string]string{"/api": backend.URL}
	})

	status, body := get(t, server.URL+"/api/users")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "from backend") {
		t.Errorf("request not proxied: %q", body)
	}
}
