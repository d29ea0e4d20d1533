package api

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/NexusDevelopments/tradeupsite/internal/config"
)

func writeAsset(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newStaticServer(t *testing.T) (*Server, string) {
	t.Helper()
	var staticDir string
	srv, _ := newTestServer(t, nil, func(cfg *config.Config) {
		staticDir = cfg.StaticDir
	})
	writeAsset(t, staticDir, "index.html", "<html>app</html>")
	writeAsset(t, staticDir, "assets/app.js", "console.log('app')")
	writeAsset(t, staticDir, "assets/logo.png", "png-bytes")
	writeAsset(t, staticDir, "data.bin", "binary")
	writeAsset(t, staticDir, "docs/index.html", "<html>docs</html>")
	return srv, staticDir
}

func TestStatic_ServesAssets(t *testing.T) {
	srv, _ := newStaticServer(t)

	tests := []struct {
		name        string
		path        string
		status      int
		body        string
		contentType string
	}{
		{"root serves index", "/", http.StatusOK, "<html>app</html>", "text/html; charset=utf-8"},
		{"js asset", "/assets/app.js", http.StatusOK, "console.log('app')", "application/javascript; charset=utf-8"},
		{"png asset", "/assets/logo.png", http.StatusOK, "png-bytes", "image/png"},
		{"unknown extension", "/data.bin", http.StatusOK, "binary", "application/octet-stream"},
		{"directory serves its index", "/docs", http.StatusOK, "<html>docs</html>", "text/html; charset=utf-8"},
		{"spa fallback", "/status", http.StatusOK, "<html>app</html>", "text/html; charset=utf-8"},
		{"deep spa route", "/some/client/route", http.StatusOK, "<html>app</html>", "text/html; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(srv, tt.path)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if w.Body.String() != tt.body {
				t.Errorf("unexpected body %q", w.Body.String())
			}
			if got := w.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("expected content type %q, got %q", tt.contentType, got)
			}
		})
	}
}

func TestStatic_TraversalStaysInRoot(t *testing.T) {
	srv, _ := newStaticServer(t)

	// every traversal attempt resolves inside the asset root, so the worst
	// case is the SPA fallback
	tests := []string{
		"/../secret.txt",
		"/../../etc/passwd",
		"/..%2f..%2fetc/passwd",
		"/assets/../../../etc/passwd",
		"/%2e%2e/%2e%2e/etc/passwd",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			w := get(srv, path)

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200 fallback, got %d", w.Code)
			}
			if w.Body.String() != "<html>app</html>" {
				t.Errorf("expected the SPA index, got %q", w.Body.String())
			}
		})
	}
}

func TestStatic_NotFoundWithoutIndex(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil) // empty static dir

	w := get(srv, "/missing.txt")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without an index, got %d", w.Code)
	}
	if w.Body.String() != "Not found" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestSafeAssetPath(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"/", "/"},
		{"/index.html", "/index.html"},
		{"/assets/app.js", "/assets/app.js"},
		{"/../etc/passwd", "/etc/passwd"},
		{"/a/../../b", "/b"},
		{"/%2e%2e/secret", "/secret"},
		{"//double//slash", "/double/slash"},
	}

	for _, tt := range tests {
		if got := safeAssetPath(tt.in); got != tt.expected {
			t.Errorf("safeAssetPath(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
