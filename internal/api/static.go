package api

import (
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mimeTypes maps asset extensions to Content-Type. Unknown extensions get a
// generic binary type.
var mimeTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".webp": "image/webp",
	".txt":  "text/plain; charset=utf-8",
}

const fallbackMIME = "application/octet-stream"

// serveStatic resolves a request path inside the asset root. Directories
// serve their index.html; a missing file serves the root index.html so the
// single-page front-end can route it, with a 200 status.
func (s *Server) serveStatic(c *gin.Context) {
	requestPath := safeAssetPath(c.Request.URL.EscapedPath())
	filePath := filepath.Join(s.cfg.StaticDir, filepath.FromSlash(requestPath))

	if requestPath == "/" || requestPath == "" {
		filePath = filepath.Join(s.cfg.StaticDir, "index.html")
	}

	if info, err := os.Stat(filePath); err == nil && info.IsDir() {
		filePath = filepath.Join(filePath, "index.html")
	}

	s.sendFile(c, filePath)
}

// safeAssetPath percent-decodes and normalizes a request path, stripping
// any leading parent-directory segments so the result can never escape the
// asset root.
func safeAssetPath(escaped string) string {
	p, err := url.PathUnescape(escaped)
	if err != nil {
		p = escaped
	}

	// rooting the path before Clean resolves every ".." against "/", so no
	// segment can climb above the asset root
	return path.Clean("/" + p)
}

func (s *Server) sendFile(c *gin.Context, filePath string) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			index, indexErr := os.ReadFile(filepath.Join(s.cfg.StaticDir, "index.html"))
			if indexErr != nil {
				c.Data(http.StatusNotFound, "text/plain; charset=utf-8", []byte("Not found"))
				return
			}
			c.Data(http.StatusOK, "text/html; charset=utf-8", index)
			return
		}

		s.log.Error("static_read_failed", "path", filePath, "error", err)
		c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("Server error"))
		return
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	contentType, ok := mimeTypes[ext]
	if !ok {
		contentType = fallbackMIME
	}
	c.Data(http.StatusOK, contentType, content)
}
