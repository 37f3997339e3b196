// Package static serves the bundled web client: a directory of assets with
// SPA fallback to index.html, mounted under the root path after all API
// routes so it never shadows /health or the authenticated API surface.
package static

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Handler returns an http.Handler serving root as a static asset directory.
// Requests to an extensionless path fall back to index.html; requests for a
// path with an extension that doesn't exist return 404 (index.html itself
// excepted). Every request path is canonicalized against root first, which
// also rejects directory traversal.
func Handler(root string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, root)
	})
}

func serve(w http.ResponseWriter, r *http.Request, root string) {
	requested := filepath.Clean("/" + r.URL.Path)
	full := filepath.Join(root, requested)

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		http.NotFound(w, r)
		return
	}

	hasExt := filepath.Ext(requested) != ""
	info, err := os.Stat(full)

	switch {
	case err == nil && !info.IsDir():
		http.ServeFile(w, r, full)
	case !hasExt:
		http.ServeFile(w, r, filepath.Join(root, "index.html"))
	default:
		http.NotFound(w, r)
	}
}
