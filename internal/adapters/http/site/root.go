// Package site serves the embedded stylesheet and script used by the form page.
package site

import (
	"context"
	"net/http"
)

// Prefix is the URL path the assets are mounted under.
const Prefix = "/static/"

// Register attaches the embedded asset routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle(Prefix, NewAssetsHandler())
}

// AssetsHandler serves files from the embedded static directory.
type AssetsHandler struct {
	files http.Handler
}

// NewAssetsHandler creates a new assets handler.
func NewAssetsHandler() *AssetsHandler {
	return &AssetsHandler{files: http.StripPrefix(Prefix, http.FileServer(FS()))}
}

// ServeHTTP serves GET and HEAD requests for files under Prefix. Directory
// listings are not exposed.
func (h *AssetsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	if r.URL.Path == Prefix || r.URL.Path[len(r.URL.Path)-1] == '/' {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	h.files.ServeHTTP(w, r)
}
