package status

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler serves the status report over HTTP.
type Handler struct {
	reporter *Reporter
}

// NewHandler creates a handler backed by the given reporter.
func NewHandler(reporter *Reporter) *Handler {
	return &Handler{reporter: reporter}
}

// RegisterRoutes registers the status endpoint with the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.ServeStatus)
}

// ServeStatus writes the startup snapshot as JSON. Always 200; the
// report cannot fail at request time.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.reporter.Report())
}
