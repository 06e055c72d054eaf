package handlers

import (
	"net/http"

	"github.com/marmos91/dittobox/pkg/storage"
)

// HealthHandler serves the unauthenticated probes.
type HealthHandler struct {
	svc *storage.Service
}

// NewHealthHandler creates a new health handler. svc may be nil, in which
// case readiness reports unhealthy.
func NewHealthHandler(svc *storage.Service) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, healthyResponse(map[string]string{
		"service": "dittobox",
	}))
}

// Readiness handles GET /health/ready. It checks the storage root and the
// metadata index.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("storage not initialized"))
		return
	}

	if err := h.svc.Healthcheck(r.Context()); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	WriteJSONOK(w, healthyResponse(map[string]string{
		"storage": "ok",
		"index":   "ok",
	}))
}
