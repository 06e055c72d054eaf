package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/dittobox/pkg/access"
	"github.com/marmos91/dittobox/pkg/api/middleware"
	"github.com/marmos91/dittobox/pkg/storage"
)

// Response wraps health check payloads.
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func healthyResponse(data any) Response {
	return Response{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func unhealthyResponse(errMsg string) Response {
	return Response{
		Status:    "unhealthy",
		Timestamp: time.Now().UTC(),
		Error:     errMsg,
	}
}

// PathResponse carries the path produced by a mutating operation.
type PathResponse struct {
	Path string `json:"path"`
}

// actorOrError resolves the authenticated actor of r, using the roles
// currently stored in the index rather than those baked into the token.
func actorOrError(w http.ResponseWriter, r *http.Request, svc *storage.Service) (access.Actor, bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return access.Actor{}, false
	}

	actor, err := svc.ResolveActor(r.Context(), claims.Identity)
	if err != nil {
		WriteError(w, r, err)
		return access.Actor{}, false
	}
	return actor, true
}

// requireQuery reads the required query parameter name, writing a 400 when
// it is absent.
func requireQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		BadRequest(w, "Query parameter '"+name+"' is required")
		return "", false
	}
	return v, true
}
