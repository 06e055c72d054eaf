package handlers

import (
	"net/http"

	"github.com/marmos91/dittobox/pkg/storage"
)

// AccessHandler serves grant management and access decisions.
type AccessHandler struct {
	svc *storage.Service
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(svc *storage.Service) *AccessHandler {
	return &AccessHandler{svc: svc}
}

// GrantRequest is the request body for POST /api/v1/access/grants.
type GrantRequest struct {
	Path    string `json:"path"`
	Grantee string `json:"grantee"`
}

// DecisionResponse reports the outcome of an access check.
type DecisionResponse struct {
	Path        string `json:"path"`
	OwnerOnly   bool   `json:"owner_only"`
	Allowed     bool   `json:"allowed"`
	Rule        string `json:"rule"`
	Reason      string `json:"reason,omitempty"`
	DirectoryID string `json:"directory_id,omitempty"`
}

// Grantees handles GET /api/v1/access/grants?path=.
func (h *AccessHandler) Grantees(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}
	p, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}

	grantees, err := h.svc.ListGrantees(r.Context(), actor, p)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if grantees == nil {
		grantees = []string{}
	}
	WriteJSONOK(w, grantees)
}

// Grant handles POST /api/v1/access/grants.
func (h *AccessHandler) Grant(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}
	var req GrantRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Path == "" || req.Grantee == "" {
		BadRequest(w, "Path and grantee are required")
		return
	}

	if err := h.svc.GrantAccess(r.Context(), actor, req.Path, req.Grantee); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}

// Revoke handles DELETE /api/v1/access/grants?path=&grantee=.
func (h *AccessHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}
	p, ok := requireQuery(w, r, "path")
	if !ok {
		return
	}
	grantee, ok := requireQuery(w, r, "grantee")
	if !ok {
		return
	}

	if err := h.svc.RevokeAccess(r.Context(), actor, p, grantee); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}

// Shared handles GET /api/v1/access/shared.
func (h *AccessHandler) Shared(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}

	entries, err := h.svc.SharedWith(r.Context(), actor)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSONOK(w, entries)
}

// Decide handles GET /api/v1/access/decide?path=&owner_only=.
func (h *AccessHandler) Decide(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrError(w, r, h.svc)
	if !ok {
		return
	}
	p := r.URL.Query().Get("path")
	ownerOnly := parseBool(r.URL.Query().Get("owner_only"))

	d, err := h.svc.Decide(r.Context(), actor, p, ownerOnly)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSONOK(w, DecisionResponse{
		Path:        p,
		OwnerOnly:   ownerOnly,
		Allowed:     d.Allowed,
		Rule:        string(d.Rule),
		Reason:      d.Reason,
		DirectoryID: d.DirectoryID,
	})
}
