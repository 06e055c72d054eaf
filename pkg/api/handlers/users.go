package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/dittobox/pkg/models"
	"github.com/marmos91/dittobox/pkg/storage"
)

// UserHandler serves admin user management.
type UserHandler struct {
	svc *storage.Service
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *storage.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// CreateUserRequest is the request body for POST /api/v1/users.
type CreateUserRequest struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name,omitempty"`
	Password    string `json:"password,omitempty"`
}

// PasswordRequest is the request body for PUT /api/v1/users/{identity}/password.
type PasswordRequest struct {
	Password string `json:"password"`
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userToResponse(u))
	}
	WriteJSONOK(w, out)
}

// Create handles POST /api/v1/users. The password is optional; without one
// the user can receive grants but cannot log in.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Password != "" {
		if err := models.ValidatePassword(req.Password); err != nil {
			BadRequest(w, err.Error())
			return
		}
	}

	u, err := h.svc.AddUser(r.Context(), req.Identity, req.DisplayName)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if req.Password != "" {
		if err := h.svc.SetPassword(r.Context(), u.Identity, req.Password); err != nil {
			WriteError(w, r, err)
			return
		}
		if u, err = h.svc.GetUser(r.Context(), u.Identity); err != nil {
			WriteError(w, r, err)
			return
		}
	}

	WriteJSONCreated(w, userToResponse(u))
}

// SetPassword handles PUT /api/v1/users/{identity}/password.
func (h *UserHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.svc.SetPassword(r.Context(), chi.URLParam(r, "identity"), req.Password); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}
