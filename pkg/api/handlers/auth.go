package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/api/auth"
	"github.com/marmos91/dittobox/pkg/api/middleware"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
	"github.com/marmos91/dittobox/pkg/models"
	"github.com/marmos91/dittobox/pkg/storage"
)

// AuthHandler handles login and token refresh.
type AuthHandler struct {
	svc        *storage.Service
	jwtService *auth.JWTService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *storage.Service, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{svc: svc, jwtService: jwtService}
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

// LoginResponse is the response body for login and refresh.
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         UserResponse `json:"user"`
}

// UserResponse is a sanitized user representation.
type UserResponse struct {
	ID          string    `json:"id"`
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        string    `json:"role"`
	HasPassword bool      `json:"has_password"`
	CreatedAt   time.Time `json:"created_at"`
}

// RefreshRequest is the request body for POST /api/v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func userToResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Identity:    u.Identity,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		HasPassword: u.HasPassword(),
		CreatedAt:   u.CreatedAt,
	}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Identity == "" || req.Password == "" {
		BadRequest(w, "Identity and password are required")
		return
	}

	user, err := h.svc.Authenticate(r.Context(), req.Identity, req.Password)
	if err != nil {
		if storeerrors.Is(err, storeerrors.ErrAccessDenied) {
			Unauthorized(w, "Invalid identity or password")
			return
		}
		WriteError(w, r, err)
		return
	}

	h.writeTokens(w, r, user)
}

// Refresh handles POST /api/v1/auth/refresh. The user record is reloaded
// so that role changes apply to the new tokens.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		Unauthorized(w, "Invalid or expired refresh token")
		return
	}

	user, err := h.svc.GetUser(r.Context(), claims.Identity)
	if err != nil {
		if storeerrors.Is(err, storeerrors.ErrNotFound) {
			Unauthorized(w, "User no longer exists")
			return
		}
		WriteError(w, r, err)
		return
	}

	h.writeTokens(w, r, user)
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	user, err := h.svc.GetUser(r.Context(), claims.Identity)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSONOK(w, userToResponse(user))
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, r *http.Request, user *models.User) {
	pair, err := h.jwtService.GenerateTokenPair(user)
	if err != nil {
		logger.ErrorCtx(r.Context(), "token generation failed", logger.KeyActor, user.Identity, logger.Err(err))
		InternalServerError(w, "Failed to generate token")
		return
	}

	WriteJSONOK(w, LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		ExpiresAt:    pair.ExpiresAt,
		User:         userToResponse(user),
	})
}
