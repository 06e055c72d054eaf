// Package auth issues and validates the JWT bearer tokens of the API.
package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/marmos91/dittobox/pkg/models"
)

// TokenType indicates whether a token is an access token or refresh token.
type TokenType string

const (
	// TokenTypeAccess is a short-lived token used for API authorization.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh is a long-lived token used to obtain new access tokens.
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the dittobox JWT claims. The subject is the user's identity.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"uid"`
	Identity  string    `json:"identity"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}

// IsAccessToken returns true if this is an access token.
func (c *Claims) IsAccessToken() bool {
	return c.TokenType == TokenTypeAccess
}

// IsRefreshToken returns true if this is a refresh token.
func (c *Claims) IsRefreshToken() bool {
	return c.TokenType == TokenTypeRefresh
}

// IsAdmin returns true if the token was issued to an admin.
func (c *Claims) IsAdmin() bool {
	return c.Role == string(models.RoleAdmin)
}
