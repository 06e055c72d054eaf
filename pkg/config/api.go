package config

import (
	"os"
	"time"

	"github.com/marmos91/dittobox/internal/logger"
)

// EnvJWTSecret overrides the configured JWT signing secret.
const EnvJWTSecret = "DITTOBOX_API_SECRET"

// MinJWTSecretLength is the minimum length of the HMAC signing secret.
const MinJWTSecretLength = 32

// APIConfig configures the REST API served by "dittobox serve".
type APIConfig struct {
	// Port is the HTTP port for the API endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout bounds reading a request, including upload bodies.
	// Default: 5m
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds writing a response, including downloads.
	// Default: 5m
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// JWT configures bearer token authentication.
	JWT JWTConfig `mapstructure:"jwt" yaml:"jwt"`
}

// JWTConfig configures JWT token generation and validation.
type JWTConfig struct {
	// Secret is the HMAC signing key, at least 32 characters.
	// DITTOBOX_API_SECRET takes precedence over the config file.
	Secret string `mapstructure:"secret" yaml:"secret,omitempty"`

	// AccessTokenDuration is the lifetime of access tokens.
	// Default: 15m
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" yaml:"access_token_duration"`

	// RefreshTokenDuration is the lifetime of refresh tokens.
	// Default: 168h
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" yaml:"refresh_token_duration"`
}

// ApplyDefaults fills in zero values.
func (c *APIConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.JWT.AccessTokenDuration == 0 {
		c.JWT.AccessTokenDuration = 15 * time.Minute
	}
	if c.JWT.RefreshTokenDuration == 0 {
		c.JWT.RefreshTokenDuration = 7 * 24 * time.Hour
	}
}

// GetJWTSecret returns the JWT secret, preferring the environment variable.
func (c *APIConfig) GetJWTSecret() string {
	envSecret := os.Getenv(EnvJWTSecret)
	if envSecret == "" {
		return c.JWT.Secret
	}
	if c.JWT.Secret != "" && c.JWT.Secret != envSecret {
		logger.Warn("JWT secret from environment variable overrides config file value",
			"env_var", EnvJWTSecret)
	}
	return envSecret
}

// HasJWTSecret reports whether a usable JWT secret is configured.
func (c *APIConfig) HasJWTSecret() bool {
	return len(c.GetJWTSecret()) >= MinJWTSecretLength
}
