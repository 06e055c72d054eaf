package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/dittobox/internal/telemetry"
)

// validate is the singleton validator instance
var validate = validator.New()

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization happens in ApplyDefaults, so both cases are
// accepted here.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs validation that struct tags cannot express.
func validateCustomRules(cfg *Config) error {
	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if cfg.Telemetry.Profiling.Enabled {
		if _, err := telemetry.ParseProfileTypes(cfg.Telemetry.Profiling.ProfileTypes); err != nil {
			return fmt.Errorf("telemetry.profiling.profile_types: %w", err)
		}
	}

	if secret := cfg.API.JWT.Secret; secret != "" && len(secret) < MinJWTSecretLength {
		return fmt.Errorf("api.jwt.secret: must be at least %d characters", MinJWTSecretLength)
	}

	return nil
}

// formatValidationError reports the first failed field with its tag.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
