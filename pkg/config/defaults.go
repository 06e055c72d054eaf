package config

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/marmos91/dittobox/internal/telemetry"
	"github.com/marmos91/dittobox/pkg/gate"
	"github.com/marmos91/dittobox/pkg/index"
	"github.com/marmos91/dittobox/pkg/metadata"
	"github.com/marmos91/dittobox/pkg/models"
)

// Storage defaults.
const (
	DefaultLockTimeout      = gate.DefaultLockTimeout
	DefaultPathRefreshDepth = 1
	DefaultMarkerCacheSize  = metadata.DefaultCacheSize
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced, explicit values are preserved. The one
// exception is PathRefreshDepth, where 0 is meaningful: Load seeds it from
// GetDefaultConfig instead.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyStorageDefaults(&cfg.Storage)
	cfg.Database.ApplyDefaults()
	cfg.API.ApplyDefaults()
	cfg.Admins = normalizeAdmins(cfg.Admins)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		// stdout carries command output
		cfg.Output = "stderr"
	}
}

func applyTelemetryDefaults(cfg *telemetry.Config) {
	defaults := telemetry.DefaultConfig()

	if cfg.ServiceName == "" {
		cfg.ServiceName = defaults.ServiceName
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = defaults.ServiceVersion
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = defaults.Profiling.Endpoint
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = defaults.Profiling.ProfileTypes
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Root == "" {
		cfg.Root = filepath.Join(getConfigDir(), "storage")
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.MarkerCacheSize == 0 {
		cfg.MarkerCacheSize = DefaultMarkerCacheSize
	}
}

// normalizeAdmins lowercases, trims and deduplicates admin identities.
func normalizeAdmins(admins []string) []string {
	out := make([]string, 0, len(admins))
	for _, a := range admins {
		id := models.NormalizeIdentity(a)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// GetDefaultConfig returns a Config struct with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Telemetry: telemetry.DefaultConfig(),
		Storage: StorageConfig{
			LockTimeout:      DefaultLockTimeout,
			PathRefreshDepth: DefaultPathRefreshDepth,
		},
		Database: index.Config{
			Type: index.DatabaseTypeSQLite,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
