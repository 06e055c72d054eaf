package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittobox/pkg/index"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantTag string
	}{
		{"invalid log level", func(c *Config) { c.Logging.Level = "INVALID" }, "oneof"},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }, "oneof"},
		{"missing storage root", func(c *Config) { c.Storage.Root = "" }, "required"},
		{"zero lock timeout", func(c *Config) { c.Storage.LockTimeout = 0 }, "gt"},
		{"negative refresh depth", func(c *Config) { c.Storage.PathRefreshDepth = -1 }, "gte"},
		{"negative cache size", func(c *Config) { c.Storage.MarkerCacheSize = -1 }, "gte"},
		{"blank admin", func(c *Config) { c.Admins = []string{""} }, "required"},
		{"metrics without textfile", func(c *Config) { c.Metrics.Enabled = true }, "required_if"},
		{"telemetry without endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}, "required_if"},
		{"sample rate above one", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "lte"},
		{"negative sample rate", func(c *Config) { c.Telemetry.SampleRate = -0.1 }, "gte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "'"+tt.wantTag+"'")
		})
	}
}

func TestValidateCustomRules(t *testing.T) {
	t.Run("postgres requires host", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Database = index.Config{Type: index.DatabaseTypePostgres}
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database:")
	})

	t.Run("unknown profile type", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Telemetry.Profiling.Enabled = true
		cfg.Telemetry.Profiling.ProfileTypes = []string{"heap"}
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "profile_types")
	})

	t.Run("metrics with textfile", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Metrics = MetricsConfig{Enabled: true, Textfile: "/var/lib/node_exporter/dittobox.prom"}
		assert.NoError(t, Validate(cfg))
	})
}

func TestValidateAcceptsLowercaseLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "debug"
	assert.NoError(t, Validate(cfg))
}
