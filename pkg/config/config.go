package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/dittobox/internal/bytesize"
	"github.com/marmos91/dittobox/internal/telemetry"
	"github.com/marmos91/dittobox/pkg/index"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g.
// DITTOBOX_STORAGE_LOCK_TIMEOUT=10s.
const EnvPrefix = "DITTOBOX"

// Config is the static configuration of a DittoBox engine.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTOBOX_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
//
// Users and grants are not configured here; they live in the metadata index.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Storage configures the storage root and the concurrency gate
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Database selects the metadata index backend (sqlite, postgres or badger)
	Database index.Config `mapstructure:"database" yaml:"database"`

	// API configures the REST API started by the serve command
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Admins are identities given the admin role when their user record is
	// created. Existing users are not demoted when removed from this list.
	Admins []string `mapstructure:"admins" validate:"dive,required" yaml:"admins"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig controls Prometheus metrics collection.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Textfile is where the registry is written after each CLI command, in
	// the format read by the node_exporter textfile collector.
	Textfile string `mapstructure:"textfile" validate:"required_if=Enabled true" yaml:"textfile,omitempty"`
}

// StorageConfig configures the file store, the metadata store and the gate.
type StorageConfig struct {
	// Root is the directory holding every namespace. Created when missing.
	Root string `mapstructure:"root" validate:"required" yaml:"root"`

	// LockTimeout bounds how long an exclusive operation waits for the gate
	// Default: 5s
	LockTimeout time.Duration `mapstructure:"lock_timeout" validate:"gt=0" yaml:"lock_timeout"`

	// PathRefreshDepth bounds how many levels of child directories get their
	// cached path refreshed after a rename. 0 refreshes the whole subtree.
	// Default: 1
	PathRefreshDepth int `mapstructure:"path_refresh_depth" validate:"gte=0" yaml:"path_refresh_depth"`

	// MarkerCacheSize is the number of directory UUIDs kept in memory
	// Default: 4096
	MarkerCacheSize int `mapstructure:"marker_cache_size" validate:"gte=0" yaml:"marker_cache_size"`

	// MaxUploadSize rejects larger uploads. Accepts "25MiB", "100MB" or a
	// plain byte count; 0 means unlimited.
	MaxUploadSize bytesize.ByteSize `mapstructure:"max_upload_size" yaml:"max_upload_size"`
}

// Load loads configuration from file, environment, and defaults.
//
// A missing file is not an error: defaults plus environment overrides are
// returned. Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if err := setupViper(v, configPath); err != nil {
		return nil, err
	}

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, failing with instructions when the file
// does not exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  dittobox init\n\n"+
				"Or specify a custom config file:\n"+
				"  dittobox <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  dittobox init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return writeConfigFile(path, data)
}

func writeConfigFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600: the database section may carry a password.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper seeds viper with the defaults so that every key is known to
// AutomaticEnv, then points it at the config file.
func setupViper(v *viper.Viper, configPath string) error {
	defaults, err := defaultsMap()
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(defaults); err != nil {
		return fmt.Errorf("failed to load default config: %w", err)
	}

	// Example: DITTOBOX_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/dittobox/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	return nil
}

// defaultsMap renders GetDefaultConfig through its yaml tags, which match
// the mapstructure tags.
func defaultsMap() (map[string]any, error) {
	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default config: %w", err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode default config: %w", err)
	}
	return out, nil
}

// readConfigFile merges the configuration file over the defaults.
// Returns whether a file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize, so
// config files can say "25MiB" as well as 26214400.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			if v < 0 {
				return nil, fmt.Errorf("byte size must not be negative: %d", v)
			}
			return bytesize.ByteSize(v), nil
		case int64:
			if v < 0 {
				return nil, fmt.Errorf("byte size must not be negative: %d", v)
			}
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML and env values may arrive as float64
			if v < 0 {
				return nil, fmt.Errorf("byte size must not be negative: %v", v)
			}
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts "30s", "5m" and raw nanosecond counts to
// time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/dittobox, ~/.config/dittobox, or
// "." when the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittobox")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittobox")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
