package telemetry

// Config holds OpenTelemetry tracing configuration.
type Config struct {
	// Enabled turns on span export. When false every span is a no-op.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ServiceName is reported as the service.name resource attribute
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`

	ServiceVersion string `mapstructure:"service_version" yaml:"service_version"`

	// Endpoint is the OTLP/gRPC collector address (e.g. "localhost:4317")
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" validate:"required_if=Enabled true"`

	// Insecure disables TLS towards the collector
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling ratio between 0.0 and 1.0
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate" validate:"gte=0,lte=1"`

	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// DefaultConfig returns tracing disabled, pointed at a local collector.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "dittobox",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
		Profiling: ProfilingConfig{
			Endpoint:     "http://localhost:4040",
			ProfileTypes: []string{"cpu", "inuse_space", "mutex_duration"},
		},
	}
}
