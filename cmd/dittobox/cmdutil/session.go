package cmdutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/internal/telemetry"
	"github.com/marmos91/dittobox/pkg/access"
	"github.com/marmos91/dittobox/pkg/config"
	"github.com/marmos91/dittobox/pkg/metrics"
	promstorage "github.com/marmos91/dittobox/pkg/metrics/prometheus"
	"github.com/marmos91/dittobox/pkg/storage"
)

// Session is the engine opened for one command invocation.
type Session struct {
	Config  *config.Config
	Service *storage.Service

	closers []func() error
}

// LoadConfig loads the configuration selected by the global flags.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(Flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if Flags.Verbose {
		cfg.Logging.Level = "DEBUG"
	}
	return cfg, nil
}

// Version is reported to the telemetry backends.
var Version = "dev"

// Open loads the configuration, initializes logging, tracing, profiling
// and metrics, and opens the storage service.
func Open(ctx context.Context) (*Session, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s := &Session{Config: cfg}

	telemetryCfg := cfg.Telemetry
	telemetryCfg.ServiceVersion = Version
	shutdownTracing, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.closers = append(s.closers, func() error { return shutdownTracing(context.Background()) })

	shutdownProfiling, err := telemetry.InitProfiling(telemetryCfg)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}
	s.closers = append(s.closers, shutdownProfiling)

	var m metrics.StorageMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		m = promstorage.NewStorageMetrics()
		textfile := cfg.Metrics.Textfile
		s.closers = append(s.closers, func() error {
			return prometheus.WriteToTextfile(textfile, metrics.GetRegistry())
		})
	}

	svc, err := storage.New(ctx, cfg, m)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Service = svc
	s.closers = append(s.closers, svc.Close)

	logger.Debug("session opened",
		logger.KeyRoot, cfg.Storage.Root,
		logger.KeyIndexType, string(cfg.Database.Type))
	return s, nil
}

// Close releases everything Open acquired, in reverse order.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Actor resolves the identity selected by --as or DITTOBOX_AS.
func (s *Session) Actor(ctx context.Context) (access.Actor, error) {
	identity, err := ActorIdentity()
	if err != nil {
		return access.Actor{}, err
	}
	return s.Service.ResolveActor(ctx, identity)
}

// Run opens a session, runs fn and closes the session.
func Run(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	s, err := Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			logger.Warn("session close failed", logger.Err(cerr))
		}
	}()
	return fn(ctx, s)
}

// RunAs is Run with the acting identity resolved.
func RunAs(ctx context.Context, fn func(ctx context.Context, s *Session, actor access.Actor) error) error {
	return Run(ctx, func(ctx context.Context, s *Session) error {
		actor, err := s.Actor(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, s, actor)
	})
}
