// Package storage is the surface the engine exposes to a transport layer.
//
// A Service wires the metadata index, the directory markers, the file store
// and the access controller behind one concurrency gate. Every operation
// authorizes the actor, runs inside a "storage.<op>" span, carries a
// logger.LogContext and is recorded in the storage metrics.
package storage

import (
	"context"
	"fmt"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/access"
	"github.com/marmos91/dittobox/pkg/config"
	"github.com/marmos91/dittobox/pkg/filestore"
	"github.com/marmos91/dittobox/pkg/gate"
	"github.com/marmos91/dittobox/pkg/index"
	"github.com/marmos91/dittobox/pkg/metadata"
	"github.com/marmos91/dittobox/pkg/metrics"
)

// Service exposes the storage operations.
type Service struct {
	index   index.Store
	gate    gate.Gate
	meta    *metadata.Store
	files   *filestore.Store
	access  *access.Controller
	metrics metrics.StorageMetrics
	admins  []string
}

// New opens the index configured in cfg.Database and builds a Service over
// cfg.Storage.Root. m may be nil.
func New(ctx context.Context, cfg *config.Config, m metrics.StorageMetrics) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage configuration is required")
	}

	idx, err := OpenIndex(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata index: %w", err)
	}

	svc, err := NewWithIndex(cfg, idx, m)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	logger.Info("Storage service ready",
		logger.KeyRoot, svc.files.Resolver().Root(),
		logger.KeyIndexType, string(cfg.Database.Type))
	return svc, nil
}

// NewWithIndex builds a Service over an already open index. The Service
// takes ownership of idx and closes it on Close.
func NewWithIndex(cfg *config.Config, idx index.Store, m metrics.StorageMetrics) (*Service, error) {
	g := gate.New(gate.Config{LockTimeout: cfg.Storage.LockTimeout, Metrics: m})

	meta, err := metadata.New(metadata.Config{
		Root:             cfg.Storage.Root,
		PathRefreshDepth: cfg.Storage.PathRefreshDepth,
		CacheSize:        cfg.Storage.MarkerCacheSize,
	}, idx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata store: %w", err)
	}

	files, err := filestore.New(filestore.Config{
		Root:          cfg.Storage.Root,
		MaxUploadSize: cfg.Storage.MaxUploadSize,
	}, meta, g)
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}

	ctrl, err := access.New(files, idx, idx)
	if err != nil {
		return nil, fmt.Errorf("failed to create access controller: %w", err)
	}

	return &Service{
		index:   idx,
		gate:    g,
		meta:    meta,
		files:   files,
		access:  ctrl,
		metrics: m,
		admins:  cfg.Admins,
	}, nil
}

// Files returns the underlying file store.
func (s *Service) Files() *filestore.Store {
	return s.files
}

// Access returns the underlying access controller.
func (s *Service) Access() *access.Controller {
	return s.access
}

// Gate returns the concurrency gate shared by every operation.
func (s *Service) Gate() gate.Gate {
	return s.gate
}

// Healthcheck verifies the storage root and the index are usable.
func (s *Service) Healthcheck(ctx context.Context) error {
	if err := s.files.EnsureRoot(); err != nil {
		return err
	}
	return s.index.Healthcheck(ctx)
}

// Close releases the metadata index.
func (s *Service) Close() error {
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	if err != nil {
		return fmt.Errorf("failed to close metadata index: %w", err)
	}
	return nil
}
