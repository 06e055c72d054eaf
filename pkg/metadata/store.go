// Package metadata anchors every managed directory to a durable UUID and
// keeps the secondary index (owner, cached path) consistent with the tree.
//
// The marker file inside each directory is the single source of truth for
// its UUID. Index rows are keyed by that UUID and are purged on delete and
// refreshed on rename.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/index"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
	"github.com/marmos91/dittobox/pkg/models"
)

// DefaultCacheSize is the number of directory UUIDs kept in memory.
const DefaultCacheSize = 4096

// Config configures a metadata Store.
type Config struct {
	// Root is the absolute storage root. Cached paths are relative to it.
	Root string

	// PathRefreshDepth bounds how many levels of child directories get their
	// cached path refreshed after a rename. 0 refreshes the whole subtree.
	PathRefreshDepth int

	// CacheSize is the marker cache capacity. Defaults to DefaultCacheSize.
	CacheSize int
}

// Store combines the directory markers with the metadata index.
//
// Store does no locking of its own: callers run structural operations under
// the exclusive gate and lookups under the shared gate.
type Store struct {
	root         string
	index        index.Store
	cache        *lru.Cache[string, string]
	refreshDepth int
}

// New creates a metadata Store over idx.
func New(cfg Config, idx index.Store) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("metadata root is required")
	}
	if idx == nil {
		return nil, fmt.Errorf("metadata index is required")
	}
	if cfg.PathRefreshDepth < 0 {
		return nil, fmt.Errorf("path refresh depth must be >= 0, got %d", cfg.PathRefreshDepth)
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid metadata root: %w", err)
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create marker cache: %w", err)
	}

	return &Store{
		root:         root,
		index:        idx,
		cache:        cache,
		refreshDepth: cfg.PathRefreshDepth,
	}, nil
}

// Index returns the underlying metadata index.
func (s *Store) Index() index.Store {
	return s.index
}

// Make assigns a fresh UUID to dir, writes its marker and records owner.
func (s *Store) Make(ctx context.Context, dir, owner string) (string, error) {
	if err := requireDirectory(dir); err != nil {
		return "", err
	}

	id := uuid.New().String()
	if err := writeMarker(dir, &Marker{UUID: id, CreatedAt: time.Now().UTC()}); err != nil {
		return "", err
	}

	if err := s.index.CreateOwnership(ctx, id, owner); err != nil {
		if errors.Is(err, models.ErrDuplicateOwner) {
			return "", storeerrors.NewAlreadyExistsError(dir)
		}
		return "", storeerrors.NewIOError(dir, "record owner", err)
	}

	s.cache.Add(dir, id)
	logger.DebugCtx(ctx, "directory registered", logger.KeyUUID, id, logger.KeyActor, owner)
	return id, nil
}

// UUIDFromDir returns the UUID recorded in dir's marker.
func (s *Store) UUIDFromDir(dir string) (string, error) {
	if id, ok := s.cache.Get(dir); ok {
		return id, nil
	}

	if err := requireDirectory(dir); err != nil {
		return "", err
	}

	m, err := readMarker(dir)
	if err != nil {
		return "", err
	}

	s.cache.Add(dir, m.UUID)
	return m.UUID, nil
}

// FindMetadataFromKey returns the key record of a directory identified either
// by UUID or by absolute path.
func (s *Store) FindMetadataFromKey(ctx context.Context, uuidOrPath, key string) (*models.MetadataRecord, error) {
	id := uuidOrPath
	if _, err := uuid.Parse(uuidOrPath); err != nil {
		if id, err = s.UUIDFromDir(uuidOrPath); err != nil {
			return nil, err
		}
	}

	if key == models.KeyOwner {
		row, err := s.index.GetOwnership(ctx, id)
		if err != nil {
			return nil, convertIndexError(err, uuidOrPath, key)
		}
		return models.OwnershipRecord(row), nil
	}

	row, err := s.index.GetAttribute(ctx, id, key)
	if err != nil {
		return nil, convertIndexError(err, uuidOrPath, key)
	}
	return models.AttributeRecord(row), nil
}

// FindMetadataFromKeyAndValueContains returns every key record whose value
// contains substring.
func (s *Store) FindMetadataFromKeyAndValueContains(ctx context.Context, key, substring string) ([]*models.MetadataRecord, error) {
	if key == models.KeyOwner {
		rows, err := s.index.SearchOwnerships(ctx, substring)
		if err != nil {
			return nil, storeerrors.NewIOError(substring, "search owners", err)
		}
		records := make([]*models.MetadataRecord, 0, len(rows))
		for _, r := range rows {
			records = append(records, models.OwnershipRecord(r))
		}
		return records, nil
	}

	rows, err := s.index.SearchAttributes(ctx, key, substring)
	if err != nil {
		return nil, storeerrors.NewIOError(substring, "search attributes", err)
	}
	records := make([]*models.MetadataRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, models.AttributeRecord(r))
	}
	return records, nil
}

// FindOwnedDirectories returns the UUIDs of directories owned by exactly identity.
func (s *Store) FindOwnedDirectories(ctx context.Context, identity string) ([]string, error) {
	ids, err := s.index.ListOwnedDirectories(ctx, identity)
	if err != nil {
		return nil, storeerrors.NewIOError(identity, "list owned directories", err)
	}
	return ids, nil
}

// FindMetadataFromKeyBatch returns the key record of each listed UUID that has one.
func (s *Store) FindMetadataFromKeyBatch(ctx context.Context, ids []string, key string) ([]*models.MetadataRecord, error) {
	rows, err := s.index.GetAttributes(ctx, ids, key)
	if err != nil {
		return nil, storeerrors.NewIOError(key, "batch lookup", err)
	}
	records := make([]*models.MetadataRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, models.AttributeRecord(r))
	}
	return records, nil
}

// Save upserts a generic attribute of dir. The owner cannot be changed.
func (s *Store) Save(ctx context.Context, dir, key, value string) error {
	if key == models.KeyOwner {
		return storeerrors.NewValidationError(dir, "owner is immutable")
	}
	id, err := s.UUIDFromDir(dir)
	if err != nil {
		return err
	}
	if _, err := s.index.PutAttribute(ctx, id, key, value); err != nil {
		return storeerrors.NewIOError(dir, "save attribute", err)
	}
	return nil
}

// DeleteAll purges every index row of dir and removes its marker.
// It must run before dir itself is removed. Unmanaged directories are a no-op.
func (s *Store) DeleteAll(ctx context.Context, dir string) error {
	id, err := s.UUIDFromDir(dir)
	if storeerrors.IsNotFoundError(err) {
		logger.DebugCtx(ctx, "deleting unmanaged directory", logger.KeyPath, s.rel(dir))
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.index.DeleteDirectory(ctx, id); err != nil {
		return storeerrors.NewIOError(dir, "purge metadata", err)
	}
	if err := os.Remove(markerPath(dir)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storeerrors.NewIOError(dir, "remove marker", err)
	}

	s.InvalidatePrefix(dir)
	logger.DebugCtx(ctx, "directory metadata purged", logger.KeyUUID, id)
	return nil
}

// SavePathMetadata records dir's current root-relative path. When the record
// already existed, dir was moved and the cached paths of its child
// directories are refreshed up to the configured depth.
func (s *Store) SavePathMetadata(ctx context.Context, dir string) error {
	id, err := s.UUIDFromDir(dir)
	if err != nil {
		return err
	}

	created, err := s.index.PutAttribute(ctx, id, models.KeyPath, s.rel(dir))
	if err != nil {
		return storeerrors.NewIOError(dir, "save path", err)
	}
	if created {
		return nil
	}

	refreshed, err := s.refreshChildren(ctx, dir, 1)
	if err != nil {
		return err
	}
	logger.DebugCtx(ctx, "cached paths refreshed",
		logger.KeyUUID, id, logger.KeyDepth, s.refreshDepth, logger.KeyRefreshed, refreshed)
	return nil
}

// refreshChildren updates the cached path of every managed child directory
// of dir, descending while level is within the refresh depth.
func (s *Store) refreshChildren(ctx context.Context, dir string, level int) (int, error) {
	if s.refreshDepth > 0 && level > s.refreshDepth {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, storeerrors.NewIOError(dir, "read directory", err)
	}

	refreshed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		child := filepath.Join(dir, e.Name())

		id, err := s.UUIDFromDir(child)
		if storeerrors.IsNotFoundError(err) {
			logger.DebugCtx(ctx, "skipping unmanaged directory", logger.KeyPath, s.rel(child))
			continue
		}
		if err != nil {
			return refreshed, err
		}

		if _, err := s.index.PutAttribute(ctx, id, models.KeyPath, s.rel(child)); err != nil {
			return refreshed, storeerrors.NewIOError(child, "refresh path", err)
		}
		refreshed++

		n, err := s.refreshChildren(ctx, child, level+1)
		refreshed += n
		if err != nil {
			return refreshed, err
		}
	}
	return refreshed, nil
}

// InvalidatePrefix drops cached UUIDs for dir and everything below it.
func (s *Store) InvalidatePrefix(dir string) {
	prefix := dir + string(filepath.Separator)
	for _, key := range s.cache.Keys() {
		if key == dir || strings.HasPrefix(key, prefix) {
			s.cache.Remove(key)
		}
	}
}

// rel returns dir relative to the root in slash form.
func (s *Store) rel(dir string) string {
	rel, err := filepath.Rel(s.root, dir)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// requireDirectory fails unless path exists and is a directory.
func requireDirectory(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return storeerrors.NewNotFoundError(path, "directory")
	}
	if err != nil {
		return storeerrors.NewIOError(path, "stat", err)
	}
	if !info.IsDir() {
		return storeerrors.NewNotDirectoryError(path)
	}
	return nil
}

// convertIndexError maps index sentinels onto the storage taxonomy.
func convertIndexError(err error, subject, key string) error {
	if errors.Is(err, models.ErrRecordNotFound) {
		return storeerrors.NewNotFoundError(subject, key+" record")
	}
	return storeerrors.NewIOError(subject, "index lookup", err)
}
