package filestore

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/gate"
	"github.com/marmos91/dittobox/pkg/metadata"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
)

// ============================================================================
// Rename
// ============================================================================

// RenameNode renames the node at p to newName within the same parent and
// returns the new relative path. Renaming a directory refreshes the cached
// paths of the directory and its managed descendants.
//
// The move itself is a single rename(2): on failure the old path is left
// untouched. guards run under the exclusive gate first.
func (s *Store) RenameNode(ctx context.Context, p, newName string, guards ...Guard) (string, error) {
	clean, err := SanitizeName(newName)
	if err != nil {
		return "", err
	}

	return gate.ExclusiveValue(ctx, s.gate, func() (string, error) {
		if err := runGuards(guards); err != nil {
			return "", err
		}
		if err := s.EnsureRoot(); err != nil {
			return "", err
		}

		abs, rel, err := s.resolve(p)
		if err != nil {
			return "", err
		}
		if s.resolver.IsRoot(abs) {
			return "", storeerrors.NewValidationError(rel, "the storage root cannot be renamed")
		}
		info, err := lstat(abs, rel)
		if err != nil {
			return "", err
		}
		if err := rejectMarker(info, rel); err != nil {
			return "", err
		}

		target := filepath.Join(filepath.Dir(abs), clean)
		newRel := path.Join(path.Dir(rel), clean)
		if exists(target) {
			return "", storeerrors.NewAlreadyExistsError(newRel)
		}

		if err := os.Rename(abs, target); err != nil {
			return "", storeerrors.NewIOError(rel, "rename", err)
		}

		if info.IsDir() {
			s.meta.InvalidatePrefix(abs)
			if err := s.meta.SavePathMetadata(ctx, target); err != nil {
				if storeerrors.IsNotFoundError(err) {
					logger.DebugCtx(ctx, "renamed unmanaged directory", logger.KeyNewPath, newRel)
				} else {
					logger.ErrorCtx(ctx, "directory renamed without path metadata",
						logger.KeyOldPath, rel, logger.KeyNewPath, newRel, logger.Err(err))
					return "", err
				}
			}
		}

		logger.DebugCtx(ctx, "node renamed", logger.KeyOldPath, rel, logger.KeyNewPath, newRel)
		return newRel, nil
	})
}

// ============================================================================
// Delete
// ============================================================================

// DeleteNode removes the file or empty directory at p. A directory's
// metadata is purged before the directory itself is removed. A directory
// holding anything besides its marker is never touched. guards run under the
// exclusive gate first.
func (s *Store) DeleteNode(ctx context.Context, p string, guards ...Guard) error {
	return gate.Exclusive(ctx, s.gate, func() error {
		if err := runGuards(guards); err != nil {
			return err
		}
		if err := s.EnsureRoot(); err != nil {
			return err
		}

		abs, rel, err := s.resolve(p)
		if err != nil {
			return err
		}
		if s.resolver.IsRoot(abs) {
			return storeerrors.NewValidationError(rel, "the storage root cannot be deleted")
		}
		info, err := lstat(abs, rel)
		if err != nil {
			return err
		}
		if err := rejectMarker(info, rel); err != nil {
			return err
		}
		if info.Mode().Perm()&0200 == 0 {
			return storeerrors.NewNotWritableError(rel)
		}

		if !info.IsDir() {
			if err := os.Remove(abs); err != nil {
				return storeerrors.NewIOError(rel, "remove file", err)
			}
			logger.DebugCtx(ctx, "file deleted", logger.KeyPath, rel)
			return nil
		}

		entries, err := os.ReadDir(abs)
		if err != nil {
			return storeerrors.NewIOError(rel, "read directory", err)
		}
		for _, e := range entries {
			if !metadata.IsMarkerName(e.Name()) {
				return storeerrors.NewNotEmptyError(rel)
			}
		}

		if err := s.meta.DeleteAll(ctx, abs); err != nil {
			return err
		}
		if err := os.Remove(abs); err != nil {
			logger.ErrorCtx(ctx, "directory metadata purged but removal failed",
				logger.KeyPath, rel, logger.Err(err))
			return storeerrors.NewIOError(rel, "remove directory", err)
		}

		logger.DebugCtx(ctx, "directory deleted", logger.KeyPath, rel)
		return nil
	})
}
