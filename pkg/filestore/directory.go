package filestore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/gate"
	"github.com/marmos91/dittobox/pkg/metadata"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
)

// ============================================================================
// Directory Operations
// ============================================================================

// ListChildren lists the entries of the directory at p, sorted by name.
// Directory markers and the staging area are never listed.
func (s *Store) ListChildren(ctx context.Context, p string) ([]ChildDescriptor, error) {
	return gate.SharedValue(ctx, s.gate, func() ([]ChildDescriptor, error) {
		if err := s.EnsureRoot(); err != nil {
			return nil, err
		}

		abs, rel, err := s.resolve(p)
		if err != nil {
			return nil, err
		}
		if err := requireDir(abs, rel); err != nil {
			return nil, err
		}

		entries, err := os.ReadDir(abs)
		if err != nil {
			return nil, storeerrors.NewIOError(rel, "read directory", err)
		}

		atRoot := s.resolver.IsRoot(abs)
		children := make([]ChildDescriptor, 0, len(entries))
		for _, e := range entries {
			if metadata.IsMarkerName(e.Name()) || (atRoot && strings.EqualFold(e.Name(), StagingDirName)) {
				continue
			}
			children = append(children, ChildDescriptor{
				Name:        e.Name(),
				Path:        path.Join(rel, e.Name()),
				IsDirectory: e.IsDir(),
			})
		}

		logger.DebugCtx(ctx, "listed directory", logger.KeyPath, rel, logger.KeyEntries, len(children))
		return children, nil
	})
}

// MakeDirectory creates the directory name inside parent, owned by owner,
// and returns its relative path. guards run under the exclusive gate first.
//
// If recording metadata fails after the directory was created, the
// directory is left in place and the error is returned.
func (s *Store) MakeDirectory(ctx context.Context, owner, parent, name string, guards ...Guard) (string, error) {
	clean, err := SanitizeName(name)
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

		parentAbs, parentRel, err := s.resolve(parent)
		if err != nil {
			return "", err
		}
		if err := requireDir(parentAbs, parentRel); err != nil {
			return "", err
		}

		target := filepath.Join(parentAbs, clean)
		rel := path.Join(parentRel, clean)

		if err := os.Mkdir(target, dirPerm); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return "", storeerrors.NewAlreadyExistsError(rel)
			}
			return "", storeerrors.NewIOError(rel, "create directory", err)
		}

		id, err := s.meta.Make(ctx, target, owner)
		if err != nil {
			logger.ErrorCtx(ctx, "directory created without ownership metadata",
				logger.KeyPath, rel, logger.Err(err))
			return "", err
		}
		if err := s.meta.SavePathMetadata(ctx, target); err != nil {
			logger.ErrorCtx(ctx, "directory created without path metadata",
				logger.KeyPath, rel, logger.KeyUUID, id, logger.Err(err))
			return "", err
		}

		logger.DebugCtx(ctx, "directory created", logger.KeyPath, rel, logger.KeyUUID, id)
		return rel, nil
	})
}
