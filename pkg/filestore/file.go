package filestore

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittobox/internal/bytesize"
	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/bufpool"
	"github.com/marmos91/dittobox/pkg/gate"
	"github.com/marmos91/dittobox/pkg/models"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
)

// ============================================================================
// Upload
// ============================================================================

// UploadFile stores content in the directory dir under suggestedName and
// returns the stored relative path. On a name collision a disambiguator is
// inserted before the extension.
//
// The body is received into the staging area without holding the gate, so
// a slow sender never blocks other operations. The exclusive gate is taken
// only to run guards, re-check dir, pick the name and rename the staged file
// into place. A failed upload leaves no partial file behind.
func (s *Store) UploadFile(ctx context.Context, dir string, content io.Reader, suggestedName string, guards ...Guard) (string, error) {
	clean, err := SanitizeName(suggestedName)
	if err != nil {
		return "", err
	}
	_, dirRel, err := s.resolve(dir)
	if err != nil {
		return "", err
	}
	target := path.Join(dirRel, clean)

	staged, n, err := s.stage(ctx, target, content)
	if err != nil {
		return "", err
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(staged)
		}
	}()

	rel, err := gate.ExclusiveValue(ctx, s.gate, func() (string, error) {
		if err := runGuards(guards); err != nil {
			return "", err
		}
		if err := s.EnsureRoot(); err != nil {
			return "", err
		}

		dirAbs, dirRel, err := s.resolve(dir)
		if err != nil {
			return "", err
		}
		if err := requireDir(dirAbs, dirRel); err != nil {
			return "", err
		}

		name, err := UniqueName(dirAbs, clean)
		if err != nil {
			return "", err
		}
		rel := path.Join(dirRel, name)

		if err := os.Rename(staged, filepath.Join(dirAbs, name)); err != nil {
			return "", storeerrors.NewIOError(rel, "commit upload", err)
		}
		committed = true
		return rel, nil
	})
	if err != nil {
		return "", err
	}

	logger.DebugCtx(ctx, "file uploaded", logger.KeyPath, rel, logger.Size(n))
	return rel, nil
}

// stage copies content into a new file of the staging area and returns its
// path and size. The file is removed again on failure. rel names the upload
// in errors.
func (s *Store) stage(ctx context.Context, rel string, content io.Reader) (string, int64, error) {
	staging, err := s.stagingDir()
	if err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(staging, "upload-*")
	if err != nil {
		return "", 0, storeerrors.NewIOError(rel, "create staging file", err)
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	src := content
	if s.maxUpload > 0 {
		src = io.LimitReader(content, s.maxUpload.Int64()+1)
	}

	n, err := bufpool.Copy(tmp, ctxReader{ctx: ctx, r: src})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", 0, ctxErr
		}
		return "", 0, storeerrors.NewIOError(rel, "write upload", err)
	}
	if s.maxUpload > 0 && n > s.maxUpload.Int64() {
		return "", 0, storeerrors.NewValidationError(rel, "upload exceeds maximum size of "+s.maxUpload.String())
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return "", 0, storeerrors.NewIOError(rel, "set permissions", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, storeerrors.NewIOError(rel, "close upload", err)
	}
	ok = true
	return tmpName, n, nil
}

// sweepStaging removes staged uploads older than maxAge, left behind by a
// process that died mid-upload.
func (s *Store) sweepStaging(maxAge time.Duration) {
	dir := filepath.Join(s.resolver.Root(), StagingDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			logger.Debug("removed stale staged upload", logger.KeyPath, e.Name())
		}
	}
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// ============================================================================
// Read
// ============================================================================

// FindFile opens the regular file at p for reading. The caller closes it.
func (s *Store) FindFile(ctx context.Context, p string) (*os.File, error) {
	return gate.SharedValue(ctx, s.gate, func() (*os.File, error) {
		if err := s.EnsureRoot(); err != nil {
			return nil, err
		}

		abs, rel, err := s.resolve(p)
		if err != nil {
			return nil, err
		}
		info, err := lstat(abs, rel)
		if err != nil {
			return nil, err
		}
		if err := rejectMarker(info, rel); err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, storeerrors.NewIsDirectoryError(rel)
		}
		if !info.Mode().IsRegular() {
			return nil, storeerrors.NewIOError(rel, "open", os.ErrInvalid)
		}

		f, err := os.Open(abs)
		if err != nil {
			return nil, storeerrors.NewIOError(rel, "open", err)
		}
		return f, nil
	})
}

// FindFileDescriptor describes the node at p as seen by actor.
func (s *Store) FindFileDescriptor(ctx context.Context, actor, p string) (*FileDescriptor, error) {
	return gate.SharedValue(ctx, s.gate, func() (*FileDescriptor, error) {
		if err := s.EnsureRoot(); err != nil {
			return nil, err
		}

		abs, rel, err := s.resolve(p)
		if err != nil {
			return nil, err
		}
		info, err := lstat(abs, rel)
		if err != nil {
			return nil, err
		}
		if err := rejectMarker(info, rel); err != nil {
			return nil, err
		}

		desc := &FileDescriptor{
			Name:        info.Name(),
			Path:        rel,
			IsDirectory: info.IsDir(),
			Editable:    s.editable(abs, rel, actor),
			ModifiedAt:  info.ModTime(),
		}
		if s.resolver.IsRoot(abs) {
			desc.Name = ""
		}

		if info.IsDir() {
			desc.MimeType = DirectoryMediaType
			s.describeDirectory(ctx, abs, desc)
		} else {
			desc.MimeType = MediaType(info.Name())
			desc.Size = info.Size()
			desc.SizeMB = bytesize.ByteSize(info.Size()).Mebibytes()
		}
		return desc, nil
	})
}

// describeDirectory fills in the UUID and owner of a managed directory.
// Unmanaged directories are described without them.
func (s *Store) describeDirectory(ctx context.Context, abs string, desc *FileDescriptor) {
	id, err := s.meta.UUIDFromDir(abs)
	if err != nil {
		logger.DebugCtx(ctx, "directory has no identity", logger.KeyPath, desc.Path, logger.Err(err))
		return
	}
	desc.UUID = id

	rec, err := s.meta.FindMetadataFromKey(ctx, id, models.KeyOwner)
	if err != nil {
		logger.DebugCtx(ctx, "directory has no owner", logger.KeyPath, desc.Path, logger.Err(err))
		return
	}
	desc.Owner = rec.Value
}

// editable is false for the root and for the actor's own personal directory.
func (s *Store) editable(abs, rel, actor string) bool {
	if s.resolver.IsRoot(abs) {
		return false
	}
	if !strings.Contains(rel, "/") && strings.EqualFold(rel, actor) {
		return false
	}
	return true
}

// ============================================================================
// Node helpers
// ============================================================================

// Exists reports whether a node exists at p.
func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	return gate.SharedValue(ctx, s.gate, func() (bool, error) {
		abs, rel, err := s.resolve(p)
		if err != nil {
			return false, err
		}
		if _, err := lstat(abs, rel); err != nil {
			if storeerrors.IsNotFoundError(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
}

// IsDirectory reports whether p is an existing directory.
func (s *Store) IsDirectory(ctx context.Context, p string) (bool, error) {
	return gate.SharedValue(ctx, s.gate, func() (bool, error) {
		abs, rel, err := s.resolve(p)
		if err != nil {
			return false, err
		}
		info, err := lstat(abs, rel)
		if err != nil {
			if storeerrors.IsNotFoundError(err) {
				return false, nil
			}
			return false, err
		}
		return info.IsDir(), nil
	})
}

// LastModified returns the modification time of the node at p.
func (s *Store) LastModified(ctx context.Context, p string) (time.Time, error) {
	return gate.SharedValue(ctx, s.gate, func() (time.Time, error) {
		abs, rel, err := s.resolve(p)
		if err != nil {
			return time.Time{}, err
		}
		info, err := lstat(abs, rel)
		if err != nil {
			return time.Time{}, err
		}
		return info.ModTime(), nil
	})
}
