package storage

import (
	"context"
	"io"
	"path"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/internal/telemetry"
	"github.com/marmos91/dittobox/pkg/access"
	"github.com/marmos91/dittobox/pkg/filestore"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
	"github.com/marmos91/dittobox/pkg/metrics"
)

// Read-class operations pass ownerOnly=false to the access check, structural
// changes to an existing node pass true.
//
// Mutations are authorized through a filestore.Guard, inside the exclusive
// section that performs them. A mutation stuck behind another writer thus
// fails with LockTimeout instead of waiting on a separate shared check.
const (
	readClass  = false
	ownerClass = true
)

// List returns the children of directory p.
func (s *Service) List(ctx context.Context, actor access.Actor, p string) ([]filestore.ChildDescriptor, error) {
	return observe(ctx, s, OpList, actor, p, func(ctx context.Context) ([]filestore.ChildDescriptor, error) {
		if err := s.access.Authorize(ctx, actor, p, readClass); err != nil {
			return nil, err
		}
		children, err := s.files.ListChildren(ctx, p)
		if err != nil {
			return nil, err
		}
		logger.DebugCtx(ctx, "directory listed", logger.KeyEntries, len(children))
		return children, nil
	})
}

// Stat describes the node at p.
func (s *Service) Stat(ctx context.Context, actor access.Actor, p string) (*filestore.FileDescriptor, error) {
	return observe(ctx, s, OpStat, actor, p, func(ctx context.Context) (*filestore.FileDescriptor, error) {
		if err := s.access.Authorize(ctx, actor, p, readClass); err != nil {
			return nil, err
		}
		return s.files.FindFileDescriptor(ctx, actor.Identity, p)
	})
}

// Read opens the regular file at p and returns it with its media type.
// The caller must close the reader.
func (s *Service) Read(ctx context.Context, actor access.Actor, p string) (io.ReadCloser, string, error) {
	type opened struct {
		r    io.ReadCloser
		mime string
	}

	o, err := observe(ctx, s, OpRead, actor, p, func(ctx context.Context) (opened, error) {
		if err := s.access.Authorize(ctx, actor, p, readClass); err != nil {
			return opened{}, err
		}
		f, err := s.files.FindFile(ctx, p)
		if err != nil {
			return opened{}, err
		}
		mime := filestore.MediaType(path.Base(filestore.CleanRel(p)))
		telemetry.SetAttributes(ctx, telemetry.MediaType(mime))
		return opened{r: f, mime: mime}, nil
	})
	if err != nil {
		return nil, "", err
	}
	return o.r, o.mime, nil
}

// Mkdir creates directory name inside parent, owned by actor, and returns
// its path.
func (s *Service) Mkdir(ctx context.Context, actor access.Actor, parent, name string) (string, error) {
	return observe(ctx, s, OpMkdir, actor, parent, func(ctx context.Context) (string, error) {
		rel, err := s.files.MakeDirectory(ctx, actor.Identity, parent, name,
			s.access.Guard(ctx, actor, parent, readClass))
		if err != nil {
			return "", err
		}
		logger.InfoCtx(ctx, "directory created", logger.KeyNewPath, rel)
		return rel, nil
	}, telemetry.FSName(name))
}

// Upload stores content inside directory dir under suggestedName and
// returns the stored path, which differs from the suggestion on collision.
//
// Access is checked once before the body is received, so a denied caller
// never fills the staging area, and again under the gate at commit.
func (s *Service) Upload(ctx context.Context, actor access.Actor, dir string, content io.Reader, suggestedName string) (string, error) {
	return observe(ctx, s, OpUpload, actor, dir, func(ctx context.Context) (string, error) {
		if err := s.access.Check(ctx, actor, dir, readClass); err != nil {
			return "", err
		}

		counted := &countingReader{r: content}
		rel, err := s.files.UploadFile(ctx, dir, counted, suggestedName,
			s.access.Guard(ctx, actor, dir, readClass))
		if err != nil {
			return "", err
		}

		metrics.RecordUploadBytes(s.metrics, counted.n)
		telemetry.SetAttributes(ctx, telemetry.FSSize(counted.n))
		logger.InfoCtx(ctx, "file uploaded", logger.KeyNewPath, rel, logger.Size(counted.n))
		return rel, nil
	}, telemetry.FSName(suggestedName))
}

// Rename gives the node at p the name newName within the same parent and
// returns the new path. Only the owner may rename.
func (s *Service) Rename(ctx context.Context, actor access.Actor, p, newName string) (string, error) {
	return observe(ctx, s, OpRename, actor, p, func(ctx context.Context) (string, error) {
		rel, err := s.files.RenameNode(ctx, p, newName, s.access.Guard(ctx, actor, p, ownerClass))
		if err != nil {
			return "", err
		}
		telemetry.SetAttributes(ctx, telemetry.FSNewPath(rel))
		logger.InfoCtx(ctx, "node renamed", logger.KeyOldPath, filestore.CleanRel(p), logger.KeyNewPath, rel)
		return rel, nil
	}, telemetry.FSName(newName))
}

// Delete removes the file or empty directory at p. Only the owner may
// delete.
func (s *Service) Delete(ctx context.Context, actor access.Actor, p string) error {
	return run(ctx, s, OpDelete, actor, p, func(ctx context.Context) error {
		if err := s.files.DeleteNode(ctx, p, s.access.Guard(ctx, actor, p, ownerClass)); err != nil {
			return err
		}
		logger.InfoCtx(ctx, "node deleted")
		return nil
	})
}

// EnsureHome creates the actor's personal top-level directory on first use
// and returns its path. It is the only way a non-admin creates a node at
// the root.
func (s *Service) EnsureHome(ctx context.Context, actor access.Actor) (string, error) {
	return observe(ctx, s, OpHome, actor, actor.Identity, func(ctx context.Context) (string, error) {
		home, err := homeName(actor)
		if err != nil {
			return "", err
		}

		exists, err := s.files.IsDirectory(ctx, home)
		if err != nil {
			return "", err
		}
		if exists {
			return home, nil
		}

		rel, err := s.files.MakeDirectory(ctx, actor.Identity, "", home)
		if err != nil {
			if !storeerrors.Is(err, storeerrors.ErrAlreadyExists) {
				return "", err
			}
			// lost a race with a concurrent first use, or a file is in the way
			if dir, statErr := s.files.IsDirectory(ctx, home); statErr != nil || !dir {
				return "", storeerrors.NewNotDirectoryError(home)
			}
			return home, nil
		}
		logger.InfoCtx(ctx, "home directory created", logger.KeyNewPath, rel)
		return rel, nil
	})
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
