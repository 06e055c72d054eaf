// Package filestore implements the filesystem operations of the storage
// engine: listing, directory creation, uploads, renames, deletes and reads
// of nodes confined to a single root.
//
// Every operation acquires the concurrency gate itself. Structural
// mutations hold the exclusive gate across their metadata side effects, so
// creating a directory and recording its owner is atomic with respect to
// other structural operations. Mutators accept Guards, which run inside
// the same exclusive section before anything is changed.
//
// Upload bodies are streamed into a staging directory under the root
// before the gate is taken; only the final rename happens under it.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittobox/internal/bytesize"
	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/gate"
	"github.com/marmos91/dittobox/pkg/metadata"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
)

const (
	dirPerm  os.FileMode = 0755
	filePerm os.FileMode = 0644
)

// StagingDirName is the reserved top-level directory holding uploads that
// are still being received. It is never listed or resolvable by callers.
const StagingDirName = ".dittobox-staging"

// stagingMaxAge is how old a staged upload must be before New removes it.
const stagingMaxAge = 24 * time.Hour

// Guard is checked under the exclusive gate before a mutation changes the
// tree. A non-nil error aborts the mutation and is returned as is.
type Guard func() error

func runGuards(guards []Guard) error {
	for _, g := range guards {
		if g == nil {
			continue
		}
		if err := g(); err != nil {
			return err
		}
	}
	return nil
}

// Config configures a Store.
type Config struct {
	// Root is the storage root. It is created when missing.
	Root string

	// MaxUploadSize rejects uploads larger than this. Zero means unlimited.
	MaxUploadSize bytesize.ByteSize
}

// Store performs gated filesystem operations under one root.
type Store struct {
	resolver  *Resolver
	meta      *metadata.Store
	gate      gate.Gate
	maxUpload bytesize.ByteSize
}

// New creates a Store and makes sure its root exists.
func New(cfg Config, meta *metadata.Store, g gate.Gate) (*Store, error) {
	if meta == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if g == nil {
		g = gate.NewNoop()
	}

	resolver, err := NewResolver(cfg.Root)
	if err != nil {
		return nil, err
	}

	s := &Store{
		resolver:  resolver,
		meta:      meta,
		gate:      g,
		maxUpload: cfg.MaxUploadSize,
	}
	if err := s.EnsureRoot(); err != nil {
		return nil, err
	}
	s.sweepStaging(stagingMaxAge)
	return s, nil
}

// Resolver returns the root resolver.
func (s *Store) Resolver() *Resolver { return s.resolver }

// Metadata returns the metadata store.
func (s *Store) Metadata() *metadata.Store { return s.meta }

// Gate returns the concurrency gate.
func (s *Store) Gate() gate.Gate { return s.gate }

// EnsureRoot creates the root directory when it is missing. A non-directory
// occupying the root location is replaced by an empty directory.
func (s *Store) EnsureRoot() error {
	root := s.resolver.Root()

	info, err := os.Stat(root)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		logger.Warn("storage root is not a directory, replacing it", logger.KeyRoot, root)
		if err := os.Remove(root); err != nil {
			return storeerrors.NewIOError(root, "replace storage root", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return storeerrors.NewIOError(root, "stat storage root", err)
	}

	if err := os.MkdirAll(root, dirPerm); err != nil {
		return storeerrors.NewIOError(root, "create storage root", err)
	}
	logger.Info("storage root created", logger.KeyRoot, root)
	return nil
}

// ============================================================================
// Descriptors
// ============================================================================

// ChildDescriptor describes one entry of a directory listing.
type ChildDescriptor struct {
	Name        string `json:"name" yaml:"name"`
	Path        string `json:"path" yaml:"path"`
	IsDirectory bool   `json:"is_directory" yaml:"is_directory"`
}

// FileDescriptor describes a single node.
type FileDescriptor struct {
	Name        string    `json:"name" yaml:"name"`
	Path        string    `json:"path" yaml:"path"`
	MimeType    string    `json:"mime_type" yaml:"mime_type"`
	Size        int64     `json:"size" yaml:"size"`
	SizeMB      float64   `json:"size_mb" yaml:"size_mb"`
	IsDirectory bool      `json:"is_directory" yaml:"is_directory"`
	Editable    bool      `json:"editable" yaml:"editable"`
	ModifiedAt  time.Time `json:"modified_at" yaml:"modified_at"`

	// UUID and Owner are set for managed directories only.
	UUID  string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Owner string `json:"owner,omitempty" yaml:"owner,omitempty"`
}

// ============================================================================
// Internal helpers
// ============================================================================

// resolve maps p onto the root and returns both its absolute and its
// normalized relative form.
func (s *Store) resolve(p string) (abs, rel string, err error) {
	abs, err = s.resolver.Resolve(p)
	if err != nil {
		return "", "", err
	}
	rel, err = s.resolver.Rel(abs)
	if err != nil {
		return "", "", err
	}
	if strings.EqualFold(TopLevel(rel), StagingDirName) {
		return "", "", storeerrors.NewAccessDeniedError(rel, "the staging area is not accessible")
	}
	return abs, rel, nil
}

// lstat stats abs without following symlinks and maps failures onto the
// error taxonomy using rel for messages.
func lstat(abs, rel string) (fs.FileInfo, error) {
	info, err := os.Lstat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storeerrors.NewNotFoundError(rel, "node")
	}
	if err != nil {
		return nil, storeerrors.NewIOError(rel, "stat", err)
	}
	return info, nil
}

// requireDir fails unless abs is an existing directory.
func requireDir(abs, rel string) error {
	info, err := lstat(abs, rel)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return storeerrors.NewNotDirectoryError(rel)
	}
	return nil
}

// stagingDir returns the absolute staging directory, creating it on demand.
func (s *Store) stagingDir() (string, error) {
	dir := filepath.Join(s.resolver.Root(), StagingDirName)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", storeerrors.NewIOError(StagingDirName, "create staging directory", err)
	}
	return dir, nil
}

// rejectMarker fails for the reserved marker file, which is never exposed.
func rejectMarker(info fs.FileInfo, rel string) error {
	if !info.IsDir() && metadata.IsMarkerName(info.Name()) {
		return storeerrors.NewAccessDeniedError(rel, "directory markers are not accessible")
	}
	return nil
}
