package filestore

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
)

// Resolver maps caller-supplied relative paths onto the storage root.
//
// A resolved path is always the root itself or lies strictly below
// root + separator; ".." segments are cleaned against a virtual "/" so they
// can never climb above the root.
type Resolver struct {
	root string
}

// NewResolver creates a Resolver confined to root.
func NewResolver(root string) (*Resolver, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid storage root %q: %w", root, err)
	}
	return &Resolver{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute storage root.
func (r *Resolver) Root() string {
	return r.root
}

// CleanRel normalizes a caller path into slash form without a leading slash.
// The empty string denotes the root.
func CleanRel(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "." || p == "/" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// Resolve returns the absolute location of the relative path p.
func (r *Resolver) Resolve(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", storeerrors.NewValidationError(p, "path contains NUL byte")
	}

	rel := CleanRel(p)
	if rel == "" {
		return r.root, nil
	}

	abs := filepath.Clean(filepath.Join(r.root, filepath.FromSlash(rel)))
	if !r.Contains(abs) {
		return "", storeerrors.NewValidationError(p, "path escapes storage root")
	}
	return abs, nil
}

// Contains reports whether abs is the root or lies below it.
func (r *Resolver) Contains(abs string) bool {
	abs = filepath.Clean(abs)
	return abs == r.root || strings.HasPrefix(abs, r.root+string(filepath.Separator))
}

// IsRoot reports whether abs is the storage root.
func (r *Resolver) IsRoot(abs string) bool {
	return filepath.Clean(abs) == r.root
}

// Rel returns abs relative to the root in slash form ("" for the root).
func (r *Resolver) Rel(abs string) (string, error) {
	if !r.Contains(abs) {
		return "", storeerrors.NewValidationError(abs, "path outside storage root")
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return "", storeerrors.NewValidationError(abs, "path outside storage root")
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// TopLevel returns the first segment of a relative path, i.e. the personal
// namespace the path lives in.
func TopLevel(p string) string {
	rel := CleanRel(p)
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return rel
}
