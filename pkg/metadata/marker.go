package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
)

// MarkerName is the reserved, hidden file holding a directory's UUID.
// It is never listed and never served.
const MarkerName = ".dirdata"

// Marker is the on-disk content of a directory marker.
type Marker struct {
	UUID      string    `yaml:"uuid"`
	CreatedAt time.Time `yaml:"created_at"`
}

// IsMarkerName reports whether name is reserved for directory markers.
func IsMarkerName(name string) bool {
	return name == MarkerName
}

// markerPath returns the marker location inside dir.
func markerPath(dir string) string {
	return filepath.Join(dir, MarkerName)
}

// writeMarker creates the marker of dir. It never overwrites an existing marker.
func writeMarker(dir string, m *Marker) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return storeerrors.NewIOError(dir, "encode marker", err)
	}

	f, err := os.OpenFile(markerPath(dir), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return storeerrors.NewAlreadyExistsError(markerPath(dir))
	}
	if err != nil {
		return storeerrors.NewIOError(dir, "create marker", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(markerPath(dir))
		return storeerrors.NewIOError(dir, "write marker", err)
	}
	if err := f.Close(); err != nil {
		return storeerrors.NewIOError(dir, "close marker", err)
	}
	return nil
}

// readMarker parses the marker of dir.
func readMarker(dir string) (*Marker, error) {
	data, err := os.ReadFile(markerPath(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storeerrors.NewNotFoundError(dir, "directory marker")
	}
	if err != nil {
		return nil, storeerrors.NewMetadataCorruptError(dir, err)
	}

	var m Marker
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, storeerrors.NewMetadataCorruptError(dir, err)
	}
	if _, err := uuid.Parse(m.UUID); err != nil {
		return nil, storeerrors.NewMetadataCorruptError(dir, fmt.Errorf("invalid uuid %q: %w", m.UUID, err))
	}
	return &m, nil
}
