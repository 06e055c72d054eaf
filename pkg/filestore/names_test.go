package filestore

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.txt", "report.txt"},
		{"  my report.txt ", "my-report.txt"},
		{`a/b\c%d:e*f?g"h'i<j>k` + "`l", "a-b-c-d-e-f-g-h-i-j-k-l"},
		{"../escape", "..-escape"},
		{"ünïcödé", "ünïcödé"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SanitizeName(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeNameRejects(t *testing.T) {
	for _, name := range []string{"", "   ", ".", "..", ".dirdata", "a\x00b"} {
		_, err := SanitizeName(name)
		assert.True(t, storeerrors.Is(err, storeerrors.ErrValidation), "%q", name)
	}
}

func TestUniqueName(t *testing.T) {
	dir := t.TempDir()

	t.Run("UnusedNameIsKept", func(t *testing.T) {
		name, err := UniqueName(dir, "report.txt")
		require.NoError(t, err)
		assert.Equal(t, "report.txt", name)
	})

	t.Run("CollisionInsertsDigitsBeforeExtension", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "report.txt"), nil, 0644))
		name, err := UniqueName(dir, "report.txt")
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^report\d{2}\.txt$`), name)
	})

	t.Run("CollisionWithoutExtension", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), nil, 0644))
		name, err := UniqueName(dir, "README")
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^README\d{2}$`), name)
	})

	t.Run("DotfileHasNoExtension", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), nil, 0644))
		name, err := UniqueName(dir, ".env")
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^\.env\d{2}$`), name)
	})

	t.Run("ExhaustedSpace", func(t *testing.T) {
		full := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(full, "x.bin"), nil, 0644))
		for i := 0; i < 100; i++ {
			require.NoError(t, os.WriteFile(filepath.Join(full, "x"+twoDigits(i)+".bin"), nil, 0644))
		}
		_, err := UniqueName(full, "x.bin")
		assert.True(t, storeerrors.Is(err, storeerrors.ErrAlreadyExists))
	})
}

func twoDigits(i int) string {
	return string([]byte{byte('0' + i/10), byte('0' + i%10)})
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"notes.txt", "text/plain"},
		{"PHOTO.JPG", "image/jpeg"},
		{"archive.tar.gz", "application/gzip"},
		{"README", DirectoryMediaType},
		{"trailing.", DirectoryMediaType},
		{"data.unknownext", DefaultMediaType},
		{".gitignore", "text/x-gitignore"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MediaType(tt.name))
		})
	}
}
