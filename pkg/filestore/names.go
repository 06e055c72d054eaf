package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittobox/pkg/metadata"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
)

// maxUniqueAttempts bounds the disambiguator search in UniqueName.
const maxUniqueAttempts = 200

// nameReplacer maps characters that are unsafe in node names to '-'.
var nameReplacer = strings.NewReplacer(
	" ", "-",
	"/", "-",
	"\\", "-",
	"%", "-",
	":", "-",
	"*", "-",
	"?", "-",
	"\"", "-",
	"'", "-",
	"<", "-",
	">", "-",
	"`", "-",
)

// SanitizeName trims name and replaces unsafe characters with '-'.
// Names that would be empty, navigate (".", ".."), or shadow the directory
// marker are rejected.
func SanitizeName(name string) (string, error) {
	if strings.ContainsRune(name, 0) {
		return "", storeerrors.NewValidationError(name, "name contains NUL byte")
	}

	clean := nameReplacer.Replace(strings.TrimSpace(name))
	switch {
	case clean == "":
		return "", storeerrors.NewValidationError(name, "name is empty")
	case clean == "." || clean == "..":
		return "", storeerrors.NewValidationError(name, "name is reserved")
	case metadata.IsMarkerName(clean):
		return "", storeerrors.NewValidationError(name, "name is reserved for directory markers")
	case strings.EqualFold(clean, StagingDirName):
		return "", storeerrors.NewValidationError(name, "name is reserved for the staging area")
	}
	return clean, nil
}

// UniqueName returns name if it is unused inside dir, otherwise name with a
// two-digit random disambiguator before its extension
// (report.txt -> report07.txt, README -> README42).
func UniqueName(dir, name string) (string, error) {
	if !exists(filepath.Join(dir, name)) {
		return name, nil
	}

	base, ext := splitExt(name)
	for range maxUniqueAttempts {
		candidate := fmt.Sprintf("%s%02d%s", base, rand.IntN(100), ext)
		if !exists(filepath.Join(dir, candidate)) {
			return candidate, nil
		}
	}
	return "", storeerrors.NewAlreadyExistsError(filepath.Join(dir, name))
}

// splitExt splits name at its final dot. Dotfiles and names ending in a dot
// have no extension.
func splitExt(name string) (string, string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i:]
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return !errors.Is(err, fs.ErrNotExist)
}
