package fs

import (
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// HashFile computes the XXHash of a file's content.
func HashFile(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // path is controlled by the caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // read-only

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", path)
	}
	return h.Sum64(), nil
}

// WriteIfChanged writes data to path, creating parent directories, unless
// the file already holds the same content. It reports whether it wrote.
// Skipping identical writes keeps file watchers downstream quiet.
func WriteIfChanged(path string, data []byte) (bool, error) {
	existing, err := HashFile(path)
	if err == nil && existing == xxhash.Sum64(data) {
		return false, nil
	}
	if err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", path)
	}
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", path)
	}
	return true, nil
}
