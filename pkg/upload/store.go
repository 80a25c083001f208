package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/healthtwin/platform/pkg/observability/metrics"
)

const fallbackName = "upload"

// Store writes uploads into a single directory. Every saved file gets a
// unique name so concurrent uploads of the same filename never collide.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save copies src to disk. On failure nothing is left behind and no handle
// is returned, so callers only ever release files that exist.
func (s *Store) Save(name string, src io.Reader) (*TempFile, error) {
	sanitized := SanitizeFilename(name)
	if sanitized == "" {
		sanitized = fallbackName
	}
	path := filepath.Join(s.dir, uuid.NewString()+"_"+sanitized)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing upload file: %w", err)
	}

	metrics.UploadStored()
	return &TempFile{Path: path, Name: sanitized}, nil
}

// TempFile is a saved upload. Release must be called exactly when the
// owning request is done with it; extra calls are no-ops.
type TempFile struct {
	Path string
	Name string

	once sync.Once
	err  error
}

func (f *TempFile) Release() error {
	f.once.Do(func() {
		err := os.Remove(f.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Log.WithError(err).WithField("path", f.Path).Warn("failed to remove upload")
			f.err = err
			return
		}
		metrics.UploadReleased()
	})
	return f.err
}
