package downloader

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
)

// LocalStorage keeps in-flight files in a single directory on local disk
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates the directory if needed and returns a storage rooted at it
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewDownloadErrorWithCause(ErrorFileSystemError, "failed to create temp directory", err).
			WithContext("dir", dir)
	}
	return &LocalStorage{dir: dir}, nil
}

// Dir returns the storage root
func (s *LocalStorage) Dir() string {
	return s.dir
}

// CreateTemp creates a uniquely named file whose name ends with the session id
func (s *LocalStorage) CreateTemp(sessionID string) (TempFile, error) {
	file, err := os.CreateTemp(s.dir, "transfer-*_"+sanitizeComponent(sessionID))
	if err != nil {
		return nil, NewDownloadErrorWithCause(ErrorFileSystemError, "failed to create temp file", err).
			WithContext("session_id", sessionID)
	}
	return file, nil
}

// Open opens a stored file for reading
func (s *LocalStorage) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Remove deletes a stored file. A missing file is not an error.
func (s *LocalStorage) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Size returns the size of a stored file
func (s *LocalStorage) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Exists reports whether a stored file is present
func (s *LocalStorage) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func sanitizeComponent(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator || r == '*' {
			return '_'
		}
		return r
	}, s)
}
