package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const fileSuffix = ".cache"

// Filesystem stores one file per key, named <dir>/<key>.cache. It assumes
// single-process ownership of the directory; there is no cross-process
// locking and concurrent writers of the same key may race.
type Filesystem struct {
	dir string
}

// NewFilesystem creates dir if needed and returns a backend over it.
func NewFilesystem(dir string) (*Filesystem, error) {
	if dir == "" {
		return nil, errors.New("cache: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Filesystem{dir: dir}, nil
}

func (f *Filesystem) path(key string) string {
	return filepath.Join(f.dir, key+fileSuffix)
}

func (f *Filesystem) Read(key string) ([]byte, error) {
	raw, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return raw, nil
}

func (f *Filesystem) Write(key string, value []byte) error {
	return os.WriteFile(f.path(key), value, 0o644)
}

func (f *Filesystem) Delete(key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DeleteAll removes every *.cache file in the directory. Files that fail to
// delete are reported together; the rest are still removed.
func (f *Filesystem) DeleteAll() error {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*"+fileSuffix))
	if err != nil {
		return err
	}
	var errs []error
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
