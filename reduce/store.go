package reduce

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// AssetStore durably keeps encoded assets.
type AssetStore interface {
	// Put stores data under name, or a variant of it when name is taken, and
	// returns the public URL and the stored file name.
	Put(name string, data []byte) (url, stored string, err error)
}

// DirStore writes assets to a directory served under URLPrefix.
type DirStore struct {
	Dir       string
	URLPrefix string
}

// Put writes atomically: temp file, fsync, rename. A failed write leaves
// nothing behind.
func (s *DirStore) Put(name string, data []byte) (string, string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create uploads dir: %w", err)
	}
	name = s.uniqueName(filepath.Base(name))

	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", "", fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", "", fmt.Errorf("fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", "", fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.Dir, name)); err != nil {
		return "", "", fmt.Errorf("rename: %w", err)
	}
	success = true
	return path.Join(s.URLPrefix, name), name, nil
}

// Remove deletes a stored asset. A missing file is not an error.
func (s *DirStore) Remove(name string) error {
	err := os.Remove(filepath.Join(s.Dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// uniqueName appends a counter while name already exists in the directory.
func (s *DirStore) uniqueName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for counter := 2; ; counter++ {
		if _, err := os.Stat(filepath.Join(s.Dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", base, counter, ext)
	}
}
