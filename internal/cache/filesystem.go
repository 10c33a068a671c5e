package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/colthorp/likes-cli-go/internal/core"
)

// FilesystemBackend stores one JSON document per kind on disk:
// <root>/activities.json, <root>/plans.json, <root>/feedback.json.
type FilesystemBackend struct {
	root      string
	writeLock sync.Mutex
}

// NewFilesystemBackend creates a new filesystem-based cache backend.
func NewFilesystemBackend(root string) *FilesystemBackend {
	if root == "" {
		root = core.CacheRoot()
	}
	return &FilesystemBackend{root: root}
}

// Path returns the document path for kind.
func (b *FilesystemBackend) Path(kind Kind) string {
	return filepath.Join(b.root, string(kind)+".json")
}

// Read returns the stored document for kind.
func (b *FilesystemBackend) Read(kind Kind) ([]byte, error) {
	return os.ReadFile(b.Path(kind))
}

// Write atomically writes the document: tmp file, fsync, rename.
func (b *FilesystemBackend) Write(kind Kind, data []byte) error {
	b.writeLock.Lock()
	defer b.writeLock.Unlock()

	if err := os.MkdirAll(b.root, 0o755); err != nil {
		return fmt.Errorf("cache: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(b.root, "."+string(kind)+"-tmp-*")
	if err != nil {
		return fmt.Errorf("cache: create temp: %w", err)
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
		return fmt.Errorf("cache: write temp: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("cache: chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("cache: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp: %w", err)
	}
	if err := os.Rename(tmpName, b.Path(kind)); err != nil {
		return fmt.Errorf("cache: rename: %w", err)
	}
	success = true
	return nil
}

// Remove deletes the document for kind.
func (b *FilesystemBackend) Remove(kind Kind) error {
	err := os.Remove(b.Path(kind))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: remove: %w", err)
	}
	return nil
}

// Size reports the document size in bytes.
func (b *FilesystemBackend) Size(kind Kind) (int64, bool) {
	info, err := os.Stat(b.Path(kind))
	if err != nil {
		return 0, false
	}
	return info.Size(), true
}
