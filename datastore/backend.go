package datastore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Backend is the persistence seam for the flat key-value stores. The file
// implementation backs production; the memory implementation backs tests.
type Backend interface {
	// Load returns the stored bytes. A store that has never been saved
	// returns an error satisfying errors.Is(err, fs.ErrNotExist).
	Load() ([]byte, error)
	// Save replaces the stored bytes.
	Save(data []byte) error
}

// FileBackend keeps the store in a single file, written atomically via a
// temp file and rename so a crash mid-flush cannot truncate it.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Load() ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *FileBackend) Save(data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp store file: %w", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace store file '%s': %w", b.path, err)
	}
	return nil
}

// MemoryBackend keeps the store in memory for tests.
type MemoryBackend struct {
	data []byte
	set  bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Load() ([]byte, error) {
	if !b.set {
		return nil, fs.ErrNotExist
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

func (b *MemoryBackend) Save(data []byte) error {
	b.data = make([]byte, len(data))
	copy(b.data, data)
	b.set = true
	return nil
}
