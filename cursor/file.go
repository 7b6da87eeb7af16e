package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File is a file-based Cursor implementation that persists positions as JSON.
// Writes go through a temporary file and a rename so a crash never leaves a
// truncated file behind.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile creates a file-backed cursor. The directory containing path
// will be created on the first save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads the saved position for key from the file.
func (f *File) Load(_ context.Context, key string) (Position, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.readAll()
	if err != nil {
		return Position{}, false, err
	}
	pos, ok := data[key]
	return pos, ok, nil
}

// Save writes the position for key to the file.
func (f *File) Save(_ context.Context, key string, pos Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.readAll()
	if err != nil {
		return err
	}
	data[key] = pos

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("cursor/file: marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("cursor/file: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("cursor/file: write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("cursor/file: rename: %w", err)
	}
	return nil
}

// Close is a no-op.
func (f *File) Close() error {
	return nil
}

func (f *File) readAll() (map[string]Position, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]Position), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cursor/file: read: %w", err)
	}
	data := make(map[string]Position)
	if len(b) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("cursor/file: decode %s: %w", f.path, err)
	}
	return data, nil
}
