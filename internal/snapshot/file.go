package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the latest snapshot in a JSON file and the one before it
// next to it with a ".prev.json" suffix.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the latest snapshot.
func (s *FileStore) Path() string { return s.path }

// PrevPath returns the location of the prior snapshot.
func (s *FileStore) PrevPath() string {
	return strings.TrimSuffix(s.path, filepath.Ext(s.path)) + ".prev.json"
}

// Load reads the latest snapshot. A missing latest file next to an existing
// prior one is reported as ErrIncomplete, not ErrNotFound.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	snap, err := s.read(ctx, s.path)
	if errors.Is(err, ErrNotFound) {
		if _, statErr := os.Stat(s.PrevPath()); statErr == nil {
			return nil, fmt.Errorf("%w: %s is missing but prior snapshot %s exists", ErrIncomplete, s.path, s.PrevPath())
		}
	}
	return snap, err
}

// LoadPrevious reads the snapshot saved before the latest one.
func (s *FileStore) LoadPrevious(ctx context.Context) (*Snapshot, error) {
	return s.read(ctx, s.PrevPath())
}

func (s *FileStore) read(ctx context.Context, path string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	snap, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Save writes snap as the latest snapshot. The current latest is copied to
// the prior slot first, so the latest file is only ever replaced by rename.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	current, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := s.replace(s.PrevPath(), current); err != nil {
			return fmt.Errorf("keep prior snapshot: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	if err := s.replace(s.path, data); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// replace writes data to a temp file in the snapshot directory and renames it
// over path.
func (s *FileStore) replace(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
