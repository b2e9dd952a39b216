package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FilesystemStorage keeps blobs as files in a single directory.
type FilesystemStorage struct {
	dir string
}

func NewFilesystemStorage(dir string) (*FilesystemStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FilesystemStorage{dir: dir}, nil
}

func (s *FilesystemStorage) Put(ctx context.Context, name string, data []byte, contentType string) error {
	path := filepath.Join(s.dir, filepath.Base(name))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace blob %s: %w", name, err)
	}
	return nil
}

func (s *FilesystemStorage) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("blob %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", name, err)
	}
	return data, nil
}

func (s *FilesystemStorage) Remove(ctx context.Context, name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob %s: %w", name, err)
	}
	return nil
}
