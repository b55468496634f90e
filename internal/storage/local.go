package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type LocalStore struct {
	root      string
	urlPrefix string
}

func NewLocal(dir, urlPrefix string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage/local: upload dir is empty")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage/local: resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage/local: mkdir: %w", err)
	}
	return &LocalStore{root: root, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) abs(name string) string {
	return filepath.Join(s.root, filepath.Base(name))
}

// Put writes to a temp file and renames it into place so readers never
// see a partial image.
func (s *LocalStore) Put(_ context.Context, name string, content []byte, _ string) error {
	full := s.abs(name)
	if _, err := os.Stat(full); err == nil {
		return nil
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("storage/local: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("storage/local: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage/local: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("storage/local: rename %s: %w", name, err)
	}
	return nil
}

func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := os.Remove(s.abs(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage/local: delete %s: %w", name, err)
	}
	return nil
}

func (s *LocalStore) URL(name string) string {
	if name == "" {
		return s.urlPrefix + "/"
	}
	return s.urlPrefix + "/" + filepath.Base(name)
}
