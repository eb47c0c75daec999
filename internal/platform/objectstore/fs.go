package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type FSStore struct {
	base      string
	publicURL string
}

// NewFSStore stores objects under base; URL returns publicURL/key.
func NewFSStore(base, publicURL string) (*FSStore, error) {
	if strings.TrimSpace(base) == "" {
		base = "./data/uploads"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	if publicURL == "" {
		publicURL = "/uploads"
	}
	return &FSStore{base: base, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *FSStore) Provider() string { return "local" }

func (s *FSStore) path(key string) (string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.base, filepath.FromSlash(k)), nil
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return f, err
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FSStore) URL(key string) string {
	k, err := CleanKey(key)
	if err != nil {
		return ""
	}
	return s.publicURL + "/" + k
}
