// Package objectstore is the blob storage contract for uploaded study
// material, with filesystem and S3-compatible (MinIO) backends. The GCS
// backend lives in the gcp package.
package objectstore

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var ErrNotFound = errors.New("object not found")

type Store interface {
	Provider() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// CleanKey normalizes a key to a relative slash path and rejects traversal.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", errors.New("empty key")
	}
	cleaned := strings.TrimLeft(path.Clean("/"+key), "/")
	if cleaned == "" || cleaned == "." {
		return "", errors.New("empty key")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", errors.New("key must not contain ..")
		}
	}
	return cleaned, nil
}

// ReadAll opens key and reads it fully, refusing objects larger than max
// when max > 0.
func ReadAll(ctx context.Context, s Store, key string, max int64) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	if max <= 0 {
		return io.ReadAll(rc)
	}
	data, err := io.ReadAll(io.LimitReader(rc, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, errors.New("object exceeds size limit")
	}
	return data, nil
}

func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	case strings.HasSuffix(s, ".txt"):
		return "text/plain"
	default:
		return ""
	}
}
