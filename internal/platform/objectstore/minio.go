package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL overrides the scheme://endpoint prefix used by URL.
	PublicBaseURL string
}

type MinioStore struct {
	log    *logger.Logger
	cfg    MinioConfig
	client *minio.Client
}

// NewMinioStore connects and creates the bucket when missing.
func NewMinioStore(ctx context.Context, log *logger.Logger, cfg MinioConfig) (*MinioStore, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket %q: %w", cfg.Bucket, err)
		}
	}
	log.Info("Object storage initialized", "mode", "minio", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return &MinioStore{log: log.With("service", "MinioStore"), cfg: cfg, client: client}, nil
}

func (s *MinioStore) Provider() string { return "minio" }

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = ContentTypeForKey(k)
	}
	if size <= 0 {
		size = -1
	}
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, k, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("minio put %s: %w", k, err)
	}
	return nil
}

func (s *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, k, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get %s: %w", k, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", k, ErrNotFound)
		}
		return nil, fmt.Errorf("minio stat %s: %w", k, err)
	}
	return obj, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	return s.client.RemoveObject(ctx, s.cfg.Bucket, k, minio.RemoveObjectOptions{})
}

func (s *MinioStore) URL(key string) string {
	k, err := CleanKey(key)
	if err != nil {
		return ""
	}
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if s.cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + s.cfg.Endpoint
	}
	return base + "/" + s.cfg.Bucket + "/" + k
}
