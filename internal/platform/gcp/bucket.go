package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/objectstore"
)

type BucketConfig struct {
	Storage       ObjectStorageConfig
	Bucket        string
	CDNDomain     string
	PublicBaseURL string
	Credentials   string
}

// MaterialBucket stores uploaded study material in one GCS bucket. In
// emulator mode reads go straight to the emulator's JSON API, which the
// storage client does not always reach.
type MaterialBucket struct {
	log           *logger.Logger
	client        *storage.Client
	httpClient    *http.Client
	mode          ObjectStorageMode
	emulatorHost  string
	bucket        string
	cdnDomain     string
	publicBaseURL string
}

var _ objectstore.Store = (*MaterialBucket)(nil)

func NewMaterialBucket(ctx context.Context, log *logger.Logger, cfg BucketConfig) (*MaterialBucket, error) {
	if err := ValidateObjectStorageConfig(cfg.Storage); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("missing env var MATERIAL_GCS_BUCKET_NAME")
	}
	publicBase, publicSource, err := resolvePublicBaseURL(cfg)
	if err != nil {
		return nil, err
	}
	client, err := newStorageClientForMode(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog := log.With("service", "MaterialBucket")
	serviceLog.Info(
		"Object storage initialized",
		"mode", cfg.Storage.Mode,
		"mode_source", cfg.Storage.ModeSource(),
		"emulator_host", cfg.Storage.EmulatorHost,
		"public_base_source", publicSource,
		"material_bucket", cfg.Bucket,
	)
	return &MaterialBucket{
		log:           serviceLog,
		client:        client,
		httpClient:    &http.Client{Timeout: 2 * time.Minute},
		mode:          cfg.Storage.Mode,
		emulatorHost:  strings.TrimRight(strings.TrimSpace(cfg.Storage.EmulatorHost), "/"),
		bucket:        cfg.Bucket,
		cdnDomain:     strings.TrimSpace(cfg.CDNDomain),
		publicBaseURL: publicBase,
	}, nil
}

func newStorageClientForMode(ctx context.Context, cfg BucketConfig) (*storage.Client, error) {
	switch cfg.Storage.Mode {
	case ObjectStorageModeGCS:
		opts := append(ClientOptions(cfg.Credentials), option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(cfg.Storage.EmulatorHost), "/") + "/storage/v1/"
		return storage.NewClient(ctx, option.WithoutAuthentication(), option.WithEndpoint(endpoint))
	default:
		return nil, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Mode: string(cfg.Storage.Mode)}
	}
}

func resolvePublicBaseURL(cfg BucketConfig) (baseURL string, source string, err error) {
	raw := strings.TrimSpace(cfg.PublicBaseURL)
	if raw != "" {
		parsed, parseErr := url.Parse(raw)
		if parseErr != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
			return "", "", fmt.Errorf(
				"invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected absolute URL like http://localhost:4443",
				raw,
			)
		}
		return strings.TrimRight(raw, "/"), "object_storage_public_base_url", nil
	}
	if cfg.Storage.IsEmulatorMode() {
		return strings.TrimRight(strings.TrimSpace(cfg.Storage.EmulatorHost), "/"), "storage_emulator_host", nil
	}
	return "", "gcs_default", nil
}

func (b *MaterialBucket) Provider() string { return string(b.mode) }

func (b *MaterialBucket) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	key, err := objectstore.CleanKey(key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(b.bucket).Object(key).NewWriter(ctx)
	if contentType == "" {
		contentType = objectstore.ContentTypeForKey(key)
	}
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (b *MaterialBucket) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := b.client.Bucket(b.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, b.bucket, err)
	}
	return nil
}

// readCloserWithCancel ties the context's lifetime to the reader; cancelling
// before the caller has read would truncate the body.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (b *MaterialBucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	if b.mode == ObjectStorageModeGCSEmulator && b.emulatorHost != "" {
		req, err := http.NewRequestWithContext(ctx2, http.MethodGet, emulatorMediaURL(b.emulatorHost, b.bucket, key), nil)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed creating emulator download request: %w", err)
		}
		resp, err := b.httpClient.Do(req)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed emulator download request: %w", err)
		}
		if resp.StatusCode == http.StatusNotFound {
			_ = resp.Body.Close()
			cancel()
			return nil, fmt.Errorf("%s: %w", key, objectstore.ErrNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			_ = resp.Body.Close()
			cancel()
			return nil, fmt.Errorf("emulator download failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return &readCloserWithCancel{ReadCloser: resp.Body, cancel: cancel}, nil
	}

	r, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", key, objectstore.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (b *MaterialBucket) URL(key string) string {
	return publicURL(b.mode, b.bucket, b.cdnDomain, b.publicBaseURL, b.emulatorHost, key)
}

func publicURL(mode ObjectStorageMode, bucket, cdnDomain, publicBaseURL, emulatorHost, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", cdnDomain, key)
	}
	if mode == ObjectStorageModeGCSEmulator {
		base := publicBaseURL
		if base == "" {
			base = emulatorHost
		}
		if base != "" {
			return emulatorMediaURL(base, bucket, key)
		}
	}
	if publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", publicBaseURL, bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

func emulatorMediaURL(base, bucket, key string) string {
	return fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s?alt=media",
		strings.TrimRight(strings.TrimSpace(base), "/"),
		url.PathEscape(bucket),
		url.PathEscape(key),
	)
}
