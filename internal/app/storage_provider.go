package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/exampaper-backend/internal/platform/gcp"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/objectstore"
)

var (
	newMaterialBucket = func(ctx context.Context, log *logger.Logger, cfg gcp.BucketConfig) (objectstore.Store, error) {
		b, err := gcp.NewMaterialBucket(ctx, log, cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	newMinioStore = func(ctx context.Context, log *logger.Logger, cfg objectstore.MinioConfig) (objectstore.Store, error) {
		m, err := objectstore.NewMinioStore(ctx, log, cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveMaterialStore picks the blob backend for uploaded material from
// OBJECT_STORAGE_MODE: local disk, MinIO, or a GCS bucket (real or emulated).
func resolveMaterialStore(ctx context.Context, log *logger.Logger, cfg Config) (objectstore.Store, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.ObjectStorageMode))
	log.Info("Selecting object storage provider", "mode", mode, "emulator_host", cfg.StorageEmulator)

	switch mode {
	case "", StorageModeLocal:
		store, err := objectstore.NewFSStore(cfg.LocalStorageDir, cfg.LocalPublicURL)
		if err != nil {
			return nil, bootstrapFailed(log, StorageModeLocal, "", err)
		}
		return store, nil
	case StorageModeMinio:
		store, err := newMinioStore(ctx, log, cfg.Minio)
		if err != nil {
			return nil, bootstrapFailed(log, StorageModeMinio, "", err)
		}
		return store, nil
	}

	storageCfg, err := gcp.ResolveObjectStorageConfig(mode, cfg.StorageEmulator)
	if err != nil {
		return nil, bootstrapFailed(log, mode, cfg.StorageEmulator, err)
	}
	bucketCfg := cfg.GCSBucket
	bucketCfg.Storage = storageCfg
	store, err := newMaterialBucket(ctx, log, bucketCfg)
	if err != nil {
		return nil, bootstrapFailed(log, string(storageCfg.Mode), storageCfg.EmulatorHost, err)
	}
	return store, nil
}

func bootstrapFailed(log *logger.Logger, mode, emulatorHost string, err error) error {
	classified := classifyStorageProviderBootstrapError(mode, emulatorHost, err)
	log.Error(
		"Object storage provider bootstrap failed",
		"mode", mode,
		"emulator_host", emulatorHost,
		"error_code", storageProviderBootstrapErrorCode(classified),
		"error", err,
	)
	return classified
}

func classifyStorageProviderBootstrapError(mode, emulatorHost string, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.ObjectStorageConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case gcp.ObjectStorageConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.ObjectStorageConfigErrorInvalidEmulatorHost:
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
		}
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         mode,
		EmulatorHost: emulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}
