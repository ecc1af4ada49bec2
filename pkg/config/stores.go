package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittodrive/pkg/blob"
	blobfs "github.com/marmos91/dittodrive/pkg/blob/fs"
	blobmemory "github.com/marmos91/dittodrive/pkg/blob/memory"
	blobs3 "github.com/marmos91/dittodrive/pkg/blob/s3"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/drive/store/badger"
	"github.com/marmos91/dittodrive/pkg/drive/store/memory"
	"github.com/marmos91/dittodrive/pkg/drive/store/postgres"
	"github.com/marmos91/dittodrive/pkg/identity"
)

// CreateMetadataStore opens the configured folder and file store.
func CreateMetadataStore(ctx context.Context, cfg MetadataConfig) (drive.Store, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewMemoryDriveStore(), nil
	case "badger":
		store, err := badger.NewBadgerDriveStore(ctx, badger.BadgerDriveStoreConfig{
			DBPath:           cfg.Badger.Path,
			BlockCacheSizeMB: cfg.Badger.BlockCacheSizeMB,
			IndexCacheSizeMB: cfg.Badger.IndexCacheSizeMB,
			SyncWrites:       cfg.Badger.SyncWrites,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open badger database: %w", err)
		}
		return store, nil
	case "postgres":
		pgCfg := cfg.Postgres
		store, err := postgres.NewPostgresDriveStore(ctx, &pgCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres drive store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q", cfg.Type)
	}
}

// CreateBlobStore opens the configured blob store and wraps it with
// tracing and, when m is non-nil, metrics.
func CreateBlobStore(ctx context.Context, cfg BlobConfig, m blob.Metrics) (blob.Store, error) {
	var (
		store blob.Store
		err   error
	)

	switch cfg.Type {
	case "memory":
		store = blobmemory.New(cfg.Memory.BaseURL)
	case "fs":
		fsCfg := blobfs.DefaultConfig(cfg.FS.Path)
		fsCfg.PublicURL = cfg.FS.PublicURL
		store, err = blobfs.New(fsCfg)
	case "s3":
		store, err = blobs3.NewFromConfig(ctx, blobs3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			KeyPrefix:       cfg.S3.KeyPrefix,
			PublicURL:       cfg.S3.PublicURL,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			MaxRetries:      cfg.S3.MaxRetries,
			ForcePathStyle:  cfg.S3.ForcePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown blob store type: %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s blob store: %w", cfg.Type, err)
	}

	return blob.Instrument(store, m), nil
}

// IdentityServiceConfig converts the identity section for identity.New.
func (c *Config) IdentityServiceConfig() identity.Config {
	return identity.Config{
		Database: c.Identity.Database,
		Token: identity.TokenConfig{
			Secret: c.Identity.Token.Secret,
			Issuer: c.Identity.Token.Issuer,
			TTL:    c.Identity.Token.TTL,
		},
		CallTimeout: c.Identity.CallTimeout,
	}
}

// DriveOptions builds the drive service options.
func (c *Config) DriveOptions(blobs blob.Store, m drive.Metrics) drive.Options {
	return drive.Options{
		Blobs:          blobs,
		ShareCacheSize: c.Shares.CacheSize,
		ShareCacheTTL:  c.Shares.CacheTTL,
		BlobTimeout:    c.Blob.Timeout,
		Metrics:        m,
	}
}

// UploadConfig builds the upload manager configuration.
func (c *Config) UploadConfig() drive.UploadConfig {
	return drive.UploadConfig{
		Timeout:            c.Uploads.Timeout,
		CompletedRetention: c.Uploads.CompletedRetention,
		MaxSize:            c.Uploads.MaxSize.Int64(),
		ProgressBuffer:     c.Uploads.ProgressBuffer,
	}
}
