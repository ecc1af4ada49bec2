package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/internal/bytesize"
	"github.com/marmos91/dittodrive/pkg/identity"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
// Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	cfg.Server.ApplyDefaults()
	applyMetadataDefaults(&cfg.Metadata)
	applyBlobDefaults(&cfg.Blob)
	applyIdentityDefaults(&cfg.Identity)
	applyUploadsDefaults(&cfg.Uploads)
	applySharesDefaults(&cfg.Shares)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}
	if cfg.Badger.Path == "" {
		cfg.Badger.Path = filepath.Join(getConfigDir(), "metadata")
	}
	if cfg.Type == "postgres" {
		if cfg.Postgres.Port == 0 {
			cfg.Postgres.Port = 5432
		}
		cfg.Postgres.ApplyDefaults()
	}
}

func applyBlobDefaults(cfg *BlobConfig) {
	if cfg.Type == "" {
		cfg.Type = "fs"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.FS.Path == "" {
		cfg.FS.Path = filepath.Join(getConfigDir(), "blobs")
	}
	if cfg.S3.MaxRetries == 0 {
		cfg.S3.MaxRetries = 3
	}
}

func applyIdentityDefaults(cfg *IdentityConfig) {
	cfg.Database.ApplyDefaults()

	if cfg.Token.Issuer == "" {
		cfg.Token.Issuer = "dittodrive"
	}
	if cfg.Token.TTL == 0 {
		cfg.Token.TTL = 24 * time.Hour
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if cfg.InitialUser.Email != "" {
		cfg.InitialUser.Email = identity.NormalizeEmail(cfg.InitialUser.Email)
	}
}

func applyUploadsDefaults(cfg *UploadsConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.CompletedRetention == 0 {
		cfg.CompletedRetention = 5 * time.Second
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 100 * bytesize.MiB
	}
	if cfg.ProgressBuffer == 0 {
		cfg.ProgressBuffer = 16
	}
}

func applySharesDefaults(cfg *SharesConfig) {
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 1000
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Minute
	}
}

// GetDefaultConfig returns a Config with all default values applied. The
// token secret is left empty; 'dittodrive init' generates one.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
