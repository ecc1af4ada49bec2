// Package config loads, validates and saves the dittodrive configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/internal/bytesize"
	"github.com/marmos91/dittodrive/pkg/api"
	"github.com/marmos91/dittodrive/pkg/drive/store/postgres"
	"github.com/marmos91/dittodrive/pkg/identity"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. DITTODRIVE_LOGGING_LEVEL.
const EnvPrefix = "DITTODRIVE"

// Config represents the dittodrive configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTODRIVE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Server configures the HTTP API
	Server api.APIConfig `mapstructure:"server" yaml:"server"`

	// Metadata selects the folder and file store
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`

	// Blob selects where file contents are stored
	Blob BlobConfig `mapstructure:"blob" yaml:"blob"`

	// Identity configures users and sessions
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`

	// Uploads configures upload tasks
	Uploads UploadsConfig `mapstructure:"uploads" yaml:"uploads"`

	// Shares configures shared file lookups
	Shares SharesConfig `mapstructure:"shares" yaml:"shares"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use a non-TLS connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the standalone metrics endpoint. The API
	// also serves /metrics.
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// MetadataConfig selects the folder and file store.
type MetadataConfig struct {
	// Type is one of memory, badger, postgres.
	// Default: badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger postgres" yaml:"type"`

	Badger BadgerConfig `mapstructure:"badger" yaml:"badger"`

	// Postgres is validated only when Type is postgres.
	Postgres postgres.PostgresDriveStoreConfig `mapstructure:"postgres" validate:"-" yaml:"postgres"`
}

// BadgerConfig configures the embedded BadgerDB store.
type BadgerConfig struct {
	// Path is the database directory.
	// Default: $XDG_CONFIG_HOME/dittodrive/metadata
	Path string `mapstructure:"path" yaml:"path"`

	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb" validate:"omitempty,min=0" yaml:"block_cache_size_mb,omitempty"`
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb" validate:"omitempty,min=0" yaml:"index_cache_size_mb,omitempty"`
	SyncWrites       bool  `mapstructure:"sync_writes" yaml:"sync_writes"`
}

// BlobConfig selects the blob store.
type BlobConfig struct {
	// Type is one of memory, fs, s3.
	// Default: fs
	Type string `mapstructure:"type" validate:"required,oneof=memory fs s3" yaml:"type"`

	// Timeout bounds each blob call.
	// Default: 5m
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	Memory BlobMemoryConfig `mapstructure:"memory" yaml:"memory"`
	FS     BlobFSConfig     `mapstructure:"fs" yaml:"fs"`
	S3     BlobS3Config     `mapstructure:"s3" yaml:"s3"`
}

// BlobMemoryConfig configures the in-process blob store.
type BlobMemoryConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// BlobFSConfig configures the filesystem blob store.
type BlobFSConfig struct {
	// Path is the root directory for stored files.
	// Default: $XDG_CONFIG_HOME/dittodrive/blobs
	Path string `mapstructure:"path" yaml:"path"`

	// PublicURL prefixes returned URLs. Empty means file:// URLs.
	PublicURL string `mapstructure:"public_url" yaml:"public_url,omitempty"`
}

// BlobS3Config configures the S3 blob store.
type BlobS3Config struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Region          string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	KeyPrefix       string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
	PublicURL       string `mapstructure:"public_url" yaml:"public_url,omitempty"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
	MaxRetries      int    `mapstructure:"max_retries" validate:"omitempty,min=0" yaml:"max_retries,omitempty"`
	ForcePathStyle  bool   `mapstructure:"force_path_style" yaml:"force_path_style"`
}

// IdentityConfig configures the user database and session tokens.
type IdentityConfig struct {
	Database identity.DatabaseConfig `mapstructure:"database" yaml:"database"`

	Token TokenConfig `mapstructure:"token" yaml:"token"`

	// CallTimeout bounds each identity database call.
	// Default: 5s
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`

	// InitialUser is created at startup when it does not exist yet.
	InitialUser InitialUserConfig `mapstructure:"initial_user" yaml:"initial_user"`
}

// TokenConfig configures session tokens.
type TokenConfig struct {
	// Secret signs session tokens. Generated by 'dittodrive init'.
	Secret string `mapstructure:"secret" validate:"required,min=32" yaml:"secret"`

	// Issuer is the token issuer claim.
	// Default: "dittodrive"
	Issuer string `mapstructure:"issuer" yaml:"issuer"`

	// TTL is the lifetime of a session.
	// Default: 24h
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0" yaml:"ttl"`
}

// InitialUserConfig describes a user to create at startup.
type InitialUserConfig struct {
	Email       string `mapstructure:"email" validate:"omitempty,email" yaml:"email,omitempty"`
	Password    string `mapstructure:"password" yaml:"password,omitempty"`
	DisplayName string `mapstructure:"display_name" yaml:"display_name,omitempty"`
}

// UploadsConfig configures upload tasks.
type UploadsConfig struct {
	// Timeout bounds one upload.
	// Default: 5m
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// CompletedRetention is how long finished uploads stay listed.
	// Default: 5s
	CompletedRetention time.Duration `mapstructure:"completed_retention" yaml:"completed_retention"`

	// MaxSize is the largest accepted file.
	// Supports human-readable formats: "1GB", "512MB", "10Gi"
	// Default: 100Mi
	MaxSize bytesize.ByteSize `mapstructure:"max_size" yaml:"max_size"`

	// ProgressBuffer is the capacity of each task's progress channel.
	// Default: 16
	ProgressBuffer int `mapstructure:"progress_buffer" validate:"omitempty,min=1" yaml:"progress_buffer"`
}

// SharesConfig configures shared file lookups.
type SharesConfig struct {
	// CacheSize bounds the share lookup cache. Zero disables it.
	// Default: 1000
	CacheSize int64 `mapstructure:"cache_size" validate:"omitempty,min=0" yaml:"cache_size"`

	// CacheTTL is how long a lookup stays cached.
	// Default: 1m
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// Load loads configuration from file, environment, and defaults.
//
// A missing file is not an error: defaults and environment overrides are
// used instead.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	return decode(v)
}

// decode unmarshals v, applies defaults and validates.
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration and explains how to create it when the file
// is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  dittodrive init\n\n"+
				"Or specify a custom config file:\n"+
				"  dittodrive <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  dittodrive init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file holds the token secret and may hold passwords.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v, reflect.TypeOf(Config{}), "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys registers every leaf key of t with viper. AutomaticEnv only
// consults keys viper already knows, so without this an override for a key
// absent from the file would be ignored.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := strings.Split(field.Tag.Get("mapstructure"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(time.Time{}) {
			bindEnvKeys(v, ft, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook converts strings like "1Gi" or "100MB" and plain
// numbers to bytesize.ByteSize.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Raw integers are nanoseconds
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/dittodrive, ~/.config/dittodrive,
// or "." when the home directory is unknown.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittodrive")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dittodrive")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
