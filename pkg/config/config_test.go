package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittodrive/internal/bytesize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-minimum-32-chars"

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are escape sequences.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
logging:
  level: "debug"

metadata:
  type: badger
  badger:
    path: "`+yamlSafePath(dir)+`/meta"

identity:
  token:
    secret: "`+testSecret+`"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "fs", cfg.Blob.Type)
	assert.Equal(t, 24*time.Hour, cfg.Identity.Token.TTL)
	assert.Equal(t, 5*time.Second, cfg.Uploads.CompletedRetention)
	assert.Equal(t, 100*bytesize.MiB, cfg.Uploads.MaxSize)
	assert.Equal(t, int64(1000), cfg.Shares.CacheSize)
}

func TestLoad_CustomValues(t *testing.T) {
	path := writeConfig(t, `
shutdown_timeout: 10s
server:
  port: 9000
  request_timeout: 1m
metadata:
  type: memory
blob:
  type: memory
  memory:
    base_url: "http://blobs.local"
identity:
  token:
    secret: "`+testSecret+`"
    ttl: 2h
uploads:
  max_size: 5Mi
  completed_retention: 1s
shares:
  cache_size: 10
  cache_ttl: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Server.RequestTimeout)
	assert.Equal(t, "http://blobs.local", cfg.Blob.Memory.BaseURL)
	assert.Equal(t, 2*time.Hour, cfg.Identity.Token.TTL)
	assert.Equal(t, 5*bytesize.MiB, cfg.Uploads.MaxSize)
	assert.Equal(t, time.Second, cfg.Uploads.CompletedRetention)
	assert.Equal(t, int64(10), cfg.Shares.CacheSize)

	up := cfg.UploadConfig()
	assert.Equal(t, int64(5*bytesize.MiB), up.MaxSize)

	opts := cfg.DriveOptions(nil, nil)
	assert.Equal(t, 30*time.Second, opts.ShareCacheTTL)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
metadata:
  type: memory
blob:
  type: memory
`)
	t.Setenv("DITTODRIVE_IDENTITY_TOKEN_SECRET", testSecret)
	t.Setenv("DITTODRIVE_LOGGING_LEVEL", "warn")
	t.Setenv("DITTODRIVE_SERVER_PORT", "9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Identity.Token.Secret)
	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DITTODRIVE_IDENTITY_TOKEN_SECRET", testSecret)

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "badger", cfg.Metadata.Type)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "invalid yaml",
			content: "logging:\n  level: INFO\n  invalid yaml here [[[\n",
			want:    "failed to read config file",
		},
		{
			name:    "missing secret",
			content: "metadata:\n  type: memory\n",
			want:    "Secret",
		},
		{
			name:    "short secret",
			content: "identity:\n  token:\n    secret: short\n",
			want:    "min",
		},
		{
			name:    "unknown metadata type",
			content: "metadata:\n  type: mongo\nidentity:\n  token:\n    secret: \"" + testSecret + "\"\n",
			want:    "oneof",
		},
		{
			name:    "s3 without bucket",
			content: "blob:\n  type: s3\nidentity:\n  token:\n    secret: \"" + testSecret + "\"\n",
			want:    "blob.s3.bucket",
		},
		{
			name:    "postgres without host",
			content: "metadata:\n  type: postgres\nidentity:\n  token:\n    secret: \"" + testSecret + "\"\n",
			want:    "metadata.postgres",
		},
		{
			name: "weak initial user password",
			content: "identity:\n  token:\n    secret: \"" + testSecret + "\"\n" +
				"  initial_user:\n    email: test@example.com\n    password: abc\n",
			want: "initial_user.password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := GetDefaultConfig()
	cfg.Identity.Token.Secret = testSecret
	cfg.Identity.InitialUser = InitialUserConfig{Email: "test@example.com", Password: "password"}
	cfg.Uploads.MaxSize = 3 * bytesize.MiB

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Identity.Token.Secret, loaded.Identity.Token.Secret)
	assert.Equal(t, cfg.Uploads, loaded.Uploads)
	assert.Equal(t, cfg.Identity.Token.TTL, loaded.Identity.Token.TTL)
	assert.Equal(t, "test@example.com", loaded.Identity.InitialUser.Email)
}

func TestMustLoad_MissingFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dittodrive init --config")
}
