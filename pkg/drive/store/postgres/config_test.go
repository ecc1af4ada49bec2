package postgres

import (
	"net/url"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *PostgresDriveStoreConfig {
	cfg := &PostgresDriveStoreConfig{
		Host:     "db.internal",
		Port:     5432,
		Database: "drive",
		User:     "drive",
		Password: "p@ss word/#",
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := &PostgresDriveStoreConfig{MaxConns: 4, SSLMode: "disable"}
	cfg.ApplyDefaults()

	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 30*time.Second, cfg.StartupTimeout)
	assert.Equal(t, 5, cfg.MaxTxRetries)
	assert.Equal(t, time.Hour, cfg.MaxConnLifetime)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*PostgresDriveStoreConfig)
		want   string
	}{
		{"missing host", func(c *PostgresDriveStoreConfig) { c.Host = "" }, "host is required"},
		{"missing password", func(c *PostgresDriveStoreConfig) { c.Password = "" }, "password is required"},
		{"bad ssl mode", func(c *PostgresDriveStoreConfig) { c.SSLMode = "allow-all" }, "invalid ssl_mode"},
		{"port out of range", func(c *PostgresDriveStoreConfig) { c.Port = 70000 }, "invalid port"},
		{"min above max", func(c *PostgresDriveStoreConfig) { c.MinConns = 20 }, "invalid min_conns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConnectionStringEscapesCredentials(t *testing.T) {
	cfg := validConfig()
	dsn := cfg.ConnectionString()

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss word/#", pass)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/drive", u.Path)
	assert.Equal(t, "prefer", u.Query().Get("sslmode"))
	assert.Equal(t, "5", u.Query().Get("connect_timeout"))

	pc, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	assert.Equal(t, "p@ss word/#", pc.ConnConfig.Password)
	assert.Equal(t, "drive", pc.ConnConfig.Database)
}

func TestPoolConfig(t *testing.T) {
	cfg := validConfig()
	cfg.QueryTimeout = 1500 * time.Millisecond

	pc, err := poolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(10), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, "1500", pc.ConnConfig.RuntimeParams["statement_timeout"])
}
