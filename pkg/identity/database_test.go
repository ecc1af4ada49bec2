package identity

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	var c DatabaseConfig
	c.ApplyDefaults()
	assert.Equal(t, DatabaseTypeSQLite, c.Type)
	assert.Equal(t, filepath.Join("/tmp/xdg", "dittodrive", "identity.db"), c.SQLite.Path)

	pg := DatabaseConfig{Type: DatabaseTypePostgres}
	pg.ApplyDefaults()
	assert.Equal(t, 5432, pg.Postgres.Port)
	assert.Equal(t, "disable", pg.Postgres.SSLMode)
	assert.Equal(t, 10, pg.Postgres.MaxOpenConns)
	assert.Empty(t, pg.SQLite.Path)
}

func TestDatabaseConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{"sqlite ok", DatabaseConfig{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: "x.db"}}, ""},
		{"sqlite without path", DatabaseConfig{Type: DatabaseTypeSQLite}, "sqlite path is required"},
		{"postgres without host", DatabaseConfig{Type: DatabaseTypePostgres}, "postgres host is required"},
		{"postgres without user", DatabaseConfig{
			Type:     DatabaseTypePostgres,
			Postgres: PostgresConfig{Host: "db", Database: "users"},
		}, "postgres user is required"},
		{"unknown type", DatabaseConfig{Type: "mysql"}, `unsupported database type: "mysql"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5433, Database: "users", User: "drive", Password: "a b@c", SSLMode: "require"}

	u, err := url.Parse(c.DSN())
	require.NoError(t, err)
	assert.Equal(t, "db:5433", u.Host)
	assert.Equal(t, "/users", u.Path)
	pass, _ := u.User.Password()
	assert.Equal(t, "a b@c", pass)
	assert.Equal(t, "require", u.Query().Get("sslmode"))

	c.SSLMode = ""
	assert.NotContains(t, c.DSN(), "sslmode")
}
