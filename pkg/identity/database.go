package identity

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/marmos91/dittodrive/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DatabaseType names a user database backend.
type DatabaseType string

const (
	DatabaseTypeSQLite   DatabaseType = "sqlite"   // single node, the default
	DatabaseTypePostgres DatabaseType = "postgres" // shared between instances
)

// SQLiteConfig locates the SQLite file.
type SQLiteConfig struct {
	// Path defaults to $XDG_CONFIG_HOME/dittodrive/identity.db.
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig connects the user database to PostgreSQL.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// DSN returns a postgres:// URL with escaped credentials.
func (c *PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// DatabaseConfig selects and configures the user database.
type DatabaseConfig struct {
	Type     DatabaseType   `mapstructure:"type" yaml:"type"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// ApplyDefaults fills unset fields for the selected backend.
func (c *DatabaseConfig) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			c.SQLite.Path = defaultSQLitePath()
		}
	case DatabaseTypePostgres:
		pg := &c.Postgres
		if pg.Port == 0 {
			pg.Port = 5432
		}
		if pg.SSLMode == "" {
			pg.SSLMode = "disable"
		}
		if pg.MaxOpenConns == 0 {
			pg.MaxOpenConns = 10
		}
		if pg.MaxIdleConns == 0 {
			pg.MaxIdleConns = 2
		}
	}
}

func defaultSQLitePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "dittodrive", "identity.db")
}

// Validate reports the first missing setting of the selected backend.
func (c *DatabaseConfig) Validate() error {
	var missing string
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			missing = "sqlite path"
		}
	case DatabaseTypePostgres:
		switch {
		case c.Postgres.Host == "":
			missing = "postgres host"
		case c.Postgres.Database == "":
			missing = "postgres database"
		case c.Postgres.User == "":
			missing = "postgres user"
		}
	default:
		return fmt.Errorf("unsupported database type: %q", c.Type)
	}
	if missing != "" {
		return fmt.Errorf("%s is required", missing)
	}
	return nil
}

// gormWriter sends GORM's slow query and error reports to the process log.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), logger.KeyStoreType, "identity")
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		}),
	}
}

func dialector(cfg DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL lets readers proceed during writes; writers wait up to 5s.
		return sqlite.Open(cfg.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"), nil
	case DatabaseTypePostgres:
		return postgres.Open(cfg.Postgres.DSN()), nil
	}
	return nil, fmt.Errorf("unsupported database type: %q", cfg.Type)
}

// openDatabase connects and migrates the user tables.
func openDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Type == DatabaseTypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}

	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate user tables: %w", err)
	}
	return db, nil
}

// SQLite and PostgreSQL report unique violations with different messages,
// and GORM translates them only when TranslateError is set.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// firstWhere loads the first T with column = value. A missing row yields
// notFound.
func firstWhere[T any](db *gorm.DB, column string, value any, notFound error) (*T, error) {
	var row T
	err := db.Where(column+" = ?", value).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
