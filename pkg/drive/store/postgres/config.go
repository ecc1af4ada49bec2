package postgres

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// PostgresDriveStoreConfig describes the database connection and pool.
// Zero durations and counts take the defaults noted beside each field.
type PostgresDriveStoreConfig struct {
	Host     string `mapstructure:"host" yaml:"host" validate:"required"`
	Port     int    `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	Database string `mapstructure:"database" yaml:"database" validate:"required"`
	User     string `mapstructure:"user" yaml:"user" validate:"required"`
	Password string `mapstructure:"password" yaml:"password" validate:"required"`
	SSLMode  string `mapstructure:"ssl_mode" yaml:"ssl_mode" validate:"omitempty,oneof=disable require verify-ca verify-full prefer"` // prefer

	MaxConns          int32         `mapstructure:"max_conns" yaml:"max_conns" validate:"min=1"`                   // 10
	MinConns          int32         `mapstructure:"min_conns" yaml:"min_conns" validate:"min=0,ltefield=MaxConns"` // 2
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime"`                    // 1h
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time" yaml:"max_conn_idle_time"`                  // 30m
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period" yaml:"health_check_period"`                // 1m
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`                        // 5s
	QueryTimeout      time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`                            // 30s
	StartupTimeout    time.Duration `mapstructure:"startup_timeout" yaml:"startup_timeout"`                        // 30s, retry window for the first ping
	MaxTxRetries      int           `mapstructure:"max_tx_retries" yaml:"max_tx_retries" validate:"min=0"`         // 5, replays after serialization failures

	// AutoMigrate applies the embedded schema migrations on startup.
	AutoMigrate bool `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

var configValidator = validator.New()

// ApplyDefaults fills unset fields.
func (c *PostgresDriveStoreConfig) ApplyDefaults() {
	setDefault(&c.MaxConns, 10)
	setDefault(&c.MinConns, 2)
	setDefault(&c.MaxConnLifetime, time.Hour)
	setDefault(&c.MaxConnIdleTime, 30*time.Minute)
	setDefault(&c.HealthCheckPeriod, time.Minute)
	setDefault(&c.ConnectTimeout, 5*time.Second)
	setDefault(&c.QueryTimeout, 30*time.Second)
	setDefault(&c.StartupTimeout, 30*time.Second)
	setDefault(&c.MaxTxRetries, 5)
	setDefault(&c.SSLMode, "prefer")
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// Validate reports the first invalid field by its yaml name.
func (c *PostgresDriveStoreConfig) Validate() error {
	err := configValidator.Struct(c)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return fmt.Errorf("%s is required", yamlName(fe.StructField()))
		}
		return fmt.Errorf("invalid %s: %v (rule %s=%s)", yamlName(fe.StructField()), fe.Value(), fe.Tag(), fe.Param())
	}
	return err
}

func yamlName(field string) string {
	if f, ok := configFieldType.FieldByName(field); ok {
		if tag := f.Tag.Get("yaml"); tag != "" {
			return tag
		}
	}
	return field
}

// ConnectionString returns a postgres:// URL for the configuration.
// Credentials are escaped, so passwords may hold any character.
func (c *PostgresDriveStoreConfig) ConnectionString() string {
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

var configFieldType = reflect.TypeOf(PostgresDriveStoreConfig{})
