package api

import (
	"time"

	"github.com/marmos91/dittodrive/internal/bytesize"
)

// APIConfig configures the HTTP API server.
type APIConfig struct {
	// Enabled defaults to true; the pointer tells "unset" from false.
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"` // 8080

	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`       // 10s, headers and body
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`     // 10s
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`       // 60s, keep-alive
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // 30s, handler deadline

	// MaxUploadSize caps upload request bodies, e.g. "100Mi". Zero leaves
	// only the upload manager's own limit.
	MaxUploadSize bytesize.ByteSize `mapstructure:"max_upload_size" yaml:"max_upload_size"`

	// ShutdownTimeout is copied from the top-level setting at startup.
	ShutdownTimeout time.Duration `mapstructure:"-" yaml:"-" json:"-"`
}

// IsEnabled reports whether the API server should run.
func (c *APIConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ApplyDefaults fills zero values.
func (c *APIConfig) ApplyDefaults() {
	defaults := APIConfig{
		Port:           8080,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    time.Minute,
		RequestTimeout: 30 * time.Second,
	}
	if c.Port <= 0 {
		c.Port = defaults.Port
	}
	for _, d := range []struct {
		field *time.Duration
		value time.Duration
	}{
		{&c.ReadTimeout, defaults.ReadTimeout},
		{&c.WriteTimeout, defaults.WriteTimeout},
		{&c.IdleTimeout, defaults.IdleTimeout},
		{&c.RequestTimeout, defaults.RequestTimeout},
	} {
		if *d.field == 0 {
			*d.field = d.value
		}
	}
}
