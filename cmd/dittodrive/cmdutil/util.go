// Package cmdutil provides shared helpers for dittodrive commands.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/marmos91/dittodrive/internal/cli/output"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/blob"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/identity"
	"github.com/marmos91/dittodrive/pkg/metrics/prometheus"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile string
	Output     string
}

// LoadConfig loads the configuration selected by --config and initializes
// the logger from it.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.MustLoad(Flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ConfigSource describes where the configuration was loaded from.
func ConfigSource() string {
	if Flags.ConfigFile != "" {
		return Flags.ConfigFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// Services bundles the stores and services built from a configuration.
type Services struct {
	Store    drive.Store
	Blobs    blob.Store
	Drive    *drive.Service
	Uploads  *drive.UploadManager
	Identity *identity.Service
}

// OpenServices opens every backend named by cfg. Metrics are attached when
// the registry has been initialized. On error everything opened so far is
// closed.
func OpenServices(ctx context.Context, cfg *config.Config) (svc *Services, err error) {
	svc = &Services{}
	defer func() {
		if err != nil {
			svc.Close()
			svc = nil
		}
	}()

	svc.Identity, err = identity.New(cfg.IdentityServiceConfig())
	if err != nil {
		return svc, fmt.Errorf("failed to open identity database: %w", err)
	}

	svc.Store, err = config.CreateMetadataStore(ctx, cfg.Metadata)
	if err != nil {
		return svc, err
	}

	svc.Blobs, err = config.CreateBlobStore(ctx, cfg.Blob, prometheus.NewBlobMetrics(cfg.Blob.Type))
	if err != nil {
		return svc, err
	}

	svc.Drive = drive.New(svc.Store, cfg.DriveOptions(svc.Blobs, prometheus.NewDriveMetrics()))
	svc.Uploads = drive.NewUploadManager(svc.Drive, cfg.UploadConfig())

	logger.Debug("Services opened",
		logger.KeyStoreType, cfg.Metadata.Type,
		"blob_store", cfg.Blob.Type,
		"identity_db", cfg.Identity.Database.Type)

	return svc, nil
}

// Close shuts everything down in reverse order. Upload tasks still running
// are cancelled.
func (s *Services) Close() {
	if s.Uploads != nil {
		s.Uploads.Close()
	}
	if s.Drive != nil {
		s.Drive.Close()
	}
	if s.Blobs != nil {
		if err := s.Blobs.Close(); err != nil {
			logger.Warn("Failed to close blob store", logger.Err(err))
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			logger.Warn("Failed to close metadata store", logger.Err(err))
		}
	}
	if s.Identity != nil {
		if err := s.Identity.Close(); err != nil {
			logger.Warn("Failed to close identity database", logger.Err(err))
		}
	}
}

// EnsureInitialUser creates the configured initial user when the identity
// section names one. It reports whether a user was created.
func EnsureInitialUser(ctx context.Context, cfg *config.Config, ids *identity.Service) (bool, error) {
	iu := cfg.Identity.InitialUser
	if iu.Email == "" {
		return false, nil
	}
	return ids.EnsureUser(ctx, identity.NewUser{
		Email:       iu.Email,
		Password:    iu.Password,
		DisplayName: iu.DisplayName,
	})
}

// ResolveOwner looks up the user a command acts for.
func ResolveOwner(ctx context.Context, ids *identity.Service, email string) (*identity.User, error) {
	if email == "" {
		return nil, errors.New("an owner email is required (--as)")
	}
	u, err := ids.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, fmt.Errorf("user %q not found", email)
		}
		return nil, err
	}
	return u, nil
}

// PrintOutput prints data in the format selected by --output.
func PrintOutput(w io.Writer, data any) error {
	format, err := output.ParseFormat(Flags.Output)
	if err != nil {
		return err
	}
	return output.Print(w, format, data)
}

// FormatTime renders a timestamp for table output.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
