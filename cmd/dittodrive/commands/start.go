package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	"github.com/marmos91/dittodrive/pkg/api"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/marmos91/dittodrive/pkg/metrics/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the DittoDrive server",
	Long: `Start the DittoDrive server in the foreground.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/dittodrive/config.yaml.

Examples:
  # Start with the default config
  dittodrive start

  # Start with custom config file
  dittodrive start --config /etc/dittodrive/config.yaml

  # Start with environment variable overrides
  DITTODRIVE_LOGGING_LEVEL=DEBUG dittodrive start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Write the process id to this file while running")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dittodrive",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "dittodrive",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	fmt.Println("DittoDrive - folder and file drive server")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", cmdutil.ConfigSource())
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// The registry must exist before the stores are built, or their
	// metrics constructors return nil.
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(metrics.ServerConfig{
			Port:            cfg.Metrics.Port,
			ShutdownTimeout: cfg.ShutdownTimeout,
		})
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	svc, err := cmdutil.OpenServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	created, err := cmdutil.EnsureInitialUser(ctx, cfg, svc.Identity)
	if err != nil {
		return fmt.Errorf("failed to ensure initial user: %w", err)
	}
	if created {
		logger.Info("Initial user created", logger.KeyEmail, cfg.Identity.InitialUser.Email)
	}

	if path := configPath(); path != "" {
		if err := config.Watch(path, config.ApplyLogLevel); err != nil {
			logger.Warn("Configuration reload disabled", logger.Err(err))
		}
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	var servers []func(context.Context) error
	if cfg.Server.IsEnabled() {
		cfg.Server.ShutdownTimeout = cfg.ShutdownTimeout
		apiServer := api.NewServer(cfg.Server, api.Dependencies{
			Service:  svc.Drive,
			Uploads:  svc.Uploads,
			Identity: svc.Identity,
			Metrics:  prometheus.NewHTTPMetrics(),
		})
		servers = append(servers, apiServer.Start)
	} else {
		logger.Info("API server disabled")
	}
	if metricsServer != nil {
		servers = append(servers, metricsServer.Start)
	}
	if len(servers) == 0 {
		return fmt.Errorf("nothing to serve: both the API and metrics servers are disabled")
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The first server to fail stops the others.
	g, gctx := errgroup.WithContext(sigCtx)
	for _, serve := range servers {
		g.Go(func() error { return serve(gctx) })
	}
	logger.Info("Server is running. Press Ctrl+C to stop.")

	<-gctx.Done()
	if sigCtx.Err() != nil {
		logger.Info("Shutdown signal received, initiating graceful shutdown")
	}
	if err := g.Wait(); err != nil {
		logger.Error("Server error", logger.Err(err))
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// configPath returns the file the configuration was read from, or empty
// when only defaults and environment variables were used.
func configPath() string {
	if cmdutil.Flags.ConfigFile != "" {
		return cmdutil.Flags.ConfigFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return ""
}
