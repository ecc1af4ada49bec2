package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/spf13/viper"
)

// Watch reloads configPath whenever it changes and passes the new
// configuration to apply. Reloads that fail to parse or validate are logged
// and skipped. Only settings that can change at runtime should be acted on;
// the rest take effect after a restart.
func Watch(configPath string, apply func(*Config)) error {
	v := viper.New()
	setupViper(v, configPath)

	if found, err := readConfigFile(v); err != nil || !found {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			logger.Warn("Ignoring invalid configuration change", logger.KeyPath, e.Name, logger.KeyError, err)
			return
		}

		logger.Info("Configuration reloaded", logger.KeyPath, e.Name)
		apply(cfg)
	})
	v.WatchConfig()

	return nil
}

// ApplyLogLevel is a Watch callback that follows logging.level.
func ApplyLogLevel(cfg *Config) {
	logger.SetLevel(cfg.Logging.Level)
}
