package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

const configHeader = `# DittoDrive Configuration File
#
# Every key can be overridden with an environment variable:
#   DITTODRIVE_<SECTION>_<KEY>, e.g. DITTODRIVE_LOGGING_LEVEL=DEBUG
#
# The token secret below was generated for this installation. Keep the
# file private.

`

// Demo account written by InitConfig.
const (
	DemoUserEmail       = "test@example.com"
	DemoUserPassword    = "password"
	DemoUserDisplayName = "Test User"
)

// InitConfig writes a starter configuration to the default location and
// returns its path. An existing file is kept unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a starter configuration to path. The file gets
// the defaults, a random token secret and the demo account as initial user.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	secret, err := GenerateSecret()
	if err != nil {
		return err
	}

	cfg := GetDefaultConfig()
	cfg.Identity.Token.Secret = secret
	cfg.Identity.InitialUser = InitialUserConfig{
		Email:       DemoUserEmail,
		Password:    DemoUserPassword,
		DisplayName: DemoUserDisplayName,
	}

	if err := SaveConfig(cfg, path); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateSecret returns 32 random bytes, hex encoded.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
