package commands

import (
	"fmt"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample DittoDrive configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/dittodrive/config.yaml.
Use --config to specify a custom path.

The generated file carries a random token secret and a demo account
(test@example.com / password) that is created on first start.

Examples:
  # Initialize with default location
  dittodrive init

  # Initialize with custom path
  dittodrive init --config /etc/dittodrive/config.yaml

  # Force overwrite existing config
  dittodrive init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cmdutil.Flags.ConfigFile

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the configuration file to customize your setup")
	_, _ = fmt.Fprintln(out, "  2. Start the server with: dittodrive start")
	_, _ = fmt.Fprintf(out, "  3. Sign in as %s / %s\n", config.DemoUserEmail, config.DemoUserPassword)
	_, _ = fmt.Fprintln(out, "\nSecurity note:")
	_, _ = fmt.Fprintln(out, "  Remove identity.initial_user before exposing the server.")
	_, _ = fmt.Fprintln(out, "  The token secret can be overridden with an environment variable:")
	_, _ = fmt.Fprintf(out, "    export %s_IDENTITY_TOKEN_SECRET=$(openssl rand -hex 32)\n", config.EnvPrefix)

	return nil
}
