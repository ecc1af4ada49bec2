package config

import (
	"fmt"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Load the configuration, apply defaults and environment overrides, and
report the first problem found.

Examples:
  dittodrive config validate
  dittodrive config validate --config /etc/dittodrive/config.yaml`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(cmdutil.Flags.ConfigFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration is valid: %s\n", cmdutil.ConfigSource())
	_, _ = fmt.Fprintf(out, "  metadata store: %s\n", cfg.Metadata.Type)
	_, _ = fmt.Fprintf(out, "  blob store:     %s\n", cfg.Blob.Type)
	_, _ = fmt.Fprintf(out, "  identity db:    %s\n", cfg.Identity.Database.Type)
	if cfg.Server.IsEnabled() {
		_, _ = fmt.Fprintf(out, "  API port:       %d\n", cfg.Server.Port)
	} else {
		_, _ = fmt.Fprintln(out, "  API:            disabled")
	}
	return nil
}
