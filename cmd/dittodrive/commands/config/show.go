package config

import (
	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/internal/cli/output"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/spf13/cobra"
)

var showRedact bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective DittoDrive configuration, after defaults and
environment overrides. Output is YAML unless --output json is given.
Secrets are masked unless --redact=false.

Examples:
  # Show config as YAML
  dittodrive config show

  # Show as JSON
  dittodrive config show --output json`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().BoolVar(&showRedact, "redact", true, "Mask secrets and passwords")
}

const redacted = "********"

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(cmdutil.Flags.ConfigFile)
	if err != nil {
		return err
	}

	if showRedact {
		mask(&cfg.Identity.Token.Secret)
		mask(&cfg.Identity.InitialUser.Password)
		mask(&cfg.Identity.Database.Postgres.Password)
		mask(&cfg.Metadata.Postgres.Password)
		mask(&cfg.Blob.S3.SecretAccessKey)
	}

	format, err := output.ParseFormat(cmdutil.Flags.Output)
	if err != nil {
		return err
	}
	if format == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}

func mask(s *string) {
	if *s != "" {
		*s = redacted
	}
}
