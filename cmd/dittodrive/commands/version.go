package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/spf13/cobra"
)

type buildInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
	Platform  string `json:"platform" yaml:"platform"`
}

func (b buildInfo) Headers() []string { return []string{"FIELD", "VALUE"} }

func (b buildInfo) Rows() [][]string {
	return [][]string{
		{"version", b.Version},
		{"commit", b.Commit},
		{"built", b.Date},
		{"go", b.GoVersion},
		{"platform", b.Platform},
	}
}

// currentBuild falls back to the VCS stamp of `go build` when no commit
// was injected through ldflags.
func currentBuild() buildInfo {
	b := buildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok && b.Commit == "none" {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				b.Commit = s.Value
			case "vcs.time":
				if b.Date == "unknown" {
					b.Date = s.Value
				}
			}
		}
	}
	return b
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show version information.

The default output is a single line; -o table, json or yaml prints every
build field.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b := currentBuild()
		if !cmd.Flags().Changed("output") {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "dittodrive %s (commit: %s, built: %s, %s)\n",
				b.Version, b.Commit, b.Date, b.GoVersion)
			return err
		}
		return cmdutil.PrintOutput(cmd.OutOrStdout(), b)
	},
}
