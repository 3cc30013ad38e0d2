package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/polar0/roi-tracker/internal/output"
)

// BuildInfo identifies the running binary. It is set from main via ldflags.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

//nolint:gochecknoglobals // Set once from main
var buildInfo BuildInfo

// SetBuildInfo records the version reported by `roi version`.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
	rootCmd.Version = formatVersion(info)
}

func formatVersion(info BuildInfo) string {
	v, commit, date := info.Version, info.Commit, info.Date
	if v == "" {
		v = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return v + " (commit: " + commit + ", built: " + date + ")"
}

// versionCmd prints build information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if formatter.Format() == output.FormatJSON {
			return writeJSON(cmd.OutOrStdout(), struct {
				BuildInfo
				Go string `json:"go"`
			}{buildInfo, runtime.Version()})
		}
		outln(cmd.OutOrStdout(), "roi "+formatVersion(buildInfo))
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
}
