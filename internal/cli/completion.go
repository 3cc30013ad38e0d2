package cli

import (
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polar0/roi-tracker/internal/config"
	"github.com/polar0/roi-tracker/internal/period"
)

// completionCmd generates shell completion scripts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Print a completion script for your shell. Period names and configuration
keys complete too.

Example:
  source <(roi completion bash)
  roi completion zsh > "${fpath[1]}/_roi"
  roi completion fish > ~/.config/fish/completions/roi.fish`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		generators := map[string]func(io.Writer) error{
			"bash":       cmd.Root().GenBashCompletion,
			"zsh":        cmd.Root().GenZshCompletion,
			"fish":       func(w io.Writer) error { return cmd.Root().GenFishCompletion(w, true) },
			"powershell": cmd.Root().GenPowerShellCompletionWithDesc,
		}
		return generators[args[0]](cmd.OutOrStdout())
	},
}

// completePeriods offers the canonical period names.
func completePeriods(_ *cobra.Command, _ []string, prefix string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, k := range period.Kinds() {
		if k != period.Custom && strings.HasPrefix(k.String(), prefix) {
			names = append(names, k.String())
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completeConfigKeys offers configuration key paths for the first argument.
func completeConfigKeys(_ *cobra.Command, args []string, prefix string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var keys []string
	for path := range configKeys(config.Defaults()) {
		if strings.HasPrefix(path, prefix) {
			keys = append(keys, path)
		}
	}
	sort.Strings(keys)
	return keys, cobra.ShellCompDirectiveNoFileComp
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(completionCmd)
}
