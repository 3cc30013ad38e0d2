// Package cli implements the roi command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/polar0/roi-tracker/internal/config"
	"github.com/polar0/roi-tracker/internal/output"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter

	// stderr receives notifications, progress and errors.
	stderr io.Writer = os.Stderr

	enrichOnce sync.Once
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "roi",
	Short: "Track ETH and WETH returns across wallets",
	Long: `roi measures how the combined ETH and WETH holdings of a set of
Ethereum addresses changed over a period, net of deposits received from
known exchange wallets, and values the result at the current Ether price.

Example:
  roi track 0xAbc... 0xDef... --period last-week
  roi track 0xAbc... --from 2024-01-01 --to 2024-02-01 -o json
  roi price --watch`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which commands use for cancellation.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		formatErr(err)
		return err
	}
	return nil
}

// formatErr prints err to stderr in the active format, unless it was already shown.
func formatErr(err error) {
	if isReported(err) {
		return
	}
	format := output.FormatText
	if formatter != nil {
		format = formatter.Format()
	}
	_ = output.FormatError(stderr, err, format)
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return roierr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals(cmd *cobra.Command) error {
	// Determine home directory
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}
	home = config.ExpandHome(home)

	var err error
	cfg, err = config.LoadOrDefault(config.Path(home))
	if err != nil {
		return err
	}
	cfg.Home = home

	// Apply environment variable overrides
	config.ApplyEnvironment(cfg)

	// Override with command-line flags
	if homeDir != "" {
		cfg.Home = config.ExpandHome(homeDir)
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	logger, err = config.NewLoggerFromConfig(cfg, cfg.IsVerbose())
	if err != nil {
		// The null logger is already in place; keep going without a log file
		logger.Debug("opening log file: %v", err)
	}
	if cfg.IsVerbose() {
		logger.Mirror(stderr)
	}

	explicitFormat := output.ParseFormat(cfg.GetOutputFormat())
	detectedFormat := output.DetectFormat(cmd.OutOrStdout(), explicitFormat)
	formatter = output.NewFormatter(detectedFormat, cmd.OutOrStdout())

	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the global logger.
func Logger() *config.Logger {
	return logger
}

// Formatter returns the global output formatter.
func Formatter() *output.Formatter {
	return formatter
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "roi data directory (default: ~/.roi)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, csv, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output and debug logging")

	cobra.OnInitialize(func() {
		enrichOnce.Do(func() { walkCommands(rootCmd, enrichParentLong) })
	})
}
