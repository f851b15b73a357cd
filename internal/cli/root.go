// Package cli implements the onboard command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/onboard/internal/config"
	"github.com/mrz1836/onboard/internal/output"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	logStderr    bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Wallet onboarding and registration",
	Long: `Onboard creates an encrypted wallet from a BIP39 mnemonic or an imported key,
registers it with the identity backend, provisions the chat account and
restores contact access tokens.

Example:
  onboard mnemonic generate
  onboard register --generate --username alice
  onboard retry
  onboard tokens restore`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd.ErrOrStderr())
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	enrichHelp()
	err := rootCmd.Execute()
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(os.Stderr, err, format)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return onboarderr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals(stderr io.Writer) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		cfg = config.Defaults()
		cfg.Home = home
	}

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	logLevel := config.ParseLogLevel(cfg.Logging.Level)
	if logStderr {
		logger = config.NewWriterLogger(logLevel, stderr)
	} else if logger, err = config.NewLogger(logLevel, cfg.Logging.File); err != nil {
		logger = config.NullLogger()
	}

	formatter = output.NewFormatter(output.Resolve(cfg.Output.DefaultFormat, os.Stdout), os.Stdout)

	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

// commandFormatter returns a formatter bound to the command's writer so
// tests can capture output.
func commandFormatter(cmd *cobra.Command) *output.Formatter {
	return formatter.To(cmd.OutOrStdout())
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "onboard data directory (default: ~/.onboard)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&logStderr, "log-stderr", false, "write logs to stderr instead of the log file")
}
