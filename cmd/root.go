// Package cmd implements the lockrun CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/lockrun/internal/clierr"
	"github.com/twiced-technology-gmbh/lockrun/internal/config"
	"github.com/twiced-technology-gmbh/lockrun/internal/lockset"
	"github.com/twiced-technology-gmbh/lockrun/internal/output"
)

// version is set at build time via ldflags.
var version = "dev"

// Global flags.
var (
	flagJSON    bool
	flagTable   bool
	flagCompact bool
	flagConfig  string
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "lockrun",
	Short: "Run commands under OS advisory file locks",
	Long: `lockrun serializes work across processes using the operating system's
advisory file locks: run commands while holding a lock, inspect who holds
what, and watch configured lock files live.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagNoColor || os.Getenv("NO_COLOR") != "" {
			output.DisableColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagTable, "table", false, "output as table")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "oneline", false, "alias for --compact")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
}

// Execute runs the root command.
func Execute() {
	_, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}

	// Handle SilentError — exit with code, no output.
	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	// Determine if JSON mode is active.
	jsonMode := flagJSON
	if !jsonMode {
		jsonMode = os.Getenv("LOCKRUN_OUTPUT") == "json"
	}

	if jsonMode {
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			output.JSONError(os.Stdout, cliErr.Code, cliErr.Message, cliErr.Details)
			os.Exit(cliErr.ExitCode())
		}
		// Unknown error — wrap as INTERNAL_ERROR.
		output.JSONError(os.Stdout, clierr.InternalError, err.Error(), nil)
		os.Exit(2) //nolint:mnd // exit code 2 for internal errors
	}

	// Non-JSON mode: print to stderr.
	fmt.Fprintln(os.Stderr, err)
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(1)
}

// configPath returns the effective config file path.
func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultPath()
}

// loadConfig loads the config from --config or the default location.
func loadConfig() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// loadConfigLenient loads the config but treats a missing file as an
// empty default: commands that take explicit paths work without one.
func loadConfigLenient() (*config.Config, error) {
	cfg, err := loadConfig()
	if errors.Is(err, config.ErrNotFound) {
		return config.NewDefault(), nil
	}
	return cfg, err
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}

// resolveEntry maps a command-line argument to a lock entry: a configured
// lock name when one matches, otherwise a literal file path.
func resolveEntry(cfg *config.Config, arg string) lockset.Entry {
	if l := cfg.LockByName(arg); l != nil {
		return lockset.Entry{Name: l.Name, Path: l.Path}
	}
	return lockset.Entry{Name: arg, Path: arg}
}
