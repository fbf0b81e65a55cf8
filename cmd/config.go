package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/lockrun/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  `Prints the loaded configuration, including defaults for unset fields.`,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"config":           cfg.Path(),
			"version":          cfg.Version,
			"defaults":         cfg.Defaults,
			"locks":            cfg.Locks,
			"tui":              cfg.TUI,
			"timeout":          cfg.TimeoutDuration().String(),
			"poll_interval":    cfg.PollIntervalDuration().String(),
			"refresh_interval": cfg.RefreshIntervalDuration().String(),
		})
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprintf(os.Stdout, "# %s\n", cfg.Path())
	fmt.Fprint(os.Stdout, string(data))
	return nil
}

func runConfigPath(_ *cobra.Command, _ []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, path)
	return nil
}
