package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/lockrun/internal/clierr"
	"github.com/twiced-technology-gmbh/lockrun/internal/config"
	"github.com/twiced-technology-gmbh/lockrun/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Creates a config file with default lock settings, ready to add locks to.`,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	if _, statErr := os.Stat(path); statErr == nil && !force {
		ok, confirmErr := confirmOverwrite(path)
		if confirmErr != nil {
			return confirmErr
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Canceled.")
			return nil
		}
	}

	cfg := config.NewDefault()
	cfg.SetPath(path)

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{
			"status": "initialized",
			"config": path,
		})
	}

	output.Messagef(os.Stdout, "Initialized config in %s", path)
	output.Messagef(os.Stdout, "  Add locks under the 'locks:' key, then try: lockrun status")
	return nil
}

// confirmOverwrite prompts before replacing an existing config. Requires a
// terminal unless --force.
func confirmOverwrite(path string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, clierr.Newf(clierr.ConfigExists,
			"config already exists at %s (not a terminal); use --force to overwrite", path).
			WithDetails(map[string]any{"config": path})
	}
	fmt.Fprintf(os.Stderr, "Config already exists at %s. Overwrite? [y/N] ", path)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes", nil
}
