package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/lockrun/internal/clierr"
	"github.com/twiced-technology-gmbh/lockrun/internal/tui"
	"github.com/twiced-technology-gmbh/lockrun/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch configured locks in a terminal UI",
	Long: `Opens a live view of every configured lock: state, holder PID, and path.
The view re-probes periodically and when lock files change on disk.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Locks) == 0 {
		return clierr.New(clierr.LockNotFound,
			"no locks configured; add locks to "+cfg.Path())
	}

	model := tui.NewBoard(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go startTUIWatcher(ctx, model, p)

	_, err = p.Run()
	return err
}

func startTUIWatcher(ctx context.Context, model *tui.Board, p *tea.Program) {
	w, err := watcher.New(model.WatchPaths(), func() {
		p.Send(tui.ReloadMsg{})
	})
	if err != nil {
		return // non-fatal: the TUI still re-probes on its own timer
	}
	defer w.Close()
	w.Run(ctx, nil)
}
