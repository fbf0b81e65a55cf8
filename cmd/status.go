package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/lockrun/internal/clierr"
	"github.com/twiced-technology-gmbh/lockrun/internal/config"
	"github.com/twiced-technology-gmbh/lockrun/internal/lockset"
	"github.com/twiced-technology-gmbh/lockrun/internal/output"
	"github.com/twiced-technology-gmbh/lockrun/internal/watcher"
)

var flagStatusWatch bool

var statusCmd = &cobra.Command{
	Use:     "status [LOCK...]",
	Aliases: []string{"st"},
	Short:   "Show lock states",
	Long: `Probes the given locks (configured lock names or file paths) and reports
who holds what. With no arguments, probes every lock in the config.

Use --watch to keep the display live-updating. The listing re-renders when
lock files change on disk and on a periodic re-probe (lock transitions
produce no file events). Press Ctrl+C to stop.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&flagStatusWatch, "watch", "w", false, "live-update on file changes")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, args []string) error {
	cfg, entries, err := statusEntries(args)
	if err != nil {
		return err
	}

	// Render once.
	if err := renderStatus(entries); err != nil {
		return err
	}

	if !flagStatusWatch {
		return nil
	}

	return watchStatus(cfg, entries)
}

// statusEntries resolves command arguments into lock entries. With no
// arguments the configured set is used, which requires a config.
func statusEntries(args []string) (*config.Config, []lockset.Entry, error) {
	if len(args) == 0 {
		cfg, err := loadConfig()
		if err != nil {
			return nil, nil, err
		}
		if len(cfg.Locks) == 0 {
			return nil, nil, clierr.New(clierr.LockNotFound,
				"no locks configured; pass lock paths or add locks to "+cfg.Path())
		}
		return cfg, cfg.Entries(), nil
	}

	cfg, err := loadConfigLenient()
	if err != nil {
		return nil, nil, err
	}
	entries := make([]lockset.Entry, len(args))
	for i, arg := range args {
		entries[i] = resolveEntry(cfg, arg)
	}
	return cfg, entries, nil
}

func renderStatus(entries []lockset.Entry) error {
	statuses := lockset.ProbeAll(entries, time.Now())

	format := outputFormat()
	if format == output.FormatJSON {
		return output.JSON(os.Stdout, statuses)
	}
	if format == output.FormatCompact {
		output.LockCompact(os.Stdout, statuses)
		return nil
	}

	output.LockTable(os.Stdout, statuses)
	return nil
}

func watchStatus(cfg *config.Config, entries []lockset.Entry) error {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Both redraw sources (debounced file events and the periodic
	// ticker) funnel into one channel drained by a single loop, so two
	// renders can never interleave on stdout.
	requests := make(chan struct{}, 1)

	w, err := watcher.New(watcher.DirsOf(paths), func() { requestRedraw(requests) })
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer w.Close()

	fmt.Fprintln(os.Stderr, "Watching for changes... (Ctrl+C to stop)")

	go w.Run(ctx, func(watchErr error) {
		fmt.Fprintf(os.Stderr, "Warning: file watcher: %v\n", watchErr)
	})

	// Periodic re-probe: acquiring or releasing a lock touches no file,
	// so the watcher alone would miss it.
	ticker := time.NewTicker(cfg.RefreshIntervalDuration())
	defer ticker.Stop()

	redrawLoop(ctx, requests, ticker.C, func() {
		clearScreen()
		if renderErr := renderStatus(entries); renderErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: rendering status: %v\n", renderErr)
		}
	})

	return nil
}

// requestRedraw queues a redraw without blocking; a request already
// pending covers the caller.
func requestRedraw(requests chan struct{}) {
	select {
	case requests <- struct{}{}:
	default:
	}
}

// redrawLoop serializes redraws: ticks are folded into the request
// channel and requests are drained one at a time, until the context is
// canceled.
func redrawLoop(ctx context.Context, requests chan struct{}, ticks <-chan time.Time, redraw func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			requestRedraw(requests)
		case <-requests:
			redraw()
		}
	}
}

// clearScreen sends ANSI escape codes to clear the terminal and move the
// cursor to the top-left corner.
func clearScreen() {
	fmt.Fprint(os.Stdout, "\033[2J\033[H")
}
