package cmd

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/lockrun/internal/clierr"
	"github.com/twiced-technology-gmbh/lockrun/internal/config"
	"github.com/twiced-technology-gmbh/lockrun/internal/rangelock"
)

var runCmd = &cobra.Command{
	Use:   "run LOCK -- COMMAND [ARGS...]",
	Short: "Run a command while holding a lock",
	Long: `Acquires an advisory lock on LOCK (a configured lock name or a file path,
created if missing), runs COMMAND, and releases the lock when it exits.
The command's exit code is propagated.

By default the lock is exclusive and the call waits until it is granted.
Use --shared for a read lock, --no-wait to fail immediately when the lock
is held, or --timeout to bound the wait.`,
	Args: cobra.MinimumNArgs(2), //nolint:mnd // lock target plus a command
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("shared", false, "acquire a shared (read) lock instead of exclusive")
	runCmd.Flags().Bool("no-wait", false, "fail immediately if the lock is held")
	runCmd.Flags().Duration("timeout", 0, "give up waiting after this duration (0 = wait forever)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigLenient()
	if err != nil {
		return err
	}

	entry := resolveEntry(cfg, args[0])
	cmdArgs := args[1:]

	shared, _ := cmd.Flags().GetBool("shared")
	noWait, _ := cmd.Flags().GetBool("no-wait")
	writable := !shared
	if !cmd.Flags().Changed("shared") {
		writable = cfg.Defaults.Mode != config.ModeShared
	}
	if !cmd.Flags().Changed("no-wait") {
		noWait = !cfg.Defaults.Wait
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if !cmd.Flags().Changed("timeout") {
		timeout = cfg.TimeoutDuration()
	}

	f, err := os.OpenFile(entry.Path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // lock path from config or args
	if err != nil {
		return clierr.Newf(clierr.FileNotFound, "opening lock file %s: %v", entry.Path, err)
	}
	defer f.Close()
	fd := int(f.Fd())

	if err := acquireWithPolicy(fd, entry.Path, writable, noWait, timeout, cfg.PollIntervalDuration()); err != nil {
		return err
	}
	defer func() { _ = rangelock.Release(fd) }()

	return execChild(cmdArgs)
}

// acquireWithPolicy applies the caller-side wait policy around the bare
// acquire: fail fast, wait forever, or poll until a deadline. The lock
// layer itself never retries.
func acquireWithPolicy(fd int, path string, writable, noWait bool, timeout, poll time.Duration) error {
	if noWait {
		err := rangelock.Acquire(fd, false, writable)
		if errors.Is(err, rangelock.ErrWouldBlock) {
			return clierr.Newf(clierr.LockHeld, "lock on %s is held by another process", path).
				WithDetails(map[string]any{"path": path})
		}
		return err
	}

	if timeout <= 0 {
		return rangelock.Acquire(fd, true, writable)
	}

	// Timed waits poll with non-blocking acquires: a blocking fcntl wait
	// cannot be abandoned from the same thread.
	deadline := time.Now().Add(timeout)
	for {
		err := rangelock.Acquire(fd, false, writable)
		if err == nil {
			return nil
		}
		if !errors.Is(err, rangelock.ErrWouldBlock) {
			return err
		}
		if time.Now().After(deadline) {
			return clierr.Newf(clierr.LockTimeout, "timed out after %s waiting for lock on %s", timeout, path).
				WithDetails(map[string]any{"path": path, "timeout": timeout.String()})
		}
		time.Sleep(poll)
	}
}

// execChild runs the command with inherited stdio, forwarding SIGINT and
// SIGTERM, and maps its exit status onto ours.
func execChild(cmdArgs []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	child := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...) // #nosec G204 -- running the user's command is the point
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr

	err := child.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &clierr.SilentError{Code: exitErr.ExitCode()}
	}
	return clierr.Newf(clierr.CommandFailed, "running %s: %v", cmdArgs[0], err)
}
