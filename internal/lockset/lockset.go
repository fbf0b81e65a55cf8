// Package lockset models the set of lock files lockrun inspects and
// probes their advisory-lock state.
package lockset

import (
	"os"
	"time"

	"github.com/twiced-technology-gmbh/lockrun/internal/rangelock"
)

// State is the probed lock state of a file.
type State string

// Probed states. A missing lock file is reported as free: no file means
// no holder.
const (
	StateFree  State = "free"
	StateRead  State = "read"
	StateWrite State = "write"
)

// Entry is a named lock file, from config or command-line arguments.
type Entry struct {
	Name string
	Path string
}

// Status is the probed state of one entry at a point in time.
type Status struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	State     State     `json:"state"`
	HolderPID int       `json:"holder_pid,omitempty"`
	Missing   bool      `json:"missing,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// ProbeAll probes every entry and returns one Status per entry, in input
// order. Probe failures are recorded on the Status rather than aborting
// the whole sweep.
func ProbeAll(entries []Entry, now time.Time) []Status {
	statuses := make([]Status, len(entries))
	for i, e := range entries {
		statuses[i] = ProbeOne(e, now)
	}
	return statuses
}

// ProbeOne probes a single entry. The result is a snapshot: the lock
// state may change the moment the probe returns.
func ProbeOne(e Entry, now time.Time) Status {
	s := Status{Name: e.Name, Path: e.Path, State: StateFree, CheckedAt: now}

	f, err := os.Open(e.Path) //nolint:gosec // lock path from config or args
	if err != nil {
		if os.IsNotExist(err) {
			s.Missing = true
			return s
		}
		s.Error = err.Error()
		return s
	}
	defer f.Close()

	// A single exclusive-mode probe detects any holder; the conflict's
	// type says whether it is a reader or a writer.
	c, err := rangelock.Probe(int(f.Fd()), true)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	if !c.Held {
		return s
	}

	s.State = StateRead
	if c.Writable {
		s.State = StateWrite
	}
	s.HolderPID = c.PID
	return s
}
