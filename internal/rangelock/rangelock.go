// Package rangelock wraps the operating system's advisory record-locking
// facility: whole-file shared/exclusive locks on an already-open file
// descriptor, in blocking or non-blocking form.
//
// The package is stateless. A lock is owned by the (process, descriptor)
// pair and lives until Release is called or the descriptor is closed; the
// OS is the sole source of truth. Callers own the descriptor: rangelock
// never opens, duplicates, or closes it.
//
// Locks are advisory. They constrain only processes that also request
// locks; unlocked I/O is never prevented.
//
// Usage:
//
//	file, _ := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
//	if err := rangelock.Acquire(int(file.Fd()), true, true); err != nil {
//	    // Lock not acquired.
//	}
//	defer rangelock.Release(int(file.Fd()))
package rangelock

import (
	"errors"
	"fmt"
	"syscall"
)

// Sentinel errors classifying OS failures. Returned errors carry the raw
// OS code (see Errno) and match these via errors.Is.
var (
	// ErrInvalidHandle reports a descriptor that fails the local validity
	// check (negative). No OS call is made in this case.
	ErrInvalidHandle = errors.New("rangelock: invalid file handle")

	// ErrWouldBlock reports a non-blocking acquire that found the range
	// locked incompatibly by another holder.
	ErrWouldBlock = errors.New("rangelock: lock held by another process")

	// ErrInterrupted reports a blocking wait that was interrupted before
	// the lock was granted.
	ErrInterrupted = errors.New("rangelock: blocking wait interrupted")
)

// Conflict describes a lock that would block an acquire, as reported by
// Probe.
type Conflict struct {
	// Held is true when a conflicting lock exists.
	Held bool
	// Writable is true when the conflicting lock is exclusive. Always
	// true on platforms that cannot report the holder's lock type.
	Writable bool
	// PID is the holder's process ID, or 0 when the platform cannot
	// report it.
	PID int
}

// Acquire requests a whole-file advisory lock on fd: exclusive when
// writable is true, shared otherwise. When blocking is true the call
// suspends until the lock is granted, the wait is interrupted, or an
// unrecoverable OS error occurs; otherwise an incompatible holder yields
// ErrWouldBlock immediately.
//
// The OS error is passed through verbatim: no retry, no reinterpretation.
func Acquire(fd int, blocking, writable bool) error {
	if fd < 0 {
		return ErrInvalidHandle
	}
	return acquire(fd, blocking, writable)
}

// Release removes the calling process's whole-file lock on fd, if one is
// held. Releasing when no lock is held is a success: the OS treats it as
// a no-op. Unlocking never waits.
func Release(fd int) error {
	if fd < 0 {
		return ErrInvalidHandle
	}
	return release(fd)
}

// Probe reports whether a lock request on fd (exclusive when writable is
// true) would conflict with a lock held by another process. No lock is
// taken. The answer is inherently racy: the state may change before the
// caller acts on it.
func Probe(fd int, writable bool) (Conflict, error) {
	if fd < 0 {
		return Conflict{}, ErrInvalidHandle
	}
	return probe(fd, writable)
}

// Errno extracts the raw OS error code carried by an error returned from
// this package, or 0 when the error carries none.
func Errno(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}

// osError wraps a raw OS error code verbatim while classifying it against
// the sentinel taxonomy above.
type osError struct {
	op    string
	errno syscall.Errno
	kind  error // matching sentinel, or nil for opaque passthrough
}

func (e *osError) Error() string {
	return fmt.Sprintf("rangelock: %s: %v", e.op, e.errno)
}

func (e *osError) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

func (e *osError) Unwrap() error {
	return e.errno
}

// wrap converts a syscall failure into an osError. Errors that do not
// carry an errno (not expected from the locking syscalls) are wrapped
// opaque.
func wrap(op string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &osError{op: op, errno: errno, kind: classify(errno)}
	}
	return fmt.Errorf("rangelock: %s: %w", op, err)
}
