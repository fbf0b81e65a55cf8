//go:build unix

package rangelock

import (
	"io"
	"syscall"

	"golang.org/x/sys/unix"
)

// fcntlFlock is swappable so tests can verify that the handle validity
// check short-circuits before any syscall is attempted.
var fcntlFlock = unix.FcntlFlock

// wholeFile returns a lock record covering the entire file: start 0,
// length 0 (the fcntl convention for "to end of file, including future
// growth").
func wholeFile(lockType int16) unix.Flock_t {
	return unix.Flock_t{
		Type:   lockType,
		Whence: int16(io.SeekStart),
		Start:  0,
		Len:    0,
	}
}

func acquire(fd int, blocking, writable bool) error {
	lockType := int16(unix.F_RDLCK)
	if writable {
		lockType = unix.F_WRLCK
	}
	cmd := unix.F_SETLK
	if blocking {
		cmd = unix.F_SETLKW
	}

	fl := wholeFile(lockType)
	if err := fcntlFlock(uintptr(fd), cmd, &fl); err != nil {
		return wrap("acquire", err)
	}
	return nil
}

func release(fd int) error {
	// F_SETLK suffices: an unlock request never conflicts with other
	// holders, so it cannot need to wait.
	fl := wholeFile(unix.F_UNLCK)
	if err := fcntlFlock(uintptr(fd), unix.F_SETLK, &fl); err != nil {
		return wrap("release", err)
	}
	return nil
}

func probe(fd int, writable bool) (Conflict, error) {
	lockType := int16(unix.F_RDLCK)
	if writable {
		lockType = unix.F_WRLCK
	}

	fl := wholeFile(lockType)
	if err := fcntlFlock(uintptr(fd), unix.F_GETLK, &fl); err != nil {
		return Conflict{}, wrap("probe", err)
	}

	// F_GETLK rewrites Type to F_UNLCK when the request would succeed;
	// otherwise it describes the first conflicting lock.
	if fl.Type == unix.F_UNLCK {
		return Conflict{}, nil
	}
	return Conflict{
		Held:     true,
		Writable: fl.Type == unix.F_WRLCK,
		PID:      int(fl.Pid),
	}, nil
}

// classify maps an errno onto the sentinel taxonomy. POSIX permits either
// EAGAIN or EACCES for a non-blocking acquire that hit a holder.
func classify(errno syscall.Errno) error {
	switch errno {
	case unix.EAGAIN, unix.EACCES:
		return ErrWouldBlock
	case unix.EINTR:
		return ErrInterrupted
	}
	return nil
}
