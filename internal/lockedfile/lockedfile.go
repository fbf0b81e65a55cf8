// Package lockedfile provides path-level conveniences over rangelock:
// open a file and lock it in one step, and read or write whole files
// under an advisory lock.
//
// Each helper owns the descriptor it opens; the caller-supplied path is
// the only handle exposed.
package lockedfile

import (
	"io"
	"os"

	"github.com/twiced-technology-gmbh/lockrun/internal/rangelock"
)

const lockFileMode = 0o600

// Lock opens (creating if necessary) the file at path and acquires a
// blocking exclusive lock on it. The returned function releases the lock
// and closes the file; it must be called when the critical section is
// done.
func Lock(path string) (unlock func() error, err error) {
	return lockAt(path, os.O_CREATE|os.O_RDWR, true, true)
}

// LockShared opens the file at path and acquires a blocking shared lock.
// The file must already exist. The returned function releases the lock
// and closes the file.
func LockShared(path string) (unlock func() error, err error) {
	return lockAt(path, os.O_RDONLY, true, false)
}

// TryLock is Lock in non-blocking form: if the file is locked
// incompatibly by another holder it returns rangelock.ErrWouldBlock
// immediately instead of waiting.
func TryLock(path string) (unlock func() error, err error) {
	return lockAt(path, os.O_CREATE|os.O_RDWR, false, true)
}

func lockAt(path string, flag int, blocking, writable bool) (unlock func() error, err error) {
	f, err := os.OpenFile(path, flag, lockFileMode) //nolint:gosec // lock file path from trusted source
	if err != nil {
		return nil, err
	}

	if err := rangelock.Acquire(int(f.Fd()), blocking, writable); err != nil {
		_ = f.Close()
		return nil, err
	}

	return func() error {
		releaseErr := rangelock.Release(int(f.Fd()))
		closeErr := f.Close()
		if releaseErr != nil {
			return releaseErr
		}
		return closeErr
	}, nil
}

// Write replaces the contents of the file at path with data, holding a
// blocking exclusive lock for the duration. The file is created if it
// does not exist. Truncation happens after the lock is granted, so a
// writer that had to wait does not clobber bytes mid-write.
func Write(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, lockFileMode) //nolint:gosec // caller-supplied path
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := rangelock.Acquire(int(f.Fd()), true, true); err != nil {
		return err
	}
	defer func() { _ = rangelock.Release(int(f.Fd())) }()

	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// Read returns the contents of the file at path, holding a blocking
// shared lock for the duration of the read.
func Read(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // caller-supplied path
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := rangelock.Acquire(int(f.Fd()), true, false); err != nil {
		return nil, err
	}
	defer func() { _ = rangelock.Release(int(f.Fd())) }()

	return io.ReadAll(f)
}
