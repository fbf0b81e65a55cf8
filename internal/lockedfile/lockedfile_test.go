package lockedfile_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/twiced-technology-gmbh/lockrun/internal/lockedfile"
)

func TestLock(t *testing.T) {
	t.Parallel()

	t.Run("acquires and releases on new file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "test.lock")

		unlock, err := lockedfile.Lock(path)
		if err != nil {
			t.Fatalf("expected to acquire lock, got error: %v", err)
		}
		if err := unlock(); err != nil {
			t.Errorf("expected to release lock, got error: %v", err)
		}

		// The lock file must exist afterwards.
		if _, err := os.Stat(path); err != nil {
			t.Errorf("lock file missing after unlock: %v", err)
		}
	})

	t.Run("can be reacquired after unlock", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "test.lock")

		unlock, err := lockedfile.Lock(path)
		if err != nil {
			t.Fatalf("first lock failed: %v", err)
		}
		if err := unlock(); err != nil {
			t.Fatalf("unlock failed: %v", err)
		}

		unlock, err = lockedfile.TryLock(path)
		if err != nil {
			t.Fatalf("non-blocking reacquire failed: %v", err)
		}
		if err := unlock(); err != nil {
			t.Errorf("second unlock failed: %v", err)
		}
	})

	t.Run("unlock is safe to call exactly once per lock", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "test.lock")

		for range 3 {
			unlock, err := lockedfile.Lock(path)
			if err != nil {
				t.Fatalf("lock failed: %v", err)
			}
			if err := unlock(); err != nil {
				t.Fatalf("unlock failed: %v", err)
			}
		}
	})
}

func TestLockShared(t *testing.T) {
	t.Parallel()

	t.Run("requires an existing file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "absent.lock")

		if _, err := lockedfile.LockShared(path); !os.IsNotExist(err) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})

	t.Run("two shared holders coexist", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "test.lock")
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatalf("creating file: %v", err)
		}

		unlock1, err := lockedfile.LockShared(path)
		if err != nil {
			t.Fatalf("first shared lock failed: %v", err)
		}
		unlock2, err := lockedfile.LockShared(path)
		if err != nil {
			t.Fatalf("second shared lock failed: %v", err)
		}
		if err := unlock2(); err != nil {
			t.Errorf("unlock failed: %v", err)
		}
		if err := unlock1(); err != nil {
			t.Errorf("unlock failed: %v", err)
		}
	})
}

func TestWriteRead(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "data.txt")
		want := []byte("hello, world\n")

		if err := lockedfile.Write(path, want); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		got, err := lockedfile.Read(path)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("read %q, want %q", got, want)
		}
	})

	t.Run("write truncates previous contents", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "data.txt")

		if err := lockedfile.Write(path, []byte("a much longer first payload")); err != nil {
			t.Fatalf("first write failed: %v", err)
		}
		want := []byte("short")
		if err := lockedfile.Write(path, want); err != nil {
			t.Fatalf("second write failed: %v", err)
		}

		got, err := lockedfile.Read(path)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("read %q, want %q", got, want)
		}
	})

	t.Run("read missing file fails", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "absent.txt")

		if _, err := lockedfile.Read(path); !os.IsNotExist(err) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})
}
