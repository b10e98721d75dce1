package store

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Error variables for file locking operations
var (
	// ErrLockTimeout is returned when a lock cannot be acquired within the specified timeout
	ErrLockTimeout = errors.New("lock acquisition timeout")
	// ErrLockNotHeld is returned when attempting to release a lock that isn't held
	ErrLockNotHeld = errors.New("lock not held")

	errLockUnsupported = errors.New("file locking not supported on this platform")
)

const (
	// staleLockAge is how old a lock file must be before it is considered
	// abandoned on platforms without file locking.
	staleLockAge = 5 * time.Minute
	// lockGrace covers the gap between creating a lock file and locking it.
	lockGrace    = time.Second
)

// FileLock is an advisory lock next to the vault file (<path>.lock).
type FileLock struct {
	path     string
	lockFile *os.File
	locked   bool
}

// NewFileLock creates a new file lock for the given path
func NewFileLock(vaultPath string) *FileLock {
	return &FileLock{path: vaultPath + ".lock"}
}

// Lock acquires the file lock, retrying until timeout elapses
func (fl *FileLock) Lock(timeout time.Duration) error {
	if fl.locked {
		return errors.New("lock already held")
	}

	if err := os.MkdirAll(filepath.Dir(fl.path), 0o700); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		file, err := os.OpenFile(fl.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			fl.lockFile = file
			fl.locked = true

			if err := platformLock(file); err != nil && !errors.Is(err, errLockUnsupported) {
				// Another process is inspecting the fresh file; start over.
				_ = fl.Unlock()
				if time.Now().After(deadline) {
					return ErrLockTimeout
				}
				time.Sleep(10 * time.Millisecond)
				continue
			}
			if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
				_ = fl.Unlock()
				return err
			}
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return err
		}

		if fl.removeIfStale() {
			continue
		}

		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Unlock releases the file lock
func (fl *FileLock) Unlock() error {
	if !fl.locked {
		return ErrLockNotHeld
	}

	// The file goes first so nobody can lock the old inode and then remove
	// a successor's lock file. Windows refuses to remove open files, so
	// there the removal is retried after closing.
	removeErr := os.Remove(fl.path)

	var err error
	if fl.lockFile != nil {
		err = platformUnlock(fl.lockFile)
		if closeErr := fl.lockFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		fl.lockFile = nil
	}

	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		if removeErr = os.Remove(fl.path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) && err == nil {
			err = removeErr
		}
	}

	fl.locked = false
	return err
}

// IsLocked returns true if the lock is currently held
func (fl *FileLock) IsLocked() bool {
	return fl.locked
}

// removeIfStale deletes a lock file whose owner is gone. An owner is gone
// when its lock can be taken; the file age is only consulted where the
// platform has no file locking.
func (fl *FileLock) removeIfStale() bool {
	file, err := os.OpenFile(fl.path, os.O_RDWR, 0)
	if err != nil {
		return false
	}

	if err := platformLock(file); err != nil {
		_ = file.Close()
		if errors.Is(err, errLockUnsupported) && fl.isLockStale(staleLockAge) {
			return os.Remove(fl.path) == nil
		}
		return false
	}

	// The lock must belong to the file still at path, and that file must
	// be past the window in which its creator has not locked it yet.
	held, statErr := file.Stat()
	current, err := os.Stat(fl.path)
	stale := statErr == nil && err == nil && os.SameFile(held, current) && fl.isLockStale(lockGrace)

	_ = platformUnlock(file)
	_ = file.Close()

	if !stale {
		return false
	}
	return os.Remove(fl.path) == nil
}

// isLockStale reports whether the lock file is older than age.
func (fl *FileLock) isLockStale(age time.Duration) bool {
	info, err := os.Stat(fl.path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > age
}
