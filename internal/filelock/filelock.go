// Package filelock guards the database and config files against concurrent
// writers in other processes, and writes files atomically.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultRetryDelay is how often a context-bound acquisition polls the lock
const DefaultRetryDelay = 100 * time.Millisecond

// ErrLocked is returned by TryLock callers that require the lock immediately
var ErrLocked = errors.New("lock is held by another process")

// FileLock is an exclusive advisory lock backed by a lock file.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock creates a lock on the given path. The file is created on the
// first acquisition.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Path returns the lock file path
func (fl *FileLock) Path() string {
	return fl.path
}

// Lock blocks until the lock is acquired.
func (fl *FileLock) Lock() error {
	if err := fl.ensureDir(); err != nil {
		return err
	}
	if err := fl.flock.Lock(); err != nil {
		return fmt.Errorf("acquire lock on %s: %w", fl.path, err)
	}
	return nil
}

// LockContext polls for the lock every retryDelay until it is acquired or
// ctx is done. A non-positive retryDelay uses DefaultRetryDelay.
func (fl *FileLock) LockContext(ctx context.Context, retryDelay time.Duration) error {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	if err := fl.ensureDir(); err != nil {
		return err
	}
	ok, err := fl.flock.TryLockContext(ctx, retryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("wait for lock on %s: %w", fl.path, ctxErr)
		}
		return fmt.Errorf("acquire lock on %s: %w", fl.path, err)
	}
	if !ok {
		return fmt.Errorf("wait for lock on %s: %w", fl.path, ErrLocked)
	}
	return nil
}

// TryLock attempts the lock without blocking and reports whether it was acquired.
func (fl *FileLock) TryLock() (bool, error) {
	if err := fl.ensureDir(); err != nil {
		return false, err
	}
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("try lock on %s: %w", fl.path, err)
	}
	return acquired, nil
}

// Unlock releases the lock.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock on %s: %w", fl.path, err)
	}
	return nil
}

// Locked reports whether this handle holds the lock
func (fl *FileLock) Locked() bool {
	return fl.flock.Locked()
}

func (fl *FileLock) ensureDir() error {
	dir := filepath.Dir(fl.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create lock directory %s: %w", dir, err)
	}
	return nil
}

// AtomicWrite writes data through a temp file in the target directory and a
// rename, so readers see either the old file or the complete new one.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}

	tempFile = nil
	return nil
}

// LockAndWrite holds "<path>.lock" while atomically writing path.
func LockAndWrite(ctx context.Context, path string, data []byte) error {
	lock := NewFileLock(path + ".lock")
	if err := lock.LockContext(ctx, DefaultRetryDelay); err != nil {
		return err
	}
	defer lock.Unlock()

	return AtomicWrite(path, data)
}

// WithLock runs fn while holding the lock at lockPath. It fails with
// ErrLocked when wait is false and another process holds the lock.
func WithLock(ctx context.Context, lockPath string, wait bool, fn func() error) error {
	lock := NewFileLock(lockPath)
	if wait {
		if err := lock.LockContext(ctx, DefaultRetryDelay); err != nil {
			return err
		}
	} else {
		ok, err := lock.TryLock()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", lockPath, ErrLocked)
		}
	}
	defer lock.Unlock()

	return fn()
}
