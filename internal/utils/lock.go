package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
	lockRetry      = 500 * time.Millisecond
)

// DBLock serializes outreach runs that share one contact store.
type DBLock struct {
	lock *flock.Flock
	path string
}

// NewDBLock creates a new lock next to the given store path.
func NewDBLock(storePath string) (*DBLock, error) {
	absPath, err := GetAbsDBPath(storePath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute store path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("could not create store dir: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &DBLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Path returns the lock file path.
func (l *DBLock) Path() string { return l.path }

// Lock acquires the lock, waiting until ctx is done if another run holds it.
func (l *DBLock) Lock(ctx context.Context) error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if locked {
		return nil
	}

	Log.Warnf("Another outreach run holds %s, waiting for it to finish...", l.path)
	locked, err = l.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock on %s", l.path)
	}
	return nil
}

// Unlock releases the lock.
func (l *DBLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Not holding the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// WithLock runs fn while holding the lock for storePath.
func WithLock(ctx context.Context, storePath string, fn func() error) error {
	l, err := NewDBLock(storePath)
	if err != nil {
		return err
	}
	if err := l.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if err := l.Unlock(); err != nil {
			Log.Warnf("%v", err)
		}
	}()
	return fn()
}

// GetAbsDBPath resolves the store path, defaulting to the per-user config dir.
func GetAbsDBPath(storePath string) (string, error) {
	if storePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "nullrecords", "outreach.sqlite"), nil
	}
	return filepath.Abs(storePath)
}
