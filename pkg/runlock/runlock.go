// Package runlock provides the advisory file lock that keeps two
// reconciliation runs from executing concurrently against one board.
package runlock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
)

// ErrLocked indicates another run already holds the lock file.
var ErrLocked = errors.New("another run holds the lock")

// Lock is a held advisory lock.
type Lock struct {
	path string
}

// Acquire creates the lock file, failing with ErrLocked when it already
// exists. force removes a stale lock first; use it only when the
// previous holder is known to be dead.
func Acquire(path, runID string, force bool) (*Lock, error) {
	if force {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove stale lock %s: %w", path, err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}

		return nil, fmt.Errorf("failed to create lock file %s: %w", path, err)
	}

	_, writeErr := file.WriteString(runID + " pid=" + strconv.Itoa(os.Getpid()) + "\n")

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close lock file %s: %w", path, err)
	}

	if writeErr != nil {
		return nil, fmt.Errorf("failed to write lock file %s: %w", path, writeErr)
	}

	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call on every exit path; a
// missing file is not an error.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file %s: %w", l.path, err)
	}

	return nil
}
