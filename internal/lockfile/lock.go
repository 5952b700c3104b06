// Package lockfile provides cross-process file locking via flock, used to
// guard the WAL directory against concurrent writers from separate ChronDB
// processes.
package lockfile

import "errors"

// ErrLockBusy is returned by the non-blocking Flock* functions when another
// process already holds a conflicting lock.
var ErrLockBusy = errors.New("lock busy: held by another process")

// IsLocked reports whether err indicates a lock held by another process.
func IsLocked(err error) bool {
	return errors.Is(err, ErrLockBusy)
}
