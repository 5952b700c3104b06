// Package objstore is ChronDB's content-addressed object store: documents
// are canonical-JSON blobs reached by walking a commit's tree along a
// deterministic path, branches are refs, and every write is a new commit
// whose parent is the branch's previous head. Everything goes through
// go-git's Storer directly; there is no worktree.
package objstore

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// StorageUnavailable is raised when the repository itself cannot be
// opened or initialized.
type StorageUnavailable struct {
	Dir string
	Err error
}

func (e *StorageUnavailable) Error() string {
	return fmt.Sprintf("object store unavailable at %s: %v", e.Dir, e.Err)
}

func (e *StorageUnavailable) Unwrap() error { return e.Err }

// StaleBranch is raised when a branch ref's head moved between the read
// that observed it and the compare-and-swap that tried to advance it.
type StaleBranch struct {
	Branch   string
	Expected plumbing.Hash
	Actual   plumbing.Hash
}

func (e *StaleBranch) Error() string {
	return fmt.Sprintf("stale branch %q: expected head %s, actual %s", e.Branch, e.Expected, e.Actual)
}

// Corruption is raised when a stored object fails to decode or its
// content hash does not match what the tree/commit graph expects. It is
// fatal: callers must not continue as if the read had simply missed.
type Corruption struct {
	Hash plumbing.Hash
	Err  error
}

func (e *Corruption) Error() string {
	return fmt.Sprintf("corrupt object %s: %v", e.Hash, e.Err)
}

func (e *Corruption) Unwrap() error { return e.Err }

// IOFailure wraps an underlying I/O error that did not leave a partial
// commit (the commit object is always written before the ref is moved, so
// a crash between the two yields an unreferenced-but-intact commit, not
// corruption).
type IOFailure struct {
	Op  string
	Err error
}

func (e *IOFailure) Error() string {
	return fmt.Sprintf("object store I/O failure during %s: %v", e.Op, e.Err)
}

func (e *IOFailure) Unwrap() error { return e.Err }
