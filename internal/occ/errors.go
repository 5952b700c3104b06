// Package occ implements optimistic concurrency control: per-document
// version fences, per-branch write serialization, and a bounded
// exponential-backoff retry loop.
package occ

import "fmt"

// VersionConflict is raised by Verify when the expected version no longer
// matches the tracked version for a (document-id, branch) pair.
type VersionConflict struct {
	ID       string
	Branch   string
	Expected uint64
	Actual   uint64
}

func (e *VersionConflict) Error() string {
	return fmt.Sprintf("version conflict on %s@%s: expected %d, actual %d", e.ID, e.Branch, e.Expected, e.Actual)
}
