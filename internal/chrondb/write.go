package chrondb

import (
	"context"
	"fmt"
	"time"

	"github.com/chrondb/chrondb/internal/occ"
	"github.com/chrondb/chrondb/internal/txctx"
	"github.com/chrondb/chrondb/internal/value"
	"github.com/chrondb/chrondb/internal/wal"
)

// SaveResult is Save's return value.
type SaveResult struct {
	Document value.Value
	CommitID string
	Version  uint64
}

// Save runs the write pipeline for a single attempt: append a
// PENDING WAL entry, acquire the branch lock, verify the OCC version (if
// expectedVersion is non-nil), validate against the namespace's schema,
// commit to the object store annotated with a note built from tctx,
// advance the WAL through GIT_COMMITTED and INDEX_COMMITTED to COMPLETED
// while updating the secondary index, and finally bump the document's OCC
// version. Any failure between the WAL append and COMPLETED marks the
// entry ROLLED_BACK and the error propagates; expectedVersion nil means
// an unconditional write.
func (e *Engine) Save(ctx context.Context, branch string, doc value.Value, tctx txctx.Context, expectedVersion *uint64) (SaveResult, error) {
	id, err := value.RequireID(doc)
	if err != nil {
		return SaveResult{}, err
	}
	now := e.now()
	content := value.Canonical(doc)

	entry, err := e.wal.Append(wal.OpSave, id, branch, content, now)
	if err != nil {
		return SaveResult{}, fmt.Errorf("chrondb: append wal entry: %w", err)
	}

	saved, _, err := e.runWrite(ctx, branch, id, expectedVersion, entry, wal.OpSave, func() (value.Value, bool, error) {
		if verr := e.schemas.ValidateIfEnabled(branch, doc, e.logger); verr != nil {
			return value.Value{}, false, verr
		}
		stored, werr := e.store.PutDocument(branch, doc, e.author, "save "+id, now)
		if werr != nil {
			return value.Value{}, false, werr
		}
		if nerr := e.annotateCommit(branch, tctx, now); nerr != nil {
			return value.Value{}, false, nerr
		}
		return stored, true, nil
	})
	if err != nil {
		return SaveResult{}, err
	}

	commitID, err := e.store.Head(branch)
	if err != nil {
		return SaveResult{}, err
	}
	return SaveResult{Document: saved, CommitID: commitID, Version: e.versions.Get(id, branch)}, nil
}

// DeleteResult is Delete's return value.
type DeleteResult struct {
	Existed bool
	Version uint64
}

// Delete runs the same pipeline as Save for a DELETE entry. If the
// document did not exist, the object store makes no commit and Delete
// skips the index update and version bump, returning Existed: false.
func (e *Engine) Delete(ctx context.Context, branch, id string, tctx txctx.Context, expectedVersion *uint64) (DeleteResult, error) {
	now := e.now()
	entry, err := e.wal.Append(wal.OpDelete, id, branch, nil, now)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("chrondb: append wal entry: %w", err)
	}

	_, existed, err := e.runWrite(ctx, branch, id, expectedVersion, entry, wal.OpDelete, func() (value.Value, bool, error) {
		ok, derr := e.store.DeleteDocument(branch, id, e.author, "delete "+id, now)
		if derr != nil {
			return value.Value{}, false, derr
		}
		if ok {
			if nerr := e.annotateCommit(branch, tctx, now); nerr != nil {
				return value.Value{}, false, nerr
			}
		}
		return value.Value{}, ok, nil
	})
	if err != nil {
		return DeleteResult{}, err
	}

	return DeleteResult{Existed: existed, Version: e.versions.Get(id, branch)}, nil
}

// runWrite is the pipeline shared by Save and Delete: acquire the branch
// lock, optionally verify the OCC version, run mutate (the object-store
// write itself, plus its note annotation), advance the WAL through
// GIT_COMMITTED/INDEX_COMMITTED/COMPLETED, update the index, and bump the
// version — all guarded so any failure rolls the WAL entry back. mutate's
// bool return says whether anything actually changed (Save: always;
// Delete: only if the document existed); the index update and version
// bump are skipped when it didn't.
func (e *Engine) runWrite(
	ctx context.Context,
	branch, id string,
	expectedVersion *uint64,
	entry wal.Entry,
	op wal.Operation,
	mutate func() (value.Value, bool, error),
) (value.Value, bool, error) {
	release, err := e.locks.Acquire(ctx, branch)
	if err != nil {
		e.rollback(entry)
		return value.Value{}, false, err
	}
	defer release()

	if expectedVersion != nil {
		if verr := occ.Verify(e.versions, id, branch, *expectedVersion); verr != nil {
			e.rollback(entry)
			return value.Value{}, false, verr
		}
	}

	result, mutated, err := mutate()
	if err != nil {
		e.rollback(entry)
		return value.Value{}, false, err
	}

	gitCommitted, err := e.wal.Advance(entry, wal.StateGitCommitted)
	if err != nil {
		e.rollback(entry)
		return value.Value{}, false, fmt.Errorf("chrondb: advance wal to git_committed: %w", err)
	}

	if mutated {
		if err := e.applyIndex(op, id, branch, result); err != nil {
			e.rollback(gitCommitted)
			return value.Value{}, false, err
		}
	}

	indexCommitted, err := e.wal.Advance(gitCommitted, wal.StateIndexCommitted)
	if err != nil {
		e.rollback(gitCommitted)
		return value.Value{}, false, fmt.Errorf("chrondb: advance wal to index_committed: %w", err)
	}
	if _, err := e.wal.Advance(indexCommitted, wal.StateCompleted); err != nil {
		return value.Value{}, false, fmt.Errorf("chrondb: advance wal to completed: %w", err)
	}

	if mutated {
		e.versions.Increment(id, branch)
	}
	return result, mutated, nil
}

func (e *Engine) applyIndex(op wal.Operation, id, branch string, doc value.Value) error {
	if op == wal.OpDelete {
		e.idx.Delete(id, branch)
		return nil
	}
	return e.idx.Index(doc, branch)
}

func (e *Engine) rollback(entry wal.Entry) {
	if _, err := e.wal.Advance(entry, wal.StateRolledBack); err != nil {
		e.logger.Error("chrondb: failed to mark wal entry rolled back", "entry", entry.ID, "err", err)
	}
}

// annotateCommit attaches tctx's transaction-context note to branch's
// current head commit (the one the write that just landed produced). This
// relies on still holding the branch lock: objstore.Head is safe to call
// immediately after a write only while the caller serializes writers on
// that branch itself (see Store.Head's doc comment).
func (e *Engine) annotateCommit(branch string, tctx txctx.Context, now time.Time) error {
	commitID, err := e.store.Head(branch)
	if err != nil {
		return err
	}
	if commitID == "" {
		return nil
	}
	note := txctx.NoteFor(tctx)
	data, err := note.Marshal()
	if err != nil {
		return fmt.Errorf("chrondb: marshal commit note: %w", err)
	}
	return e.store.SetNote(commitID, data, mergeNoteBytes, now)
}

func mergeNoteBytes(prevData, nextData []byte) []byte {
	prev, errPrev := txctx.UnmarshalNote(prevData)
	next, errNext := txctx.UnmarshalNote(nextData)
	if errPrev != nil || errNext != nil {
		return nextData
	}
	merged := txctx.MergeNotes(prev, next)
	out, err := merged.Marshal()
	if err != nil {
		return nextData
	}
	return out
}

// SaveWithRetry is the read-mutate-write composition most callers want:
// on each attempt it re-reads the document's
// current state and OCC version, lets mutate compute the next document
// from that fresh read, and Saves with the version it just observed as
// the expected fence. A VersionConflict from a concurrent writer drives
// internal/occ's backoff schedule and another attempt with a fresh read,
// rather than blindly resending the same expected version.
func (e *Engine) SaveWithRetry(
	ctx context.Context,
	branch, id string,
	tctx txctx.Context,
	mutate func(current value.Value, exists bool) (value.Value, error),
	cfg occ.RetryConfig,
) (SaveResult, error) {
	var result SaveResult
	err := occ.WithOCCRetry(func() error {
		current, exists, err := e.store.GetDocument(branch, id, nil)
		if err != nil {
			return err
		}
		version := e.versions.Get(id, branch)

		next, err := mutate(current, exists)
		if err != nil {
			return err
		}

		saved, err := e.Save(ctx, branch, next, tctx, &version)
		if err != nil {
			return err
		}
		result = saved
		return nil
	}, cfg)
	return result, err
}
