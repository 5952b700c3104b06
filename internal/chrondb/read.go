package chrondb

import (
	"github.com/chrondb/chrondb/internal/index"
	"github.com/chrondb/chrondb/internal/objstore"
	"github.com/chrondb/chrondb/internal/txctx"
	"github.com/chrondb/chrondb/internal/value"
)

// Get returns id's current state on branch, or its state as of atCommit
// when atCommit is non-empty. Absence is a legitimate result: the bool
// says whether the document exists, not whether the call failed.
func (e *Engine) Get(branch, id, atCommit string) (value.Value, bool, error) {
	if atCommit != "" {
		return e.store.DocumentAt(atCommit, id)
	}
	return e.store.GetDocument(branch, id, nil)
}

// GetByPrefix returns every document on branch whose id starts with prefix.
func (e *Engine) GetByPrefix(branch, prefix string) ([]value.Value, error) {
	return e.store.GetByPrefix(branch, prefix)
}

// GetByTable returns every document stored under table on branch.
func (e *Engine) GetByTable(branch, table string) ([]value.Value, error) {
	return e.store.GetByTable(branch, table)
}

// History returns id's commit history on branch (most recent first),
// optionally resuming after a given commit id (that commit itself is not
// returned) and capped at limit entries.
func (e *Engine) History(branch, id, since string, limit int) ([]objstore.HistoryEntry, error) {
	return e.store.History(branch, id, since, limit)
}

// BranchCommits returns branch's full commit log, most recent first.
func (e *Engine) BranchCommits(branch string) ([]objstore.CommitMeta, error) {
	return e.store.BranchCommits(branch)
}

// Query runs q against the secondary index.
func (e *Engine) Query(q *index.Query) (index.Result, error) {
	return e.idx.SearchQuery(q)
}

// Search is the single-field convenience form of Query.
func (e *Engine) Search(field, query, branch string) []string {
	return e.idx.Search(field, query, branch)
}

// CommitNote returns the transaction-context note attached to a commit,
// if any.
func (e *Engine) CommitNote(commitID string) (txctx.Note, bool, error) {
	data, ok, err := e.store.GetNote(commitID)
	if err != nil || !ok {
		return txctx.Note{}, false, err
	}
	note, err := txctx.UnmarshalNote(data)
	if err != nil {
		return txctx.Note{}, false, err
	}
	return note, true, nil
}
