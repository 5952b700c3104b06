package temporal

import (
	"strconv"
	"time"

	"github.com/chrondb/chrondb/internal/objstore"
	"github.com/chrondb/chrondb/internal/value"
)

// Resolver maps temporal predicates onto a store's branch/document commit
// history.
type Resolver struct {
	store *objstore.Store
}

// New builds a Resolver backed by store.
func New(store *objstore.Store) *Resolver {
	return &Resolver{store: store}
}

// AsOf returns the latest commit on branch with commit_time <= t. The
// second return value is false if branch has no such commit (including an
// empty branch).
func (r *Resolver) AsOf(branch string, t time.Time) (objstore.CommitMeta, bool, error) {
	commits, err := r.store.BranchCommits(branch)
	if err != nil {
		return objstore.CommitMeta{}, false, err
	}
	for _, c := range commits { // newest first
		if !c.Timestamp.After(t) {
			return c, true, nil
		}
	}
	return objstore.CommitMeta{}, false, nil
}

// Between returns branch's commits with a <= commit_time <= b (bounds
// inclusive), oldest first.
func (r *Resolver) Between(branch string, a, b time.Time) ([]objstore.CommitMeta, error) {
	return r.rangeCommits(branch, a, b, true, true)
}

// FromTo returns branch's commits in the half-open range [a, b).
func (r *Resolver) FromTo(branch string, a, b time.Time) ([]objstore.CommitMeta, error) {
	return r.rangeCommits(branch, a, b, true, false)
}

func (r *Resolver) rangeCommits(branch string, a, b time.Time, includeLo, includeHi bool) ([]objstore.CommitMeta, error) {
	commits, err := r.store.BranchCommits(branch)
	if err != nil {
		return nil, err
	}
	var out []objstore.CommitMeta
	for _, c := range commits {
		if !withinBound(c.Timestamp, a, b, includeLo, includeHi) {
			continue
		}
		out = append(out, c)
	}
	reverseCommits(out) // oldest first
	return out, nil
}

func withinBound(t, lo, hi time.Time, includeLo, includeHi bool) bool {
	loOK := t.After(lo) || (includeLo && t.Equal(lo))
	hiOK := t.Before(hi) || (includeHi && t.Equal(hi))
	return loOK && hiOK
}

func reverseCommits(cs []objstore.CommitMeta) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}

// Versions returns id's history entries on branch with a <= commit_time
// <= b, oldest first. Unlike Between this filters document history, not
// branch history.
func (r *Resolver) Versions(branch, id string, a, b time.Time) ([]objstore.HistoryEntry, error) {
	all, err := r.store.History(branch, id, "", 0)
	if err != nil {
		return nil, err
	}
	var out []objstore.HistoryEntry
	for _, e := range all {
		if withinBound(e.Timestamp, a, b, true, true) {
			out = append(out, e)
		}
	}
	reverseHistory(out)
	return out, nil
}

func reverseHistory(es []objstore.HistoryEntry) {
	for i, j := 0, len(es)-1; i < j; i, j = i+1, j-1 {
		es[i], es[j] = es[j], es[i]
	}
}

// DocumentValidAt reports whether doc's valid-time window covers t:
// (_valid_from <= t or absent) and (t < _valid_to or absent).
func DocumentValidAt(doc value.Value, t time.Time) bool {
	if from, ok := value.ValidFrom(doc); ok {
		ft, err := valueTime(from)
		if err == nil && t.Before(ft) {
			return false
		}
	}
	if to, ok := value.ValidTo(doc); ok {
		tt, err := valueTime(to)
		if err == nil && !t.Before(tt) {
			return false
		}
	}
	return true
}

func valueTime(v value.Value) (time.Time, error) {
	if s, ok := v.AsString(); ok {
		return ParseTimestamp(s)
	}
	if i, ok := v.AsInt(); ok {
		return ParseTimestamp(strconv.FormatInt(i, 10))
	}
	return time.Time{}, &InvalidTimestamp{Input: v.String()}
}
