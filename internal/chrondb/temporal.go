package chrondb

import (
	"fmt"
	"time"

	"github.com/chrondb/chrondb/internal/objstore"
	"github.com/chrondb/chrondb/internal/temporal"
	"github.com/chrondb/chrondb/internal/value"
)

// TemporalMode selects which of the four resolution shapes a
// TemporalQuery runs.
type TemporalMode string

const (
	TemporalAsOf     TemporalMode = "AS_OF"
	TemporalBetween  TemporalMode = "BETWEEN"
	TemporalFromTo   TemporalMode = "FROM_TO"
	TemporalVersions TemporalMode = "VERSIONS"
)

// TemporalQuery is one temporal resolution request against branch.
type TemporalQuery struct {
	Mode   TemporalMode
	Branch string
	ID     string // required for Mode == TemporalVersions
	At     string // AS_OF
	From   string // BETWEEN / FROM_TO / VERSIONS
	To     string // BETWEEN / FROM_TO / VERSIONS
}

// TemporalResult carries whichever of Commits/History the query's mode
// populates.
type TemporalResult struct {
	Commits []objstore.CommitMeta
	History []objstore.HistoryEntry
}

// TemporalQuery resolves q against the branch's commit history.
func (e *Engine) TemporalQuery(q TemporalQuery) (TemporalResult, error) {
	switch q.Mode {
	case TemporalAsOf:
		t, err := temporal.ParseTimestamp(q.At)
		if err != nil {
			return TemporalResult{}, err
		}
		commit, ok, err := e.temporal.AsOf(q.Branch, t)
		if err != nil || !ok {
			return TemporalResult{}, err
		}
		return TemporalResult{Commits: []objstore.CommitMeta{commit}}, nil

	case TemporalBetween:
		a, b, err := e.parseRange(q.From, q.To)
		if err != nil {
			return TemporalResult{}, err
		}
		commits, err := e.temporal.Between(q.Branch, a, b)
		if err != nil {
			return TemporalResult{}, err
		}
		return TemporalResult{Commits: commits}, nil

	case TemporalFromTo:
		a, b, err := e.parseRange(q.From, q.To)
		if err != nil {
			return TemporalResult{}, err
		}
		commits, err := e.temporal.FromTo(q.Branch, a, b)
		if err != nil {
			return TemporalResult{}, err
		}
		return TemporalResult{Commits: commits}, nil

	case TemporalVersions:
		a, b, err := e.parseRange(q.From, q.To)
		if err != nil {
			return TemporalResult{}, err
		}
		history, err := e.temporal.Versions(q.Branch, q.ID, a, b)
		if err != nil {
			return TemporalResult{}, err
		}
		return TemporalResult{History: history}, nil

	default:
		return TemporalResult{}, fmt.Errorf("chrondb: unknown temporal mode %q", q.Mode)
	}
}

func (e *Engine) parseRange(from, to string) (time.Time, time.Time, error) {
	a, err := temporal.ParseTimestamp(from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	b, err := temporal.ParseTimestamp(to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return a, b, nil
}

// GetDocumentAt resolves asOf to a commit via AS OF and reads id's
// projection there in one call.
func (e *Engine) GetDocumentAt(branch, id, asOf string) (value.Value, bool, error) {
	t, err := temporal.ParseTimestamp(asOf)
	if err != nil {
		return value.Value{}, false, err
	}
	commit, ok, err := e.temporal.AsOf(branch, t)
	if err != nil || !ok {
		return value.Value{}, false, err
	}
	return e.store.DocumentAt(commit.CommitID, id)
}
