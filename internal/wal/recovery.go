package wal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("chrondb/wal")

var recoveredEntries, _ = meter.Int64Counter(
	"chrondb.wal.recovered_entries",
	metric.WithDescription("WAL entries processed during crash recovery, by outcome"),
)

// Replayer supplies the side effects recovery drives: re-applying the
// object-store write and the index update for a given entry. The facade in
// internal/chrondb implements this against its own object store and index;
// keeping it as an interface here lets internal/wal be tested without
// either.
type Replayer interface {
	// ReplayObjectStore re-applies entry's SAVE/DELETE against the object
	// store and must be idempotent (recovery may call it on an entry whose
	// object-store write already landed before the crash).
	ReplayObjectStore(entry Entry) error
	// ReplayIndex re-applies entry's effect on the secondary index and must
	// likewise be idempotent.
	ReplayIndex(entry Entry) error
}

// RecoveryResult records the outcome for one entry.
type RecoveryResult struct {
	Entry     Entry
	Recovered bool
	Error     error
}

// Summary is recovery's return value.
type Summary struct {
	Recovered int
	Failed    int
	Entries   []RecoveryResult
	Truncated int
}

// Recover drives every non-terminal entry, in ascending sequence order,
// through the remaining stages of the state machine:
//
//	PENDING         -> replay object store -> GIT_COMMITTED
//	GIT_COMMITTED   -> replay index        -> INDEX_COMMITTED -> COMPLETED
//	INDEX_COMMITTED -> COMPLETED
//
// A failure at any stage marks the entry ROLLED_BACK and recovery
// continues with the next entry. After all entries are processed, every
// COMPLETED entry is truncated.
func Recover(log *Log, replayer Replayer) (Summary, error) {
	entries, err := log.List()
	if err != nil {
		return Summary{}, fmt.Errorf("wal: recover: %w", err)
	}

	var summary Summary
	for _, e := range entries {
		if e.State.IsTerminal() {
			continue
		}

		e, err := recoverOne(log, replayer, e)
		result := RecoveryResult{Entry: e, Error: err}
		outcome := "recovered"
		if err != nil {
			summary.Failed++
			outcome = "failed"
		} else {
			summary.Recovered++
			result.Recovered = true
		}
		recoveredEntries.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("outcome", outcome)))
		summary.Entries = append(summary.Entries, result)
	}

	truncated, err := log.TruncateCompleted()
	if err != nil {
		return summary, fmt.Errorf("wal: recover: %w", err)
	}
	summary.Truncated = truncated

	return summary, nil
}

func recoverOne(log *Log, replayer Replayer, e Entry) (Entry, error) {
	if e.State == StatePending {
		if err := replayer.ReplayObjectStore(e); err != nil {
			return rollBack(log, e)
		}
		advanced, err := log.Advance(e, StateGitCommitted)
		if err != nil {
			return rollBack(log, e)
		}
		e = advanced
	}

	if e.State == StateGitCommitted {
		if err := replayer.ReplayIndex(e); err != nil {
			return rollBack(log, e)
		}
		advanced, err := log.Advance(e, StateIndexCommitted)
		if err != nil {
			return rollBack(log, e)
		}
		e = advanced
	}

	if e.State == StateIndexCommitted {
		advanced, err := log.Advance(e, StateCompleted)
		if err != nil {
			return rollBack(log, e)
		}
		e = advanced
	}

	return e, nil
}

func rollBack(log *Log, e Entry) (Entry, error) {
	rolled, err := log.Advance(e, StateRolledBack)
	if err != nil {
		return e, fmt.Errorf("wal: mark %s rolled back: %w", e.ID, err)
	}
	return rolled, fmt.Errorf("wal: entry %s could not be recovered from state %s", e.ID, e.State)
}
