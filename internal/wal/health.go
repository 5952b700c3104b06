package wal

import "time"

// Health is the result of a health probe.
type Health struct {
	Healthy      bool
	PendingCount int
	StaleCount   int
	StaleEntries []Entry
}

// Probe reports on non-terminal WAL entries. An entry is stale once its
// age exceeds maxPendingAge; any stale entry makes the log unhealthy.
func Probe(log *Log, maxPendingAge time.Duration, now time.Time) (Health, error) {
	entries, err := log.List()
	if err != nil {
		return Health{}, err
	}

	health := Health{Healthy: true}
	for _, e := range entries {
		if e.State.IsTerminal() {
			continue
		}
		health.PendingCount++
		if now.Sub(e.CreatedAt) > maxPendingAge {
			health.StaleCount++
			health.StaleEntries = append(health.StaleEntries, e)
			health.Healthy = false
		}
	}
	return health, nil
}
