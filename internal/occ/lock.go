package occ

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("chrondb/occ")

var lockWaitMs, _ = meter.Float64Histogram(
	"chrondb.occ.branch_lock_wait_ms",
	metric.WithDescription("time spent waiting to acquire a branch write lock"),
)

// BranchLocks is a monitor-per-branch: writes on the same branch serialize
// through a single mutex, writes on distinct branches proceed independently.
// Cross-process coordination is the WAL directory lock's job, not this
// package's.
type BranchLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewBranchLocks returns an empty lock registry.
func NewBranchLocks() *BranchLocks {
	return &BranchLocks{locks: make(map[string]*sync.Mutex)}
}

func (b *BranchLocks) lockFor(branch string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[branch]
	if !ok {
		l = &sync.Mutex{}
		b.locks[branch] = l
	}
	return l
}

// Acquire blocks until the branch's lock is held, or ctx is done. It
// returns a release function that must be called on every exit path.
func (b *BranchLocks) Acquire(ctx context.Context, branch string) (release func(), err error) {
	start := time.Now()
	l := b.lockFor(branch)

	acquired := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		lockWaitMs.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("branch", branch)))
		return l.Unlock, nil
	case <-ctx.Done():
		// The goroutine above will still acquire the lock eventually and
		// leak it held forever unless we release it once it succeeds.
		go func() { <-acquired; l.Unlock() }()
		return func() {}, ctx.Err()
	}
}
