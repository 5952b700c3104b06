// Package chrondb composes every core subsystem (object store, WAL, OCC,
// secondary index, schema validation, temporal resolver, and transaction
// context) into the Engine facade: the one entry point adapters
// (cmd/chrondb and, eventually, wire protocols) are meant to call.
package chrondb

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/chrondb/chrondb/internal/index"
	"github.com/chrondb/chrondb/internal/objstore"
	"github.com/chrondb/chrondb/internal/occ"
	"github.com/chrondb/chrondb/internal/schema"
	"github.com/chrondb/chrondb/internal/temporal"
	"github.com/chrondb/chrondb/internal/value"
	"github.com/chrondb/chrondb/internal/wal"
)

// Engine is ChronDB's embeddable core. It reads no environment or config
// file itself; every dependency it needs is either a constructor argument
// or an Option.
type Engine struct {
	store    *objstore.Store
	wal      *wal.Log
	versions occ.VersionTracker
	locks    *occ.BranchLocks
	idx      *index.Index
	schemas  *schema.Registry
	temporal *temporal.Resolver
	logger   *slog.Logger

	author objstore.CommitAuthor
	clock  func() time.Time
}

var _ wal.Replayer = (*Engine)(nil)

// Option configures a new Engine.
type Option func(*Engine)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithAuthor sets the commit identity every write is attributed to. The
// default is the "chrondb" system identity; a wire adapter that
// authenticates users would override this per request instead of
// reconstructing an Engine per user.
func WithAuthor(a objstore.CommitAuthor) Option {
	return func(e *Engine) { e.author = a }
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithVersionTracker overrides the in-memory OCC version tracker, e.g.
// with one backed by durable storage.
func WithVersionTracker(t occ.VersionTracker) Option {
	return func(e *Engine) { e.versions = t }
}

// Open opens (initializing if absent) the object store and WAL rooted at
// dataDir, replays any WAL entries left in-flight by a prior crash, and
// rebuilds the in-memory secondary index for every existing branch (the
// index holds no durable state of its own, so every open is effectively a
// "first open" from the index's point of view).
func Open(dataDir string, opts ...Option) (*Engine, error) {
	store, err := objstore.Open(filepath.Join(dataDir, "objects"))
	if err != nil {
		return nil, err
	}
	log, err := wal.Open(filepath.Join(dataDir, "wal"))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:    store,
		wal:      log,
		versions: occ.NewMemoryVersionTracker(),
		locks:    occ.NewBranchLocks(),
		idx:      index.New(),
		schemas:  schema.New(store),
		temporal: temporal.New(store),
		logger:   slog.Default(),
		author:   objstore.CommitAuthor{Name: "chrondb", Email: "chrondb@localhost"},
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	if summary, err := wal.Recover(log, e); err != nil {
		return nil, fmt.Errorf("chrondb: wal recovery: %w", err)
	} else if summary.Failed > 0 {
		e.logger.Warn("chrondb: wal recovery left entries rolled back",
			"recovered", summary.Recovered, "failed", summary.Failed)
	}

	if err := e.rebuildAllBranches(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Engine) rebuildAllBranches() error {
	branches, err := e.store.ListBranches()
	if err != nil {
		return fmt.Errorf("chrondb: list branches: %w", err)
	}
	for _, b := range branches {
		branch := b
		err := e.idx.Rebuild(branch, func() ([]value.Value, error) {
			return e.store.GetByPrefix(branch, "")
		})
		if err != nil {
			return fmt.Errorf("chrondb: rebuild index for %q: %w", branch, err)
		}
	}
	return nil
}

// Close releases the WAL directory lock. Neither the object store nor the
// in-memory index hold any OS resource of their own.
func (e *Engine) Close() error {
	return e.wal.Close()
}

func (e *Engine) now() time.Time { return e.clock() }

// ReplayObjectStore implements wal.Replayer by re-applying a recovered
// SAVE/DELETE directly against the object store.
func (e *Engine) ReplayObjectStore(entry wal.Entry) error {
	switch entry.Operation {
	case wal.OpSave:
		doc, err := value.FromJSON(entry.Content)
		if err != nil {
			return fmt.Errorf("chrondb: decode wal entry %s content: %w", entry.ID, err)
		}
		_, err = e.store.PutDocument(entry.Branch, doc, e.author, "wal recovery: save "+entry.DocumentID, entry.CreatedAt)
		return err
	case wal.OpDelete:
		_, err := e.store.DeleteDocument(entry.Branch, entry.DocumentID, e.author, "wal recovery: delete "+entry.DocumentID, entry.CreatedAt)
		return err
	default:
		return fmt.Errorf("chrondb: wal entry %s has unknown operation %q", entry.ID, entry.Operation)
	}
}

// ReplayIndex implements wal.Replayer by re-applying a recovered
// SAVE/DELETE's effect on the secondary index.
func (e *Engine) ReplayIndex(entry wal.Entry) error {
	switch entry.Operation {
	case wal.OpSave:
		doc, err := value.FromJSON(entry.Content)
		if err != nil {
			return fmt.Errorf("chrondb: decode wal entry %s content: %w", entry.ID, err)
		}
		return e.idx.Index(doc, entry.Branch)
	case wal.OpDelete:
		e.idx.Delete(entry.DocumentID, entry.Branch)
		return nil
	default:
		return fmt.Errorf("chrondb: wal entry %s has unknown operation %q", entry.ID, entry.Operation)
	}
}

// Health reports on the WAL's in-flight entries.
func (e *Engine) Health(maxPendingAge time.Duration) (wal.Health, error) {
	return wal.Probe(e.wal, maxPendingAge, e.now())
}

// Compact reports every object unreachable from a branch or notes ref,
// without deleting anything.
func (e *Engine) Compact() ([]string, error) {
	hashes, err := e.store.Compact()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.String()
	}
	return out, nil
}

// CreateBranch creates name from fromRef (a branch name or commit id).
func (e *Engine) CreateBranch(name, fromRef string) error {
	return e.store.CreateBranch(name, fromRef)
}

// DeleteBranch deletes a branch ref and clears that branch's postings from
// the index, so a subsequent query against the deleted branch finds nothing.
func (e *Engine) DeleteBranch(name string) error {
	if err := e.store.DeleteBranch(name); err != nil {
		return err
	}
	return e.idx.Rebuild(name, func() ([]value.Value, error) { return nil, nil })
}

// ListBranches returns every branch name.
func (e *Engine) ListBranches() ([]string, error) {
	return e.store.ListBranches()
}
