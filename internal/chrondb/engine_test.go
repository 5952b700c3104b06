package chrondb

import (
	"context"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrondb/chrondb/internal/index"
	"github.com/chrondb/chrondb/internal/occ"
	"github.com/chrondb/chrondb/internal/schema"
	"github.com/chrondb/chrondb/internal/temporal"
	"github.com/chrondb/chrondb/internal/txctx"
	"github.com/chrondb/chrondb/internal/value"
	"github.com/chrondb/chrondb/internal/wal"
)

// fakeClock hands out strictly increasing timestamps so commit times are
// deterministic and distinct within a test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *fakeClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func openTestEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	eng, err := Open(dir, WithClock(newFakeClock().Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func doc(id string, fields map[string]value.Value) value.Value {
	m := map[string]value.Value{"id": value.String(id)}
	for k, v := range fields {
		m[k] = v
	}
	return value.Map(m)
}

func tctx() txctx.Context {
	return txctx.New("tx-test").WithOrigin("test")
}

func TestSaveGetDeleteHistory(t *testing.T) {
	eng := openTestEngine(t, t.TempDir())
	ctx := context.Background()

	alice := doc("user:1", map[string]value.Value{
		"_table": value.String("user"),
		"name":   value.String("Alice"),
	})
	saved, err := eng.Save(ctx, "main", alice, tctx(), nil)
	require.NoError(t, err)
	assert.True(t, value.Equal(alice, saved.Document))
	assert.NotEmpty(t, saved.CommitID)
	assert.Equal(t, uint64(1), saved.Version)

	got, ok, err := eng.Get("main", "user:1", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, value.Equal(alice, got))

	updated := doc("user:1", map[string]value.Value{
		"_table": value.String("user"),
		"name":   value.String("Alice"),
		"age":    value.Int(30),
	})
	saved2, err := eng.Save(ctx, "main", updated, tctx(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), saved2.Version)

	got, ok, err = eng.Get("main", "user:1", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, value.Equal(updated, got))

	history, err := eng.History("main", "user:1", "", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Newest first; the two commit times must be distinct and ordered.
	assert.True(t, history[0].Timestamp.After(history[1].Timestamp))
	require.NotNil(t, history[0].Document)
	assert.True(t, value.Equal(updated, *history[0].Document))

	del, err := eng.Delete(ctx, "main", "user:1", tctx(), nil)
	require.NoError(t, err)
	assert.True(t, del.Existed)

	_, ok, err = eng.Get("main", "user:1", "")
	require.NoError(t, err)
	assert.False(t, ok)

	history, err = eng.History("main", "user:1", "", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Nil(t, history[0].Document)
}

func TestDeleteAbsentDocumentReportsNotExisted(t *testing.T) {
	eng := openTestEngine(t, t.TempDir())
	del, err := eng.Delete(context.Background(), "main", "user:none", tctx(), nil)
	require.NoError(t, err)
	assert.False(t, del.Existed)
}

func TestVersionConflictSurfacesAndRetrySucceeds(t *testing.T) {
	eng := openTestEngine(t, t.TempDir())
	ctx := context.Background()

	cfgDoc := doc("cfg:app", map[string]value.Value{"setting": value.String("a")})
	first, err := eng.Save(ctx, "main", cfgDoc, tctx(), nil)
	require.NoError(t, err)
	base := first.Version

	// Writer one advances the version.
	_, err = eng.Save(ctx, "main", cfgDoc.With("setting", value.String("b")), tctx(), &base)
	require.NoError(t, err)

	// Writer two still holds the old fence and must observe the conflict.
	_, err = eng.Save(ctx, "main", cfgDoc.With("setting", value.String("c")), tctx(), &base)
	var conflict *occ.VersionConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, base, conflict.Expected)
	assert.Equal(t, base+1, conflict.Actual)

	// The retry composition re-reads and lands on the next version.
	result, err := eng.SaveWithRetry(ctx, "main", "cfg:app", tctx(),
		func(current value.Value, exists bool) (value.Value, error) {
			require.True(t, exists)
			return current.With("setting", value.String("c")), nil
		}, occ.DefaultRetryConfig())
	require.NoError(t, err)
	assert.Equal(t, base+2, result.Version)

	got, ok, err := eng.Get("main", "cfg:app", "")
	require.NoError(t, err)
	require.True(t, ok)
	setting, _ := got.Get("setting")
	s, _ := setting.AsString()
	assert.Equal(t, "c", s)
}

func TestConcurrentWritersBothLandWithRetry(t *testing.T) {
	eng := openTestEngine(t, t.TempDir())
	ctx := context.Background()

	counter := doc("cfg:counter", map[string]value.Value{"n": value.Int(0)})
	_, err := eng.Save(ctx, "main", counter, tctx(), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.SaveWithRetry(ctx, "main", "cfg:counter", tctx(),
				func(current value.Value, exists bool) (value.Value, error) {
					n, _ := mustGetInt(current, "n")
					return current.With("n", value.Int(n+1)), nil
				}, occ.DefaultRetryConfig())
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	got, _, err := eng.Get("main", "cfg:counter", "")
	require.NoError(t, err)
	n, ok := mustGetInt(got, "n")
	require.True(t, ok)
	assert.Equal(t, int64(2), n)
}

func mustGetInt(doc value.Value, key string) (int64, bool) {
	v, ok := doc.Get(key)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

func TestCrashRecoveryReplaysPendingEntry(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	eng, err := Open(dir)
	require.NoError(t, err)
	_, err = eng.Save(ctx, "main", doc("user:1", map[string]value.Value{
		"name": value.String("first"),
	}), tctx(), nil)
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	// Simulate a crash after the WAL recorded the intent but before the
	// object store was touched: append a PENDING entry by hand.
	pending := doc("user:2", map[string]value.Value{
		"_table": value.String("user"),
		"name":   value.String("recovered"),
	})
	log, err := wal.Open(filepath.Join(dir, "wal"))
	require.NoError(t, err)
	_, err = log.Append(wal.OpSave, "user:2", "main", value.Canonical(pending), time.Now())
	require.NoError(t, err)
	require.NoError(t, log.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get("main", "user:2", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, value.Equal(pending, got))

	// The replayed write is searchable without an explicit reindex.
	ids := reopened.Search("name", "recovered", "main")
	assert.Contains(t, ids, "user:2")

	// Recovery truncated everything; the log is healthy and empty.
	health, err := reopened.Health(time.Minute)
	require.NoError(t, err)
	assert.True(t, health.Healthy)
	assert.Zero(t, health.PendingCount)
}

func TestRolledBackWriteLeavesNoPartialState(t *testing.T) {
	eng := openTestEngine(t, t.TempDir())
	ctx := context.Background()

	// Install a strict schema so the write fails mid-pipeline, after the
	// WAL append but before the object store commit.
	schemaDoc, err := value.FromJSON([]byte(`{"type":"object","required":["email"]}`))
	require.NoError(t, err)
	require.NoError(t, eng.PutSchema("main", schema.Record{
		Namespace: "users",
		Version:   1,
		Mode:      schema.Strict,
		Schema:    schemaDoc,
		CreatedAt: time.Now(),
		CreatedBy: "test",
	}))

	_, err = eng.Save(ctx, "main", doc("users:7", map[string]value.Value{
		"_table": value.String("users"),
		"name":   value.String("no-email"),
	}), tctx(), nil)
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)

	// Not in the store, not in the index.
	_, ok, err := eng.Get("main", "users:7", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, eng.Search("name", "no-email", "main"))
}

func TestTemporalAsOfResolvesEarlierCommit(t *testing.T) {
	clock := newFakeClock()
	eng, err := Open(t.TempDir(), WithClock(clock.Now))
	require.NoError(t, err)
	defer eng.Close()
	ctx := context.Background()

	v1 := doc("cfg:app", map[string]value.Value{"version": value.String("1.0")})
	first, err := eng.Save(ctx, "main", v1, tctx(), nil)
	require.NoError(t, err)
	between := clock.Now() // strictly after C1, before C2

	v2 := doc("cfg:app", map[string]value.Value{"version": value.String("2.0")})
	second, err := eng.Save(ctx, "main", v2, tctx(), nil)
	require.NoError(t, err)
	require.NotEqual(t, first.CommitID, second.CommitID)

	// Direct read at C1.
	got, ok, err := eng.Get("main", "cfg:app", first.CommitID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, value.Equal(v1, got))

	// AS OF a timestamp between the two commits resolves to C1.
	result, err := eng.TemporalQuery(TemporalQuery{
		Mode:   TemporalAsOf,
		Branch: "main",
		At:     between.Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Len(t, result.Commits, 1)
	assert.Equal(t, first.CommitID, result.Commits[0].CommitID)

	// And the one-call read surface agrees.
	got, ok, err = eng.GetDocumentAt("main", "cfg:app", between.Format(time.RFC3339))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, value.Equal(v1, got))
}

func TestTemporalVersionsFiltersDocumentHistory(t *testing.T) {
	clock := newFakeClock()
	eng, err := Open(t.TempDir(), WithClock(clock.Now))
	require.NoError(t, err)
	defer eng.Close()
	ctx := context.Background()

	start := clock.Peek()
	for _, v := range []string{"1", "2", "3"} {
		_, err := eng.Save(ctx, "main", doc("cfg:app", map[string]value.Value{
			"rev": value.String(v),
		}), tctx(), nil)
		require.NoError(t, err)
	}
	end := clock.Now()

	result, err := eng.TemporalQuery(TemporalQuery{
		Mode:   TemporalVersions,
		Branch: "main",
		ID:     "cfg:app",
		From:   start.Format(time.RFC3339),
		To:     end.Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Len(t, result.History, 3)
	// Oldest first.
	assert.True(t, result.History[0].Timestamp.Before(result.History[2].Timestamp))
}

func TestBundleExportImportRoundTrips(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	ctx := context.Background()

	srcDir := t.TempDir()
	src, err := Open(srcDir)
	require.NoError(t, err)

	for _, name := range []string{"a", "b", "c"} {
		_, err := src.Save(ctx, "main", doc("user:"+name, map[string]value.Value{
			"name": value.String(name),
		}), tctx(), nil)
		require.NoError(t, err)
	}
	require.NoError(t, src.CreateBranch("dev", "main"))
	for _, name := range []string{"d", "e"} {
		_, err := src.Save(ctx, "dev", doc("user:"+name, map[string]value.Value{
			"name": value.String(name),
		}), tctx(), nil)
		require.NoError(t, err)
	}

	bundlePath := filepath.Join(t.TempDir(), "all.bundle")
	manifest, err := src.ExportBundle(ctx, bundlePath, []string{"main", "dev"}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, manifest.SHA256)
	assert.ElementsMatch(t, []string{"main", "dev"}, manifest.Refs)

	srcMain, err := src.BranchCommits("main")
	require.NoError(t, err)
	srcDev, err := src.BranchCommits("dev")
	require.NoError(t, err)
	require.NoError(t, src.Close())

	dst, err := Open(t.TempDir())
	require.NoError(t, err)
	defer dst.Close()
	_, err = dst.ImportBundle(ctx, bundlePath)
	require.NoError(t, err)

	dstMain, err := dst.BranchCommits("main")
	require.NoError(t, err)
	dstDev, err := dst.BranchCommits("dev")
	require.NoError(t, err)
	assert.Equal(t, srcMain, dstMain)
	assert.Equal(t, srcDev, dstDev)

	// Imported documents are queryable: the import rebuilt the index.
	ids := dst.Search("name", "d", "dev")
	assert.Contains(t, ids, "user:d")
}

func TestStrictSchemaThenWarningMode(t *testing.T) {
	eng := openTestEngine(t, t.TempDir())
	ctx := context.Background()

	schemaDoc, err := value.FromJSON([]byte(`{"type":"object","required":["email"]}`))
	require.NoError(t, err)
	put := func(version int64, mode schema.Mode) {
		require.NoError(t, eng.PutSchema("main", schema.Record{
			Namespace: "users",
			Version:   version,
			Mode:      mode,
			Schema:    schemaDoc,
			CreatedAt: time.Now(),
			CreatedBy: "test",
		}))
	}
	put(1, schema.Strict)

	noEmail := doc("users:7", map[string]value.Value{
		"_table": value.String("users"),
		"name":   value.String("no-email"),
	})
	_, err = eng.Save(ctx, "main", noEmail, tctx(), nil)
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "users", verr.Namespace)
	assert.NotEmpty(t, verr.Violations)

	withEmail := noEmail.With("email", value.String("x@y"))
	_, err = eng.Save(ctx, "main", withEmail, tctx(), nil)
	require.NoError(t, err)

	// Downgrade to warning: the invalid write is now allowed through.
	put(2, schema.Warning)
	_, err = eng.Save(ctx, "main", doc("users:8", map[string]value.Value{
		"_table": value.String("users"),
		"name":   value.String("still-no-email"),
	}), tctx(), nil)
	require.NoError(t, err)
}

func TestQueryAfterWritesSeesIndexUpdates(t *testing.T) {
	eng := openTestEngine(t, t.TempDir())
	ctx := context.Background()

	for i, name := range []string{"ada", "alan", "grace"} {
		_, err := eng.Save(ctx, "main", doc("user:"+name, map[string]value.Value{
			"_table": value.String("user"),
			"name":   value.String(name),
			"rank":   value.Int(int64(i)),
		}), tctx(), nil)
		require.NoError(t, err)
	}

	result, err := eng.Query(&index.Query{
		Clauses: []index.Node{index.Wildcard("name", "a*")},
		Branch:  "main",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user:ada", "user:alan"}, result.IDs)

	// A deletion disappears from the index before Delete returns.
	_, err = eng.Delete(ctx, "main", "user:alan", tctx(), nil)
	require.NoError(t, err)
	result, err = eng.Query(&index.Query{
		Clauses: []index.Node{index.Wildcard("name", "a*")},
		Branch:  "main",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user:ada"}, result.IDs)
}

func TestDiffBetweenCommits(t *testing.T) {
	eng := openTestEngine(t, t.TempDir())
	ctx := context.Background()

	first, err := eng.Save(ctx, "main", doc("user:1", map[string]value.Value{
		"name": value.String("Alice"),
		"city": value.String("Lisbon"),
	}), tctx(), nil)
	require.NoError(t, err)

	second, err := eng.Save(ctx, "main", doc("user:1", map[string]value.Value{
		"name": value.String("Alice"),
		"age":  value.Int(30),
	}), tctx(), nil)
	require.NoError(t, err)

	diff, err := eng.Diff("user:1", first.CommitID, second.CommitID)
	require.NoError(t, err)
	assert.Equal(t, []string{"age"}, diff.Added)
	assert.Equal(t, []string{"city"}, diff.Removed)
	assert.Empty(t, diff.Changed)

	third, err := eng.Save(ctx, "main", doc("user:1", map[string]value.Value{
		"name": value.String("Alicia"),
		"age":  value.Int(30),
	}), tctx(), nil)
	require.NoError(t, err)

	diff, err = eng.Diff("user:1", second.CommitID, third.CommitID)
	require.NoError(t, err)
	require.Contains(t, diff.Changed, "name")
	assert.Equal(t, `"Alice"`, diff.Changed["name"].Old)
	assert.Equal(t, `"Alicia"`, diff.Changed["name"].New)
}

func TestCommitNotesCarryTransactionContext(t *testing.T) {
	eng := openTestEngine(t, t.TempDir())
	ctx := context.Background()

	tc := txctx.New("tx-42").WithOrigin("test").WithUser("carol").WithFlag("bulk")
	saved, err := eng.Save(ctx, "main", doc("user:1", map[string]value.Value{
		"name": value.String("Alice"),
	}), tc, nil)
	require.NoError(t, err)

	note, ok, err := eng.CommitNote(saved.CommitID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tx-42", note.TxID)
	assert.Equal(t, "carol", note.User)
	assert.Contains(t, note.Flags, "bulk")
}

func TestSecondProcessCannotOpenSameWAL(t *testing.T) {
	dir := t.TempDir()
	eng, err := Open(dir)
	require.NoError(t, err)
	defer eng.Close()

	_, err = wal.Open(filepath.Join(dir, "wal"))
	require.Error(t, err)
}

func TestGetByPrefixAndTable(t *testing.T) {
	eng := openTestEngine(t, t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"user:1", "user:2", "order:1"} {
		_, err := eng.Save(ctx, "main", doc(id, nil), tctx(), nil)
		require.NoError(t, err)
	}

	users, err := eng.GetByPrefix("main", "user:")
	require.NoError(t, err)
	require.Len(t, users, 2)

	orders, err := eng.GetByTable("main", "order")
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestInvalidTimestampSurfaces(t *testing.T) {
	eng := openTestEngine(t, t.TempDir())
	_, err := eng.TemporalQuery(TemporalQuery{
		Mode:   TemporalAsOf,
		Branch: "main",
		At:     "not-a-timestamp",
	})
	var invalid *temporal.InvalidTimestamp
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "not-a-timestamp", invalid.Input)
}
