package wal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendPersistsPendingEntry(t *testing.T) {
	l := openTestLog(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	entry, err := l.Append(OpSave, "user:1", "main", []byte(`{"id":"user:1"}`), now)
	require.NoError(t, err)
	assert.Equal(t, StatePending, entry.State)
	assert.Equal(t, uint64(1), entry.Seq)

	entries, err := l.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
}

func TestAppendIncrementsSequence(t *testing.T) {
	l := openTestLog(t)
	now := time.Now()

	a, err := l.Append(OpSave, "user:1", "main", nil, now)
	require.NoError(t, err)
	b, err := l.Append(OpSave, "user:2", "main", nil, now)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), a.Seq)
	assert.Equal(t, uint64(2), b.Seq)
}

func TestAdvanceReplacesEntryFile(t *testing.T) {
	l := openTestLog(t)
	now := time.Now()

	entry, err := l.Append(OpDelete, "user:1", "main", nil, now)
	require.NoError(t, err)

	advanced, err := l.Advance(entry, StateGitCommitted)
	require.NoError(t, err)
	assert.Equal(t, StateGitCommitted, advanced.State)

	entries, err := l.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StateGitCommitted, entries[0].State)
}

func TestTruncateCompletedRemovesOnlyCompletedEntries(t *testing.T) {
	l := openTestLog(t)
	now := time.Now()

	done, err := l.Append(OpSave, "user:1", "main", nil, now)
	require.NoError(t, err)
	done, err = l.Advance(done, StateCompleted)
	require.NoError(t, err)

	pending, err := l.Append(OpSave, "user:2", "main", nil, now)
	require.NoError(t, err)

	n, err := l.TruncateCompleted()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := l.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pending.ID, entries[0].ID)
	_ = done
}

func TestOpenReopenPrimesSequenceFromDisk(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)
	_, err = l.Append(OpSave, "user:1", "main", nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l2, err := Open(dir)
	require.NoError(t, err)
	defer l2.Close()

	entry, err := l2.Append(OpSave, "user:2", "main", nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), entry.Seq)
}

func TestOpenFailsWhenAlreadyLocked(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()

	_, err = Open(dir)
	assert.Error(t, err)
}
