package wal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeHealthyWithNoPendingEntries(t *testing.T) {
	l := openTestLog(t)
	health, err := Probe(l, time.Minute, time.Now())
	require.NoError(t, err)
	assert.True(t, health.Healthy)
	assert.Equal(t, 0, health.PendingCount)
}

func TestProbeFlagsStaleEntries(t *testing.T) {
	l := openTestLog(t)
	old := time.Now().Add(-time.Hour)
	entry, err := l.Append(OpSave, "user:1", "main", nil, old)
	require.NoError(t, err)

	health, err := Probe(l, time.Minute, time.Now())
	require.NoError(t, err)
	assert.False(t, health.Healthy)
	assert.Equal(t, 1, health.PendingCount)
	assert.Equal(t, 1, health.StaleCount)
	require.Len(t, health.StaleEntries, 1)
	assert.Equal(t, entry.ID, health.StaleEntries[0].ID)
}

func TestProbeIgnoresTerminalEntries(t *testing.T) {
	l := openTestLog(t)
	old := time.Now().Add(-time.Hour)
	entry, err := l.Append(OpSave, "user:1", "main", nil, old)
	require.NoError(t, err)
	_, err = l.Advance(entry, StateCompleted)
	require.NoError(t, err)

	health, err := Probe(l, time.Minute, time.Now())
	require.NoError(t, err)
	assert.True(t, health.Healthy)
	assert.Equal(t, 0, health.PendingCount)
}

func TestProbeHealthyWithinMaxAge(t *testing.T) {
	l := openTestLog(t)
	recent := time.Now().Add(-time.Second)
	_, err := l.Append(OpSave, "user:1", "main", nil, recent)
	require.NoError(t, err)

	health, err := Probe(l, time.Minute, time.Now())
	require.NoError(t, err)
	assert.True(t, health.Healthy)
	assert.Equal(t, 1, health.PendingCount)
	assert.Equal(t, 0, health.StaleCount)
}
