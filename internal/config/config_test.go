package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, ".chrondb", cfg.DataDir)
	assert.Equal(t, "main", cfg.DefaultBranch)
	assert.Equal(t, 3, cfg.OCC.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.MaxPendingAge())
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chrondb.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "/var/lib/chrondb"

[author]
name = "deploy"
email = "deploy@example.com"

[occ]
max_retries = 5

[wal]
max_pending_age = "90s"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/chrondb", cfg.DataDir)
	assert.Equal(t, "main", cfg.DefaultBranch)
	assert.Equal(t, "deploy", cfg.Author.Name)
	assert.Equal(t, 5, cfg.OCC.MaxRetries)
	// Untouched [occ] keys keep their defaults.
	assert.Equal(t, 1000, cfg.OCC.CapMs)
	assert.Equal(t, 90*time.Second, cfg.MaxPendingAge())
}

func TestLoadRejectsEmptyDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chrondb.toml")
	require.NoError(t, os.WriteFile(path, []byte(`data_dir = ""`), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestRetryConfigConversion(t *testing.T) {
	cfg := Default()
	rc := cfg.RetryConfig()
	assert.Equal(t, 10*time.Millisecond, rc.Base)
	assert.Equal(t, time.Second, rc.Cap)
	assert.Equal(t, 2.0, rc.Mult)
	assert.Equal(t, 0.1, rc.Jitter)
}
