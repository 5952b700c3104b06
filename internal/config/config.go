// Package config loads cmd/chrondb's TOML configuration file. Only the
// CLI reads it; the core engine never touches a config file or the
// environment — everything it needs arrives as constructor arguments,
// which this package produces.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chrondb/chrondb/internal/occ"
)

const ConfigFileName = "chrondb.toml"

// Config is the full chrondb.toml shape.
type Config struct {
	DataDir       string `toml:"data_dir"`
	DefaultBranch string `toml:"default_branch"`

	Author Author `toml:"author"`
	OCC    OCC    `toml:"occ"`
	WAL    WAL    `toml:"wal"`
	Log    Log    `toml:"log"`
}

// Author is the commit identity writes are attributed to.
type Author struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// OCC tunes the optimistic-concurrency retry schedule.
type OCC struct {
	MaxRetries int     `toml:"max_retries"`
	BaseMs     int     `toml:"base_ms"`
	CapMs      int     `toml:"cap_ms"`
	Multiplier float64 `toml:"multiplier"`
	Jitter     float64 `toml:"jitter"`
}

// WAL tunes the health probe's staleness threshold.
type WAL struct {
	MaxPendingAge duration `toml:"max_pending_age"`
}

// Log selects the CLI's slog level.
type Log struct {
	Level string `toml:"level"`
}

// duration wraps time.Duration so TOML values like "30s" parse.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no chrondb.toml exists.
func Default() *Config {
	return &Config{
		DataDir:       ".chrondb",
		DefaultBranch: "main",
		Author:        Author{Name: "chrondb", Email: "chrondb@localhost"},
		OCC: OCC{
			MaxRetries: 3,
			BaseMs:     10,
			CapMs:      1000,
			Multiplier: 2.0,
			Jitter:     0.1,
		},
		WAL: WAL{MaxPendingAge: duration{5 * time.Minute}},
		Log: Log{Level: "info"},
	}
}

// Load reads path, layering the file's values over Default(). A missing
// file is not an error: the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("config: %s: data_dir must not be empty", path)
	}
	if cfg.DefaultBranch == "" {
		cfg.DefaultBranch = "main"
	}
	return cfg, nil
}

// RetryConfig converts the [occ] section into the engine's retry schedule.
func (c *Config) RetryConfig() occ.RetryConfig {
	return occ.RetryConfig{
		MaxRetries: c.OCC.MaxRetries,
		Base:       time.Duration(c.OCC.BaseMs) * time.Millisecond,
		Cap:        time.Duration(c.OCC.CapMs) * time.Millisecond,
		Mult:       c.OCC.Multiplier,
		Jitter:     c.OCC.Jitter,
	}
}

// MaxPendingAge returns the WAL staleness threshold for health probes.
func (c *Config) MaxPendingAge() time.Duration {
	return c.WAL.MaxPendingAge.Duration
}
