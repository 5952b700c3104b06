// Command chrondb is a thin development shell around the engine facade:
// every subcommand decodes its arguments, calls one Engine operation, and
// prints the result as JSON. No protocol logic lives here.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chrondb/chrondb/internal/chrondb"
	"github.com/chrondb/chrondb/internal/config"
	"github.com/chrondb/chrondb/internal/objstore"
	"github.com/chrondb/chrondb/internal/txctx"
)

var (
	cfgPath string
	dataDir string
	branch  string
	user    string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "chrondb",
	Short:         "ChronDB: a chronological, branch-aware document database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if dataDir == "" {
			dataDir = cfg.DataDir
		}
		if branch == "" {
			branch = cfg.DefaultBranch
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.ConfigFileName, "path to chrondb.toml")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&branch, "branch", "b", "", "branch to operate on (overrides config)")
	rootCmd.PersistentFlags().StringVar(&user, "user", "", "user recorded in commit annotations")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openEngine opens the engine for the current invocation. The returned
// close func must run before the process exits so the WAL lock releases.
func openEngine() (*chrondb.Engine, func(), error) {
	eng, err := chrondb.Open(dataDir,
		chrondb.WithLogger(newLogger()),
		chrondb.WithAuthor(objstore.CommitAuthor{Name: cfg.Author.Name, Email: cfg.Author.Email}),
	)
	if err != nil {
		return nil, nil, err
	}
	return eng, func() { _ = eng.Close() }, nil
}

// cliContext builds the ambient transaction context every CLI write
// carries into its commit annotation.
func cliContext() txctx.Context {
	tctx := txctx.NewRandom().WithOrigin("cli")
	if user != "" {
		tctx = tctx.WithUser(user)
	}
	return tctx
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FatalError prints a formatted message to stderr and exits non-zero.
func FatalError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
