package main

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrondb/chrondb/internal/schema"
	"github.com/chrondb/chrondb/internal/value"
)

var (
	schemaMode    string
	schemaFile    string
	schemaVersion int64
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage per-namespace validation schemas",
}

var schemaSetCmd = &cobra.Command{
	Use:   "set <namespace>",
	Short: "Install a JSON-Schema validation policy for a namespace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			data []byte
			err  error
		)
		if schemaFile == "" || schemaFile == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(schemaFile)
		}
		if err != nil {
			FatalError("%v", err)
		}
		schemaDoc, err := value.FromJSON(data)
		if err != nil {
			FatalError("invalid schema: %v", err)
		}

		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		rec := schema.Record{
			Namespace: args[0],
			Version:   schemaVersion,
			Mode:      schema.Mode(schemaMode),
			Schema:    schemaDoc,
			CreatedAt: time.Now(),
			CreatedBy: user,
		}
		if err := eng.PutSchema(branch, rec); err != nil {
			FatalError("%v", err)
		}
	},
}

var schemaGetCmd = &cobra.Command{
	Use:   "get <namespace>",
	Short: "Show a namespace's current validation policy",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		rec, ok, err := eng.GetSchema(branch, args[0])
		if err != nil {
			FatalError("%v", err)
		}
		if !ok {
			FatalError("no schema installed for namespace %q", args[0])
		}
		_ = printJSON(map[string]any{
			"namespace":  rec.Namespace,
			"version":    rec.Version,
			"mode":       rec.Mode,
			"schema":     value.ToAny(rec.Schema),
			"created_at": rec.CreatedAt,
			"created_by": rec.CreatedBy,
		})
	},
}

func init() {
	schemaSetCmd.Flags().StringVar(&schemaMode, "mode", string(schema.Strict), "enforcement mode: strict, warning, or disabled")
	schemaSetCmd.Flags().StringVarP(&schemaFile, "file", "f", "", "read the JSON-Schema from a file (default: stdin)")
	schemaSetCmd.Flags().Int64Var(&schemaVersion, "version", 1, "schema version number")
	schemaCmd.AddCommand(schemaSetCmd, schemaGetCmd)
	rootCmd.AddCommand(schemaCmd)
}
