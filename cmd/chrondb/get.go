package main

import (
	"github.com/spf13/cobra"

	"github.com/chrondb/chrondb/internal/value"
)

var getAtCommit string
var getAsOf string

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a document by id, optionally at a commit or a point in time",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		var (
			doc value.Value
			ok  bool
		)
		if getAsOf != "" {
			doc, ok, err = eng.GetDocumentAt(branch, args[0], getAsOf)
		} else {
			doc, ok, err = eng.Get(branch, args[0], getAtCommit)
		}
		if err != nil {
			FatalError("%v", err)
		}
		if !ok {
			FatalError("document %q not found", args[0])
		}
		_ = printJSON(value.ToAny(doc))
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents by id prefix or by table",
	Run: func(cmd *cobra.Command, args []string) {
		prefix, _ := cmd.Flags().GetString("prefix")
		table, _ := cmd.Flags().GetString("table")
		if (prefix == "") == (table == "") {
			FatalError("exactly one of --prefix or --table is required")
		}

		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		var docs []value.Value
		if prefix != "" {
			docs, err = eng.GetByPrefix(branch, prefix)
		} else {
			docs, err = eng.GetByTable(branch, table)
		}
		if err != nil {
			FatalError("%v", err)
		}
		out := make([]any, len(docs))
		for i, d := range docs {
			out[i] = value.ToAny(d)
		}
		_ = printJSON(out)
	},
}

func init() {
	getCmd.Flags().StringVar(&getAtCommit, "at", "", "read at a specific commit id")
	getCmd.Flags().StringVar(&getAsOf, "as-of", "", "read at the latest commit at or before this timestamp")
	listCmd.Flags().String("prefix", "", "id prefix to list")
	listCmd.Flags().String("table", "", "table to list")
	rootCmd.AddCommand(getCmd, listCmd)
}
