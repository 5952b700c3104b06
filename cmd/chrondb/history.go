package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/chrondb/chrondb/internal/value"
)

var (
	historySince string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show every commit that changed a document, most recent first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		entries, err := eng.History(branch, args[0], historySince, historyLimit)
		if err != nil {
			FatalError("%v", err)
		}
		out := make([]map[string]any, len(entries))
		for i, e := range entries {
			row := map[string]any{
				"commit":    e.CommitID,
				"committer": e.Committer,
				"timestamp": e.Timestamp.Format(time.RFC3339),
			}
			if e.Document != nil {
				row["document"] = value.ToAny(*e.Document)
			} else {
				row["document"] = nil
			}
			out[i] = row
		}
		_ = printJSON(out)
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <id> <from-commit> <to-commit>",
	Short: "Compare a document's fields between two commits",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		result, err := eng.Diff(args[0], args[1], args[2])
		if err != nil {
			FatalError("%v", err)
		}
		_ = printJSON(result)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historySince, "since", "", "resume after this commit id")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "cap the number of entries (0 = all)")
	rootCmd.AddCommand(historyCmd, diffCmd)
}
