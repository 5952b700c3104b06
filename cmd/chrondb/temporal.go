package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/chrondb/chrondb/internal/chrondb"
	"github.com/chrondb/chrondb/internal/value"
)

var (
	temporalID   string
	temporalAt   string
	temporalFrom string
	temporalTo   string
)

var temporalCmd = &cobra.Command{
	Use:   "temporal <as-of|between|from-to|versions>",
	Short: "Resolve temporal predicates against branch history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var mode chrondb.TemporalMode
		switch args[0] {
		case "as-of":
			mode = chrondb.TemporalAsOf
		case "between":
			mode = chrondb.TemporalBetween
		case "from-to":
			mode = chrondb.TemporalFromTo
		case "versions":
			mode = chrondb.TemporalVersions
		default:
			FatalError("unknown mode %q (want as-of, between, from-to, or versions)", args[0])
		}

		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		result, err := eng.TemporalQuery(chrondb.TemporalQuery{
			Mode:   mode,
			Branch: branch,
			ID:     temporalID,
			At:     temporalAt,
			From:   temporalFrom,
			To:     temporalTo,
		})
		if err != nil {
			FatalError("%v", err)
		}

		if result.History != nil {
			out := make([]map[string]any, len(result.History))
			for i, e := range result.History {
				row := map[string]any{
					"commit":    e.CommitID,
					"committer": e.Committer,
					"timestamp": e.Timestamp.Format(time.RFC3339),
				}
				if e.Document != nil {
					row["document"] = value.ToAny(*e.Document)
				}
				out[i] = row
			}
			_ = printJSON(out)
			return
		}
		out := make([]map[string]any, len(result.Commits))
		for i, c := range result.Commits {
			out[i] = map[string]any{
				"commit":    c.CommitID,
				"committer": c.Committer,
				"timestamp": c.Timestamp.Format(time.RFC3339),
			}
		}
		_ = printJSON(out)
	},
}

func init() {
	temporalCmd.Flags().StringVar(&temporalID, "id", "", "document id (versions mode)")
	temporalCmd.Flags().StringVar(&temporalAt, "at", "", "timestamp (as-of mode)")
	temporalCmd.Flags().StringVar(&temporalFrom, "from", "", "range start")
	temporalCmd.Flags().StringVar(&temporalTo, "to", "", "range end")
	rootCmd.AddCommand(temporalCmd)
}
