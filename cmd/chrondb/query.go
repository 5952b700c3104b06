package main

import (
	"github.com/spf13/cobra"

	"github.com/chrondb/chrondb/internal/index"
	"github.com/chrondb/chrondb/internal/value"
)

var (
	queryLimit   int
	queryOffset  int
	querySort    string
	queryDesc    bool
	queryHydrate bool
)

var queryCmd = &cobra.Command{
	Use:   "query <expression>",
	Short: "Search the secondary index with the infix query language",
	Long: `Search the secondary index. Expressions combine field comparisons with
AND/OR/NOT, e.g.:

  chrondb query 'name = Alice'
  chrondb query 'age >= 30 AND _table = user'
  chrondb query 'name = Ali*'`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		node, err := index.Parse(args[0])
		if err != nil {
			FatalError("invalid query: %v", err)
		}

		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		q := &index.Query{
			Clauses: []index.Node{node},
			Branch:  branch,
			Limit:   queryLimit,
			Offset:  queryOffset,
		}
		if querySort != "" {
			q.Sort = []index.Sort{{Field: querySort, Desc: queryDesc}}
		}
		result, err := eng.Query(q)
		if err != nil {
			FatalError("%v", err)
		}

		out := map[string]any{
			"ids":    result.IDs,
			"total":  result.Total,
			"limit":  result.Limit,
			"offset": result.Offset,
		}
		if queryHydrate {
			docs := make([]any, 0, len(result.IDs))
			for _, id := range result.IDs {
				doc, ok, err := eng.Get(branch, id, "")
				if err != nil {
					FatalError("%v", err)
				}
				if ok {
					docs = append(docs, value.ToAny(doc))
				}
			}
			out["documents"] = docs
		}
		_ = printJSON(out)
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "max results (0 = all)")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "skip this many results")
	queryCmd.Flags().StringVar(&querySort, "sort", "", "sort by this field")
	queryCmd.Flags().BoolVar(&queryDesc, "desc", false, "sort descending")
	queryCmd.Flags().BoolVar(&queryHydrate, "docs", false, "include full documents in the output")
	rootCmd.AddCommand(queryCmd)
}
