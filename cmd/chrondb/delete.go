package main

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a document (records a deletion commit; history is retained)",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		result, err := eng.Delete(cmd.Context(), branch, args[0], cliContext(), nil)
		if err != nil {
			FatalError("%v", err)
		}
		_ = printJSON(map[string]any{"existed": result.Existed, "version": result.Version})
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
