package main

import (
	"github.com/spf13/cobra"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create <name> [from-ref]",
	Short: "Create a branch from another branch or a commit id",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		from := branch
		if len(args) == 2 {
			from = args[1]
		}
		if err := eng.CreateBranch(args[0], from); err != nil {
			FatalError("%v", err)
		}
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a branch ref (its objects await GC)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		if err := eng.DeleteBranch(args[0]); err != nil {
			FatalError("%v", err)
		}
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List branches",
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		branches, err := eng.ListBranches()
		if err != nil {
			FatalError("%v", err)
		}
		_ = printJSON(branches)
	},
}

func init() {
	branchCmd.AddCommand(branchCreateCmd, branchDeleteCmd, branchListCmd)
	rootCmd.AddCommand(branchCmd)
}
