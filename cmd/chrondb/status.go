package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe WAL health",
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		health, err := eng.Health(cfg.MaxPendingAge())
		if err != nil {
			FatalError("%v", err)
		}
		_ = printJSON(health)
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Report objects unreachable from any branch or notes ref",
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		orphans, err := eng.Compact()
		if err != nil {
			FatalError("%v", err)
		}
		_ = printJSON(map[string]any{"unreachable": orphans, "count": len(orphans)})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, compactCmd)
}
