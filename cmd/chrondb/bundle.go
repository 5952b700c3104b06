package main

import (
	"github.com/spf13/cobra"
)

var (
	bundleRefs []string
	bundleBase string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Export and import Git bundles",
}

var bundleExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export branches to a bundle file with a manifest sidecar",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		refs := bundleRefs
		if len(refs) == 0 {
			refs = []string{branch}
		}
		manifest, err := eng.ExportBundle(cmd.Context(), args[0], refs, bundleBase)
		if err != nil {
			FatalError("%v", err)
		}
		_ = printJSON(manifest)
	},
}

var bundleImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a bundle's refs and objects, then reindex",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		manifest, err := eng.ImportBundle(cmd.Context(), args[0])
		if err != nil {
			FatalError("%v", err)
		}
		_ = printJSON(manifest)
	},
}

func init() {
	bundleExportCmd.Flags().StringSliceVar(&bundleRefs, "refs", nil, "branches to include (default: current branch)")
	bundleExportCmd.Flags().StringVar(&bundleBase, "base", "", "base commit for an incremental bundle")
	bundleCmd.AddCommand(bundleExportCmd, bundleImportCmd)
	rootCmd.AddCommand(bundleCmd)
}
