package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chrondb/chrondb/internal/value"
)

var saveFile string
var saveExpectVersion uint64

var saveCmd = &cobra.Command{
	Use:   "save [json]",
	Short: "Save a document (JSON with an \"id\" attribute)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := readDocArg(args)
		if err != nil {
			FatalError("%v", err)
		}
		doc, err := value.FromJSON(data)
		if err != nil {
			FatalError("invalid document: %v", err)
		}

		eng, done, err := openEngine()
		if err != nil {
			FatalError("%v", err)
		}
		defer done()

		var expected *uint64
		if cmd.Flags().Changed("expect-version") {
			expected = &saveExpectVersion
		}
		result, err := eng.Save(cmd.Context(), branch, doc, cliContext(), expected)
		if err != nil {
			FatalError("%v", err)
		}
		_ = printJSON(map[string]any{
			"document": value.ToAny(result.Document),
			"commit":   result.CommitID,
			"version":  result.Version,
		})
	},
}

// readDocArg reads the document from the positional argument, --file, or
// stdin ("-" or no argument at all).
func readDocArg(args []string) ([]byte, error) {
	if saveFile != "" && saveFile != "-" {
		return os.ReadFile(saveFile)
	}
	if len(args) > 0 && args[0] != "-" {
		return []byte(args[0]), nil
	}
	return io.ReadAll(os.Stdin)
}

func init() {
	saveCmd.Flags().StringVarP(&saveFile, "file", "f", "", "read the document from a file instead of the argument")
	saveCmd.Flags().Uint64Var(&saveExpectVersion, "expect-version", 0, "fail with a version conflict unless the document is at this version")
	rootCmd.AddCommand(saveCmd)
}
