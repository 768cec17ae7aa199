package commands

import (
	"errors"

	"github.com/dyluth/micra/internal/printer"
	"github.com/dyluth/micra/internal/render"
	"github.com/dyluth/micra/pkg/store"
	"github.com/spf13/cobra"
)

var (
	viewTokens []string
	viewOutput string
)

var viewCmd = &cobra.Command{
	Use:   "view STRUCTURE",
	Short: "Render a structure's view",
	Long: `Render the joined view of one structure.

Templated structures need one --token per key token, in declaration order.
Rows that failed to convert, and joins that failed, appear as rows with
error_context and error set rather than aborting the view.

Output Formats:
  table - aligned text table (default)
  csv   - RFC 4180 CSV with a header row
  json  - {"identifier", "columns", "rows"} document

Examples:
  micra view jobs_scored
  micra view job_records --token 'job:almacen:fetch:v2:1f0c...'
  micra view micra_structures_with_types -o csv`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringArrayVar(&viewTokens, "token", nil, "Key token value (repeatable, positional)")
	viewCmd.Flags().StringVarP(&viewOutput, "output", "o", string(render.FormatTable), "Output format: table, csv or json")
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	format := render.Format(viewOutput)
	if err := format.Validate(); err != nil {
		return printer.Error("Invalid output format", err.Error(), nil)
	}

	_, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	identifier := args[0]
	table, err := client.View(cmd.Context(), identifier, viewTokens...)
	switch {
	case store.IsNotDefined(err):
		return notDefined("Structure", identifier, err)
	case errors.Is(err, store.ErrUnresolvedKey):
		return printer.Error("Key tokens do not match", err.Error(),
			[]string{"Pass one --token per key token; see: micra structures --id " + identifier + " --detail"})
	case err != nil:
		return err
	}

	return render.View(printer.Out, format, identifier, table)
}
