package commands

import (
	"github.com/dyluth/micra/internal/printer"
	"github.com/dyluth/micra/internal/schema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:       "schema [content_type|structure]",
	Short:     "Print the JSON schema of catalog definitions",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(schema.KindContentType), string(schema.KindStructure)},
	RunE:      runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	kinds := schema.Kinds
	if len(args) == 1 {
		kinds = []schema.Kind{schema.Kind(args[0])}
	}
	for _, k := range kinds {
		data, err := schema.JSON(k)
		if err != nil {
			return printer.Error("Unknown schema", err.Error(), nil)
		}
		printer.Printf("%s\n", data)
	}
	return nil
}
