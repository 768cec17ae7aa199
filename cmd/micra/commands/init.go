package commands

import (
	"github.com/dyluth/micra/internal/printer"
	"github.com/dyluth/micra/internal/scaffold"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter micra.yml",
	Long: `Write a starter micra.yml into the current directory.

The file carries the connection and retry settings plus a small example
content type and structures. Register them afterwards with: micra define

Use --force to overwrite an existing micra.yml.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing micra.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	written, err := scaffold.Initialize(".", forceInit)
	if err != nil {
		return printer.Error("Initialization failed", err.Error(), nil)
	}

	printer.Success("Initialized micra project\n")
	for _, path := range written {
		printer.Printf("  ✓ %s\n", path)
	}
	printer.Printf("\nNext steps:\n")
	printer.Printf("  1. Point redis.url at your server\n")
	printer.Printf("  2. Run 'micra define' to register the definitions\n")
	return nil
}
