package commands

import (
	"github.com/dyluth/micra/internal/coordinator"
	"github.com/dyluth/micra/internal/job"
	"github.com/dyluth/micra/internal/printer"
	"github.com/dyluth/micra/pkg/store"
	"github.com/spf13/cobra"
)

var defineJobs bool

var defineCmd = &cobra.Command{
	Use:   "define",
	Short: "Register built-in and configured definitions in the catalog",
	Long: `Register definitions in the catalog.

Always writes the built-in content types and structures, then every
content_types / structures entry of micra.yml. With --jobs the job queue
definitions are registered as well. Rewriting an unchanged definition is
a no-op at the byte level, so define is safe to repeat.`,
	Args: cobra.NoArgs,
	RunE: runDefine,
}

func init() {
	defineCmd.Flags().BoolVar(&defineJobs, "jobs", false, "Also register the job queue definitions")
	rootCmd.AddCommand(defineCmd)
}

func runDefine(cmd *cobra.Command, args []string) error {
	cfg, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	cts, ss := definitions(cfg.ContentTypes, cfg.Structures, defineJobs)
	c := coordinator.New(client, cfg.CommandsKey, cmd.OutOrStdout())
	if err := c.Define(cmd.Context(), cts, ss); err != nil {
		return printer.Error("Failed to register definitions", err.Error(), nil)
	}

	printer.Success("Registered %d content types and %d structures (plus built-ins)\n", len(cts), len(ss))
	return nil
}

// definitions merges configured definitions with the optional job set.
func definitions(cts []*store.ContentType, ss []*store.Structure, jobs bool) ([]*store.ContentType, []*store.Structure) {
	if !jobs {
		return cts, ss
	}
	return append(append([]*store.ContentType{}, job.ContentTypes()...), cts...),
		append(append([]*store.Structure{}, job.Structures()...), ss...)
}
