package commands

import (
	"fmt"

	"github.com/dyluth/micra/internal/filter"
	"github.com/dyluth/micra/internal/printer"
	"github.com/spf13/cobra"
)

var (
	listCriteria filter.Criteria
	listDetail   bool
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List content types",
	Long: `List the content types registered in the catalog.

Filters (ANDed, each repeatable):
  --id   - identifier glob ("job_*")
  --tag  - tag glob, matching any tag`,
	Args: cobra.NoArgs,
	RunE: runTypes,
}

var structuresCmd = &cobra.Command{
	Use:   "structures",
	Short: "List structures",
	Long: `List the structures registered in the catalog.

With --detail each structure is followed by its metadata and raw content.`,
	Args: cobra.NoArgs,
	RunE: runStructures,
}

func init() {
	for _, cmd := range []*cobra.Command{typesCmd, structuresCmd} {
		cmd.Flags().StringArrayVar(&listCriteria.IDGlobs, "id", nil, "Filter by identifier glob (repeatable)")
		cmd.Flags().StringArrayVar(&listCriteria.TagGlobs, "tag", nil, "Filter by tag glob (repeatable)")
		rootCmd.AddCommand(cmd)
	}
	structuresCmd.Flags().BoolVar(&listDetail, "detail", false, "Show metadata and raw content")
}

func runTypes(cmd *cobra.Command, args []string) error {
	if err := listCriteria.Validate(); err != nil {
		return printer.Error("Invalid filter", err.Error(), nil)
	}
	_, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	cts, err := client.ContentTypes(cmd.Context())
	if err != nil {
		return err
	}
	for _, ct := range listCriteria.ContentTypes(cts) {
		printer.Definition(ct.Identifier, ct.Summary())
	}
	return nil
}

func runStructures(cmd *cobra.Command, args []string) error {
	if err := listCriteria.Validate(); err != nil {
		return printer.Error("Invalid filter", err.Error(), nil)
	}
	_, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	ss, err := client.Structures(cmd.Context())
	if err != nil {
		return err
	}
	for _, s := range listCriteria.Structures(ss) {
		if !listDetail {
			printer.Definition(s.Identifier, s.Summary())
			continue
		}

		meta := ""
		if m, err := s.Metadata(cmd.Context(), client.Redis()); err == nil {
			meta = fmt.Sprintf(" (length %d)", m["length"])
		}
		detail, err := s.Detail(cmd.Context(), client.Redis())
		if err != nil {
			detail = "Unavailable: " + err.Error()
		}
		printer.Heading(s.Identifier + meta)
		printer.Printf("%s\n\n", detail)
	}
	return nil
}
