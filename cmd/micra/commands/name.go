package commands

import (
	"github.com/dyluth/micra/internal/printer"
	"github.com/dyluth/micra/pkg/store"
	"github.com/spf13/cobra"
)

var nameCmd = &cobra.Command{
	Use:   "name",
	Short: "Encode and decode colon-joined record names",
}

var nameEncodeCmd = &cobra.Command{
	Use:   "encode COMPONENT...",
	Short: "Join components into a record name",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		printer.Printf("%s\n", store.EncodeName(args...))
	},
}

var nameDecodeCmd = &cobra.Command{
	Use:   "decode NAME",
	Short: "Split a record name into components, one per line",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range store.DecodeName(args[0]) {
			printer.Printf("%s\n", c)
		}
	},
}

func init() {
	nameCmd.AddCommand(nameEncodeCmd, nameDecodeCmd)
	rootCmd.AddCommand(nameCmd)
}
