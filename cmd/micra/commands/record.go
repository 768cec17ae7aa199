package commands

import (
	"fmt"
	"strings"

	"github.com/dyluth/micra/internal/printer"
	"github.com/dyluth/micra/pkg/store"
	"github.com/spf13/cobra"
)

var recordExpect []string

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Read and write records (Redis hashes)",
	Long: `Read and write records.

Writes replace the whole hash in one transaction. With --expect field=value
(repeatable) the write only commits if every named field currently holds
the given value and nobody else writes the key meanwhile.`,
}

var recordGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Print a record's fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordGet,
}

var recordSetCmd = &cobra.Command{
	Use:   "set NAME FIELD=VALUE...",
	Short: "Set fields on a record",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRecordSet,
}

var recordDeleteFieldCmd = &cobra.Command{
	Use:   "delete-field NAME FIELD...",
	Short: "Remove fields from a record",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRecordDeleteField,
}

func init() {
	for _, cmd := range []*cobra.Command{recordSetCmd, recordDeleteFieldCmd} {
		cmd.Flags().StringArrayVar(&recordExpect, "expect", nil, "Only commit if FIELD=VALUE holds (repeatable)")
	}
	recordCmd.AddCommand(recordGetCmd, recordSetCmd, recordDeleteFieldCmd)
	rootCmd.AddCommand(recordCmd)
}

// parseAssignments splits FIELD=VALUE arguments. Values may contain '='.
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		field, value, ok := strings.Cut(a, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("expected FIELD=VALUE, got %q", a)
		}
		out[field] = value
	}
	return out, nil
}

func runRecordGet(cmd *cobra.Command, args []string) error {
	_, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	r, err := client.LoadRecord(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	for _, f := range r.FieldNames() {
		v, _ := r.Get(f)
		printer.Printf("%s=%s\n", f, v)
	}
	return nil
}

func runRecordSet(cmd *cobra.Command, args []string) error {
	values, err := parseAssignments(args[1:])
	if err != nil {
		return printer.Error("Invalid assignment", err.Error(), nil)
	}
	return saveRecord(cmd, args[0], func(r *store.Record) error {
		for f, v := range values {
			r.Set(f, v)
		}
		return nil
	})
}

func runRecordDeleteField(cmd *cobra.Command, args []string) error {
	return saveRecord(cmd, args[0], func(r *store.Record) error {
		for _, f := range args[1:] {
			if err := r.SetField(f, nil, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// saveRecord loads, mutates and saves once, honouring --expect.
func saveRecord(cmd *cobra.Command, name string, mutate func(*store.Record) error) error {
	var expected map[string]string
	if len(recordExpect) > 0 {
		var err error
		if expected, err = parseAssignments(recordExpect); err != nil {
			return printer.Error("Invalid --expect", err.Error(), nil)
		}
	}

	_, client, err := session(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	r, err := client.LoadRecord(cmd.Context(), name)
	if err != nil {
		return err
	}
	if err := mutate(r); err != nil {
		return printer.Error("Cannot update record", err.Error(), nil)
	}

	ok, err := client.SaveRecord(cmd.Context(), r, expected)
	if err != nil {
		return err
	}
	if !ok {
		return printer.ErrorWithContext(
			"Save rejected",
			"The record did not hold the expected values, or another writer changed it first.",
			map[string]string{"Record": name, "Expected": strings.Join(recordExpect, ", ")},
			[]string{"Inspect the current values with: micra record get " + name},
		)
	}
	printer.Success("Saved %s\n", name)
	return nil
}
