// Package render writes structure views for people and for other programs.
package render

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dyluth/micra/pkg/store"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/olekukonko/tablewriter"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// Formats lists the accepted values for flag help.
var Formats = []Format{FormatTable, FormatCSV, FormatJSON}

// Validate checks if the Format is a valid enum value.
func (f Format) Validate() error {
	switch f {
	case FormatTable, FormatCSV, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format: %q (must be table, csv or json)", f)
	}
}

var jsonOptions = func() ojg.Options {
	o := ojg.DefaultOptions
	o.Sort = true
	o.Indent = 2
	return o
}()

// View writes one structure's view. Nulls render as empty cells in table and CSV
// output and as null in JSON.
func View(w io.Writer, f Format, identifier string, t *store.Table) error {
	switch f {
	case FormatTable:
		return writeTable(w, t)
	case FormatCSV:
		return writeCSV(w, t)
	case FormatJSON:
		return writeJSON(w, identifier, t)
	default:
		return f.Validate()
	}
}

func writeTable(w io.Writer, t *store.Table) error {
	table := tablewriter.NewWriter(w)
	header := make([]any, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		header = append(header, c)
	}
	table.Header(header...)
	if err := table.Bulk(t.Records()); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, t *store.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, identifier string, t *store.Table) error {
	columns := t.Columns()
	rows := make([]any, 0, t.Len())
	for _, r := range t.Rows() {
		row := make(map[string]any, len(r))
		for k, v := range r {
			row[k] = v
		}
		rows = append(rows, row)
	}
	cols := make([]any, len(columns))
	for i, c := range columns {
		cols[i] = c
	}
	doc := map[string]any{
		"identifier": identifier,
		"columns":    cols,
		"rows":       rows,
	}
	if _, err := fmt.Fprintln(w, oj.JSON(doc, &jsonOptions)); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}
