package store

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/oj"
)

// Cell is a named value inside an Entry.
type Cell struct {
	Name  string
	Value any
}

// Entry is one converted row before it becomes part of a Table.
// Field order is preserved and decides the column order of the table.
type Entry []Cell

// Row maps column name to value. A missing column or a nil value is null.
type Row map[string]any

// Table is the tabular view of a structure: ordered columns and rows.
// Tables are built per call and never shared, so operations are free to return
// fresh tables without synchronisation.
type Table struct {
	columns []string
	rows    []Row
}

// NewTable creates a table with the given columns and rows. Row values for columns
// outside the column list are ignored by accessors.
func NewTable(columns []string, rows []Row) *Table {
	t := &Table{columns: append([]string(nil), columns...)}
	for _, r := range rows {
		t.rows = append(t.rows, copyRow(r))
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the row count.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the i-th row restricted to the table's columns.
func (t *Table) Row(i int) Row {
	out := make(Row, len(t.columns))
	for _, c := range t.columns {
		out[c] = t.rows[i][c]
	}
	return out
}

// Rows returns every row restricted to the table's columns.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Value returns the cell at row i, or nil when null.
func (t *Table) Value(i int, column string) any {
	return t.rows[i][column]
}

// Column returns every value of a column in row order.
func (t *Table) Column(column string) []any {
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[column]
	}
	return out
}

// HasColumn reports whether the table has the column.
func (t *Table) HasColumn(column string) bool {
	return indexOf(t.columns, column) >= 0
}

// Records returns the rows as string matrices in column order, nulls as empty strings.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		rec := make([]string, len(t.columns))
		for j, c := range t.columns {
			rec[j] = FormatValue(r[c])
		}
		out[i] = rec
	}
	return out
}

// tableFromEntries builds a table whose columns appear in first-seen order.
func tableFromEntries(entries []Entry) *Table {
	t := &Table{}
	seen := map[string]bool{}
	for _, e := range entries {
		row := make(Row, len(e))
		for _, cell := range e {
			if !seen[cell.Name] {
				seen[cell.Name] = true
				t.columns = append(t.columns, cell.Name)
			}
			row[cell.Name] = cell.Value
		}
		t.rows = append(t.rows, row)
	}
	return t
}

// renamed returns a copy with every column passed through rename.
func (t *Table) renamed(rename func(string) string) *Table {
	out := &Table{columns: make([]string, len(t.columns))}
	for i, c := range t.columns {
		out.columns[i] = rename(c)
	}
	for _, r := range t.rows {
		row := make(Row, len(r))
		for i, c := range t.columns {
			if v, ok := r[c]; ok {
				row[out.columns[i]] = v
			}
		}
		out.rows = append(out.rows, row)
	}
	return out
}

// withLeadingColumn returns a copy with a constant column inserted first.
func (t *Table) withLeadingColumn(column string, value any) *Table {
	out := NewTable(append([]string{column}, t.columns...), t.rows)
	for _, r := range out.rows {
		r[column] = value
	}
	return out
}

// ensureColumns adds any missing columns as null columns, in place.
func (t *Table) ensureColumns(columns []string) {
	for _, c := range columns {
		if !t.HasColumn(c) {
			t.columns = append(t.columns, c)
		}
	}
}

// project returns a copy restricted to columns, in that order.
func (t *Table) project(columns []string) *Table {
	out := &Table{columns: append([]string(nil), columns...)}
	for _, r := range t.rows {
		row := make(Row, len(columns))
		for _, c := range columns {
			if v, ok := r[c]; ok {
				row[c] = v
			}
		}
		out.rows = append(out.rows, row)
	}
	return out
}

// union appends other's rows below t's. Columns only on one side are null on the other.
// Rows are never deduplicated.
func (t *Table) union(other *Table) *Table {
	out := NewTable(t.columns, t.rows)
	out.ensureColumns(other.columns)
	for _, r := range other.rows {
		out.rows = append(out.rows, copyRow(r))
	}
	return out
}

// appendRow adds a row, extending the columns with any new names in row order.
func (t *Table) appendRow(columns []string, row Row) {
	t.ensureColumns(columns)
	t.rows = append(t.rows, copyRow(row))
}

// leftMerge performs a left outer merge of t against right.
//
// leftOn names t's key columns; rightKeys holds one key tuple per right row. Every
// left row is kept, once per matching right row in right order, or once with nulls
// when nothing matches. Null and NaN key values match each other, as pandas merge
// does. Overlapping non-key column names get "_x" and "_y" suffixes.
func (t *Table) leftMerge(right *Table, leftOn []string, rightKeys [][]any) (*Table, error) {
	for _, c := range leftOn {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("merge column %q not found", c)
		}
	}
	if len(rightKeys) != len(right.rows) {
		return nil, fmt.Errorf("merge keys cover %d rows, right side has %d", len(rightKeys), len(right.rows))
	}

	leftNames := make(map[string]string, len(t.columns))
	rightNames := make(map[string]string, len(right.columns))
	out := &Table{}
	for _, c := range t.columns {
		name := c
		if indexOf(right.columns, c) >= 0 {
			name = c + "_x"
		}
		leftNames[c] = name
		out.columns = append(out.columns, name)
	}
	for _, c := range right.columns {
		name := c
		if indexOf(t.columns, c) >= 0 {
			name = c + "_y"
		}
		rightNames[c] = name
		out.columns = append(out.columns, name)
	}

	index := map[string][]int{}
	for i, key := range rightKeys {
		k := mergeKey(key)
		index[k] = append(index[k], i)
	}

	for _, l := range t.rows {
		tuple := make([]any, len(leftOn))
		for i, c := range leftOn {
			tuple[i] = l[c]
		}
		matches := index[mergeKey(tuple)]
		base := make(Row, len(out.columns))
		for c, name := range leftNames {
			if v, ok := l[c]; ok {
				base[name] = v
			}
		}
		if len(matches) == 0 {
			out.rows = append(out.rows, base)
			continue
		}
		for _, m := range matches {
			row := copyRow(base)
			for c, name := range rightNames {
				if v, ok := right.rows[m][c]; ok {
					row[name] = v
				}
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// SortKey orders a table by one column.
type SortKey struct {
	Column    string
	Ascending bool
}

// sorted returns a stably sorted copy. Nulls always sort last.
func (t *Table) sorted(keys []SortKey) *Table {
	out := NewTable(t.columns, t.rows)
	sort.SliceStable(out.rows, func(i, j int) bool {
		for _, k := range keys {
			a, b := out.rows[i][k.Column], out.rows[j][k.Column]
			switch {
			case a == nil && b == nil:
				continue
			case a == nil:
				return false
			case b == nil:
				return true
			}
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if k.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return out
}

// selectRows returns a copy holding only the rows at the given ascending indices.
func (t *Table) selectRows(indices []int) *Table {
	out := &Table{columns: append([]string(nil), t.columns...)}
	for _, i := range indices {
		out.rows = append(out.rows, copyRow(t.rows[i]))
	}
	return out
}

// distinct returns the sorted distinct value tuples of columns. Tuples holding a null are dropped.
func (t *Table) distinct(columns []string) ([][]any, error) {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("column %q not found", c)
		}
	}
	seen := map[string]bool{}
	var tuples [][]any
	for _, r := range t.rows {
		tuple := make([]any, len(columns))
		for i, c := range columns {
			tuple[i] = r[c]
		}
		k, ok := tupleKey(tuple)
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		tuples = append(tuples, tuple)
	}
	sort.SliceStable(tuples, func(i, j int) bool {
		for k := range columns {
			if c := compareValues(tuples[i][k], tuples[j][k]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return tuples, nil
}

// FormatValue renders a cell value as text. Null renders as the empty string,
// numbers in their shortest form, and composite values as JSON.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return oj.JSON(x, &canonicalOptions)
	}
}

// numeric returns the value as a float when it is a number.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// compareValues orders numbers numerically and everything else by its text form.
func compareValues(a, b any) int {
	fa, aok := numeric(a)
	fb, bok := numeric(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	if aok != bok {
		// numbers before text
		if aok {
			return -1
		}
		return 1
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}

// tupleKey returns a comparable key for a value tuple, false if any value is null.
func tupleKey(tuple []any) (string, bool) {
	var b strings.Builder
	for _, v := range tuple {
		if v == nil {
			return "", false
		}
		if f, ok := numeric(v); ok {
			if math.IsNaN(f) {
				return "", false
			}
			b.WriteString("n:")
			b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		} else {
			b.WriteString("s:")
			b.WriteString(strconv.Quote(FormatValue(v)))
		}
		b.WriteByte(0)
	}
	return b.String(), true
}

// mergeKey is tupleKey with null and NaN values encoded as one shared token.
func mergeKey(tuple []any) string {
	var b strings.Builder
	for _, v := range tuple {
		if k, ok := tupleKey([]any{v}); ok {
			b.WriteString(k)
		} else {
			b.WriteString("null")
			b.WriteByte(0)
		}
	}
	return b.String()
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
