package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Join correlates another structure's view into the current table.
//
// With KeyOn set, the target is a key template instantiated once per distinct value
// tuple of the KeyOn columns. With On set, the target's projected columns are
// prefixed and left-merged onto the base rows; without it they are appended below.
type Join struct {
	Structure string            `json:"structure" yaml:"structure" jsonschema:"description=Identifier of the joined structure"`
	Select    []string          `json:"select" yaml:"select,omitempty"`
	KeyOn     []string          `json:"key_on" yaml:"key_on,omitempty"`
	On        map[string]string `json:"on" yaml:"on,omitempty" jsonschema:"description=Left column to right column correlation"`
	Prefix    *string           `json:"prefix" yaml:"prefix,omitempty" jsonschema:"description=Column prefix for merged columns; defaults to '<structure>.'"`
	Sort      []SortKey         `json:"sort" yaml:"sort,omitempty"`
	Ranges    []Range           `json:"ranges" yaml:"ranges,omitempty"`
}

// PrefixOrDefault returns the configured prefix or "<structure>.".
func (j *Join) PrefixOrDefault() string {
	if j.Prefix != nil {
		return *j.Prefix
	}
	return j.Structure + "."
}

// Validate checks the join definition.
func (j *Join) Validate() error {
	if j.Structure == "" {
		return fmt.Errorf("join structure cannot be empty")
	}
	for i, s := range j.Sort {
		if s.Column == "" {
			return fmt.Errorf("sort key %d has no column", i)
		}
	}
	return nil
}

func (j Join) clone() Join {
	out := j
	out.Select = append([]string{}, j.Select...)
	out.KeyOn = append([]string{}, j.KeyOn...)
	out.On = make(map[string]string, len(j.On))
	for k, v := range j.On {
		out.On[k] = v
	}
	if j.Prefix != nil {
		p := *j.Prefix
		out.Prefix = &p
	}
	out.Sort = append([]SortKey{}, j.Sort...)
	out.Ranges = append([]Range{}, j.Ranges...)
	return out
}

// onColumns returns the correlation columns ordered by left column name.
func (j *Join) onColumns() (left, right []string) {
	left = make([]string, 0, len(j.On))
	for l := range j.On {
		left = append(left, l)
	}
	sort.Strings(left)
	right = make([]string, len(left))
	for i, l := range left {
		right[i] = j.On[l]
	}
	return left, right
}

// Apply joins the target structure's view into base and returns the result.
//
// Each target instantiation is its own round trip: the result can mix data read at
// different moments when writers are active.
func (j *Join) Apply(ctx context.Context, base *Table, rdb redis.Cmdable, cat Catalog) (*Table, error) {
	target, err := cat.Structure(ctx, j.Structure)
	if err != nil {
		return nil, err
	}
	if len(j.KeyOn) != len(target.KeyTokens) {
		return nil, fmt.Errorf("%w: key_on has %d columns, %s declares %d key tokens",
			ErrJoinArity, len(j.KeyOn), target.Identifier, len(target.KeyTokens))
	}

	var joined *Table
	if len(j.KeyOn) > 0 {
		tuples, err := base.distinct(j.KeyOn)
		if err != nil {
			return nil, fmt.Errorf("key_on: %w", err)
		}
		joined = &Table{}
		for _, tuple := range tuples {
			values := make([]string, len(tuple))
			for i, v := range tuple {
				values[i] = keyToken(v)
			}
			instance, err := target.WithTokens(values)
			if err != nil {
				return nil, err
			}
			view, err := instance.View(ctx, rdb, cat)
			if err != nil {
				return nil, err
			}
			joined = joined.union(view)
		}
	} else {
		joined, err = target.View(ctx, rdb, cat)
		if err != nil {
			return nil, err
		}
	}

	joined.ensureColumns(j.Select)
	projected := joined
	if len(j.Select) > 0 {
		projected = joined.project(j.Select)
	}

	var result *Table
	if len(j.On) > 0 {
		leftOn, rightOn := j.onColumns()
		for _, c := range rightOn {
			if !joined.HasColumn(c) {
				return nil, fmt.Errorf("on: column %q not found in %s", c, j.Structure)
			}
		}
		// Correlation values come from the joined rows before projection, so the
		// right-hand column need not be selected.
		rightKeys := make([][]any, joined.Len())
		for i := range rightKeys {
			key := make([]any, len(rightOn))
			for k, c := range rightOn {
				key[k] = joined.Value(i, c)
			}
			rightKeys[i] = key
		}
		prefix := j.PrefixOrDefault()
		prefixed := projected.renamed(func(c string) string { return prefix + c })
		result, err = base.leftMerge(prefixed, leftOn, rightKeys)
		if err != nil {
			return nil, fmt.Errorf("on: %w", err)
		}
	} else {
		result = base.union(projected)
	}

	if len(j.Sort) > 0 {
		columns := make([]string, len(j.Sort))
		for i, s := range j.Sort {
			columns[i] = s.Column
		}
		result.ensureColumns(columns)
		result = result.sorted(j.Sort)
	}

	if len(j.Ranges) > 0 {
		result = result.selectRows(resolveRanges(j.Ranges, result.Len()))
	}
	return result, nil
}

// keyToken renders a key_on value for substitution into a key template. Floats
// keep a fractional part ("3.0", not "3") and switch to exponent form outside
// [1e-4, 1e16), so keys match names already written by Python writers.
func keyToken(v any) string {
	f, ok := v.(float64)
	if !ok {
		return FormatValue(v)
	}
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if abs := math.Abs(f); abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	text := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(text, ".") {
		text += ".0"
	}
	return text
}

// Range selects a slice of rows. Bounds are nullable and negative values count
// from the end.
//
// A nil Start is 0 and a nil End runs through the last row. A negative End excludes
// rows from the end like a slice bound (-1 stops before the last row); a
// non-negative End is inclusive.
type Range struct {
	Start *int
	End   *int
}

// NewRange builds a range from optional bounds.
func NewRange(start, end *int) Range {
	return Range{Start: start, End: end}
}

// Bound returns a pointer for use as a Range bound.
func Bound(v int) *int {
	return &v
}

// indices returns the row indices selected out of n rows, clamped to [0, n).
func (r Range) indices(n int) (from, to int) {
	from = 0
	if r.Start != nil {
		from = *r.Start
		if from < 0 {
			from += n
		}
	}
	to = n
	if r.End != nil {
		if *r.End < 0 {
			to = n + *r.End
		} else {
			to = *r.End + 1
		}
	}
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	return from, to
}

// resolveRanges unions every range's indices in ascending order.
func resolveRanges(ranges []Range, n int) []int {
	selected := make([]bool, n)
	for _, r := range ranges {
		from, to := r.indices(n)
		for i := from; i < to; i++ {
			selected[i] = true
		}
	}
	var out []int
	for i, ok := range selected {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// MarshalJSON encodes the range as [start, end] with nulls for open bounds.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([]*int{r.Start, r.End})
}

// UnmarshalJSON decodes [start, end].
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair []*int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("range must be [start, end]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("range must have 2 bounds, got %d", len(pair))
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// UnmarshalYAML decodes [start, end] with ~ or null for open bounds.
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: range must be [start, end]", node.Line)
	}
	bounds := make([]*int, 2)
	for i, n := range node.Content {
		if n.Tag == "!!null" {
			continue
		}
		var v int
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: range bound: %w", n.Line, err)
		}
		bounds[i] = &v
	}
	r.Start, r.End = bounds[0], bounds[1]
	return nil
}

// MarshalJSON encodes the sort key as [column, ascending].
func (s SortKey) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Column, s.Ascending})
}

// UnmarshalJSON decodes [column, ascending].
func (s *SortKey) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("sort key must be [column, ascending]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("sort key must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &s.Column); err != nil {
		return fmt.Errorf("sort column: %w", err)
	}
	if err := json.Unmarshal(pair[1], &s.Ascending); err != nil {
		return fmt.Errorf("sort direction: %w", err)
	}
	return nil
}

// UnmarshalYAML decodes [column, ascending].
func (s *SortKey) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: sort key must be [column, ascending]", node.Line)
	}
	if err := node.Content[0].Decode(&s.Column); err != nil {
		return fmt.Errorf("line %d: sort column: %w", node.Line, err)
	}
	if err := node.Content[1].Decode(&s.Ascending); err != nil {
		return fmt.Errorf("line %d: sort direction: %w", node.Line, err)
	}
	return nil
}
