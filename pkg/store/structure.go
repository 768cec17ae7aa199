package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/oj"
	"github.com/redis/go-redis/v9"
)

// Structure binds a (possibly templated) Redis key to a collection shape and a
// content type, plus the joins that extend its view.
//
// A structure with key tokens is a template: its key holds positional placeholders
// that WithTokens fills in. Content and metadata are only readable once every
// token is resolved.
type Structure struct {
	Element       `yaml:",inline"`
	Key           string        `json:"key" yaml:"key"`
	StructureType StructureType `json:"structure_type" yaml:"structure_type" jsonschema:"enum=value,enum=list,enum=set,enum=ordered_set,enum=hash,enum=stream"`
	ContentType   string        `json:"content_type" yaml:"content_type"`
	KeyTokens     []string      `json:"key_tokens" yaml:"key_tokens,omitempty"`
	Joins         []Join        `json:"joins" yaml:"joins,omitempty"`
}

// Shape constructors. Each only sets the structure type.

// NewValue creates a plain value structure.
func NewValue(e Element, key, contentType string, keyTokens ...string) *Structure {
	return newStructure(e, StructureValue, key, contentType, keyTokens)
}

// NewList creates a list structure.
func NewList(e Element, key, contentType string, keyTokens ...string) *Structure {
	return newStructure(e, StructureList, key, contentType, keyTokens)
}

// NewSet creates a set structure.
func NewSet(e Element, key, contentType string, keyTokens ...string) *Structure {
	return newStructure(e, StructureSet, key, contentType, keyTokens)
}

// NewOrderedSet creates a sorted set structure.
func NewOrderedSet(e Element, key, contentType string, keyTokens ...string) *Structure {
	return newStructure(e, StructureOrderedSet, key, contentType, keyTokens)
}

// NewHash creates a hash structure.
func NewHash(e Element, key, contentType string, keyTokens ...string) *Structure {
	return newStructure(e, StructureHash, key, contentType, keyTokens)
}

// NewStream creates a stream structure.
func NewStream(e Element, key, contentType string, keyTokens ...string) *Structure {
	return newStructure(e, StructureStream, key, contentType, keyTokens)
}

func newStructure(e Element, st StructureType, key, contentType string, keyTokens []string) *Structure {
	return &Structure{
		Element:       e,
		Key:           key,
		StructureType: st,
		ContentType:   contentType,
		KeyTokens:     append([]string{}, keyTokens...),
	}
}

// Validate checks the structure definition and its joins.
func (s *Structure) Validate() error {
	if s.Identifier == "" {
		return fmt.Errorf("structure identifier cannot be empty")
	}
	if err := s.StructureType.Validate(); err != nil {
		return fmt.Errorf("structure %s: %w", s.Identifier, err)
	}
	if s.ContentType == "" {
		return fmt.Errorf("structure %s: content type cannot be empty", s.Identifier)
	}
	for i := range s.Joins {
		if err := s.Joins[i].Validate(); err != nil {
			return fmt.Errorf("structure %s join %d: %w", s.Identifier, i, err)
		}
	}
	return nil
}

// clone returns a deep copy so derived structures never share slices with s.
func (s *Structure) clone() *Structure {
	out := *s
	out.Tags = append([]string{}, s.Tags...)
	out.KeyTokens = append([]string{}, s.KeyTokens...)
	out.Joins = make([]Join, len(s.Joins))
	for i := range s.Joins {
		out.Joins[i] = s.Joins[i].clone()
	}
	return &out
}

// WithKey returns a copy bound to key with no unresolved tokens.
func (s *Structure) WithKey(key string) *Structure {
	out := s.clone()
	out.Key = key
	out.KeyTokens = []string{}
	return out
}

// WithTokens resolves the key template with exactly len(KeyTokens) values.
func (s *Structure) WithTokens(values []string) (*Structure, error) {
	key, err := s.KeyFromTokens(values)
	if err != nil {
		return nil, err
	}
	return s.WithKey(key), nil
}

// KeyFromTokens substitutes values positionally into the key template.
func (s *Structure) KeyFromTokens(values []string) (string, error) {
	if len(values) != len(s.KeyTokens) {
		return "", fmt.Errorf("%w: %s expects %d token values, got %d", ErrUnresolvedKey, s.Identifier, len(s.KeyTokens), len(values))
	}
	key, err := formatKey(s.Key, values)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolvedKey, s.Identifier, err)
	}
	return key, nil
}

func (s *Structure) requireResolved() error {
	if len(s.KeyTokens) > 0 {
		return fmt.Errorf("%w: %s has %d unresolved key tokens", ErrUnresolvedKey, s.Identifier, len(s.KeyTokens))
	}
	return nil
}

// Metadata returns the collection size as {"length": n}.
func (s *Structure) Metadata(ctx context.Context, rdb redis.Cmdable) (map[string]int64, error) {
	if err := s.requireResolved(); err != nil {
		return nil, err
	}
	n, err := s.StructureType.Size(ctx, rdb, s.Key)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"length": n}, nil
}

// Content reads the raw collection content.
func (s *Structure) Content(ctx context.Context, rdb redis.Cmdable) (any, error) {
	if err := s.requireResolved(); err != nil {
		return nil, err
	}
	return s.StructureType.ReadContent(ctx, rdb, s.Key)
}

// View builds the structure's table and applies its joins in order.
//
// Conversion failures and failing joins never abort the view: each is replaced by a
// row carrying error_context and error. The base table holds a leading key column
// followed by the content type's columns: the unnamed field is named after the
// content type, reserved fields keep their bare name and every other field is
// prefixed with "<content type>.".
func (s *Structure) View(ctx context.Context, rdb redis.Cmdable, cat Catalog) (*Table, error) {
	if err := s.requireResolved(); err != nil {
		return nil, err
	}
	ct, err := cat.ContentType(ctx, s.ContentType)
	if err != nil {
		return nil, fmt.Errorf("structure %s: %w", s.Identifier, err)
	}

	table := &Table{}
	if s.Key != "" {
		entries, err := s.entries(ctx, rdb, ct.Converter)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Warn("structure content replaced by error row", "structure", s.Identifier, "key", s.Key, "error", err)
			entries = []Entry{errorEntry("content", err)}
		}
		if len(entries) > 0 {
			table = tableFromEntries(entries).
				renamed(contentColumnNamer(ct.Identifier)).
				withLeadingColumn(ColumnKey, s.Key)
		}
	}

	for i := range s.Joins {
		joined, err := s.Joins[i].Apply(ctx, table, rdb, cat)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Warn("join replaced by error row", "structure", s.Identifier, "join", i, "error", err)
			table = table.union(errorTable(fmt.Sprintf("join:%d", i), err))
			continue
		}
		table = joined
	}
	return table, nil
}

func (s *Structure) entries(ctx context.Context, rdb redis.Cmdable, converter ContentConverter) ([]Entry, error) {
	content, err := s.StructureType.ReadContent(ctx, rdb, s.Key)
	if err != nil {
		return nil, err
	}
	return s.StructureType.Rows(content, converter)
}

// Summary returns the one-line description including key, shape and joins.
func (s *Structure) Summary() string {
	targets := make([]string, len(s.Joins))
	for i, j := range s.Joins {
		targets[i] = j.Structure
	}
	return fmt.Sprintf("%s %s > %s > %s + (%s)", s.Element.Summary(), s.Key, s.StructureType, s.ContentType, strings.Join(targets, ", "))
}

// Detail describes the raw content: "No key" for keyless structures, the
// placeholder key for templates, and indented JSON content otherwise.
func (s *Structure) Detail(ctx context.Context, rdb redis.Cmdable) (string, error) {
	if s.Key == "" {
		return "No key", nil
	}
	if len(s.KeyTokens) > 0 {
		placeholders := make([]string, len(s.KeyTokens))
		for i, t := range s.KeyTokens {
			placeholders[i] = "{" + t + "}"
		}
		key, err := formatKey(s.Key, placeholders)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrUnresolvedKey, s.Identifier, err)
		}
		return "Token key " + key, nil
	}
	content, err := s.Content(ctx, rdb)
	if err != nil {
		return "", err
	}
	opts := canonicalOptions
	opts.Indent = 2
	return oj.JSON(detailValue(content), &opts), nil
}

// detailValue converts Redis reply types into plain JSON-able values.
func detailValue(content any) any {
	switch c := content.(type) {
	case []redis.Z:
		out := make([]any, len(c))
		for i, z := range c {
			out[i] = []any{z.Member, z.Score}
		}
		return out
	case []redis.XMessage:
		out := make([]any, len(c))
		for i, m := range c {
			out[i] = []any{m.ID, m.Values}
		}
		return out
	case []string:
		out := make([]any, len(c))
		for i, v := range c {
			out[i] = v
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(c))
		for k, v := range c {
			out[k] = v
		}
		return out
	default:
		return c
	}
}

// contentColumnNamer maps converted row fields to view column names.
func contentColumnNamer(contentType string) func(string) string {
	return func(field string) string {
		switch {
		case field == "":
			return contentType
		case strings.HasPrefix(field, reservedMarker):
			return strings.TrimPrefix(field, reservedMarker)
		default:
			return contentType + "." + field
		}
	}
}

func errorEntry(where string, err error) Entry {
	return Entry{
		{Name: reserved(ColumnErrorContext), Value: where},
		{Name: reserved(ColumnError), Value: err.Error()},
	}
}

func errorTable(where string, err error) *Table {
	return NewTable(
		[]string{ColumnErrorContext, ColumnError},
		[]Row{{ColumnErrorContext: where, ColumnError: err.Error()}},
	)
}

// formatKey substitutes values into "{}" and "{N}" placeholders. "{{" and "}}"
// produce literal braces.
func formatKey(template string, values []string) (string, error) {
	var b strings.Builder
	next := 0
	for i := 0; i < len(template); i++ {
		ch := template[i]
		switch ch {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unclosed placeholder in key %q", template)
			}
			field := template[i+1 : i+end]
			idx := next
			if field == "" {
				next++
			} else {
				n, err := strconv.Atoi(field)
				if err != nil {
					return "", fmt.Errorf("placeholder {%s} in key %q is not positional", field, template)
				}
				idx = n
			}
			if idx < 0 || idx >= len(values) {
				return "", fmt.Errorf("placeholder index %d out of range for %d values", idx, len(values))
			}
			b.WriteString(values[idx])
			i += end
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("single '}' in key %q", template)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String(), nil
}
