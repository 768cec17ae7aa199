package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ohler55/ojg/oj"
)

// Element carries the fields shared by every catalog definition.
type Element struct {
	Identifier  string   `json:"identifier" yaml:"identifier" jsonschema:"description=Catalog key of the definition"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Tags        []string `json:"tags" yaml:"tags,omitempty" jsonschema:"uniqueItems=true"`
}

// HasTag reports whether the element carries the tag.
func (e *Element) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Summary returns the one-line description used in catalog listings.
func (e *Element) Summary() string {
	return fmt.Sprintf("(%s): %s [%s]", e.Identifier, e.Description, strings.Join(sortedSet(e.Tags), ", "))
}

// ContentConverter selects how a raw stored value becomes a row.
type ContentConverter string

const (
	// ConverterString keeps the raw value as the row's unnamed field.
	ConverterString ContentConverter = "string"

	// ConverterDictionary takes an already structured mapping as the row.
	ConverterDictionary ContentConverter = "dictionary"

	// ConverterJSON parses a JSON value into the row's unnamed field.
	ConverterJSON ContentConverter = "json"

	// ConverterJSONObject parses a JSON object whose members become the row.
	ConverterJSONObject ContentConverter = "json_object"

	// ConverterResource treats the whole content as one record's field map.
	ConverterResource ContentConverter = "resource"
)

// Validate checks if the ContentConverter is a valid enum value.
func (cc ContentConverter) Validate() error {
	switch cc {
	case ConverterString, ConverterDictionary, ConverterJSON, ConverterJSONObject, ConverterResource:
		return nil
	default:
		return fmt.Errorf("unknown content converter: %q", cc)
	}
}

// ConvertsCollection reports whether the converter consumes the whole content as a
// single row instead of one row per collection member.
func (cc ContentConverter) ConvertsCollection() bool {
	switch cc {
	case ConverterResource:
		return true
	case ConverterString, ConverterDictionary, ConverterJSON, ConverterJSONObject:
		return false
	default:
		return false
	}
}

// Convert decodes a raw stored value.
func (cc ContentConverter) Convert(raw any) (any, error) {
	switch cc {
	case ConverterString, ConverterDictionary:
		return raw, nil
	case ConverterJSON, ConverterJSONObject:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s content must be a string, got %T", cc, raw)
		}
		v, err := oj.ParseString(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s content: %w", cc, err)
		}
		return v, nil
	case ConverterResource:
		fields, err := stringMap(raw)
		if err != nil {
			return nil, fmt.Errorf("resource content: %w", err)
		}
		return NewRecord("", fields), nil
	default:
		return nil, fmt.Errorf("unknown content converter: %q", cc)
	}
}

// Entry turns a decoded value into a row.
func (cc ContentConverter) Entry(decoded any) (Entry, error) {
	switch cc {
	case ConverterString, ConverterJSON:
		return Entry{{Name: "", Value: decoded}}, nil
	case ConverterDictionary, ConverterJSONObject:
		return mapEntry(decoded)
	case ConverterResource:
		r, ok := decoded.(*Record)
		if !ok {
			return nil, fmt.Errorf("resource row must be a record, got %T", decoded)
		}
		return mapEntry(r.fields)
	default:
		return nil, fmt.Errorf("unknown content converter: %q", cc)
	}
}

// ConvertEntry runs Convert followed by Entry.
func (cc ContentConverter) ConvertEntry(raw any) (Entry, error) {
	decoded, err := cc.Convert(raw)
	if err != nil {
		return nil, err
	}
	return cc.Entry(decoded)
}

// ContentType declares how stored values of a structure convert to rows.
type ContentType struct {
	Element    `yaml:",inline"`
	Converter  ContentConverter  `json:"converter" yaml:"converter" jsonschema:"enum=string,enum=dictionary,enum=json,enum=json_object,enum=resource"`
	Properties map[string]string `json:"properties" yaml:"properties,omitempty" jsonschema:"description=Declared sub-field name to content type identifier"`
}

// Validate checks the content type definition.
func (ct *ContentType) Validate() error {
	if ct.Identifier == "" {
		return fmt.Errorf("content type identifier cannot be empty")
	}
	if err := ct.Converter.Validate(); err != nil {
		return fmt.Errorf("content type %s: %w", ct.Identifier, err)
	}
	return nil
}

// Summary returns the one-line description including properties and converter.
func (ct *ContentType) Summary() string {
	names := make([]string, 0, len(ct.Properties))
	for p := range ct.Properties {
		names = append(names, p)
	}
	sort.Strings(names)
	props := make([]string, len(names))
	for i, p := range names {
		props[i] = fmt.Sprintf("%s: %s", p, ct.Properties[p])
	}
	return fmt.Sprintf("%s (%s) %s", ct.Element.Summary(), strings.Join(props, ", "), ct.Converter)
}

// mapEntry builds a row from any string-keyed mapping, fields ordered by name.
func mapEntry(v any) (Entry, error) {
	var entry Entry
	switch m := v.(type) {
	case map[string]string:
		entry = make(Entry, 0, len(m))
		for k, val := range m {
			entry = append(entry, Cell{Name: k, Value: val})
		}
	case map[string]any:
		entry = make(Entry, 0, len(m))
		for k, val := range m {
			entry = append(entry, Cell{Name: k, Value: val})
		}
	default:
		return nil, fmt.Errorf("expected a mapping, got %T", v)
	}
	sort.Slice(entry, func(i, j int) bool { return entry[i].Name < entry[j].Name })
	return entry, nil
}

// stringMap coerces raw hash content into a field map.
func stringMap(v any) (map[string]string, error) {
	switch m := v.(type) {
	case map[string]string:
		return m, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = FormatValue(val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a field mapping, got %T", v)
	}
}
