// Package schema exports JSON schemas for catalog definitions.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/dyluth/micra/pkg/store"
	"github.com/invopop/jsonschema"
)

// Kind names a catalog record type.
type Kind string

const (
	KindContentType Kind = "content_type"
	KindStructure   Kind = "structure"
)

// Kinds lists every exportable kind.
var Kinds = []Kind{KindContentType, KindStructure}

var (
	rangeType   = reflect.TypeOf(store.Range{})
	sortKeyType = reflect.TypeOf(store.SortKey{})
)

// pairs maps types stored as two-element JSON arrays to their tuple schema.
func pairs(t reflect.Type) *jsonschema.Schema {
	switch t {
	case rangeType:
		bound := &jsonschema.Schema{AnyOf: []*jsonschema.Schema{{Type: "integer"}, {Type: "null"}}}
		return &jsonschema.Schema{
			Type:        "array",
			Description: "[start, end] row range; null bounds are open, negative bounds count from the end",
			PrefixItems: []*jsonschema.Schema{bound, bound},
			Items:       jsonschema.FalseSchema,
		}
	case sortKeyType:
		return &jsonschema.Schema{
			Type:        "array",
			Description: "[column, ascending] sort key",
			PrefixItems: []*jsonschema.Schema{{Type: "string"}, {Type: "boolean"}},
			Items:       jsonschema.FalseSchema,
		}
	default:
		return nil
	}
}

// Reflect builds the schema of one kind.
func Reflect(kind Kind) (*jsonschema.Schema, error) {
	r := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		Mapper:         pairs,
	}
	switch kind {
	case KindContentType:
		return r.Reflect(&store.ContentType{}), nil
	case KindStructure:
		return r.Reflect(&store.Structure{}), nil
	default:
		return nil, fmt.Errorf("unknown schema kind: %q (must be content_type or structure)", kind)
	}
}

// JSON renders the schema of one kind, indented.
func JSON(kind Kind) ([]byte, error) {
	s, err := Reflect(kind)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s schema: %w", kind, err)
	}
	return data, nil
}
