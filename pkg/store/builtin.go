package store

import "context"

// Built-in definitions describing the catalog itself and the command queue.

var (
	// JSONType parses any JSON value.
	JSONType = &ContentType{
		Element:   Element{Identifier: "json", Title: "JSON", Description: "A JSON string."},
		Converter: ConverterJSON,
	}

	// JSONObjectType parses a JSON object into columns.
	JSONObjectType = &ContentType{
		Element:   Element{Identifier: "json_object", Title: "JSON Object", Description: "A JSON object string."},
		Converter: ConverterJSONObject,
	}

	// CommandType is a textual coordinator command.
	CommandType = &ContentType{
		Element:   Element{Identifier: "micra_command", Title: "Micra Command", Description: "A micra command string."},
		Converter: ConverterString,
	}

	// ContentTypesStructure is the content type registry.
	ContentTypesStructure = NewHash(
		Element{Identifier: "micra_content_types", Title: "Micra Content Types", Description: "Micra type definitions stored as JSON objects."},
		ContentTypesKey, JSONObjectType.Identifier,
	)

	// StructuresStructure is the structure registry.
	StructuresStructure = NewHash(
		Element{Identifier: "micra_structures", Title: "Micra Structures", Description: "Micra structure definitions stored as JSON objects."},
		StructuresKey, JSONObjectType.Identifier,
	)

	// DefinitionsStructure unions both registries.
	DefinitionsStructure = &Structure{
		Element:       Element{Identifier: "micra_definitions", Title: "Micra Definitions", Description: "Micra content type and structure definitions."},
		StructureType: StructureHash,
		ContentType:   JSONObjectType.Identifier,
		Joins: []Join{
			{Structure: ContentTypesStructure.Identifier},
			{Structure: StructuresStructure.Identifier},
		},
	}

	// StructuresWithTypesStructure lists structures with their content type attached.
	StructuresWithTypesStructure = &Structure{
		Element:       Element{Identifier: "micra_structures_with_types", Title: "Micra Structures with Content Types", Description: "Micra structure definitions with content types attached."},
		StructureType: StructureHash,
		ContentType:   JSONObjectType.Identifier,
		Joins: []Join{
			{Structure: StructuresStructure.Identifier},
			{
				Structure: ContentTypesStructure.Identifier,
				Select:    []string{"json_object.title", "json_object.description", "json_object.converter"},
				On:        map[string]string{"json_object.content_type": "json_object.identifier"},
			},
		},
	}

	// CommandsStructure is the coordinator's command queue.
	CommandsStructure = NewList(
		Element{Identifier: "micra_commands", Title: "Micra Commands", Description: "A queue of commands for Micra to execute."},
		CommandsKey, CommandType.Identifier,
	)
)

// BuiltinContentTypes returns the built-in content types.
func BuiltinContentTypes() []*ContentType {
	return []*ContentType{JSONType, JSONObjectType, CommandType}
}

// BuiltinStructures returns the built-in structures.
func BuiltinStructures() []*Structure {
	return []*Structure{
		ContentTypesStructure,
		StructuresStructure,
		DefinitionsStructure,
		StructuresWithTypesStructure,
		CommandsStructure,
	}
}

// DefineBuiltins registers every built-in definition.
func (c *Client) DefineBuiltins(ctx context.Context) error {
	for _, ct := range BuiltinContentTypes() {
		if err := c.DefineContentType(ctx, ct); err != nil {
			return err
		}
	}
	for _, s := range BuiltinStructures() {
		if err := c.DefineStructure(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
