package store

// Well-known Redis keys.
//
// The catalog is a pair of hashes mapping identifier -> canonical JSON definition.
// Key names are fixed so definitions written by other services stay readable.
const (
	// ContentTypesKey is the hash holding content type definitions.
	ContentTypesKey = "micra_content_types"

	// StructuresKey is the hash holding structure definitions.
	StructuresKey = "micra_structures"

	// CommandsKey is the list used as the coordinator's command queue.
	CommandsKey = "micra_commands"
)

// Reserved view columns. Reserved row fields carry a leading '.' marker until the
// view strips it.
const (
	ColumnKey             = "key"
	ColumnError           = "error"
	ColumnErrorContext    = "error_context"
	ColumnOrderedSetScore = "ordered_set_score"
	ColumnHashKey         = "hash_key"
	ColumnStreamID        = "stream_id"

	reservedMarker = "."
)

// reserved returns the marked row field name for a reserved column.
func reserved(column string) string {
	return reservedMarker + column
}
