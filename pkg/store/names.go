package store

import "strings"

// Resource names are built from ordered components joined with ':'.
//
// Each component is escaped before joining: '\' becomes `\ ` (backslash space) and
// ':' becomes `\-`. The escaping must stay byte-compatible with names already stored.

var (
	nameEscaper   = strings.NewReplacer(`\`, `\ `, `:`, `\-`)
	nameUnescaper = strings.NewReplacer(`\-`, `:`, `\ `, `\`)
)

// EscapeNameComponent escapes a single name component.
func EscapeNameComponent(component string) string {
	return nameEscaper.Replace(component)
}

// UnescapeNameComponent reverses EscapeNameComponent.
func UnescapeNameComponent(component string) string {
	return nameUnescaper.Replace(component)
}

// EncodeName joins escaped components with ':'.
func EncodeName(components ...string) string {
	escaped := make([]string, len(components))
	for i, c := range components {
		escaped[i] = EscapeNameComponent(c)
	}
	return strings.Join(escaped, ":")
}

// DecodeName splits a name on ':' and unescapes each component.
// Escaped colons never contain a literal ':' so a plain split is sufficient.
func DecodeName(name string) []string {
	parts := strings.Split(name, ":")
	for i, p := range parts {
		parts[i] = UnescapeNameComponent(p)
	}
	return parts
}
