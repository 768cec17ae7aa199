package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeName(t *testing.T) {
	tests := []struct {
		name       string
		components []string
		want       string
	}{
		{"plain components", []string{"job", "42", "v1"}, "job:42:v1"},
		{"colon escaped", []string{"a:b", "c"}, `a\-b:c`},
		{"backslash escaped", []string{`c\d`}, `c\ d`},
		{"backslash before dash", []string{`x\-y`}, `x\ -y`},
		{"single empty component", []string{""}, ""},
		{"empty components kept", []string{"", ""}, ":"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeName(tt.components...))
		})
	}
}

func TestDecodeName(t *testing.T) {
	assert.Equal(t, []string{"a:b", "c"}, DecodeName(`a\-b:c`))
	assert.Equal(t, []string{`c\d`}, DecodeName(`c\ d`))
	assert.Equal(t, []string{"job", "42"}, DecodeName("job:42"))
}

func TestNameRoundTrip(t *testing.T) {
	cases := [][]string{
		{"a:b", `c\d`, "e"},
		{`\`, `:`, `\:`, `:\`},
		{`\-`, `\ `, " - "},
		{"almacen", "run:2024-01-01T00:00:00", `C:\temp`},
		{""},
	}

	for _, components := range cases {
		encoded := EncodeName(components...)
		assert.Equal(t, components, DecodeName(encoded), "encoded as %q", encoded)
	}
}
