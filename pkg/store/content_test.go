package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentConverterValidate(t *testing.T) {
	for _, cc := range []ContentConverter{ConverterString, ConverterDictionary, ConverterJSON, ConverterJSONObject, ConverterResource} {
		assert.NoError(t, cc.Validate(), cc)
	}
	assert.Error(t, ContentConverter("yaml").Validate())
}

func TestConvertsCollection(t *testing.T) {
	assert.True(t, ConverterResource.ConvertsCollection())
	assert.False(t, ConverterString.ConvertsCollection())
	assert.False(t, ConverterDictionary.ConvertsCollection())
	assert.False(t, ConverterJSON.ConvertsCollection())
	assert.False(t, ConverterJSONObject.ConvertsCollection())
}

func TestConvertEntry(t *testing.T) {
	tests := []struct {
		name      string
		converter ContentConverter
		raw       any
		want      Entry
	}{
		{
			name:      "string is the unnamed field",
			converter: ConverterString,
			raw:       "job:42",
			want:      Entry{{Name: "", Value: "job:42"}},
		},
		{
			name:      "dictionary fields ordered by name",
			converter: ConverterDictionary,
			raw:       map[string]any{"job": "job:42", "host": "a"},
			want:      Entry{{Name: "host", Value: "a"}, {Name: "job", Value: "job:42"}},
		},
		{
			name:      "json scalar",
			converter: ConverterJSON,
			raw:       `"hello"`,
			want:      Entry{{Name: "", Value: "hello"}},
		},
		{
			name:      "json number",
			converter: ConverterJSON,
			raw:       `2.5`,
			want:      Entry{{Name: "", Value: 2.5}},
		},
		{
			name:      "json object members",
			converter: ConverterJSONObject,
			raw:       `{"title":"JSON","identifier":"json"}`,
			want:      Entry{{Name: "identifier", Value: "json"}, {Name: "title", Value: "JSON"}},
		},
		{
			name:      "resource wraps field map",
			converter: ConverterResource,
			raw:       map[string]string{"realm": "almacen", "action": "fetch"},
			want:      Entry{{Name: "action", Value: "fetch"}, {Name: "realm", Value: "almacen"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.converter.ConvertEntry(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertEntryErrors(t *testing.T) {
	tests := []struct {
		name      string
		converter ContentConverter
		raw       any
	}{
		{"invalid json", ConverterJSON, `{"a":`},
		{"json object from array", ConverterJSONObject, `[1,2]`},
		{"json from non-string", ConverterJSON, map[string]any{"a": "b"}},
		{"dictionary from string", ConverterDictionary, "plain"},
		{"resource from list", ConverterResource, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.converter.ConvertEntry(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestContentTypeValidate(t *testing.T) {
	ct := &ContentType{Element: Element{Identifier: "job_identifier"}, Converter: ConverterString}
	assert.NoError(t, ct.Validate())

	assert.Error(t, (&ContentType{Converter: ConverterString}).Validate())
	assert.Error(t, (&ContentType{Element: Element{Identifier: "x"}, Converter: "bogus"}).Validate())
}

func TestContentTypeSummary(t *testing.T) {
	ct := &ContentType{
		Element:    Element{Identifier: "job_appointment", Description: "Claimable job.", Tags: []string{"job", "appointment"}},
		Converter:  ConverterDictionary,
		Properties: map[string]string{"job": "job_instance"},
	}
	assert.Equal(t, "(job_appointment): Claimable job. [appointment, job] (job: job_instance) dictionary", ct.Summary())
}
