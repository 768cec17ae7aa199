package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefineAndReadContentType(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	ct := &ContentType{
		Element:    Element{Identifier: "job", Title: "Job", Description: "A job record.", Tags: []string{"queue", "job", "queue"}},
		Converter:  ConverterResource,
		Properties: map[string]string{"realm": "string"},
	}
	require.NoError(t, client.DefineContentType(ctx, ct))

	stored := mr.HGet(ContentTypesKey, "job")
	assert.Equal(t,
		`{"converter":"resource","description":"A job record.","identifier":"job","properties":{"realm":"string"},"tags":["job","queue"],"title":"Job"}`,
		stored)

	got, err := client.ContentType(ctx, "job")
	require.NoError(t, err)
	assert.Equal(t, "job", got.Identifier)
	assert.Equal(t, ConverterResource, got.Converter)
	assert.Equal(t, []string{"job", "queue"}, got.Tags)
	assert.Equal(t, map[string]string{"realm": "string"}, got.Properties)

	// the caller's definition is left untouched
	assert.Equal(t, []string{"queue", "job", "queue"}, ct.Tags)
}

func TestDefineIsIdempotent(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	s := NewHash(Element{Identifier: "job_records", Tags: []string{"b", "a"}}, "{}", "job", "job")
	s.Joins = []Join{{Structure: "jobs_scored", On: map[string]string{"key": "job_identifier"}}}

	require.NoError(t, client.DefineStructure(ctx, s))
	first := mr.HGet(StructuresKey, "job_records")

	read, err := client.Structure(ctx, "job_records")
	require.NoError(t, err)
	require.NoError(t, client.DefineStructure(ctx, read))
	assert.Equal(t, first, mr.HGet(StructuresKey, "job_records"))

	// the default prefix is materialized on write
	require.Len(t, read.Joins, 1)
	require.NotNil(t, read.Joins[0].Prefix)
	assert.Equal(t, "jobs_scored.", *read.Joins[0].Prefix)
	assert.Equal(t, []string{"a", "b"}, read.Tags)
}

func TestStructureRoundTripKeepsRangesAndSort(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	s := &Structure{
		Element:       Element{Identifier: "latest_jobs"},
		StructureType: StructureList,
		ContentType:   "job_identifier",
		Joins: []Join{{
			Structure: "jobs_scored",
			Sort:      []SortKey{{Column: "ordered_set_score", Ascending: false}},
			Ranges:    []Range{{Start: Bound(-3)}, NewRange(Bound(0), Bound(1))},
		}},
	}
	require.NoError(t, client.DefineStructure(ctx, s))

	got, err := client.Structure(ctx, "latest_jobs")
	require.NoError(t, err)
	require.Len(t, got.Joins, 1)
	assert.Equal(t, s.Joins[0].Sort, got.Joins[0].Sort)
	require.Len(t, got.Joins[0].Ranges, 2)
	assert.Equal(t, -3, *got.Joins[0].Ranges[0].Start)
	assert.Nil(t, got.Joins[0].Ranges[0].End)
	assert.Equal(t, 1, *got.Joins[0].Ranges[1].End)
}

func TestJoinFromYAML(t *testing.T) {
	doc := `
structure: jobs_scored
select: [job_identifier]
sort:
  - [ordered_set_score, false]
ranges:
  - [-2, ~]
  - [0, 0]
`
	var j Join
	require.NoError(t, yaml.Unmarshal([]byte(doc), &j))
	assert.Equal(t, "jobs_scored", j.Structure)
	assert.Equal(t, []SortKey{{Column: "ordered_set_score", Ascending: false}}, j.Sort)
	require.Len(t, j.Ranges, 2)
	assert.Equal(t, -2, *j.Ranges[0].Start)
	assert.Nil(t, j.Ranges[0].End)
	assert.Equal(t, 0, *j.Ranges[1].End)

	var bad Join
	assert.Error(t, yaml.Unmarshal([]byte("ranges: [[1]]"), &bad))
}

func TestDefineRejectsInvalid(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	err := client.DefineContentType(ctx, &ContentType{Element: Element{Identifier: "x"}, Converter: "xml"})
	assert.Error(t, err)

	err = client.DefineStructure(ctx, &Structure{Element: Element{Identifier: "y"}, StructureType: "tree", ContentType: "json"})
	assert.Error(t, err)

	assert.False(t, mr.Exists(ContentTypesKey))
	assert.False(t, mr.Exists(StructuresKey))
}

func TestUndefinedLookups(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	_, err := client.ContentType(ctx, "missing")
	assert.True(t, IsNotDefined(err))

	_, err = client.Structure(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotDefined)

	_, err = client.View(ctx, "missing")
	assert.True(t, IsNotDefined(err))
}

func TestListDefinitions(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.DefineBuiltins(ctx))
	define(t, client, testJobIdentifier, testScoredJobs)

	types, err := client.ContentTypes(ctx)
	require.NoError(t, err)
	var ids []string
	for _, ct := range types {
		ids = append(ids, ct.Identifier)
	}
	assert.Equal(t, []string{"job_identifier", "json", "json_object", "micra_command"}, ids)

	structures, err := client.Structures(ctx)
	require.NoError(t, err)
	ids = nil
	for _, s := range structures {
		ids = append(ids, s.Identifier)
	}
	assert.Equal(t, []string{"jobs_scored", "micra_commands", "micra_content_types", "micra_definitions", "micra_structures", "micra_structures_with_types"}, ids)
}

func TestViewWithTokens(t *testing.T) {
	client, _ := setupJobs(t)
	ctx := context.Background()

	table, err := client.View(ctx, "job_records", "job:42")
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "job:42", table.Value(0, "key"))
	assert.Equal(t, "almacen", table.Value(0, "job.realm"))

	_, err = client.View(ctx, "job_records")
	assert.ErrorIs(t, err, ErrUnresolvedKey)

	_, err = client.View(ctx, "jobs_scored", "extra")
	assert.ErrorIs(t, err, ErrUnresolvedKey)
}

func TestCanonicalJSON(t *testing.T) {
	text, err := CanonicalJSON(map[string]any{"b": 1, "a": []string{"z", "y"}, "c": map[string]any{"y": true, "x": nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":["z","y"],"b":1,"c":{"x":null,"y":true}}`, text)

	assert.Equal(t, []string{}, sortedSet(nil))
	assert.Equal(t, []string{"a", "b"}, sortedSet([]string{"b", "a", "b"}))
}
