package store

import (
	"context"
	"math"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupJobs defines job fixtures and seeds scored jobs and job records.
func setupJobs(t *testing.T) (*Client, context.Context) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	rdb := client.Redis()

	define(t, client, testJobIdentifier, testJobRecord, testScoredJobs, testJobRecords,
		NewList(Element{Identifier: "jobs_ready"}, "ready_jobs", "job_identifier"))

	require.NoError(t, rdb.ZAdd(ctx, "scored_jobs",
		redis.Z{Score: 3, Member: "job:42"},
		redis.Z{Score: 1, Member: "job:7"},
	).Err())
	require.NoError(t, rdb.HSet(ctx, "job:42", "realm", "almacen", "action", "fetch").Err())
	require.NoError(t, rdb.HSet(ctx, "job:7", "realm", "almacen_api", "action", "parse").Err())
	require.NoError(t, rdb.RPush(ctx, "ready_jobs", "job:7", "job:99").Err())

	return client, ctx
}

// viewOf builds the view of an ad-hoc keyless structure holding the given joins.
func viewOf(t *testing.T, client *Client, ctx context.Context, joins ...Join) *Table {
	t.Helper()
	s := &Structure{
		Element:       Element{Identifier: "adhoc"},
		StructureType: StructureList,
		ContentType:   "job_identifier",
		Joins:         joins,
	}
	table, err := s.View(ctx, client.Redis(), client)
	require.NoError(t, err)
	return table
}

func TestJoinUnion(t *testing.T) {
	client, ctx := setupJobs(t)

	scored, err := client.View(ctx, "jobs_scored")
	require.NoError(t, err)

	s, err := client.Structure(ctx, "jobs_scored")
	require.NoError(t, err)
	s.Joins = []Join{{Structure: "jobs_ready"}}

	table, err := s.View(ctx, client.Redis(), client)
	require.NoError(t, err)

	ready, err := client.View(ctx, "jobs_ready")
	require.NoError(t, err)

	assert.Equal(t, scored.Len()+ready.Len(), table.Len())
	assert.Equal(t, []string{"key", "ordered_set_score", "job_identifier"}, table.Columns())
	for i := 0; i < scored.Len(); i++ {
		assert.Equal(t, scored.Row(i), table.Row(i), "base row %d preserved", i)
	}
	assert.Equal(t, Row{"key": "ready_jobs", "ordered_set_score": nil, "job_identifier": "job:7"}, table.Row(2))
}

func TestJoinUnionKeepsDuplicates(t *testing.T) {
	client, ctx := setupJobs(t)

	table := viewOf(t, client, ctx, Join{Structure: "jobs_ready"}, Join{Structure: "jobs_ready"})
	assert.Equal(t, 4, table.Len())
}

func TestJoinSelectFillsMissingColumns(t *testing.T) {
	client, ctx := setupJobs(t)

	table := viewOf(t, client, ctx, Join{Structure: "jobs_ready", Select: []string{"job_identifier", "not_there"}})
	assert.Equal(t, []string{"job_identifier", "not_there"}, table.Columns())
	assert.Equal(t, Row{"job_identifier": "job:99", "not_there": nil}, table.Row(1))
}

func TestJoinKeyOnWithMerge(t *testing.T) {
	client, ctx := setupJobs(t)

	s, err := client.Structure(ctx, "jobs_scored")
	require.NoError(t, err)
	s.Joins = []Join{{
		Structure: "job_records",
		KeyOn:     []string{"job_identifier"},
		On:        map[string]string{"job_identifier": "key"},
		Select:    []string{"job.realm"},
	}}

	table, err := s.View(ctx, client.Redis(), client)
	require.NoError(t, err)

	assert.Equal(t, []string{"key", "ordered_set_score", "job_identifier", "job_records.job.realm"}, table.Columns())
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "job:7", table.Value(0, "job_identifier"))
	assert.Equal(t, "almacen_api", table.Value(0, "job_records.job.realm"))
	assert.Equal(t, "job:42", table.Value(1, "job_identifier"))
	assert.Equal(t, "almacen", table.Value(1, "job_records.job.realm"))
}

func TestJoinKeyOnWithoutMergeExpandsRows(t *testing.T) {
	client, ctx := setupJobs(t)

	s, err := client.Structure(ctx, "jobs_scored")
	require.NoError(t, err)
	s.Joins = []Join{{Structure: "job_records", KeyOn: []string{"job_identifier"}}}

	table, err := s.View(ctx, client.Redis(), client)
	require.NoError(t, err)

	// two scored rows followed by one record row per distinct job
	require.Equal(t, 4, table.Len())
	assert.Equal(t, "job:42", table.Value(2, "key"))
	assert.Equal(t, "fetch", table.Value(2, "job.action"))
	assert.Equal(t, "job:7", table.Value(3, "key"))
}

func TestJoinKeyOnFloatTokens(t *testing.T) {
	client, ctx := setupJobs(t)
	define(t, client, NewHash(Element{Identifier: "score_notes"}, "score:{}", "job", "score"))
	require.NoError(t, client.Redis().HSet(ctx, "score:3.0", "realm", "high").Err())
	require.NoError(t, client.Redis().HSet(ctx, "score:1.0", "realm", "low").Err())

	s, err := client.Structure(ctx, "jobs_scored")
	require.NoError(t, err)
	s.Joins = []Join{{Structure: "score_notes", KeyOn: []string{"ordered_set_score"}}}

	table, err := s.View(ctx, client.Redis(), client)
	require.NoError(t, err)

	require.Equal(t, 4, table.Len())
	assert.Equal(t, "score:1.0", table.Value(2, "key"))
	assert.Equal(t, "low", table.Value(2, "job.realm"))
	assert.Equal(t, "score:3.0", table.Value(3, "key"))
	assert.Equal(t, "high", table.Value(3, "job.realm"))
}

func TestKeyToken(t *testing.T) {
	testCases := []struct {
		value    any
		expected string
	}{
		{3.0, "3.0"},
		{2.5, "2.5"},
		{-1.0, "-1.0"},
		{0.0, "0.0"},
		{1e16, "1e+16"},
		{0.00001, "1e-05"},
		{math.Inf(1), "inf"},
		{int64(3), "3"},
		{"job:7", "job:7"},
		{nil, ""},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, keyToken(tc.value), "%v", tc.value)
	}
}

func TestJoinLeftOuterKeepsUnmatchedRows(t *testing.T) {
	client, ctx := setupJobs(t)

	ready, err := client.Structure(ctx, "jobs_ready")
	require.NoError(t, err)
	ready.Joins = []Join{{
		Structure: "jobs_scored",
		Select:    []string{"ordered_set_score"},
		On:        map[string]string{"job_identifier": "job_identifier"},
	}}

	table, err := ready.View(ctx, client.Redis(), client)
	require.NoError(t, err)

	assert.Equal(t, []string{"key", "job_identifier", "jobs_scored.ordered_set_score"}, table.Columns())
	require.Equal(t, 2, table.Len())
	assert.Equal(t, 1.0, table.Value(0, "jobs_scored.ordered_set_score"))
	assert.Nil(t, table.Value(1, "jobs_scored.ordered_set_score"))
}

func TestLeftMergeMatchesNullKeys(t *testing.T) {
	left := NewTable([]string{"id", "tag"}, []Row{
		{"id": "a", "tag": "x"},
		{"id": nil, "tag": "y"},
		{"id": math.NaN(), "tag": "z"},
	})
	right := NewTable([]string{"label"}, []Row{{"label": "nothing"}, {"label": "one"}})

	merged, err := left.leftMerge(right, []string{"id"}, [][]any{{nil}, {"a"}})
	require.NoError(t, err)

	require.Equal(t, 3, merged.Len())
	assert.Equal(t, []any{"one", "nothing", "nothing"}, merged.Column("label"))
}

func TestJoinCustomPrefix(t *testing.T) {
	client, ctx := setupJobs(t)

	prefix := "s_"
	ready, err := client.Structure(ctx, "jobs_ready")
	require.NoError(t, err)
	ready.Joins = []Join{{
		Structure: "jobs_scored",
		Select:    []string{"ordered_set_score"},
		On:        map[string]string{"job_identifier": "job_identifier"},
		Prefix:    &prefix,
	}}

	table, err := ready.View(ctx, client.Redis(), client)
	require.NoError(t, err)
	assert.True(t, table.HasColumn("s_ordered_set_score"))
}

func TestJoinSortByScore(t *testing.T) {
	client, ctx := setupJobs(t)

	t.Run("ascending", func(t *testing.T) {
		table := viewOf(t, client, ctx, Join{
			Structure: "jobs_scored",
			Sort:      []SortKey{{Column: "ordered_set_score", Ascending: true}},
		})
		assert.Equal(t, []any{"job:7", "job:42"}, table.Column("job_identifier"))
	})

	t.Run("descending", func(t *testing.T) {
		table := viewOf(t, client, ctx, Join{
			Structure: "jobs_scored",
			Sort:      []SortKey{{Column: "ordered_set_score", Ascending: false}},
		})
		assert.Equal(t, []any{"job:42", "job:7"}, table.Column("job_identifier"))
	})

	t.Run("missing sort column is null filled", func(t *testing.T) {
		table := viewOf(t, client, ctx, Join{
			Structure: "jobs_scored",
			Sort:      []SortKey{{Column: "priority", Ascending: true}},
		})
		assert.True(t, table.HasColumn("priority"))
		assert.Equal(t, []any{"job:7", "job:42"}, table.Column("job_identifier"))
	})
}

func TestJoinRanges(t *testing.T) {
	client, ctx := setupJobs(t)
	require.NoError(t, client.Redis().RPush(ctx, "letters", "a", "b", "c", "d", "e").Err())
	define(t, client, NewList(Element{Identifier: "letters"}, "letters", "job_identifier"))

	t.Run("last two", func(t *testing.T) {
		table := viewOf(t, client, ctx, Join{Structure: "letters", Ranges: []Range{{Start: Bound(-2)}}})
		assert.Equal(t, []any{"d", "e"}, table.Column("job_identifier"))
	})

	t.Run("all but last", func(t *testing.T) {
		table := viewOf(t, client, ctx, Join{Structure: "letters", Ranges: []Range{{Start: Bound(0), End: Bound(-1)}}})
		assert.Equal(t, []any{"a", "b", "c", "d"}, table.Column("job_identifier"))
	})

	t.Run("union of ranges in index order", func(t *testing.T) {
		table := viewOf(t, client, ctx, Join{Structure: "letters", Ranges: []Range{
			{Start: Bound(4)},
			{Start: Bound(0), End: Bound(0)},
		}})
		assert.Equal(t, []any{"a", "e"}, table.Column("job_identifier"))
	})
}

func TestJoinFailuresBecomeErrorRows(t *testing.T) {
	client, ctx := setupJobs(t)

	t.Run("arity mismatch", func(t *testing.T) {
		table := viewOf(t, client, ctx, Join{Structure: "job_records"})
		require.Equal(t, 1, table.Len())
		assert.Equal(t, "join:0", table.Value(0, "error_context"))
		assert.Contains(t, table.Value(0, "error"), ErrJoinArity.Error())
	})

	t.Run("undefined target", func(t *testing.T) {
		table := viewOf(t, client, ctx, Join{Structure: "jobs_ready"}, Join{Structure: "nope"})
		require.Equal(t, 3, table.Len())
		assert.Equal(t, "join:1", table.Value(2, "error_context"))
		assert.Nil(t, table.Value(0, "error_context"))
	})

	t.Run("missing left correlation column", func(t *testing.T) {
		table := viewOf(t, client, ctx,
			Join{Structure: "jobs_ready"},
			Join{Structure: "jobs_scored", On: map[string]string{"absent": "job_identifier"}},
		)
		assert.Equal(t, "join:1", table.Value(table.Len()-1, "error_context"))
	})

	t.Run("missing key_on column", func(t *testing.T) {
		table := viewOf(t, client, ctx, Join{Structure: "job_records", KeyOn: []string{"absent"}})
		assert.Equal(t, "join:0", table.Value(0, "error_context"))
	})
}

func TestResolveRanges(t *testing.T) {
	tests := []struct {
		name   string
		ranges []Range
		n      int
		want   []int
	}{
		{"negative start open end", []Range{{Start: Bound(-2)}}, 5, []int{3, 4}},
		{"negative end excludes last", []Range{{Start: Bound(0), End: Bound(-1)}}, 5, []int{0, 1, 2, 3}},
		{"non-negative end inclusive", []Range{{Start: Bound(1), End: Bound(2)}}, 5, []int{1, 2}},
		{"open both ends", []Range{{}}, 3, []int{0, 1, 2}},
		{"overlapping ranges merged", []Range{{Start: Bound(0), End: Bound(2)}, {Start: Bound(1), End: Bound(3)}}, 5, []int{0, 1, 2, 3}},
		{"start past end of table", []Range{{Start: Bound(10)}}, 5, nil},
		{"start before beginning clamps", []Range{{Start: Bound(-10), End: Bound(1)}}, 5, []int{0, 1}},
		{"end past table clamps", []Range{{Start: Bound(3), End: Bound(99)}}, 5, []int{3, 4}},
		{"empty table", []Range{{}}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveRanges(tt.ranges, tt.n))
		})
	}
}

func TestBuiltinDefinitionViews(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.DefineBuiltins(ctx))

	t.Run("definitions union both registries", func(t *testing.T) {
		table, err := client.View(ctx, "micra_definitions")
		require.NoError(t, err)
		assert.Equal(t, len(BuiltinContentTypes())+len(BuiltinStructures()), table.Len())
		assert.Nil(t, table.Value(0, "error"))
		assert.Equal(t, "micra_content_types", table.Value(0, "key"))
	})

	t.Run("structures carry content type columns", func(t *testing.T) {
		table, err := client.View(ctx, "micra_structures_with_types")
		require.NoError(t, err)
		require.Equal(t, len(BuiltinStructures()), table.Len())
		assert.Equal(t, "micra_commands", table.Value(0, "hash_key"))
		assert.Equal(t, "Micra Command", table.Value(0, "micra_content_types.json_object.title"))
		assert.Equal(t, "json_object", table.Value(1, "micra_content_types.json_object.converter"))
	})
}
