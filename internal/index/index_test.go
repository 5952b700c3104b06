package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrondb/chrondb/internal/value"
)

func mustDoc(t *testing.T, fields map[string]value.Value) value.Value {
	t.Helper()
	return value.Map(fields)
}

func TestIndexTermSearch(t *testing.T) {
	idx := New()
	err := idx.Index(mustDoc(t, map[string]value.Value{
		"id":   value.String("user:1"),
		"name": value.String("ada"),
	}), "main")
	require.NoError(t, err)

	ids := idx.Search("name", "ada", "main")
	assert.Equal(t, []string{"user:1"}, ids)

	assert.Empty(t, idx.Search("name", "grace", "main"))
}

func TestIndexWildcardSearch(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Index(mustDoc(t, map[string]value.Value{
		"id": value.String("user:1"), "name": value.String("ada"),
	}), "main"))
	require.NoError(t, idx.Index(mustDoc(t, map[string]value.Value{
		"id": value.String("user:2"), "name": value.String("adam"),
	}), "main"))

	ids := idx.Search("name", "ada*", "main")
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, ids)
}

func TestIndexDeleteRemovesPostings(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Index(mustDoc(t, map[string]value.Value{
		"id": value.String("user:1"), "name": value.String("ada"),
	}), "main"))

	assert.True(t, idx.Delete("user:1", "main"))
	assert.Empty(t, idx.Search("name", "ada", "main"))
	assert.False(t, idx.Delete("user:1", "main"))
}

func TestIndexReindexReplacesOldTerms(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Index(mustDoc(t, map[string]value.Value{
		"id": value.String("user:1"), "name": value.String("ada"),
	}), "main"))
	require.NoError(t, idx.Index(mustDoc(t, map[string]value.Value{
		"id": value.String("user:1"), "name": value.String("grace"),
	}), "main"))

	assert.Empty(t, idx.Search("name", "ada", "main"))
	assert.Equal(t, []string{"user:1"}, idx.Search("name", "grace", "main"))
}

func TestSearchQueryBooleanMust(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Index(mustDoc(t, map[string]value.Value{
		"id": value.String("user:1"), "_table": value.String("user"),
		"name": value.String("ada"), "age": value.Int(30),
	}), "main"))
	require.NoError(t, idx.Index(mustDoc(t, map[string]value.Value{
		"id": value.String("user:2"), "_table": value.String("user"),
		"name": value.String("grace"), "age": value.Int(40),
	}), "main"))

	q := &Query{
		Clauses: []Node{Term("_table", "user"), Range("age", strPtr("35"), nil, true, false, TypeLong)},
		Branch:  "main",
	}
	res, err := idx.SearchQuery(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"user:2"}, res.IDs)
	assert.Equal(t, 1, res.Total)
}

func TestSearchQueryExistsMissing(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Index(mustDoc(t, map[string]value.Value{
		"id": value.String("user:1"), "email": value.String("a@b.com"),
	}), "main"))
	require.NoError(t, idx.Index(mustDoc(t, map[string]value.Value{
		"id": value.String("user:2"),
	}), "main"))

	res, err := idx.SearchQuery(&Query{Clauses: []Node{Exists("email")}, Branch: "main"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user:1"}, res.IDs)

	res, err = idx.SearchQuery(&Query{Clauses: []Node{Missing("email")}, Branch: "main"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user:2"}, res.IDs)
}

func TestSearchQueryFTSMatchesAnyToken(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Index(mustDoc(t, map[string]value.Value{
		"id": value.String("doc:1"), "body": value.String("the quick brown fox"),
	}), "main"))

	res, err := idx.SearchQuery(&Query{Clauses: []Node{FTS("body", "quick zebra")}, Branch: "main"})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc:1"}, res.IDs)
}

func TestSearchQueryPagingAndSort(t *testing.T) {
	idx := New()
	for i, name := range []string{"charlie", "alice", "bob"} {
		require.NoError(t, idx.Index(mustDoc(t, map[string]value.Value{
			"id": value.String("user:" + string(rune('1'+i))), "name": value.String(name),
		}), "main"))
	}

	res, err := idx.SearchQuery(&Query{
		Clauses: []Node{MatchAll()},
		Sort:    []Sort{{Field: "name", ValueType: TypeString}},
		Limit:   2,
		Branch:  "main",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.IDs, 2)
}

func TestSearchQueryWarmingRequiresHint(t *testing.T) {
	idx := New()
	idx.setWarming("main", true)

	_, err := idx.SearchQuery(&Query{Clauses: []Node{MatchAll()}, Branch: "main"})
	assert.ErrorIs(t, err, ErrWarming)

	res, err := idx.SearchQuery(&Query{Clauses: []Node{MatchAll()}, Branch: "main", Hints: map[string]bool{"warming": true}})
	require.NoError(t, err)
	assert.True(t, res.Warming)
}

func TestRebuildRepopulatesFromSource(t *testing.T) {
	idx := New()
	docs := []value.Value{
		mustDoc(t, map[string]value.Value{"id": value.String("user:1"), "name": value.String("ada")}),
	}
	err := idx.Rebuild("main", func() ([]value.Value, error) { return docs, nil })
	require.NoError(t, err)

	assert.Equal(t, []string{"user:1"}, idx.Search("name", "ada", "main"))
}

func TestWriteAfterCloseIsNoOp(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Close())
	err := idx.Index(mustDoc(t, map[string]value.Value{"id": value.String("user:1")}), "main")
	assert.NoError(t, err)
	assert.Empty(t, idx.Search("id", "user:1", "main"))
}
