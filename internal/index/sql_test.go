package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateSQLEquals(t *testing.T) {
	node := TranslateSQL([]SQLCondition{{Field: "status", Op: SQLEq, Value: "open"}})
	assert.Equal(t, Term("status", "open"), node)
}

func TestTranslateSQLNotEquals(t *testing.T) {
	node := TranslateSQL([]SQLCondition{{Field: "status", Op: SQLNeq, Value: "open"}})
	b, ok := node.(*BooleanNode)
	if assert.True(t, ok) {
		assert.Equal(t, []Node{Term("status", "open")}, b.MustNot)
	}
}

func TestTranslateSQLComparisonInfersLong(t *testing.T) {
	node := TranslateSQL([]SQLCondition{{Field: "age", Op: SQLGt, Value: "30"}})
	r, ok := node.(*RangeNode)
	if assert.True(t, ok) {
		assert.Equal(t, TypeLong, r.ValueType)
		assert.Equal(t, "30", *r.Lo)
		assert.Nil(t, r.Hi)
		assert.False(t, r.IncludeLo)
	}
}

func TestTranslateSQLLikeConvertsPercentToGlob(t *testing.T) {
	node := TranslateSQL([]SQLCondition{{Field: "name", Op: SQLLike, Value: "ada%"}})
	w, ok := node.(*WildcardNode)
	if assert.True(t, ok) {
		assert.Equal(t, "ada*", w.Pattern)
	}
}

func TestTranslateSQLIsNullMissing(t *testing.T) {
	node := TranslateSQL([]SQLCondition{{Field: "email", Op: SQLIsNull}})
	assert.Equal(t, Missing("email"), node)
}

func TestTranslateSQLIsNotNullExists(t *testing.T) {
	node := TranslateSQL([]SQLCondition{{Field: "email", Op: SQLIsNotNull}})
	assert.Equal(t, Exists("email"), node)
}

func TestTranslateSQLIn(t *testing.T) {
	node := TranslateSQL([]SQLCondition{{Field: "status", Op: SQLIn, Values: []string{"open", "blocked"}}})
	b, ok := node.(*BooleanNode)
	if assert.True(t, ok) {
		assert.Len(t, b.Should, 2)
		assert.Equal(t, 1, b.MinShouldMatch)
	}
}

func TestTranslateSQLNotIn(t *testing.T) {
	node := TranslateSQL([]SQLCondition{{Field: "status", Op: SQLNotIn, Values: []string{"closed"}}})
	b, ok := node.(*BooleanNode)
	if assert.True(t, ok) {
		assert.Len(t, b.MustNot, 1)
	}
}

func TestTranslateSQLBetweenIsInclusive(t *testing.T) {
	node := TranslateSQL([]SQLCondition{{Field: "age", Op: SQLBetween, Low: "10", High: "20"}})
	r, ok := node.(*RangeNode)
	if assert.True(t, ok) {
		assert.True(t, r.IncludeLo)
		assert.True(t, r.IncludeHi)
		assert.Equal(t, TypeLong, r.ValueType)
	}
}

func TestTranslateSQLMultipleConditionsAND(t *testing.T) {
	node := TranslateSQL([]SQLCondition{
		{Field: "status", Op: SQLEq, Value: "open"},
		{Field: "priority", Op: SQLEq, Value: "1"},
	})
	b, ok := node.(*BooleanNode)
	if assert.True(t, ok) {
		assert.Len(t, b.Must, 2)
	}
}
