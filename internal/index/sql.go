package index

import (
	"strconv"
	"strings"
)

// SQLOp is one of the condition operators the PostgreSQL-wire adapter's
// condition parser hands to TranslateSQL. Parsing actual SQL text is the
// wire adapter's job; only the pure condition-to-AST translation lives
// here.
type SQLOp string

const (
	SQLEq        SQLOp = "="
	SQLNeq       SQLOp = "!="
	SQLGt        SQLOp = ">"
	SQLGte       SQLOp = ">="
	SQLLt        SQLOp = "<"
	SQLLte       SQLOp = "<="
	SQLLike      SQLOp = "LIKE"
	SQLIsNull    SQLOp = "IS NULL"
	SQLIsNotNull SQLOp = "IS NOT NULL"
	SQLIn        SQLOp = "IN"
	SQLNotIn     SQLOp = "NOT IN"
	SQLBetween   SQLOp = "BETWEEN"
)

// SQLCondition is one parsed `WHERE` clause condition.
type SQLCondition struct {
	Field  string
	Op     SQLOp
	Value  string   // =, !=, >, >=, <, <=, LIKE
	Values []string // IN, NOT IN
	Low    string   // BETWEEN
	High   string   // BETWEEN
}

// TranslateSQL converts a list of WHERE conditions into a single AST node,
// ANDing multiple conditions together.
func TranslateSQL(conditions []SQLCondition) Node {
	clauses := make([]Node, 0, len(conditions))
	for _, c := range conditions {
		clauses = append(clauses, translateCondition(c))
	}
	return And(clauses...)
}

func translateCondition(c SQLCondition) Node {
	switch c.Op {
	case SQLEq:
		return Term(c.Field, c.Value)
	case SQLNeq:
		return Not(Term(c.Field, c.Value))
	case SQLGt:
		return typedRange(c.Field, &c.Value, nil, false, false)
	case SQLGte:
		return typedRange(c.Field, &c.Value, nil, true, false)
	case SQLLt:
		return typedRange(c.Field, nil, &c.Value, false, false)
	case SQLLte:
		return typedRange(c.Field, nil, &c.Value, false, true)
	case SQLLike:
		return Wildcard(c.Field, strings.ReplaceAll(c.Value, "%", "*"))
	case SQLIsNull:
		return Missing(c.Field)
	case SQLIsNotNull:
		return Exists(c.Field)
	case SQLIn:
		terms := make([]Node, len(c.Values))
		for i, v := range c.Values {
			terms[i] = Term(c.Field, v)
		}
		return Boolean(nil, terms, nil, nil)
	case SQLNotIn:
		terms := make([]Node, len(c.Values))
		for i, v := range c.Values {
			terms[i] = Term(c.Field, v)
		}
		return Boolean(nil, nil, terms, nil)
	case SQLBetween:
		return typedRange(c.Field, &c.Low, &c.High, true, true)
	default:
		return MatchAll()
	}
}

// typedRange infers the value type (long/double/string) from whichever
// bound is present and builds the matching Range node.
func typedRange(field string, lo, hi *string, includeLo, includeHi bool) Node {
	sample := lo
	if sample == nil {
		sample = hi
	}
	vt := inferValueType(sample)
	return Range(field, lo, hi, includeLo, includeHi, vt)
}

func inferValueType(s *string) ValueType {
	if s == nil {
		return TypeString
	}
	if _, err := strconv.ParseInt(*s, 10, 64); err == nil {
		return TypeLong
	}
	if _, err := strconv.ParseFloat(*s, 64); err == nil {
		return TypeDouble
	}
	return TypeString
}
