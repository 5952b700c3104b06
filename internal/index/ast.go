// Package index implements ChronDB's secondary index: a closed-set query
// AST evaluated against per-branch inverted postings backed by
// github.com/RoaringBitmap/roaring/v2, plus a sorted-range structure for
// numeric/string range queries and a whitespace/punctuation full-text
// tokenizer. An infix query DSL (lexer.go/parser.go) compiles down to the
// same AST as a convenience front end.
package index

import (
	"fmt"
	"strings"
)

// ValueType pins how a Range or sort field's bound should be parsed/compared.
type ValueType int

const (
	TypeString ValueType = iota
	TypeLong
	TypeDouble
)

func (t ValueType) String() string {
	switch t {
	case TypeLong:
		return "long"
	case TypeDouble:
		return "double"
	default:
		return "string"
	}
}

// Node is a query AST node. The set of concrete types is closed:
// match_all, term, wildcard, fts, exists, missing, range, boolean, and
// the top-level query wrapper.
type Node interface {
	node()
	String() string
}

// MatchAllNode matches every document.
type MatchAllNode struct{}

func (MatchAllNode) node() {}
func (MatchAllNode) String() string { return "match_all" }

// MatchAll returns the singleton match-all node.
func MatchAll() Node { return MatchAllNode{} }

// TermNode is an exact-value match on field.
type TermNode struct {
	Field string
	Value string
}

func (*TermNode) node() {}
func (n *TermNode) String() string { return fmt.Sprintf("term(%s,%s)", n.Field, n.Value) }

// Term constructs an exact-match clause.
func Term(field, value string) Node { return &TermNode{Field: field, Value: value} }

// WildcardNode matches field against a `*`/`?` glob pattern.
type WildcardNode struct {
	Field   string
	Pattern string
}

func (*WildcardNode) node() {}
func (n *WildcardNode) String() string { return fmt.Sprintf("wildcard(%s,%s)", n.Field, n.Pattern) }

// Wildcard constructs a glob-match clause.
func Wildcard(field, pattern string) Node { return &WildcardNode{Field: field, Pattern: pattern} }

// Prefix desugars to wildcard(field, value+"*").
func Prefix(field, value string) Node { return Wildcard(field, value+"*") }

// FTSNode is a tokenized full-text query against field. Analyzer records a
// named analyzer, but the evaluator does not consult it: every FTS clause
// is tokenized with Tokenize.
type FTSNode struct {
	Field    string
	Text     string
	Analyzer string
}

func (*FTSNode) node() {}
func (n *FTSNode) String() string { return fmt.Sprintf("fts(%s,%q)", n.Field, n.Text) }

// FTS constructs a full-text clause with no analyzer name.
func FTS(field, text string) Node { return &FTSNode{Field: field, Text: text} }

// FTSWithAnalyzer constructs a full-text clause carrying an analyzer name.
// Evaluation ignores the name and tokenizes the same way FTS does.
func FTSWithAnalyzer(field, text, analyzer string) Node {
	return &FTSNode{Field: field, Text: text, Analyzer: analyzer}
}

// ExistsNode matches documents that carry field, regardless of value.
type ExistsNode struct{ Field string }

func (*ExistsNode) node() {}
func (n *ExistsNode) String() string { return fmt.Sprintf("exists(%s)", n.Field) }

// Exists constructs an exists clause.
func Exists(field string) Node { return &ExistsNode{Field: field} }

// MissingNode matches documents that do not carry field.
type MissingNode struct{ Field string }

func (*MissingNode) node() {}
func (n *MissingNode) String() string { return fmt.Sprintf("missing(%s)", n.Field) }

// Missing constructs a missing clause.
func Missing(field string) Node { return &MissingNode{Field: field} }

// RangeNode matches field within [Lo, Hi] (bounds individually inclusive
// per IncludeLo/IncludeHi), typed per ValueType. A nil Lo or Hi means that
// side is unbounded.
type RangeNode struct {
	Field      string
	Lo, Hi     *string
	IncludeLo  bool
	IncludeHi  bool
	ValueType  ValueType
}

func (*RangeNode) node() {}
func (n *RangeNode) String() string {
	lo, hi := "*", "*"
	if n.Lo != nil {
		lo = *n.Lo
	}
	if n.Hi != nil {
		hi = *n.Hi
	}
	return fmt.Sprintf("range(%s,%s,%s,%v,%v,%s)", n.Field, lo, hi, n.IncludeLo, n.IncludeHi, n.ValueType)
}

// Range constructs a range clause. lo/hi are nil for an unbounded side.
func Range(field string, lo, hi *string, includeLo, includeHi bool, vt ValueType) Node {
	return &RangeNode{Field: field, Lo: lo, Hi: hi, IncludeLo: includeLo, IncludeHi: includeHi, ValueType: vt}
}

// strPtr is a small helper for callers building Range literals inline.
func strPtr(s string) *string { return &s }

// BooleanNode composes clauses the way an Elasticsearch-style bool query
// does: every Must clause is required, no MustNot clause may match, and
// Filter clauses are required but do not contribute to scoring (ChronDB has
// no scoring, so Filter and Must behave identically here). Should clauses
// are required when Must and Filter are both empty, or when MinShouldMatch
// is positive (the normalization laws below default it to 1 when Must is
// empty, 0 otherwise); a required Should list is satisfied by any one
// matching clause, so a MinShouldMatch above 1 acts as 1.
type BooleanNode struct {
	Must           []Node
	Should         []Node
	MustNot        []Node
	Filter         []Node
	MinShouldMatch int
}

func (*BooleanNode) node() {}
func (n *BooleanNode) String() string {
	var b strings.Builder
	b.WriteString("boolean{")
	fmt.Fprintf(&b, "must:%v,should:%v,must_not:%v,filter:%v", n.Must, n.Should, n.MustNot, n.Filter)
	b.WriteString("}")
	return b.String()
}

// Boolean constructs a boolean clause and immediately applies the
// normalization laws, so every BooleanNode that exists anywhere in the
// tree is already normalized; callers never see a node that needs a
// second pass.
func Boolean(must, should, mustNot, filter []Node) Node {
	return normalizeBoolean(&BooleanNode{Must: must, Should: should, MustNot: mustNot, Filter: filter})
}

// And is sugar for a boolean query whose clauses are all required.
func And(nodes ...Node) Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	return Boolean(nodes, nil, nil, nil)
}

// Or is sugar for a boolean query where any one clause suffices.
func Or(nodes ...Node) Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	return Boolean(nil, nodes, nil, nil)
}

// Not negates a single clause. Not(nil) desugars to must_not(match_all).
func Not(n Node) Node {
	if n == nil {
		return Boolean(nil, nil, []Node{MatchAll()}, nil)
	}
	return Boolean(nil, nil, []Node{n}, nil)
}

// Sort orders query results by field, ascending unless Desc is set.
type Sort struct {
	Field     string
	Desc      bool
	ValueType ValueType
}

// Query is the top-level request: a single implicit-AND list of clauses
// plus sort/paging/branch scope and opt-in hints (e.g. "warming" to accept
// best-effort results mid-rebuild).
type Query struct {
	Clauses []Node
	Sort    []Sort
	Limit   int
	Offset  int
	Branch  string
	Hints   map[string]bool
	After   string
}

func (q *Query) node() {}
func (q *Query) String() string { return fmt.Sprintf("query{clauses:%v}", q.Clauses) }

// AsNode collapses Clauses to a single AND'd node (match_all if empty).
func (q *Query) AsNode() Node {
	if len(q.Clauses) == 0 {
		return MatchAll()
	}
	return And(q.Clauses...)
}

// HintWarming reports whether the caller opted in to best-effort results
// during an index rebuild.
func (q *Query) HintWarming() bool { return q.Hints != nil && q.Hints["warming"] }
