package index

import (
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
)

// evalLocked evaluates node against branch's postings, returning the
// matching ordinals. Caller must hold at least idx.mu.RLock(). An
// unrecognized node (not one of the closed AST set) is treated as
// match_all and logged: an invalid clause is dropped rather than failing
// the query, and dropping a clause must never additionally exclude
// documents that would otherwise have matched.
func (idx *Index) evalLocked(node Node, branch string) *roaring.Bitmap {
	universe := idx.branchUniverse(branch)

	switch n := node.(type) {
	case MatchAllNode:
		return universe.Clone()
	case *TermNode:
		return idx.termBitmapLocked(branch, n.Field, n.Value)
	case *WildcardNode:
		return idx.wildcardBitmapLocked(branch, n.Field, n.Pattern)
	case *FTSNode:
		return idx.ftsBitmapLocked(branch, n.Field, n.Text)
	case *ExistsNode:
		if b, ok := idx.exists[fieldKey{branch: branch, field: n.Field}]; ok {
			return b.Clone()
		}
		return roaring.New()
	case *MissingNode:
		result := universe.Clone()
		if b, ok := idx.exists[fieldKey{branch: branch, field: n.Field}]; ok {
			result.AndNot(b)
		}
		return result
	case *RangeNode:
		return idx.rangeBitmapLocked(branch, n)
	case *BooleanNode:
		return idx.booleanBitmapLocked(branch, n)
	default:
		idx.logger.Warn("dropping unrecognized query AST node", "node", node.String())
		return universe.Clone()
	}
}

func (idx *Index) termBitmapLocked(branch, field, value string) *roaring.Bitmap {
	byTerm, ok := idx.terms[fieldKey{branch: branch, field: field}]
	if !ok {
		return roaring.New()
	}
	if b, ok := byTerm[value]; ok {
		return b.Clone()
	}
	return roaring.New()
}

func (idx *Index) wildcardBitmapLocked(branch, field, pattern string) *roaring.Bitmap {
	out := roaring.New()
	byTerm, ok := idx.terms[fieldKey{branch: branch, field: field}]
	if !ok {
		return out
	}
	for term, b := range byTerm {
		if wildcardMatch(pattern, term) {
			out.Or(b)
		}
	}
	return out
}

// ftsBitmapLocked matches documents containing ANY tokenized query term
// (an OR across tokens), since the index has no relevance scoring to rank
// an AND-of-all-terms result by — the looser OR gives useful recall
// without pretending to rank matches.
func (idx *Index) ftsBitmapLocked(branch, field, text string) *roaring.Bitmap {
	out := roaring.New()
	byToken, ok := idx.fts[ftsFieldKey{branch: branch, field: field}]
	if !ok {
		return out
	}
	for _, tok := range Tokenize(text) {
		if b, ok := byToken[tok]; ok {
			out.Or(b)
		}
	}
	return out
}

func (idx *Index) rangeBitmapLocked(branch string, n *RangeNode) *roaring.Bitmap {
	out := roaring.New()
	r, ok := idx.ranges[fieldKey{branch: branch, field: n.Field}]
	if !ok {
		return out
	}
	lo := boundFor(r.vt, n.Lo)
	hi := boundFor(r.vt, n.Hi)
	for _, ord := range r.Query(lo, hi, n.IncludeLo, n.IncludeHi) {
		out.Add(ord)
	}
	return out
}

func boundFor(vt ValueType, s *string) *rangeBound {
	if s == nil {
		return nil
	}
	switch vt {
	case TypeLong:
		i, _ := strconv.ParseInt(*s, 10, 64)
		return &rangeBound{i: i}
	case TypeDouble:
		f, _ := strconv.ParseFloat(*s, 64)
		return &rangeBound{f: f}
	default:
		return &rangeBound{s: *s}
	}
}

func (idx *Index) booleanBitmapLocked(branch string, n *BooleanNode) *roaring.Bitmap {
	universe := idx.branchUniverse(branch)

	var result *roaring.Bitmap
	if len(n.Must) == 0 && len(n.Filter) == 0 {
		if len(n.Should) == 0 {
			// must_not-only (or truly empty, but Boolean() already folds
			// that case to MatchAllNode) implies "must_all": start from
			// the full universe and subtract must_not below.
			result = universe.Clone()
		} else {
			result = idx.orAllLocked(branch, n.Should)
		}
	} else {
		result = universe.Clone()
		for _, clause := range n.Must {
			result.And(idx.evalLocked(clause, branch))
		}
		for _, clause := range n.Filter {
			result.And(idx.evalLocked(clause, branch))
		}
		if len(n.Should) > 0 && n.MinShouldMatch > 0 {
			result.And(idx.orAllLocked(branch, n.Should))
		}
	}

	for _, clause := range n.MustNot {
		result.AndNot(idx.evalLocked(clause, branch))
	}
	return result
}

func (idx *Index) orAllLocked(branch string, clauses []Node) *roaring.Bitmap {
	out := roaring.New()
	for _, c := range clauses {
		out.Or(idx.evalLocked(c, branch))
	}
	return out
}
