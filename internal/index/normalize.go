package index

// normalizeBoolean applies the boolean normalization laws to a single
// BooleanNode (its children are assumed already normalized — Boolean()
// calls this at construction time, so by the time a tree is built every
// BooleanNode in it already satisfies these laws). It does not recurse;
// Normalize below does that for trees assembled by hand (e.g. the SQL
// translator, or a parser) rather than through the Boolean/And/Or/Not
// constructors.
func normalizeBoolean(n *BooleanNode) Node {
	must := n.Must
	should := n.Should
	mustNot := n.MustNot
	filter := n.Filter

	// single-element should, nothing else present => unwrap entirely.
	if len(should) == 1 && len(must) == 0 && len(mustNot) == 0 && len(filter) == 0 {
		return should[0]
	}
	// single-element should alongside other clauses => it's effectively
	// required (min_should_match=1 with one candidate means "this one"),
	// so fold it into must.
	if len(should) == 1 {
		must = append(append([]Node{}, must...), should[0])
		should = nil
	}

	if len(must) == 0 && len(should) == 0 && len(mustNot) == 0 && len(filter) == 0 {
		return MatchAll()
	}

	minShould := n.MinShouldMatch
	if len(should) > 0 && len(must) == 0 && len(filter) == 0 && minShould == 0 {
		minShould = 1
	}

	return &BooleanNode{Must: must, Should: should, MustNot: mustNot, Filter: filter, MinShouldMatch: minShould}
}

// Normalize recursively applies the boolean normalization laws to every
// BooleanNode in the tree rooted at n. It is idempotent:
// Normalize(Normalize(x)) always equals Normalize(x), since every node the
// function can produce already satisfies the laws it checks.
func Normalize(n Node) Node {
	b, ok := n.(*BooleanNode)
	if !ok {
		return n
	}
	must := normalizeEach(b.Must)
	should := normalizeEach(b.Should)
	mustNot := normalizeEach(b.MustNot)
	filter := normalizeEach(b.Filter)
	return normalizeBoolean(&BooleanNode{Must: must, Should: should, MustNot: mustNot, Filter: filter, MinShouldMatch: b.MinShouldMatch})
}

func normalizeEach(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Normalize(n)
	}
	return out
}
