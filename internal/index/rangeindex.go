package index

import "sort"

// rangeEntry is one indexed value for a (branch, field) pair, tagged with
// the doc-ordinal it belongs to. Only the field matching ValueType is
// meaningful for a given rangeIndex instance.
type rangeEntry struct {
	ord   uint32
	i     int64
	f     float64
	s     string
}

// rangeIndex keeps entries sorted by key and answers range queries with a
// binary search instead of a linear scan.
type rangeIndex struct {
	vt      ValueType
	entries []rangeEntry
	sorted  bool
}

func newRangeIndex(vt ValueType) *rangeIndex {
	return &rangeIndex{vt: vt, sorted: true}
}

func (r *rangeIndex) less(a, b rangeEntry) bool {
	switch r.vt {
	case TypeLong:
		return a.i < b.i
	case TypeDouble:
		return a.f < b.f
	default:
		return a.s < b.s
	}
}

// Insert records ord's value. Entries are appended and the structure is
// marked dirty; it re-sorts lazily on the next query rather than on every
// insert, since writes (one per document save) far outnumber reads within
// a single index-rebuild pass.
func (r *rangeIndex) Insert(ord uint32, i int64, f float64, s string) {
	r.entries = append(r.entries, rangeEntry{ord: ord, i: i, f: f, s: s})
	r.sorted = false
}

// Remove drops every entry for ord (a document can only have one value per
// field here, but Remove is defensive about duplicates from re-indexing
// races).
func (r *rangeIndex) Remove(ord uint32) {
	out := r.entries[:0]
	for _, e := range r.entries {
		if e.ord != ord {
			out = append(out, e)
		}
	}
	r.entries = out
}

func (r *rangeIndex) ensureSorted() {
	if r.sorted {
		return
	}
	sort.Slice(r.entries, func(i, j int) bool { return r.less(r.entries[i], r.entries[j]) })
	r.sorted = true
}

// Query returns the ordinals whose value falls in [lo, hi], individually
// inclusive per includeLo/includeHi. A nil bound is unbounded on that side.
func (r *rangeIndex) Query(lo, hi *rangeBound, includeLo, includeHi bool) []uint32 {
	r.ensureSorted()

	start := 0
	if lo != nil {
		start = sort.Search(len(r.entries), func(i int) bool {
			cmp := r.compareEntry(r.entries[i], lo)
			if includeLo {
				return cmp >= 0
			}
			return cmp > 0
		})
	}
	end := len(r.entries)
	if hi != nil {
		end = sort.Search(len(r.entries), func(i int) bool {
			cmp := r.compareEntry(r.entries[i], hi)
			if includeHi {
				return cmp > 0
			}
			return cmp >= 0
		})
	}
	if start >= end {
		return nil
	}
	out := make([]uint32, 0, end-start)
	for _, e := range r.entries[start:end] {
		out = append(out, e.ord)
	}
	return out
}

// rangeBound is a typed comparison key shared by Lo/Hi.
type rangeBound struct {
	i int64
	f float64
	s string
}

func (r *rangeIndex) compareEntry(e rangeEntry, b *rangeBound) int {
	switch r.vt {
	case TypeLong:
		switch {
		case e.i < b.i:
			return -1
		case e.i > b.i:
			return 1
		default:
			return 0
		}
	case TypeDouble:
		switch {
		case e.f < b.f:
			return -1
		case e.f > b.f:
			return 1
		default:
			return 0
		}
	default:
		switch {
		case e.s < b.s:
			return -1
		case e.s > b.s:
			return 1
		default:
			return 0
		}
	}
}
