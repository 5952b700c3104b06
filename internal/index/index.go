package index

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/chrondb/chrondb/internal/value"
)

var meter = otel.Meter("chrondb/index")

var rebuildMs, _ = meter.Float64Histogram(
	"chrondb.index.rebuild_duration_ms",
	metric.WithDescription("time spent rebuilding a branch's secondary index from scratch"),
)

// docKey identifies a document within a branch's index.
type docKey struct {
	branch string
	id     string
}

// fieldKey scopes postings/range/exists structures to one (branch, field)
// pair.
type fieldKey struct {
	branch string
	field  string
}

// ftsFieldKey is fieldKey's counterpart for the tokenized side of a field,
// kept distinct from the exact-term postings so `term(field,x)` and
// `fts(field,x)` never collide on the same bitmap.
type ftsFieldKey fieldKey

// Index is ChronDB's secondary index: per-branch inverted postings over
// roaring bitmaps of doc-ordinals, a from-scratch sorted-range structure
// for numeric/string ranges, and a raw-value sidecar keyed by ordinal that
// holds each indexed document's value. Search uses the sidecar only to
// order results by sort fields; results carry document ids, not document
// values, whatever hints the query sets.
type Index struct {
	mu     sync.RWMutex
	logger *slog.Logger
	closed bool

	nextOrd  uint32
	ordByKey map[docKey]uint32
	keyByOrd map[uint32]docKey
	rawByOrd map[uint32]value.Value

	allDocs  map[string]*roaring.Bitmap            // branch -> every indexed ordinal
	terms    map[fieldKey]map[string]*roaring.Bitmap    // exact-term postings
	fts      map[ftsFieldKey]map[string]*roaring.Bitmap // tokenized postings
	exists   map[fieldKey]*roaring.Bitmap
	ranges   map[fieldKey]*rangeIndex
	warming  map[string]bool
}

// Option configures a new Index.
type Option func(*Index)

// WithLogger overrides the index's logger. A nil logger (the zero value
// of this option, or never calling it) falls back to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(idx *Index) { idx.logger = l }
}

// New returns an empty, open Index.
func New(opts ...Option) *Index {
	idx := &Index{
		ordByKey: make(map[docKey]uint32),
		keyByOrd: make(map[uint32]docKey),
		rawByOrd: make(map[uint32]value.Value),
		allDocs:  make(map[string]*roaring.Bitmap),
		terms:    make(map[fieldKey]map[string]*roaring.Bitmap),
		fts:      make(map[ftsFieldKey]map[string]*roaring.Bitmap),
		exists:   make(map[fieldKey]*roaring.Bitmap),
		ranges:   make(map[fieldKey]*rangeIndex),
		warming:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = slog.Default()
	}
	return idx
}

// ErrWarming is returned by SearchQuery during a branch rebuild unless the
// caller opts in via the "warming" hint.
var ErrWarming = fmt.Errorf("index: branch is warming (rebuild in progress)")

func (idx *Index) branchUniverse(branch string) *roaring.Bitmap {
	b, ok := idx.allDocs[branch]
	if !ok {
		b = roaring.New()
		idx.allDocs[branch] = b
	}
	return b
}

// Index adds or replaces doc in branch's index. Re-indexing an existing id
// first removes its prior postings so stale terms don't linger.
func (idx *Index) Index(doc value.Value, branch string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		idx.logger.Warn("index write after close, no-op", "branch", branch)
		return nil
	}

	id, err := value.RequireID(doc)
	if err != nil {
		return err
	}
	key := docKey{branch: branch, id: id}

	if ord, ok := idx.ordByKey[key]; ok {
		idx.removeDocLocked(branch, ord)
	}

	ord := idx.nextOrd
	idx.nextOrd++
	idx.ordByKey[key] = ord
	idx.keyByOrd[ord] = key
	idx.rawByOrd[ord] = doc

	idx.indexFieldsLocked(branch, ord, doc)
	return nil
}

// Delete removes id from branch's index, reporting whether it was present.
func (idx *Index) Delete(id, branch string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		idx.logger.Warn("index delete after close, no-op", "branch", branch)
		return false
	}

	key := docKey{branch: branch, id: id}
	ord, ok := idx.ordByKey[key]
	if !ok {
		return false
	}
	idx.removeDocLocked(branch, ord)
	delete(idx.ordByKey, key)
	delete(idx.keyByOrd, ord)
	delete(idx.rawByOrd, ord)
	return true
}

func (idx *Index) indexFieldsLocked(branch string, ord uint32, doc value.Value) {
	idx.branchUniverse(branch).Add(ord)

	m, ok := doc.AsMap()
	if !ok {
		return
	}
	for field, v := range m {
		idx.indexFieldValueLocked(branch, ord, field, v)
	}
}

func (idx *Index) indexFieldValueLocked(branch string, ord uint32, field string, v value.Value) {
	fk := fieldKey{branch: branch, field: field}

	addTerm := func(term string) {
		byTerm, ok := idx.terms[fk]
		if !ok {
			byTerm = make(map[string]*roaring.Bitmap)
			idx.terms[fk] = byTerm
		}
		b, ok := byTerm[term]
		if !ok {
			b = roaring.New()
			byTerm[term] = b
		}
		b.Add(ord)
	}

	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		addTerm(s)
		for _, tok := range Tokenize(s) {
			idx.addFTSLocked(branch, field, tok, ord)
		}
		idx.rangeFor(fk, TypeString).Insert(ord, 0, 0, s)
		idx.markExistsLocked(fk, ord)
	case value.KindInt:
		i, _ := v.AsInt()
		addTerm(strconv.FormatInt(i, 10))
		idx.rangeFor(fk, TypeLong).Insert(ord, i, 0, "")
		idx.markExistsLocked(fk, ord)
	case value.KindFloat:
		f, _ := v.AsFloat()
		addTerm(strconv.FormatFloat(f, 'g', -1, 64))
		idx.rangeFor(fk, TypeDouble).Insert(ord, 0, f, "")
		idx.markExistsLocked(fk, ord)
	case value.KindBool:
		b, _ := v.AsBool()
		addTerm(strconv.FormatBool(b))
		idx.markExistsLocked(fk, ord)
	case value.KindList:
		list, _ := v.AsList()
		for _, elem := range list {
			switch elem.Kind() {
			case value.KindString:
				s, _ := elem.AsString()
				addTerm(s)
			case value.KindInt:
				i, _ := elem.AsInt()
				addTerm(strconv.FormatInt(i, 10))
			case value.KindFloat:
				f, _ := elem.AsFloat()
				addTerm(strconv.FormatFloat(f, 'g', -1, 64))
			}
		}
		idx.markExistsLocked(fk, ord)
	case value.KindMap:
		idx.markExistsLocked(fk, ord)
	case value.KindNull:
		// null is present-but-empty: Exists still holds for it, since
		// exists/missing is about key presence, not value truthiness.
		idx.markExistsLocked(fk, ord)
	}
}

func (idx *Index) markExistsLocked(fk fieldKey, ord uint32) {
	b, ok := idx.exists[fk]
	if !ok {
		b = roaring.New()
		idx.exists[fk] = b
	}
	b.Add(ord)
}

func (idx *Index) addFTSLocked(branch, field, token string, ord uint32) {
	fk := ftsFieldKey{branch: branch, field: field}
	byToken, ok := idx.fts[fk]
	if !ok {
		byToken = make(map[string]*roaring.Bitmap)
		idx.fts[fk] = byToken
	}
	b, ok := byToken[token]
	if !ok {
		b = roaring.New()
		byToken[token] = b
	}
	b.Add(ord)
}

func (idx *Index) rangeFor(fk fieldKey, vt ValueType) *rangeIndex {
	r, ok := idx.ranges[fk]
	if !ok {
		r = newRangeIndex(vt)
		idx.ranges[fk] = r
	}
	return r
}

func (idx *Index) removeDocLocked(branch string, ord uint32) {
	if u, ok := idx.allDocs[branch]; ok {
		u.Remove(ord)
	}
	doc, ok := idx.rawByOrd[ord]
	if !ok {
		return
	}
	m, ok := doc.AsMap()
	if !ok {
		return
	}
	for field, v := range m {
		fk := fieldKey{branch: branch, field: field}
		if byTerm, ok := idx.terms[fk]; ok {
			for _, b := range byTerm {
				b.Remove(ord)
			}
		}
		if byTok, ok := idx.fts[ftsFieldKey(fk)]; ok {
			for _, b := range byTok {
				b.Remove(ord)
			}
		}
		if e, ok := idx.exists[fk]; ok {
			e.Remove(ord)
		}
		if r, ok := idx.ranges[fk]; ok {
			r.Remove(ord)
		}
		_ = v
	}
}

// Search is the convenience term/wildcard front end: an exact match unless
// query contains '*' or '?', in which case it's treated as a glob.
func (idx *Index) Search(field, query, branch string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil
	}

	var node Node
	if containsGlob(query) {
		node = Wildcard(field, query)
	} else {
		node = Term(field, query)
	}
	b := idx.evalLocked(node, branch)
	return idx.idsFromLocked(b)
}

func containsGlob(s string) bool {
	for _, r := range s {
		if r == '*' || r == '?' {
			return true
		}
	}
	return false
}

func (idx *Index) idsFromLocked(b *roaring.Bitmap) []string {
	if b == nil {
		return nil
	}
	ids := make([]string, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		ord := it.Next()
		if key, ok := idx.keyByOrd[ord]; ok {
			ids = append(ids, key.id)
		}
	}
	return ids
}

// Result is SearchQuery's return value.
type Result struct {
	IDs     []string
	Total   int
	Limit   int
	Offset  int
	After   string
	Warming bool
}

// SearchQuery evaluates q against branch's index, applying sort and paging.
func (idx *Index) SearchQuery(q *Query) (Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return Result{}, nil
	}

	if idx.warming[q.Branch] && !q.HintWarming() {
		return Result{}, ErrWarming
	}

	node := Normalize(q.AsNode())
	b := idx.evalLocked(node, q.Branch)
	ids := idx.sortedIDsLocked(b, q)

	total := len(ids)
	start := q.Offset
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	return Result{
		IDs:     ids[start:end],
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
		After:   q.After,
		Warming: idx.warming[q.Branch],
	}, nil
}

func (idx *Index) sortedIDsLocked(b *roaring.Bitmap, q *Query) []string {
	ids := idx.idsFromLocked(b)
	if len(q.Sort) == 0 {
		return ids
	}
	sortIDs(ids, q.Sort, func(id string) (value.Value, bool) {
		key := docKey{branch: q.Branch, id: id}
		ord, ok := idx.ordByKey[key]
		if !ok {
			return value.Value{}, false
		}
		return idx.rawByOrd[ord], true
	})
	return ids
}

// Rebuild drops and re-populates branch's index from fetch, marking the
// branch "warming" for the duration so concurrent SearchQuery calls either
// surface ErrWarming or opt into best-effort results.
func (idx *Index) Rebuild(branch string, fetch func() ([]value.Value, error)) error {
	start := time.Now()
	idx.setWarming(branch, true)
	defer func() {
		idx.setWarming(branch, false)
		rebuildMs.Record(context.Background(), float64(time.Since(start).Milliseconds()))
	}()

	docs, err := fetch()
	if err != nil {
		return fmt.Errorf("index: rebuild fetch: %w", err)
	}

	idx.mu.Lock()
	idx.clearBranchLocked(branch)
	idx.mu.Unlock()

	for _, d := range docs {
		if err := idx.Index(d, branch); err != nil {
			idx.logger.Warn("rebuild: skipping document that failed to index", "err", err)
		}
	}
	return nil
}

func (idx *Index) clearBranchLocked(branch string) {
	delete(idx.allDocs, branch)
	for key, ord := range idx.ordByKey {
		if key.branch != branch {
			continue
		}
		delete(idx.ordByKey, key)
		delete(idx.keyByOrd, ord)
		delete(idx.rawByOrd, ord)
	}
	for fk := range idx.terms {
		if fk.branch == branch {
			delete(idx.terms, fk)
		}
	}
	for fk := range idx.fts {
		if fk.branch == branch {
			delete(idx.fts, fk)
		}
	}
	for fk := range idx.exists {
		if fk.branch == branch {
			delete(idx.exists, fk)
		}
	}
	for fk := range idx.ranges {
		if fk.branch == branch {
			delete(idx.ranges, fk)
		}
	}
}

func (idx *Index) setWarming(branch string, on bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if on {
		idx.warming[branch] = true
	} else {
		delete(idx.warming, branch)
	}
}

// Close marks the index closed. Further writes are no-ops (logged); reads
// return empty results.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	return nil
}
