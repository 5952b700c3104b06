package index

import (
	"sort"

	"github.com/chrondb/chrondb/internal/value"
)

// sortIDs orders ids in place by the given Sort fields, most significant
// first, using fetch to resolve each id's stored document. A document
// missing a sort field sorts after documents that have it, regardless of
// direction, so paging stays stable even over sparse fields.
func sortIDs(ids []string, fields []Sort, fetch func(id string) (value.Value, bool)) {
	sort.SliceStable(ids, func(i, j int) bool {
		for _, f := range fields {
			_, okA := fieldValue(ids[i], f.Field, fetch)
			_, okB := fieldValue(ids[j], f.Field, fetch)
			if okA != okB {
				return okA
			}
			cmp := compareSortField(ids[i], ids[j], f, fetch)
			if cmp != 0 {
				if f.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
}

func compareSortField(idA, idB string, f Sort, fetch func(string) (value.Value, bool)) int {
	va, okA := fieldValue(idA, f.Field, fetch)
	vb, okB := fieldValue(idB, f.Field, fetch)
	if !okA && !okB {
		return 0
	}
	if !okA {
		return 1
	}
	if !okB {
		return -1
	}

	switch f.ValueType {
	case TypeLong, TypeDouble:
		fa, _ := va.AsFloat()
		fb, _ := vb.AsFloat()
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	default:
		sa, _ := va.AsString()
		sb, _ := vb.AsString()
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		default:
			return 0
		}
	}
}

func fieldValue(id, field string, fetch func(string) (value.Value, bool)) (value.Value, bool) {
	doc, ok := fetch(id)
	if !ok {
		return value.Value{}, false
	}
	return doc.Get(field)
}
