package chrondb

import (
	"sort"

	"github.com/chrondb/chrondb/internal/value"
)

// DiffResult is Diff's return shape: added/removed attribute names, and a
// map from each field present on both sides but with a different encoding
// to its old/new canonical-JSON text.
type DiffResult struct {
	Added   []string
	Removed []string
	Changed map[string]ChangedField
}

// ChangedField is one field's before/after canonical-JSON encoding.
type ChangedField struct {
	Old string
	New string
}

// Diff compares id's projection at fromCommit and toCommit by
// shallow-stringify equality: two fields are "changed" if their canonical
// JSON encodings differ, with no attempt at a structural/recursive walk.
// Nested objects are compared the same way, as opaque encoded strings,
// never as a recursive walk — one policy, applied uniformly.
func (e *Engine) Diff(id, fromCommit, toCommit string) (DiffResult, error) {
	fromDoc, fromOK, err := e.store.DocumentAt(fromCommit, id)
	if err != nil {
		return DiffResult{}, err
	}
	toDoc, toOK, err := e.store.DocumentAt(toCommit, id)
	if err != nil {
		return DiffResult{}, err
	}

	fromFields := map[string]value.Value{}
	if fromOK {
		if m, ok := fromDoc.AsMap(); ok {
			fromFields = m
		}
	}
	toFields := map[string]value.Value{}
	if toOK {
		if m, ok := toDoc.AsMap(); ok {
			toFields = m
		}
	}

	result := DiffResult{Changed: map[string]ChangedField{}}
	for field, toVal := range toFields {
		fromVal, existed := fromFields[field]
		if !existed {
			result.Added = append(result.Added, field)
			continue
		}
		oldEnc, newEnc := string(value.Canonical(fromVal)), string(value.Canonical(toVal))
		if oldEnc != newEnc {
			result.Changed[field] = ChangedField{Old: oldEnc, New: newEnc}
		}
	}
	for field := range fromFields {
		if _, stillPresent := toFields[field]; !stillPresent {
			result.Removed = append(result.Removed, field)
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	return result, nil
}
