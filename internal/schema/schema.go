// Package schema implements ChronDB's optional JSON-Schema validation
// layer: schema records are ordinary versioned documents, looked up by
// namespace on every write and enforced according to a per-record mode.
// Storing the records in the same store they govern means they version,
// branch, and bundle like any other data.
package schema

import (
	"fmt"
	"time"

	"github.com/chrondb/chrondb/internal/objstore"
	"github.com/chrondb/chrondb/internal/value"
)

// Mode controls how a namespace's schema is enforced on write.
type Mode string

const (
	Strict   Mode = "strict"
	Warning  Mode = "warning"
	Disabled Mode = "disabled"
)

// Record is a namespace's stored validation policy.
type Record struct {
	Namespace string
	Version   int64
	Mode      Mode
	Schema    value.Value // a JSON-Schema document, itself map-shaped
	CreatedAt time.Time
	CreatedBy string
}

// recordTable is the table schema records are stored under. A document's
// storage path is resolved from its id's "table:local" prefix (see
// objstore.documentTable), so the record's id carries the namespace as
// the local part of that convention.
const recordTable = "_schema"

func recordID(namespace string) string {
	return recordTable + ":" + namespace
}

// Registry stores and retrieves schema records through the object store's
// ordinary document API, and caches compiled validators over them.
type Registry struct {
	store *objstore.Store
	cache *validatorCache
}

// New builds a Registry backed by store.
func New(store *objstore.Store) *Registry {
	return &Registry{store: store, cache: newValidatorCache()}
}

func (r *Record) toDoc() value.Value {
	return value.Map(map[string]value.Value{
		"id":         value.String(recordID(r.Namespace)),
		"_table":     value.String(recordTable),
		"namespace":  value.String(r.Namespace),
		"version":    value.Int(r.Version),
		"mode":       value.String(string(r.Mode)),
		"schema":     r.Schema,
		"created_at": value.String(r.CreatedAt.UTC().Format(time.RFC3339Nano)),
		"created_by": value.String(r.CreatedBy),
	})
}

func recordFromDoc(doc value.Value) (Record, error) {
	m, ok := doc.AsMap()
	if !ok {
		return Record{}, fmt.Errorf("schema: record document is not map-shaped")
	}
	rec := Record{}
	if v, ok := m["namespace"]; ok {
		rec.Namespace, _ = v.AsString()
	}
	if v, ok := m["version"]; ok {
		rec.Version, _ = v.AsInt()
	}
	if v, ok := m["mode"]; ok {
		s, _ := v.AsString()
		rec.Mode = Mode(s)
	}
	if v, ok := m["schema"]; ok {
		rec.Schema = v
	}
	if v, ok := m["created_by"]; ok {
		rec.CreatedBy, _ = v.AsString()
	}
	if v, ok := m["created_at"]; ok {
		if s, ok := v.AsString(); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				rec.CreatedAt = t
			}
		}
	}
	return rec, nil
}

// Put installs or replaces namespace's validation record on branch.
func (r *Registry) Put(branch string, rec Record, author objstore.CommitAuthor, now time.Time) error {
	message := "install schema for " + rec.Namespace
	_, err := r.store.PutDocument(branch, rec.toDoc(), author, message, now)
	if err != nil {
		return err
	}
	r.cache.invalidateNamespace(branch, rec.Namespace)
	return nil
}

// Get returns namespace's current validation record on branch, if any.
func (r *Registry) Get(branch, namespace string) (Record, bool, error) {
	doc, ok, err := r.store.GetDocument(branch, recordID(namespace), nil)
	if err != nil || !ok {
		return Record{}, false, err
	}
	rec, err := recordFromDoc(doc)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}
