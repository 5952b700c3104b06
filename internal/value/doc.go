package value

import "fmt"

// Reserved attribute names with special meaning to the engine. They remain
// ordinary map keys — conventions, not a schema.
const (
	AttrID        = "id"
	AttrTable     = "_table"
	AttrValidFrom = "_valid_from"
	AttrValidTo   = "_valid_to"
)

// ID returns the document's id attribute. A document without one is
// malformed for write purposes (the caller must reject it before it
// reaches the store).
func ID(doc Value) (string, bool) {
	v, ok := doc.Get(AttrID)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// RequireID returns the document's id or an error if absent/non-string.
func RequireID(doc Value) (string, error) {
	id, ok := ID(doc)
	if !ok || id == "" {
		return "", fmt.Errorf("document missing required %q attribute", AttrID)
	}
	return id, nil
}

// Table returns the document's namespace: the explicit _table attribute if
// present, otherwise the id prefix before the first ':'.
func Table(doc Value) string {
	if v, ok := doc.Get(AttrTable); ok {
		if s, ok := v.AsString(); ok && s != "" {
			return s
		}
	}
	id, _ := ID(doc)
	return TableFromID(id)
}

// TableFromID extracts the table segment from a raw id: everything before
// the first colon, or the whole id if there is no colon.
func TableFromID(id string) string {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[:i]
		}
	}
	return id
}

// ValidFrom returns the document's _valid_from attribute, if present.
func ValidFrom(doc Value) (Value, bool) { return doc.Get(AttrValidFrom) }

// ValidTo returns the document's _valid_to attribute, if present.
func ValidTo(doc Value) (Value, bool) { return doc.Get(AttrValidTo) }
