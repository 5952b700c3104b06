package chrondb

import "github.com/chrondb/chrondb/internal/schema"

// PutSchema installs rec as branch's validation policy for its namespace.
func (e *Engine) PutSchema(branch string, rec schema.Record) error {
	return e.schemas.Put(branch, rec, e.author, e.now())
}

// GetSchema returns the current validation record for namespace on branch.
func (e *Engine) GetSchema(branch, namespace string) (schema.Record, bool, error) {
	return e.schemas.Get(branch, namespace)
}
