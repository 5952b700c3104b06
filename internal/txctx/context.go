// Package txctx carries the ambient per-operation metadata that the
// document-operations facade folds into each commit's note. A Context
// value travels down the call chain explicitly like any other argument;
// nothing here is global mutable state.
package txctx

// Context is the per-operation metadata attached to the commit produced by
// a write: who initiated it, where it came from, and free-form annotations.
type Context struct {
	TxID     string
	Origin   string
	User     string
	Flags    []string
	Metadata map[string]string
}

// New returns an empty Context stamped with the given TxID (NewRandom
// generates one).
func New(txID string) Context {
	return Context{TxID: txID}
}

// WithOrigin returns a copy of c with Origin set.
func (c Context) WithOrigin(origin string) Context {
	c.Origin = origin
	return c
}

// WithUser returns a copy of c with User set.
func (c Context) WithUser(user string) Context {
	c.User = user
	return c
}

// WithFlag returns a copy of c with flag appended if not already present.
func (c Context) WithFlag(flag string) Context {
	for _, f := range c.Flags {
		if f == flag {
			return c
		}
	}
	out := c
	out.Flags = append(append([]string{}, c.Flags...), flag)
	return out
}

// WithMetadata returns a copy of c with key=value merged into Metadata.
func (c Context) WithMetadata(key, val string) Context {
	out := c
	out.Metadata = make(map[string]string, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		out.Metadata[k] = v
	}
	out.Metadata[key] = val
	return out
}

// Overrides is a sparse set of fields to fold onto an ambient Context.
// Zero-valued fields are left untouched by ForCommit.
type Overrides struct {
	Origin   string
	User     string
	Flags    []string
	Metadata map[string]string
}

// ForCommit folds overrides onto the ambient context, returning the value
// that should be attached to the commit about to be written.
func ForCommit(ambient Context, overrides Overrides) Context {
	out := ambient
	if overrides.Origin != "" {
		out.Origin = overrides.Origin
	}
	if overrides.User != "" {
		out.User = overrides.User
	}
	for _, f := range overrides.Flags {
		out = out.WithFlag(f)
	}
	for k, v := range overrides.Metadata {
		out = out.WithMetadata(k, v)
	}
	return out
}
