package txctx

import "github.com/google/uuid"

// NewRandom returns an empty Context stamped with a freshly generated
// random transaction id. Unlike internal/wal's entry ids (content-derived,
// since a WAL entry already has a document id/sequence/timestamp to hash)
// a transaction id exists before any content does, so a random UUID is
// the natural choice here instead.
func NewRandom() Context {
	return New(uuid.NewString())
}
