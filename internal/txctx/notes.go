package txctx

import "encoding/json"

// Note is the JSON shape attached to a commit out-of-band: a small record
// of the transaction metadata that produced it.
type Note struct {
	TxID     string            `json:"tx_id"`
	Origin   string            `json:"origin,omitempty"`
	User     string            `json:"user,omitempty"`
	Flags    []string          `json:"flags,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NoteFor builds the Note that should be attached to a commit produced
// under Context c.
func NoteFor(c Context) Note {
	return Note{
		TxID:     c.TxID,
		Origin:   c.Origin,
		User:     c.User,
		Flags:    append([]string(nil), c.Flags...),
		Metadata: c.Metadata,
	}
}

// Marshal encodes a Note to JSON bytes for storage as a commit note.
func (n Note) Marshal() ([]byte, error) { return json.Marshal(n) }

// UnmarshalNote decodes a commit note's JSON bytes.
func UnmarshalNote(data []byte) (Note, error) {
	var n Note
	if err := json.Unmarshal(data, &n); err != nil {
		return Note{}, err
	}
	return n, nil
}

// MergeNotes combines an existing note with a newly-written one: flags
// merge by set union, metadata merges by map merge, and every other
// scalar field is last-write-wins (the incoming note, "next", wins over
// "prev").
func MergeNotes(prev, next Note) Note {
	merged := next
	if merged.TxID == "" {
		merged.TxID = prev.TxID
	}
	if merged.Origin == "" {
		merged.Origin = prev.Origin
	}
	if merged.User == "" {
		merged.User = prev.User
	}

	seen := make(map[string]bool, len(prev.Flags)+len(next.Flags))
	var flags []string
	for _, f := range prev.Flags {
		if !seen[f] {
			seen[f] = true
			flags = append(flags, f)
		}
	}
	for _, f := range next.Flags {
		if !seen[f] {
			seen[f] = true
			flags = append(flags, f)
		}
	}
	merged.Flags = flags

	if len(prev.Metadata) > 0 || len(next.Metadata) > 0 {
		md := make(map[string]string, len(prev.Metadata)+len(next.Metadata))
		for k, v := range prev.Metadata {
			md[k] = v
		}
		for k, v := range next.Metadata {
			md[k] = v
		}
		merged.Metadata = md
	}

	return merged
}
