package txctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeNotesUnionsFlags(t *testing.T) {
	prev := Note{TxID: "tx1", Flags: []string{"a", "b"}}
	next := Note{TxID: "tx2", Flags: []string{"b", "c"}}

	merged := MergeNotes(prev, next)
	assert.Equal(t, []string{"a", "b", "c"}, merged.Flags)
	assert.Equal(t, "tx2", merged.TxID, "scalar fields are last-write-wins")
}

func TestMergeNotesMergesMetadata(t *testing.T) {
	prev := Note{Metadata: map[string]string{"k1": "v1", "k2": "old"}}
	next := Note{Metadata: map[string]string{"k2": "new", "k3": "v3"}}

	merged := MergeNotes(prev, next)
	assert.Equal(t, map[string]string{"k1": "v1", "k2": "new", "k3": "v3"}, merged.Metadata)
}

func TestMergeNotesKeepsPrevScalarsWhenNextEmpty(t *testing.T) {
	prev := Note{Origin: "cli", User: "alice"}
	next := Note{TxID: "tx2"}

	merged := MergeNotes(prev, next)
	assert.Equal(t, "cli", merged.Origin)
	assert.Equal(t, "alice", merged.User)
}

func TestForCommitFoldsOverrides(t *testing.T) {
	ambient := New("tx1").WithOrigin("daemon").WithFlag("auto")
	out := ForCommit(ambient, Overrides{User: "bob", Flags: []string{"manual"}})

	assert.Equal(t, "tx1", out.TxID)
	assert.Equal(t, "daemon", out.Origin)
	assert.Equal(t, "bob", out.User)
	assert.ElementsMatch(t, []string{"auto", "manual"}, out.Flags)
}
