package objstore

import (
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitAuthor identifies who a commit is attributed to, supplied by the
// caller (the engine passes its configured author).
type CommitAuthor struct {
	Name  string
	Email string
}

func ensureTreeHash(repo *git.Repository, hash plumbing.Hash) (plumbing.Hash, error) {
	if hash != plumbing.ZeroHash {
		return hash, nil
	}
	return buildTreeFromEntries(repo, nil)
}

// writeCommit encodes and stores a commit with the given tree and single
// parent (ZeroHash for a root commit), returning its hash.
func writeCommit(repo *git.Repository, treeHash, parentHash plumbing.Hash, author CommitAuthor, message string, at time.Time) (plumbing.Hash, error) {
	actualTree, err := ensureTreeHash(repo, treeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	var parents []plumbing.Hash
	if parentHash != plumbing.ZeroHash {
		parents = []plumbing.Hash{parentHash}
	}

	sig := object.Signature{Name: author.Name, Email: author.Email, When: at}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     actualTree,
		ParentHashes: parents,
	}

	obj := repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, &IOFailure{Op: "encode commit", Err: err}
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, &IOFailure{Op: "store commit", Err: err}
	}
	return hash, nil
}
