package objstore

import (
	"io"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Compact walks every object reachable from the current branch and notes
// refs and reports every stored object id that is not reachable. It does
// not delete anything; unreferenced objects await a separate GC pass.
func (s *Store) Compact() ([]plumbing.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reachable := make(map[plumbing.Hash]bool)

	refIter, err := s.repo.Storer.IterReferences()
	if err != nil {
		return nil, &IOFailure{Op: "iterate refs for compact", Err: err}
	}
	var heads []plumbing.Hash
	iterErr := refIter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Hash() == plumbing.ZeroHash {
			return nil
		}
		if ref.Name().IsBranch() || ref.Name() == notesRefName() {
			heads = append(heads, ref.Hash())
		}
		return nil
	})
	refIter.Close()
	if iterErr != nil {
		return nil, &IOFailure{Op: "iterate refs for compact", Err: iterErr}
	}

	for _, h := range heads {
		if err := markCommitReachable(s.repo, reachable, h); err != nil {
			return nil, err
		}
	}

	objIter, err := s.repo.Storer.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		return nil, &IOFailure{Op: "iterate objects for compact", Err: err}
	}
	defer objIter.Close()

	var orphaned []plumbing.Hash
	iterErr = objIter.ForEach(func(obj plumbing.EncodedObject) error {
		if !reachable[obj.Hash()] {
			orphaned = append(orphaned, obj.Hash())
		}
		return nil
	})
	if iterErr != nil {
		return nil, &IOFailure{Op: "iterate objects for compact", Err: iterErr}
	}

	sort.Slice(orphaned, func(i, j int) bool { return orphaned[i].String() < orphaned[j].String() })
	return orphaned, nil
}

func markCommitReachable(repo *git.Repository, reachable map[plumbing.Hash]bool, hash plumbing.Hash) error {
	if hash == plumbing.ZeroHash || reachable[hash] {
		return nil
	}
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return &Corruption{Hash: hash, Err: err}
	}
	reachable[hash] = true
	if err := markTreeReachable(repo, reachable, commit.TreeHash); err != nil {
		return err
	}
	for _, p := range commit.ParentHashes {
		if err := markCommitReachable(repo, reachable, p); err != nil {
			return err
		}
	}
	return nil
}

func markTreeReachable(repo *git.Repository, reachable map[plumbing.Hash]bool, rootHash plumbing.Hash) error {
	if rootHash == plumbing.ZeroHash || reachable[rootHash] {
		return nil
	}
	reachable[rootHash] = true

	tree, err := object.GetTree(repo.Storer, rootHash)
	if err != nil {
		return &Corruption{Hash: rootHash, Err: err}
	}
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		_, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &Corruption{Hash: rootHash, Err: err}
		}
		reachable[entry.Hash] = true
	}
	return nil
}
