package objstore

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

func branchRefName(branch string) plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(branch)
}

// branchHead returns the branch's current head hash, or plumbing.ZeroHash
// if the branch has never been written to (ref absent).
func branchHead(repo *git.Repository, branch string) (plumbing.Hash, error) {
	ref, err := repo.Storer.Reference(branchRefName(branch))
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, &IOFailure{Op: "read branch ref", Err: err}
	}
	return ref.Hash(), nil
}

// casAdvanceBranch atomically moves branch from oldHash to newHash,
// failing with StaleBranch if the branch's observed head changed in the
// meantime.
func casAdvanceBranch(repo *git.Repository, branch string, oldHash, newHash plumbing.Hash) error {
	refName := branchRefName(branch)
	newRef := plumbing.NewHashReference(refName, newHash)

	var oldRef *plumbing.Reference
	if oldHash != plumbing.ZeroHash {
		oldRef = plumbing.NewHashReference(refName, oldHash)
	}

	if err := repo.Storer.CheckAndSetReference(newRef, oldRef); err != nil {
		current, readErr := branchHead(repo, branch)
		if readErr != nil {
			return readErr
		}
		return &StaleBranch{Branch: branch, Expected: oldHash, Actual: current}
	}
	return nil
}

// CreateBranch points a new branch ref at fromRef's current commit. fromRef
// may be a branch name or a full commit id; a branch with no commits yet
// yields a new branch in the same empty state.
func (s *Store) CreateBranch(name, fromRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.Storer.Reference(branchRefName(name)); err == nil {
		return nil // already exists; creation is idempotent
	}

	head, err := branchHead(s.repo, fromRef)
	if err != nil {
		return err
	}
	if head == plumbing.ZeroHash && len(fromRef) == 40 {
		if hash := plumbing.NewHash(fromRef); hash != plumbing.ZeroHash {
			if _, cerr := s.repo.CommitObject(hash); cerr == nil {
				head = hash
			}
		}
	}

	ref := plumbing.NewHashReference(branchRefName(name), head)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return &IOFailure{Op: "create branch ref", Err: err}
	}
	return nil
}

// DeleteBranch removes a branch ref. The commits it pointed to remain in
// the object graph until garbage collected.
func (s *Store) DeleteBranch(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Storer.RemoveReference(branchRefName(name)); err != nil {
		return &IOFailure{Op: "delete branch ref", Err: err}
	}
	return nil
}

// Head returns branch's current head commit id as a hex string, or "" if
// the branch has never been written to. Callers that need the commit a
// write just landed on (to annotate it with a note, or to key a cache on
// it) should call Head immediately after the write, while still holding
// whatever per-branch lock serialized that write.
func (s *Store) Head(branch string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, err := branchHead(s.repo, branch)
	if err != nil {
		return "", err
	}
	if hash == plumbing.ZeroHash {
		return "", nil
	}
	return hash.String(), nil
}

// ListBranches returns every branch name, sorted.
func (s *Store) ListBranches() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	iter, err := s.repo.Storer.IterReferences()
	if err != nil {
		return nil, &IOFailure{Op: "iterate refs", Err: err}
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsBranch() {
			names = append(names, strings.TrimPrefix(ref.Name().String(), "refs/heads/"))
		}
		return nil
	})
	if err != nil {
		return nil, &IOFailure{Op: "iterate refs", Err: err}
	}
	sort.Strings(names)
	return names, nil
}
