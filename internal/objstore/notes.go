package objstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// notesRefName is the ref git's own `git notes` tooling reads and writes,
// so ChronDB's commit annotations are stored in a form standard Git tooling
// already understands. Bundle import fetches only refs/heads/ refs, so the
// annotations do not travel through a bundle import.
func notesRefName() plumbing.ReferenceName {
	return plumbing.ReferenceName("refs/notes/commits")
}

// noteAuthor signs the synthetic commits that record note updates; these
// commits carry no document content of their own, only the notes tree.
var noteAuthor = CommitAuthor{Name: "chrondb", Email: "chrondb@localhost"}

func notesHead(repo *git.Repository) (plumbing.Hash, error) {
	ref, err := repo.Storer.Reference(notesRefName())
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, &IOFailure{Op: "read notes ref", Err: err}
	}
	return ref.Hash(), nil
}

func casAdvanceRef(repo *git.Repository, name plumbing.ReferenceName, oldHash, newHash plumbing.Hash) error {
	newRef := plumbing.NewHashReference(name, newHash)
	var oldRef *plumbing.Reference
	if oldHash != plumbing.ZeroHash {
		oldRef = plumbing.NewHashReference(name, oldHash)
	}
	return repo.Storer.CheckAndSetReference(newRef, oldRef)
}

// SetNote attaches data as the note content for commitID, merging it with
// any existing note data via merge (merge may be nil, in which case the new
// data simply replaces any prior note). A handful of internal CAS retries
// absorb races against other writers updating unrelated commits' notes
// concurrently — the notes tree is shared across the whole repository, not
// partitioned per branch like document writes are.
func (s *Store) SetNote(commitID string, data []byte, merge func(prev, next []byte) []byte, now time.Time) error {
	hash := plumbing.NewHash(commitID)

	for attempt := 0; attempt < 5; attempt++ {
		s.mu.Lock()
		head, err := notesHead(s.repo)
		if err != nil {
			s.mu.Unlock()
			return err
		}

		toWrite := data
		if merge != nil {
			if prev, ok, err := s.getNoteLocked(head, hash); err == nil && ok {
				toWrite = merge(prev, data)
			} else if err != nil {
				s.mu.Unlock()
				return err
			}
		}

		blobHash, err := createBlob(s.repo, toWrite)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		newTree, err := updateTreePath(s.repo, s.notesTreeHash(head), hash.String(), blobHash)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		newCommit, err := writeCommit(s.repo, newTree, head, noteAuthor, "annotate "+commitID, now)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		casErr := casAdvanceRef(s.repo, notesRefName(), head, newCommit)
		s.mu.Unlock()
		if casErr == nil {
			return nil
		}
	}
	return &IOFailure{Op: "set note", Err: errTooManyNoteRetries}
}

var errTooManyNoteRetries = fmt.Errorf("exhausted retries advancing refs/notes/commits")

func (s *Store) notesTreeHash(notesCommitHash plumbing.Hash) plumbing.Hash {
	if notesCommitHash == plumbing.ZeroHash {
		return plumbing.ZeroHash
	}
	tree, err := commitTree(s.repo, notesCommitHash)
	if err != nil {
		return plumbing.ZeroHash
	}
	return tree.Hash
}

func (s *Store) getNoteLocked(notesHeadHash, commitHash plumbing.Hash) ([]byte, bool, error) {
	if notesHeadHash == plumbing.ZeroHash {
		return nil, false, nil
	}
	tree, err := commitTree(s.repo, notesHeadHash)
	if err != nil {
		return nil, false, err
	}
	blobHash, ok, err := findFile(s.repo, tree, commitHash.String())
	if err != nil || !ok {
		return nil, ok, err
	}
	data, err := readBlob(s.repo, blobHash)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// GetNote returns the note content attached to commitID, if any.
func (s *Store) GetNote(commitID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	head, err := notesHead(s.repo)
	if err != nil {
		return nil, false, err
	}
	return s.getNoteLocked(head, plumbing.NewHash(commitID))
}
