package objstore

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/chrondb/chrondb/internal/value"
)

// HistoryEntry is one point in a document's commit history. Document is
// nil when the commit recorded the document's absence (deleted, or not
// yet created at an ancestor commit).
type HistoryEntry struct {
	CommitID  string
	Committer string
	Timestamp time.Time
	Document  *value.Value
}

// History walks first-parent from branch's head, emitting an entry for
// every commit whose tree differs from its parent's along id's path.
// Resumes strictly after the `since` commit when given, continuing toward
// the root. limit <= 0 means unbounded.
func (s *Store) History(branch, id string, since string, limit int) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	head, err := branchHead(s.repo, branch)
	if err != nil {
		return nil, err
	}
	if head == plumbing.ZeroHash {
		return nil, nil
	}

	path := value.DocumentPath(documentTable(id), id)
	skipping := since != ""

	var entries []HistoryEntry
	current := head
	for current != plumbing.ZeroHash {
		commit, err := s.repo.CommitObject(current)
		if err != nil {
			return nil, &Corruption{Hash: current, Err: err}
		}

		if skipping {
			if current.String() == since {
				skipping = false
			}
			current = firstParent(commit)
			continue
		}

		tree, err := commit.Tree()
		if err != nil {
			return nil, &Corruption{Hash: commit.TreeHash, Err: err}
		}
		blobHash, present, err := findFile(s.repo, tree, path)
		if err != nil {
			return nil, err
		}

		parentHash := firstParent(commit)
		var parentBlobHash plumbing.Hash
		var parentPresent bool
		if parentHash != plumbing.ZeroHash {
			parentTree, err := commitTree(s.repo, parentHash)
			if err != nil {
				return nil, err
			}
			parentBlobHash, parentPresent, err = findFile(s.repo, parentTree, path)
			if err != nil {
				return nil, err
			}
		}

		if present != parentPresent || blobHash != parentBlobHash {
			entry := HistoryEntry{
				CommitID:  current.String(),
				Committer: commit.Committer.Name,
				Timestamp: commit.Committer.When,
			}
			if present {
				data, err := readBlob(s.repo, blobHash)
				if err != nil {
					return nil, err
				}
				doc, err := value.FromJSON(data)
				if err != nil {
					return nil, &Corruption{Hash: blobHash, Err: err}
				}
				entry.Document = &doc
			}
			entries = append(entries, entry)
			if limit > 0 && len(entries) >= limit {
				break
			}
		}

		current = parentHash
	}

	return entries, nil
}

// CommitMeta is one commit on a branch's first-parent chain, without any
// document-path filtering.
type CommitMeta struct {
	CommitID  string
	Committer string
	Timestamp time.Time
}

// BranchCommits walks branch's first-parent chain from its head to the
// root, newest first. Used by the temporal resolver to map a timestamp or
// range onto branch history directly; per-document resolution goes
// through History instead.
func (s *Store) BranchCommits(branch string) ([]CommitMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	head, err := branchHead(s.repo, branch)
	if err != nil {
		return nil, err
	}

	var commits []CommitMeta
	current := head
	for current != plumbing.ZeroHash {
		commit, err := s.repo.CommitObject(current)
		if err != nil {
			return nil, &Corruption{Hash: current, Err: err}
		}
		commits = append(commits, CommitMeta{
			CommitID:  current.String(),
			Committer: commit.Committer.Name,
			Timestamp: commit.Committer.When,
		})
		current = firstParent(commit)
	}
	return commits, nil
}

// DocumentAt reads id directly from an arbitrary commit's tree, independent
// of any branch.
func (s *Store) DocumentAt(commitID, id string) (value.Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hash := plumbing.NewHash(commitID)
	tree, err := commitTree(s.repo, hash)
	if err != nil {
		return value.Value{}, false, err
	}

	path := value.DocumentPath(documentTable(id), id)
	blobHash, ok, err := findFile(s.repo, tree, path)
	if err != nil || !ok {
		return value.Value{}, false, err
	}
	data, err := readBlob(s.repo, blobHash)
	if err != nil {
		return value.Value{}, false, err
	}
	doc, err := value.FromJSON(data)
	if err != nil {
		return value.Value{}, false, &Corruption{Hash: blobHash, Err: err}
	}
	return doc, true, nil
}

func firstParent(commit *object.Commit) plumbing.Hash {
	if len(commit.ParentHashes) == 0 {
		return plumbing.ZeroHash
	}
	return commit.ParentHashes[0]
}
