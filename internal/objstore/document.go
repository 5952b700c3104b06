package objstore

import (
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/chrondb/chrondb/internal/value"
)

func headTreeHash(s *Store, branch string) (plumbing.Hash, plumbing.Hash, error) {
	head, err := branchHead(s.repo, branch)
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}
	if head == plumbing.ZeroHash {
		return head, plumbing.ZeroHash, nil
	}
	tree, err := commitTree(s.repo, head)
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}
	return head, tree.Hash, nil
}

// documentTable resolves the storage table for id. ChronDB's id
// convention is "table:local"; a document's own _table attribute may
// differ for querying purposes, but the storage path is keyed off the id
// prefix so a document can be located without reading it first.
func documentTable(id string) string {
	return value.TableFromID(id)
}

// PutDocument serializes doc as canonical JSON, writes a new commit whose
// tree differs from branch's head only along doc's path, and atomically
// advances branch. Returns StaleBranch if the branch moved since head was
// observed, racing with this write's own CAS.
func (s *Store) PutDocument(branch string, doc value.Value, author CommitAuthor, message string, now time.Time) (value.Value, error) {
	path, err := value.PathForDoc(doc)
	if err != nil {
		return value.Value{}, err
	}
	canonical := value.Canonical(doc)

	s.mu.Lock()
	defer s.mu.Unlock()

	head, headTree, err := headTreeHash(s, branch)
	if err != nil {
		return value.Value{}, err
	}

	blobHash, err := createBlob(s.repo, canonical)
	if err != nil {
		return value.Value{}, err
	}

	newTree, err := updateTreePath(s.repo, headTree, path, blobHash)
	if err != nil {
		return value.Value{}, err
	}

	newCommit, err := writeCommit(s.repo, newTree, head, author, message, now)
	if err != nil {
		return value.Value{}, err
	}

	if err := casAdvanceBranch(s.repo, branch, head, newCommit); err != nil {
		return value.Value{}, err
	}

	stored, err := value.FromJSON(canonical)
	if err != nil {
		return value.Value{}, &Corruption{Hash: blobHash, Err: err}
	}
	return stored, nil
}

// GetDocument resolves id's blob in branch's tree (or the given commit's
// tree, if provided) and parses it. The second return value is false if
// the document is absent — a legitimate state, not an error.
func (s *Store) GetDocument(branch, id string, atCommit *plumbing.Hash) (value.Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tree *object.Tree
	if atCommit != nil {
		var err error
		tree, err = commitTree(s.repo, *atCommit)
		if err != nil {
			return value.Value{}, false, err
		}
	} else {
		_, treeHash, err := headTreeHash(s, branch)
		if err != nil {
			return value.Value{}, false, err
		}
		if treeHash == plumbing.ZeroHash {
			return value.Value{}, false, nil
		}
		tree, err = object.GetTree(s.repo.Storer, treeHash)
		if err != nil {
			return value.Value{}, false, &Corruption{Hash: treeHash, Err: err}
		}
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

// DeleteDocument removes id's path from branch's tree and commits the
// change, reporting whether the document was present beforehand.
func (s *Store) DeleteDocument(branch, id string, author CommitAuthor, message string, now time.Time) (bool, error) {
	path := value.DocumentPath(documentTable(id), id)

	s.mu.Lock()
	defer s.mu.Unlock()

	head, headTree, err := headTreeHash(s, branch)
	if err != nil {
		return false, err
	}
	if headTree == plumbing.ZeroHash {
		return false, nil
	}

	tree, err := object.GetTree(s.repo.Storer, headTree)
	if err != nil {
		return false, &Corruption{Hash: headTree, Err: err}
	}
	_, existed, err := findFile(s.repo, tree, path)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}

	newTree, err := deleteTreePath(s.repo, headTree, path)
	if err != nil {
		return false, err
	}
	newCommit, err := writeCommit(s.repo, newTree, head, author, message, now)
	if err != nil {
		return false, err
	}
	if err := casAdvanceBranch(s.repo, branch, head, newCommit); err != nil {
		return false, err
	}
	return true, nil
}

// GetByTable returns every document whose table equals table (the _table
// attribute when present, the id prefix otherwise), ordered
// lexicographically by id. The walk covers every table directory, not
// just the one named table: a document stores under its id prefix, but
// its _table attribute may name a different namespace.
func (s *Store) GetByTable(branch, table string) ([]value.Value, error) {
	return s.walkDocuments(branch, func(doc value.Value) bool {
		return value.Table(doc) == table
	})
}

// GetByPrefix returns every document whose id starts with prefix, ordered
// lexicographically by id.
func (s *Store) GetByPrefix(branch, prefix string) ([]value.Value, error) {
	return s.walkDocuments(branch, func(doc value.Value) bool {
		id, _ := value.ID(doc)
		return strings.HasPrefix(id, prefix)
	})
}

// walkDocuments visits every document in branch's head tree (root = table
// directories, leaves = documents; the path scheme is exactly two levels
// deep) and collects those keep accepts, sorted by id.
func (s *Store) walkDocuments(branch string, keep func(value.Value) bool) ([]value.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, treeHash, err := headTreeHash(s, branch)
	if err != nil {
		return nil, err
	}
	if treeHash == plumbing.ZeroHash {
		return nil, nil
	}
	root, err := object.GetTree(s.repo.Storer, treeHash)
	if err != nil {
		return nil, &Corruption{Hash: treeHash, Err: err}
	}

	var docs []value.Value
	for _, tableEntry := range root.Entries {
		if tableEntry.Mode != filemode.Dir {
			continue
		}
		tableTree, err := object.GetTree(s.repo.Storer, tableEntry.Hash)
		if err != nil {
			return nil, &Corruption{Hash: tableEntry.Hash, Err: err}
		}
		for _, e := range tableTree.Entries {
			if e.Mode != filemode.Regular || !strings.HasSuffix(e.Name, ".json") {
				continue
			}
			data, err := readBlob(s.repo, e.Hash)
			if err != nil {
				return nil, err
			}
			doc, err := value.FromJSON(data)
			if err != nil {
				return nil, &Corruption{Hash: e.Hash, Err: err}
			}
			if keep(doc) {
				docs = append(docs, doc)
			}
		}
	}
	sortByID(docs)
	return docs, nil
}

func sortByID(docs []value.Value) {
	sort.Slice(docs, func(i, j int) bool {
		idI, _ := value.ID(docs[i])
		idJ, _ := value.ID(docs[j])
		return idI < idJ
	})
}
