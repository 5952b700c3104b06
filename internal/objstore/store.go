package objstore

import (
	"errors"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Store is a bare, content-addressed repository with no worktree: every
// read and write goes through go-git's Storer and object/tree/commit
// plumbing directly.
type Store struct {
	repo *git.Repository
	dir  string
	mu   sync.RWMutex
}

// Open opens the bare repository rooted at dir, initializing one if none
// exists yet.
func Open(dir string) (*Store, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(dir, true)
	}
	if err != nil {
		return nil, &StorageUnavailable{Dir: dir, Err: err}
	}
	return &Store{repo: repo, dir: dir}, nil
}

// Dir returns the filesystem path of the bare repository backing s, for
// callers (the bundle codec) that need to invoke the git binary against
// the same repository go-git has open.
func (s *Store) Dir() string { return s.dir }

// commitTree returns the *object.Tree a commit points to.
func commitTree(repo *git.Repository, hash plumbing.Hash) (*object.Tree, error) {
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, &Corruption{Hash: hash, Err: err}
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, &Corruption{Hash: commit.TreeHash, Err: err}
	}
	return tree, nil
}
