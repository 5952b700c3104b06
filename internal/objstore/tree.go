package objstore

import (
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// createBlob stores data as a loose blob object and returns its hash.
func createBlob(repo *git.Repository, data []byte) (plumbing.Hash, error) {
	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, &IOFailure{Op: "create blob writer", Err: err}
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, &IOFailure{Op: "write blob", Err: err}
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, &IOFailure{Op: "close blob writer", Err: err}
	}

	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, &IOFailure{Op: "store blob", Err: err}
	}
	return hash, nil
}

func readBlob(repo *git.Repository, hash plumbing.Hash) ([]byte, error) {
	blob, err := object.GetBlob(repo.Storer, hash)
	if err != nil {
		return nil, &Corruption{Hash: hash, Err: err}
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, &Corruption{Hash: hash, Err: err}
	}
	defer r.Close()

	data := make([]byte, 0, blob.Size)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	return data, nil
}

// getTreeEntries reads every entry of the tree at hash, keyed by name. A
// zero hash (root-of-an-empty-repo) yields an empty map rather than an
// error.
func getTreeEntries(repo *git.Repository, hash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)
	if hash == plumbing.ZeroHash {
		return entries, nil
	}
	tree, err := object.GetTree(repo.Storer, hash)
	if err != nil {
		return nil, &Corruption{Hash: hash, Err: err}
	}
	for _, e := range tree.Entries {
		entries[e.Name] = e
	}
	return entries, nil
}

// buildTreeFromEntries encodes and stores a tree object from entries,
// sorted the way git requires (directories compared as if suffixed "/").
func buildTreeFromEntries(repo *git.Repository, entries []object.TreeEntry) (plumbing.Hash, error) {
	sort.Slice(entries, func(i, j int) bool {
		ni, nj := entries[i].Name, entries[j].Name
		if entries[i].Mode == filemode.Dir {
			ni += "/"
		}
		if entries[j].Mode == filemode.Dir {
			nj += "/"
		}
		return ni < nj
	})

	tree := &object.Tree{Entries: entries}
	obj := repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, &IOFailure{Op: "encode tree", Err: err}
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, &IOFailure{Op: "store tree", Err: err}
	}
	return hash, nil
}

// updateTreePath sets path's leaf to blobHash within the tree rooted at
// rootHash, returning the new root tree hash.
func updateTreePath(repo *git.Repository, rootHash plumbing.Hash, path string, blobHash plumbing.Hash) (plumbing.Hash, error) {
	return updateTreePathParts(repo, rootHash, strings.Split(path, "/"), blobHash)
}

func updateTreePathParts(repo *git.Repository, treeHash plumbing.Hash, parts []string, blobHash plumbing.Hash) (plumbing.Hash, error) {
	entries, err := getTreeEntries(repo, treeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	name := parts[0]
	if len(parts) == 1 {
		entries[name] = object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: blobHash}
	} else {
		var subHash plumbing.Hash
		if existing, ok := entries[name]; ok && existing.Mode == filemode.Dir {
			subHash = existing.Hash
		}
		newSubHash, err := updateTreePathParts(repo, subHash, parts[1:], blobHash)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries[name] = object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: newSubHash}
	}

	entrySlice := make([]object.TreeEntry, 0, len(entries))
	for _, e := range entries {
		entrySlice = append(entrySlice, e)
	}
	return buildTreeFromEntries(repo, entrySlice)
}

// deleteTreePath removes path from the tree rooted at rootHash, returning
// the new root tree hash (plumbing.ZeroHash if the tree is now empty).
func deleteTreePath(repo *git.Repository, rootHash plumbing.Hash, path string) (plumbing.Hash, error) {
	return deleteTreePathParts(repo, rootHash, strings.Split(path, "/"))
}

func deleteTreePathParts(repo *git.Repository, treeHash plumbing.Hash, parts []string) (plumbing.Hash, error) {
	entries, err := getTreeEntries(repo, treeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	name := parts[0]
	if len(parts) == 1 {
		delete(entries, name)
	} else {
		existing, ok := entries[name]
		if !ok || existing.Mode != filemode.Dir {
			return treeHash, nil
		}
		newSubHash, err := deleteTreePathParts(repo, existing.Hash, parts[1:])
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if newSubHash == plumbing.ZeroHash {
			delete(entries, name)
		} else {
			entries[name] = object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: newSubHash}
		}
	}

	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}
	entrySlice := make([]object.TreeEntry, 0, len(entries))
	for _, e := range entries {
		entrySlice = append(entrySlice, e)
	}
	return buildTreeFromEntries(repo, entrySlice)
}

// findFile walks tree along path, returning its blob hash if present.
func findFile(repo *git.Repository, tree *object.Tree, path string) (plumbing.Hash, bool, error) {
	f, err := tree.File(path)
	if err != nil {
		if err == object.ErrFileNotFound {
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, &Corruption{Hash: tree.Hash, Err: err}
	}
	return f.Hash, true, nil
}
