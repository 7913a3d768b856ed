package db

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// Tree is a vertex in a Merkle tree. Entries point at blocks or other
// trees.
type Tree struct {
	Db *Db
	*WORM
	_entries []Object
	_leaves  []Object
}

func (tree Tree) New(db *Db, file *WORM) *Tree {
	tree.Db = db
	tree.WORM = file
	return &tree
}

func (tree *Tree) GetPath() *Path {
	return tree.Path
}

// Entries returns the tree's direct children.
func (tree *Tree) Entries() (entries []Object, err error) {
	if len(tree._entries) == 0 {
		err = tree.loadEntries()
		if err != nil {
			return
		}
	}
	return tree._entries, nil
}

// AppendBlock puts a block in the database and returns a new root
// node holding the old root and the new block.  This is how the
// journal grows: every commit appends one block.
func (tree *Tree) AppendBlock(algo string, buf []byte) (newrootnode *Tree, err error) {
	defer Return(&err)
	block, err := tree.Db.PutBlock(algo, buf)
	Ck(err)
	newrootnode, err = tree.Db.PutTree(algo, tree, block)
	Ck(err)
	return
}

// Leaves returns the blocks under tree, oldest first.
func (tree *Tree) Leaves() (leaves []Object, err error) {
	defer Return(&err)
	if len(tree._leaves) == 0 {
		tree._leaves, err = tree.traverse(false)
		Ck(err)
	}
	return tree._leaves, nil
}

func (tree *Tree) loadEntries() (err error) {
	defer Return(&err)

	Assert(tree.WORM != nil)
	Assert(tree.WORM.Path != nil)
	if tree.WORM.Path.Abs == "" {
		return
	}
	buf, err := tree.Db.GetBlock(tree.Path)
	Ck(err)
	var entries []Object
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		path, err := Path{}.New(tree.Db, line)
		Ck(err)
		entry, err := tree.Db.ObjectFromPath(path)
		Ck(err)
		entries = append(entries, entry)
	}
	err = scanner.Err()
	Ck(err, "%q", tree.Path.Abs)

	tree._entries = entries
	return
}

// Txt returns the concatenated tree entries
func (tree *Tree) Txt() (out string) {
	for _, entry := range tree._entries {
		out += strings.TrimSpace(entry.GetPath().Canon) + "\n"
	}
	return
}

// Verify rehashes every object under tree and compares it with its
// address.
func (tree *Tree) Verify() (ok bool, err error) {
	defer Return(&err)
	objects, err := tree.traverse(true)
	Ck(err)
	for _, obj := range objects {
		path := obj.GetPath()
		content, err := tree.Db.GetBlock(path)
		Ck(err)
		content = append([]byte(path.header()), content...)
		binhash, err := Hash(path.Algo, content)
		Ck(err)
		if bin2hex(binhash) != path.Hash {
			log.Debugf("verify failure %s", path.Canon)
			return false, fmt.Errorf("hash mismatch: %s", path.Canon)
		}
	}
	return true, nil
}

// traverse recurses down the tree returning leaves or optionally all
// nodes
func (tree *Tree) traverse(all bool) (objects []Object, err error) {
	defer Return(&err)

	if all {
		objects = append(objects, tree)
	}

	entries, err := tree.Entries()
	Ck(err)
	for _, obj := range entries {
		switch child := obj.(type) {
		case *Tree:
			childobjs, err := child.traverse(all)
			if err != nil {
				return nil, err
			}
			objects = append(objects, childobjs...)
		case *Block:
			objects = append(objects, child)
		default:
			Assert(false, "unhandled type %T", child)
		}
	}

	return
}
