package db

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// Stream is a labeled pointer at a tree root.  Appending moves the
// pointer; old roots stay in the store.
type Stream struct {
	Db       *Db
	RootNode *Tree
	Label    string
	Path     *Path
}

func (stream Stream) New(db *Db, label string, rootnode *Tree) (out *Stream, err error) {
	defer Return(&err)
	stream.Db = db
	stream.Label = label
	stream.RootNode = rootnode
	path, err := Path{}.New(db, filepath.Join("stream", label))
	Ck(err)
	stream.Path = path
	return &stream, nil
}

// OpenStream returns an existing Stream given a label.  The error is
// an *os.PathError satisfying os.IsNotExist when there is no such
// stream.
func (db *Db) OpenStream(label string) (stream *Stream, err error) {
	defer Return(&err)
	linkabs := filepath.Join(db.Dir, "stream", label)
	target, err := os.Readlink(linkabs)
	if err != nil {
		return
	}
	treepath, err := Path{}.New(db, filepath.Join(filepath.Dir(linkabs), target))
	Ck(err)
	rootnode, err := db.GetTree(treepath)
	Ck(err)
	stream, err = Stream{}.New(db, label, rootnode)
	Ck(err)
	return
}

// LinkStream points a symlink named label at tree, and returns the
// resulting stream object.
func (tree *Tree) LinkStream(label string) (stream *Stream, err error) {
	defer Return(&err)
	stream, err = Stream{}.New(tree.Db, label, tree)
	Ck(err)
	err = stream.relink()
	Ck(err)
	return
}

// AppendBlock puts a block in the database, appends it to the Merkle
// tree as a new leaf node, and then rewrites the stream label's
// symlink to point at the new tree root.
func (stream *Stream) AppendBlock(algo string, buf []byte) (newstream *Stream, err error) {
	defer Return(&err)
	newrootnode, err := stream.RootNode.AppendBlock(algo, buf)
	Ck(err)
	newstream, err = Stream{}.New(stream.Db, stream.Label, newrootnode)
	Ck(err)
	err = newstream.relink()
	Ck(err)
	return
}

// relink atomically replaces the label symlink.
func (stream *Stream) relink() (err error) {
	src := filepath.Join("..", stream.RootNode.Path.Rel)
	log.Debugf("stream %s -> %s", stream.Label, src)
	return renameio.Symlink(src, stream.Path.Abs)
}

// Target returns the current symlink target of the stream named label,
// or "" if there is none.
func (db *Db) Target(label string) (target string, err error) {
	target, err = os.Readlink(filepath.Join(db.Dir, "stream", label))
	if os.IsNotExist(err) {
		return "", nil
	}
	return
}

// Ls lists all of the leaf nodes in a stream and optionally both
// leaf and inner
func (stream *Stream) Ls(all bool) (objects []Object, err error) {
	return stream.RootNode.traverse(all)
}

// Cat returns a reader over every leaf block in the stream, oldest
// first.
func (stream *Stream) Cat() (io.Reader, error) {
	return stream.Db.Cat(stream.RootNode)
}
