package db

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/renameio"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// Db is a content-addressable object store. Dir is the base
// directory. Depth is the number of subdirectory levels in the block
// and tree dirs.  We use three-character hexadecimal names for the
// subdirectories, giving us a maximum of 4096 subdirs in a parent dir.
// Algo is the hash algorithm used for new objects.
type Db struct {
	Dir   string // base of tree
	Depth int    // number of subdir levels in block and tree dirs
	Algo  string // hash algorithm for new objects
}

const configFile = "config.json"

// Open loads an existing db object from dir.
func Open(dir string) (db *Db, err error) {
	dir = filepath.Clean(dir)

	if !canstat(dir) {
		return nil, fmt.Errorf("cannot open: %s", dir)
	}

	buf, err := os.ReadFile(filepath.Join(dir, configFile))
	if err != nil {
		return nil, &NotDbError{Dir: dir}
	}
	db = &Db{}
	err = json.Unmarshal(buf, db)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: %s", dir, configFile)
	}
	// the config may have been written somewhere else
	db.Dir = dir
	return
}

// Create initializes a db directory and its contents.  The directory
// may already hold unrelated files, but not another database.
func (db Db) Create() (out *Db, err error) {
	defer Return(&err)

	dir := filepath.Clean(db.Dir)
	db.Dir = dir

	if canstat(filepath.Join(dir, configFile)) {
		return nil, &ExistsError{Dir: dir}
	}

	if db.Depth < 1 {
		db.Depth = 2
	}
	if db.Algo == "" {
		db.Algo = "sha256"
	}
	_, err = Hash(db.Algo, nil)
	Ck(err)

	err = mkdir(dir)
	Ck(err)

	// blocks hold records and commits
	err = mkdir(filepath.Join(dir, "block"))
	Ck(err)

	// journal chain nodes
	err = mkdir(filepath.Join(dir, "tree"))
	Ck(err)

	// the journal head is a symlink in stream
	err = mkdir(filepath.Join(dir, "stream"))
	Ck(err)

	// human-readable record names
	err = mkdir(filepath.Join(dir, "label"))
	Ck(err)

	buf, err := json.Marshal(db)
	Ck(err)
	err = os.WriteFile(filepath.Join(dir, configFile), buf, 0644)
	Ck(err)

	log.Debugf("created db %s depth %d algo %s", dir, db.Depth, db.Algo)
	return &db, nil
}

func (db *Db) tmpFile() (fh *os.File, err error) {
	return os.CreateTemp(db.Dir, ".tmp*")
}

// ObjectFromPath opens the block or tree at path.
func (db *Db) ObjectFromPath(path *Path) (obj Object, err error) {
	defer Return(&err)

	switch path.Class {
	case "block":
		file, err := OpenWorm(db, path)
		Ck(err)
		return Block{}.New(db, file), nil
	case "tree":
		file, err := OpenWorm(db, path)
		Ck(err)
		return Tree{}.New(db, file), nil
	default:
		Assert(false, "unhandled class %s", path.Class)
	}
	return
}

// GetBlock retrieves an entire block body.
func (db *Db) GetBlock(path *Path) (buf []byte, err error) {
	file, err := OpenWorm(db, path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return file.ReadAll()
}

// PutBlock hashes buf, stores it in a file named after the hash, and
// returns the block object.
func (db *Db) PutBlock(algo string, buf []byte) (b *Block, err error) {
	defer Return(&err)

	Assert(db != nil, "db is nil")

	file, err := CreateWorm(db, "block", algo)
	Ck(err)
	b = Block{}.New(db, file)

	n, err := b.Write(buf)
	Ck(err)
	Assert(n == len(buf), "short write")
	err = b.Close()
	Ck(err)

	return
}

// PutTree takes one or more child objects, stores their canpaths in a
// file under tree/, and returns the new tree.
func (db *Db) PutTree(algo string, children ...Object) (tree *Tree, err error) {
	defer Return(&err)

	Assert(db != nil, "db is nil")
	if len(children) == 0 {
		return nil, fmt.Errorf("empty tree")
	}

	file, err := CreateWorm(db, "tree", algo)
	Ck(err)
	tree = Tree{}.New(db, file)

	// this is a write of a new tree, so we can't call loadEntries()
	tree._entries = children

	buf := []byte(tree.Txt())
	n, err := tree.Write(buf)
	Ck(err)
	Assert(n == len(buf), "short write")
	err = tree.Close()
	Ck(err)

	return
}

// GetTree takes a tree path and returns a Tree struct with its
// entries loaded.
func (db *Db) GetTree(path *Path) (tree *Tree, err error) {
	defer Return(&err)

	file, err := OpenWorm(db, path)
	Ck(err)
	defer file.Close()

	tree = Tree{}.New(db, file)

	err = tree.loadEntries()
	Ck(err)

	return
}

// Link points label at the block holding record id.
func (db *Db) Link(label string, id ID) (err error) {
	defer Return(&err)
	ErrnoIf(label == "" || strings.ContainsAny(label, "/\x00") || strings.HasPrefix(label, "."),
		syscall.EINVAL, "bad label %q", label)
	path, err := db.PathFromAddr(id)
	Ck(err)
	ErrnoIf(!exists(path.Abs), syscall.ENOENT, "not found: %s", id)
	src, err := filepath.Rel(filepath.Join(db.Dir, "label"), path.Abs)
	Ck(err)
	err = renameio.Symlink(src, filepath.Join(db.Dir, "label", label))
	Ck(err)
	return
}

// Resolve returns the record address a label points at.  Anything
// that already parses as a block address is returned unchanged.
func (db *Db) Resolve(ref string) (id ID, err error) {
	defer Return(&err)
	linkabs := filepath.Join(db.Dir, "label", ref)
	if !strings.Contains(ref, "/") && exists(linkabs) {
		target, err := os.Readlink(linkabs)
		Ck(err)
		path, err := Path{}.New(db, filepath.Join(filepath.Dir(linkabs), target))
		Ck(err)
		return ID(path.Addr), nil
	}
	path, err := db.PathFromAddr(ID(ref))
	if err != nil {
		return "", fmt.Errorf("unknown label or address: %s", ref)
	}
	return ID(path.Addr), nil
}

// Cat returns a reader over the concatenated leaf blocks of tree.
func (db *Db) Cat(tree *Tree) (rd io.Reader, err error) {
	leaves, err := tree.Leaves()
	if err != nil {
		return
	}
	var readers []io.Reader
	for _, leaf := range leaves {
		readers = append(readers, leaf)
	}
	return io.MultiReader(readers...), nil
}

// Addr returns the address an object of class holding buf would be
// stored under, without writing anything.
func (db *Db) Addr(class, algo string, buf []byte) (id ID, err error) {
	content := append([]byte(class+"\n"), buf...)
	binhash, err := Hash(algo, content)
	if err != nil {
		return
	}
	return ID(filepath.Join(algo, bin2hex(binhash))), nil
}
