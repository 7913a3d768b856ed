package db

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Path is a parsed object location.  Raw may be an abspath, relpath
// or canpath; the other fields are derived from it.
type Path struct {
	Db    *Db
	Raw   string
	Abs   string // absolute
	Rel   string // relative
	Canon string // canonical
	Class string
	Algo  string
	Hash  string
	Addr  string
	Label string // stream or record label
}

func (path Path) New(db *Db, raw string) (res *Path, err error) {
	path.Db = db
	path.Raw = raw

	clean := filepath.Clean(raw)

	// remove db.Dir
	clean = strings.TrimPrefix(clean, filepath.Clean(db.Dir)+"/")

	// split into parts
	parts := strings.Split(clean, "/")
	if len(parts) < 2 {
		return nil, fmt.Errorf("malformed path: %s", raw)
	}
	path.Class = parts[0]
	switch path.Class {
	case "stream", "label":
		path.Label = filepath.Join(parts[1:]...)
		path.Rel = filepath.Join(path.Class, path.Label)
		path.Abs = filepath.Join(db.Dir, path.Rel)
		path.Canon = path.Rel
	case "block", "tree":
		if len(parts) < 3 {
			return nil, fmt.Errorf("malformed path: %s", raw)
		}
		path.Algo = parts[1]
		// the last part of the path should always be the full hash,
		// regardless of whether we were given the full or canonical
		// path
		path.Hash = parts[len(parts)-1]
		if len(path.Hash) < 3*db.Depth {
			return nil, fmt.Errorf("malformed hash: %s", raw)
		}

		// Rel uses the nesting depth described in the Db comments.
		// The full hash is kept in the last component to make
		// troubleshooting with UNIX tools slightly easier.
		var subpath string
		for i := 0; i < db.Depth; i++ {
			subdir := path.Hash[(3 * i):((3 * i) + 3)]
			subpath = filepath.Join(subpath, subdir)
		}
		path.Rel = filepath.Join(path.Class, path.Algo, subpath, path.Hash)
		path.Abs = filepath.Join(db.Dir, path.Rel)
		path.Canon = filepath.Join(path.Class, path.Algo, path.Hash)
		// Addr is a universally-unique address for the data stored at path.
		path.Addr = filepath.Join(path.Algo, path.Hash)
	default:
		return nil, fmt.Errorf("unknown class %q: %s", path.Class, raw)
	}

	return &path, nil
}

// PathFromAddr returns the block path for a record address.
func (db *Db) PathFromAddr(id ID) (*Path, error) {
	return Path{}.New(db, filepath.Join("block", string(id)))
}

func (path *Path) header() string {
	return path.Class + "\n"
}
