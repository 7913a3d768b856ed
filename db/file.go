package db

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// file modes
const (
	NEW   = 0
	READ  = 0444
	WRITE = 0644
)

// WORM is a write-once, read-many file.  A new WORM is written to a
// temporary file; Close renames it into place under its hash.
type WORM struct {
	Db *Db
	*Path
	_mode os.FileMode
	fh    *os.File
	hash  hash.Hash
}

func CreateWorm(db *Db, class string, algo string) (file *WORM, err error) {
	defer Return(&err)
	file = &WORM{}
	file.Db = db
	// we don't call Path.New() here 'cause we don't know the hash yet
	file.Path = &Path{Db: db, Class: class, Algo: algo}
	file.Mode(WRITE)
	switch algo {
	case "sha256":
		file.hash = sha256.New()
	case "sha512":
		file.hash = sha512.New()
	default:
		err := fmt.Errorf("%w: %s", syscall.ENOSYS, algo)
		return nil, err
	}
	return
}

func OpenWorm(db *Db, path *Path) (file *WORM, err error) {
	defer Return(&err)
	file = &WORM{}
	file.Db = db
	file.Path = path
	ErrnoIf(len(file.Path.Abs) == 0, syscall.EINVAL, "empty path")
	ErrnoIf(!exists(file.Path.Abs), syscall.ENOENT, "not found: %s", file.Path.Abs)
	file.Mode(READ)
	return
}

// gets called by Read(), Write(), etc.
func (file *WORM) ckopen() (err error) {
	defer Return(&err)

	if file.fh != nil {
		return
	}
	header := file.header()
	switch file.Mode() {
	case WRITE:
		file.fh, err = file.Db.tmpFile()
		Ck(err)
		n, err := file.fh.Write([]byte(header))
		Ck(err)
		Assert(n == len(header))
		// the header is hashed too, so a block and a tree with the
		// same body never share an address
		_, err = file.hash.Write([]byte(header))
		Ck(err)
	case READ:
		file.fh, err = os.Open(file.Path.Abs)
		Ck(err)
		buf := make([]byte, len(header))
		n, err := io.ReadFull(file.fh, buf)
		if err != nil || n != len(header) || string(buf) != header {
			return fmt.Errorf("malformed header: %q file: %s", string(buf), file.Path.Abs)
		}
	default:
		Assert(false, "unhandled mode %v", file.Mode())
	}
	return
}

func (file *WORM) Close() (err error) {
	defer Return(&err)
	switch file.Mode() {
	case NEW, READ:
		if file.fh == nil {
			return
		}
		// readonly, so no err check needed
		file.fh.Close()
		file.fh = nil
		return
	case WRITE:
		Assert(file.fh != nil, "writeable file handle is nil: %#v", file.Path)

		err = file.fh.Close()
		Ck(err)

		// now that we know the hash, replace the tmp Path with the
		// permanent one
		hexhash := bin2hex(file.hash.Sum(nil))
		canpath := filepath.Join(file.Path.Class, file.Path.Algo, hexhash)
		file.Path, err = Path{}.New(file.Db, canpath)
		Ck(err)

		dir, _ := filepath.Split(file.Path.Abs)
		err = os.MkdirAll(dir, 0755)
		Ck(err)

		// same content means same name, so an existing file is
		// already what we wrote
		if exists(file.Path.Abs) {
			err = os.Remove(file.fh.Name())
			Ck(err)
		} else {
			err = os.Rename(file.fh.Name(), file.Path.Abs)
			Ck(err)
		}

		file.Mode(READ)
		log.Debugf("worm closed %s", file.Path.Canon)
		file.fh = nil
		return
	}
	return
}

func (file *WORM) Mode(newmode ...os.FileMode) (oldmode os.FileMode) {
	Assert(len(newmode) < 2)
	oldmode = file._mode
	if len(newmode) > 0 {
		file._mode = newmode[0]
		if file._mode != WRITE && exists(file.Path.Abs) {
			err := os.Chmod(file.Path.Abs, file._mode)
			Ck(err)
		}
	}
	return
}

// Read reads from the file body into buf.  Supports the io.Reader
// interface.
func (file *WORM) Read(buf []byte) (n int, err error) {
	if file.Mode() != READ {
		return 0, fmt.Errorf("cannot read from unclosed object: %s", file.Path.Class)
	}
	err = file.ckopen()
	if err != nil {
		return
	}
	return file.fh.Read(buf)
}

func (file *WORM) ReadAll() (buf []byte, err error) {
	defer Return(&err)
	err = file.ckopen()
	Ck(err)
	buf, err = io.ReadAll(file.fh)
	Ck(err)
	return
}

// Size returns the size of the body, header excluded.
func (file *WORM) Size() (n int64, err error) {
	info, err := os.Stat(file.Path.Abs)
	if err != nil {
		return
	}
	n = info.Size() - int64(len(file.header()))
	return
}

// Write adds data to the file body and to the running hash.  Large
// bodies can be written using multiple Write() calls.  Supports the
// io.Writer interface.
func (file *WORM) Write(data []byte) (n int, err error) {
	if file.Mode() == READ {
		err = fmt.Errorf("cannot write to existing object: %s", file.Path.Abs)
		return
	}

	err = file.ckopen()
	if err != nil {
		return
	}

	n, err = file.hash.Write(data)
	if err != nil {
		return
	}

	n, err = file.fh.Write(data)
	return
}
