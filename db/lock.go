package db

import (
	"os"
	"path/filepath"
	"syscall"

	. "github.com/stevegt/goadapt"
)

// Lock takes an exclusive flock on the database lock file, so writers
// in different processes serialize.  Call unlock when done.
func (db *Db) Lock() (unlock func(), err error) {
	defer Return(&err)
	fh, err := os.OpenFile(filepath.Join(db.Dir, "lock"), os.O_RDWR|os.O_CREATE, 0644)
	Ck(err)
	err = syscall.Flock(int(fh.Fd()), syscall.LOCK_EX)
	if err != nil {
		fh.Close()
		return nil, err
	}
	unlock = func() {
		syscall.Flock(int(fh.Fd()), syscall.LOCK_UN)
		fh.Close()
	}
	return
}
