package db

import (
	"fmt"
	"os"
	"strings"
	"testing"

	. "github.com/stevegt/goadapt"
)

const testDbDirPrefix = "custody"

func mkbuf(s string) []byte {
	return []byte(s)
}

func objs2str(objects []Object) (out string) {
	for _, obj := range objects {
		out += strings.TrimSpace(obj.GetPath().Canon) + "\n"
	}
	return
}

func pathFromBuf(db *Db, class string, algo string, buf []byte) (path *Path, err error) {
	addr, err := db.Addr(class, algo, buf)
	if err != nil {
		return
	}
	return Path{}.New(db, class+"/"+string(addr))
}

func setup(t *testing.T, db *Db) *Db {
	var err error
	var dir string

	if db == nil {
		db = &Db{}
	}
	Assert(db.Dir == "")

	if os.Getenv("DEBUG") == "1" {
		dir, err = os.MkdirTemp("", testDbDirPrefix)
		Ck(err)
		fmt.Println(dir)
		// no cleanup
	} else {
		dir = t.TempDir()
	}
	db.Dir = dir

	db, err = db.Create()
	Ck(err)
	db, err = Open(dir)
	Ck(err)
	tassert(t, db != nil, "db is nil")

	return db
}

// test boolean condition
func tassert(t *testing.T, cond bool, txt string, args ...interface{}) {
	t.Helper() // cause file:line info to show caller
	if !cond {
		t.Fatalf(txt, args...)
	}
}

func TestGetGID(t *testing.T) {
	n := GetGID()
	tassert(t, n != 0, "oh no n is 0")
}

func TestHash(t *testing.T) {
	val := mkbuf("somevalue")
	binhash, err := Hash("sha256", val)
	tassert(t, err == nil, "%v", err)
	hexhash := bin2hex(binhash)
	expect := "70a524688ced8e45d26776fd4dc56410725b566cd840c044546ab30c4b499342"
	tassert(t, expect == hexhash, "expected %q got %q", expect, hexhash)

	binhash, err = Hash("sha512", val)
	tassert(t, err == nil, "%v", err)
	hexhash = bin2hex(binhash)
	expect = "8e77e71abe427ced1c93d883aeeddfa57ce39b787f229caaf176fdd71353f3466d340a2cdb5a219c429c53ad37f2f144c7ce01b985b6b33e397c4b8fd1433cc3"
	tassert(t, expect == hexhash, "expected %q got %q", expect, hexhash)

	_, err = Hash("foobar", val)
	tassert(t, err != nil, "expected error, received none")
}

func TestMkdir(t *testing.T) {
	err := mkdir("/etc/foobar")
	tassert(t, err != nil, "expected error, got none")
}

func TestParties(t *testing.T) {
	got := Parties("bob", "", "alice", "bob")
	tassert(t, len(got) == 2, "got %v", got)
	tassert(t, got[0] == "alice" && got[1] == "bob", "got %v", got)
	tassert(t, Contains(got, "bob"), "bob missing from %v", got)
	tassert(t, !Contains(got, "carol"), "carol in %v", got)
}
