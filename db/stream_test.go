package db

import (
	"bytes"
	"testing"

	"github.com/hlubek/readercomp"
)

func TestStream(t *testing.T) {
	db := setup(t, nil)

	blocks := putBlocks(t, db, "blob1value", "blob2value")
	tree, err := db.PutTree("sha256", blocks...)
	tassert(t, err == nil, "%v", err)

	target, err := db.Target("stream1")
	tassert(t, err == nil && target == "", "target %q err %v", target, err)

	stream1, err := tree.LinkStream("stream1")
	tassert(t, err == nil, "%v", err)

	gotstream, err := db.OpenStream("stream1")
	tassert(t, err == nil, "%v", err)
	tassert(t, stream1.RootNode.Path.Abs == gotstream.RootNode.Path.Abs, "stream mismatch: expect %v got %v", stream1.RootNode.Path.Abs, gotstream.RootNode.Path.Abs)

	before, err := db.Target("stream1")
	tassert(t, err == nil && before != "", "target %q err %v", before, err)

	stream1, err = stream1.AppendBlock("sha256", mkbuf("blob3value"))
	tassert(t, err == nil, "%v", err)

	after, err := db.Target("stream1")
	tassert(t, err == nil, "%v", err)
	tassert(t, after != before, "head did not move")

	leaves, err := stream1.Ls(false)
	tassert(t, err == nil, "%v", err)
	tassert(t, len(leaves) == 3, "leaves %d", len(leaves))

	reopened, err := db.OpenStream("stream1")
	tassert(t, err == nil, "%v", err)
	rd, err := reopened.Cat()
	tassert(t, err == nil, "%v", err)
	expectrd := bytes.NewReader(mkbuf("blob1valueblob2valueblob3value"))
	ok, err := readercomp.Equal(expectrd, rd, 4096)
	tassert(t, err == nil, "readercomp.Equal: %v", err)
	tassert(t, ok, "stream mismatch")
}

func TestOpenStreamMissing(t *testing.T) {
	db := setup(t, nil)
	_, err := db.OpenStream("nope")
	tassert(t, err != nil, "expected error")
}
