package db

import (
	"os"
	"testing"
)

func putBlocks(t *testing.T, db *Db, vals ...string) (blocks []Object) {
	t.Helper()
	for _, val := range vals {
		block, err := db.PutBlock("sha256", mkbuf(val))
		tassert(t, err == nil, "%v", err)
		blocks = append(blocks, block)
	}
	return
}

func TestTree(t *testing.T) {
	db := setup(t, nil)
	children := putBlocks(t, db, "blob1value", "blob2value")

	tree, err := db.PutTree("sha256", children...)
	tassert(t, err == nil, "%v", err)
	tassert(t, tree != nil, "tree is nil")

	ok, err := tree.Verify()
	tassert(t, err == nil, "%v", err)
	tassert(t, ok, "tree verify failed: %v", tree)

	gottree, err := db.GetTree(tree.Path)
	tassert(t, err == nil, "%v", err)
	tassert(t, tree.Txt() == gottree.Txt(), "tree %v mismatch: expect %v got %v", tree.Path.Abs, tree.Txt(), gottree.Txt())

	entries, err := gottree.Entries()
	tassert(t, err == nil, "%v", err)
	tassert(t, len(entries) == 2, "entries %d", len(entries))
}

func TestTreeEmpty(t *testing.T) {
	db := setup(t, nil)
	_, err := db.PutTree("sha256")
	tassert(t, err != nil, "expected error for empty tree")
}

func TestTreeLeaves(t *testing.T) {
	db := setup(t, nil)
	blocks := putBlocks(t, db, "blob1value", "blob2value", "blob3value")

	tree1, err := db.PutTree("sha256", blocks[0], blocks[1])
	tassert(t, err == nil, "%v", err)
	tree2, err := db.PutTree("sha256", tree1, blocks[2])
	tassert(t, err == nil, "%v", err)

	got, err := db.GetTree(tree2.Path)
	tassert(t, err == nil, "%v", err)
	leaves, err := got.Leaves()
	tassert(t, err == nil, "%v", err)
	expect := objs2str(blocks)
	tassert(t, objs2str(leaves) == expect, "expected\n%s\ngot\n%s", expect, objs2str(leaves))

	all, err := got.traverse(true)
	tassert(t, err == nil, "%v", err)
	tassert(t, len(all) == 5, "traverse found %d objects", len(all))
	tassert(t, all[0].GetPath().Canon == tree2.Path.Canon, "root not first: %s", all[0].GetPath().Canon)
}

func TestTreeVerifyCorrupt(t *testing.T) {
	db := setup(t, nil)
	blocks := putBlocks(t, db, "blob1value")
	tree, err := db.PutTree("sha256", blocks...)
	tassert(t, err == nil, "%v", err)

	abs := blocks[0].GetPath().Abs
	err = os.Chmod(abs, 0644)
	tassert(t, err == nil, "%v", err)
	err = os.WriteFile(abs, []byte("block\ntampered"), 0644)
	tassert(t, err == nil, "%v", err)

	got, err := db.GetTree(tree.Path)
	tassert(t, err == nil, "%v", err)
	ok, err := got.Verify()
	tassert(t, !ok && err != nil, "corruption not detected")
}
