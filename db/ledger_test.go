package db

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

type note struct {
	Text string `msgpack:"text"`
}

func openLedger(t *testing.T, db *Db) *Ledger {
	t.Helper()
	ledger, err := OpenLedger(db)
	tassert(t, err == nil, "%v", err)
	return ledger
}

func createNote(t *testing.T, l *Ledger, sig Party, obs []Party, text string) ID {
	t.Helper()
	var id ID
	_, err := l.Submit(sig, "note", func(tx *Tx) (err error) {
		tassert(t, tx.Committer() == sig, "committer %q", tx.Committer())
		id, err = tx.Create("Note", []Party{sig}, obs, note{Text: text})
		return
	})
	tassert(t, err == nil, "%v", err)
	return id
}

func TestSubmitQuery(t *testing.T) {
	db := setup(t, nil)
	l := openLedger(t, db)
	tassert(t, l.Seq() == 0, "seq %d", l.Seq())

	id := createNote(t, l, "alice", []Party{"bob"}, "hello")
	tassert(t, l.Seq() == 1, "seq %d", l.Seq())

	for _, p := range []Party{"alice", "bob"} {
		v, ok, err := l.Query(p, id)
		tassert(t, err == nil, "%v", err)
		tassert(t, ok, "%s cannot see %s", p, id)
		tassert(t, v.Record.Kind == "Note", "kind %q", v.Record.Kind)
		var got note
		err = v.Record.Decode(&got)
		tassert(t, err == nil, "%v", err)
		tassert(t, got.Text == "hello", "text %q", got.Text)
	}

	_, ok, err := l.Query("carol", id)
	tassert(t, err == nil, "%v", err)
	tassert(t, !ok, "carol can see %s", id)

	visible, err := l.Visible("bob")
	tassert(t, err == nil, "%v", err)
	tassert(t, len(visible) == 1 && visible[0].ID == id, "visible %v", visible)
	visible, err = l.Visible("carol")
	tassert(t, err == nil, "%v", err)
	tassert(t, len(visible) == 0, "visible %v", visible)
}

func TestArchive(t *testing.T) {
	db := setup(t, nil)
	l := openLedger(t, db)
	id := createNote(t, l, "alice", []Party{"bob"}, "v1")

	var next ID
	commit, err := l.Submit("alice", "edit", func(tx *Tx) (err error) {
		_, err = tx.Fetch(id)
		if err != nil {
			return
		}
		next, err = tx.Create("Note", []Party{"alice"}, []Party{"bob"}, note{Text: "v2"})
		if err != nil {
			return
		}
		return tx.Archive(id, next)
	})
	tassert(t, err == nil, "%v", err)
	tassert(t, commit.Seq == 2, "seq %d", commit.Seq)
	tassert(t, len(commit.Created) == 1 && commit.Created[0] == next, "created %v", commit.Created)
	tassert(t, len(commit.Archived) == 1 && commit.Archived[0].SupersededBy == next, "archived %v", commit.Archived)

	_, ok, err := l.Query("alice", id)
	tassert(t, err == nil && !ok, "archived version visible: %v %v", ok, err)

	old, ok, err := l.QueryArchived("alice", id)
	tassert(t, err == nil && ok, "signatory cannot see history: %v %v", ok, err)
	tassert(t, old.SupersededBy == next && old.ArchivedAt == 2, "%#v", old)

	_, ok, err = l.QueryArchived("bob", id)
	tassert(t, err == nil && !ok, "observer can see history")

	// a second consumer loses
	_, err = l.Submit("alice", "edit", func(tx *Tx) error {
		return tx.Archive(id, "")
	})
	archived, isArchived := errors.Cause(err).(*ArchivedError)
	tassert(t, isArchived, "expected ArchivedError, got %v", err)
	tassert(t, archived.SupersededBy == next, "superseded by %q", archived.SupersededBy)
	tassert(t, l.Seq() == 2, "failed submit moved seq to %d", l.Seq())
}

func TestTxRules(t *testing.T) {
	db := setup(t, nil)
	l := openLedger(t, db)
	id := createNote(t, l, "alice", nil, "v1")

	_, err := l.Submit("alice", "twice", func(tx *Tx) error {
		err := tx.Archive(id, "")
		if err != nil {
			return err
		}
		return tx.Archive(id, "")
	})
	_, ok := errors.Cause(err).(*ArchivedError)
	tassert(t, ok, "double archive in one tx: %v", err)

	_, err = l.Submit("alice", "missing", func(tx *Tx) error {
		_, err := tx.Fetch("sha256/0000000000000000")
		return err
	})
	_, ok = errors.Cause(err).(*NotFoundError)
	tassert(t, ok, "expected NotFoundError, got %v", err)

	_, err = l.Submit("alice", "nothing", func(tx *Tx) error { return nil })
	tassert(t, err != nil, "empty transition committed")

	_, err = l.Submit("alice", "nosigs", func(tx *Tx) error {
		_, err := tx.Create("Note", nil, []Party{"bob"}, note{})
		return err
	})
	tassert(t, err != nil, "record without signatories committed")

	// rejected transitions write nothing visible
	visible, err := l.Visible("alice")
	tassert(t, err == nil, "%v", err)
	tassert(t, len(visible) == 1, "visible %d", len(visible))
	tassert(t, l.Seq() == 1, "seq %d", l.Seq())
}

func TestLatest(t *testing.T) {
	db := setup(t, nil)
	l := openLedger(t, db)
	id := createNote(t, l, "alice", nil, "v1")

	ids := []ID{id}
	for i := 2; i <= 3; i++ {
		prev := ids[len(ids)-1]
		_, err := l.Submit("alice", "edit", func(tx *Tx) error {
			next, err := tx.Create("Note", []Party{"alice"}, nil, note{Text: fmt.Sprintf("v%d", i)})
			if err != nil {
				return err
			}
			ids = append(ids, next)
			return tx.Archive(prev, next)
		})
		tassert(t, err == nil, "%v", err)
	}

	_, err := l.Submit("alice", "latest", func(tx *Tx) error {
		v, err := tx.Latest(id)
		if err != nil {
			return err
		}
		tassert(t, v.ID == ids[2], "latest %s, expected %s", v.ID, ids[2])
		return tx.Archive(v.ID, "")
	})
	tassert(t, err == nil, "%v", err)

	_, err = l.Submit("alice", "latest", func(tx *Tx) error {
		_, err := tx.Latest(id)
		return err
	})
	_, ok := errors.Cause(err).(*ArchivedError)
	tassert(t, ok, "expected ArchivedError at end of chain, got %v", err)
}

func TestReplay(t *testing.T) {
	db := setup(t, nil)
	l := openLedger(t, db)
	id1 := createNote(t, l, "alice", []Party{"bob"}, "one")
	id2 := createNote(t, l, "bob", nil, "two")

	// identical content in a later commit is a distinct record
	id3 := createNote(t, l, "bob", nil, "two")
	tassert(t, id2 != id3, "identities collide")

	reopened := openLedger(t, db)
	tassert(t, reopened.Seq() == 3, "seq %d", reopened.Seq())
	for _, id := range []ID{id1, id2, id3} {
		got, err := reopened.Lookup(id)
		tassert(t, err == nil, "%v", err)
		tassert(t, got.Active, "%s not active", id)
	}

	commits, err := reopened.Commits()
	tassert(t, err == nil, "%v", err)
	tassert(t, len(commits) == 3, "commits %d", len(commits))
	for i, c := range commits {
		tassert(t, c.Seq == uint64(i+1), "commit %d has seq %d", i, c.Seq)
		tassert(t, c.ID != "", "commit %d has no id", i)
	}
	tassert(t, commits[0].Committer == "alice", "committer %q", commits[0].Committer)

	// the journal verifies end to end
	stream, err := db.OpenStream(journalLabel)
	tassert(t, err == nil, "%v", err)
	ok, err := stream.RootNode.Verify()
	tassert(t, err == nil && ok, "journal verify: %v", err)
}

func TestSharedDb(t *testing.T) {
	db := setup(t, nil)
	l1 := openLedger(t, db)
	l2 := openLedger(t, db)

	id := createNote(t, l1, "alice", nil, "from l1")
	_, ok, err := l2.Query("alice", id)
	tassert(t, err == nil && ok, "l2 did not see l1 commit: %v %v", ok, err)

	id2 := createNote(t, l2, "alice", nil, "from l2")
	tassert(t, l2.Seq() == 2, "seq %d", l2.Seq())
	_, ok, err = l1.Query("alice", id2)
	tassert(t, err == nil && ok, "l1 did not see l2 commit: %v %v", ok, err)
	tassert(t, len(l1.CommitsSince(1)) == 1, "commits since 1: %v", l1.CommitsSince(1))
}

func TestConcurrentSubmit(t *testing.T) {
	db := setup(t, nil)
	l1 := openLedger(t, db)
	l2 := openLedger(t, db)
	id := createNote(t, l1, "alice", nil, "contested")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		l := l1
		if i%2 == 1 {
			l = l2
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Submit("alice", "consume", func(tx *Tx) error {
				return tx.Archive(id, "")
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	tassert(t, wins == 1, "%d goroutines consumed the same record", wins)

	err := l1.Refresh()
	tassert(t, err == nil, "%v", err)
	tassert(t, l1.Seq() == 2, "seq %d", l1.Seq())
}

func TestQueryReturnsCopy(t *testing.T) {
	db := setup(t, nil)
	l := openLedger(t, db)
	id := createNote(t, l, "alice", []Party{"bob"}, "private")

	v, ok, err := l.Query("bob", id)
	tassert(t, err == nil && ok, "bob cannot see note: %v %v", ok, err)
	v.Record.Signatories[0] = "mallory"
	v.Record.Observers[0] = "mallory"
	v.Record.Payload[0] ^= 0xff

	visible, err := l.Visible("alice")
	tassert(t, err == nil && len(visible) == 1, "visible %v %v", visible, err)
	visible[0].Record.Observers[0] = "mallory"

	_, err = l.Submit("alice", "peek", func(tx *Tx) error {
		fetched, err := tx.Fetch(id)
		if err != nil {
			return err
		}
		fetched.Record.Observers[0] = "mallory"
		return tx.Archive(id, "")
	})
	tassert(t, err == nil, "%v", err)

	old, ok, err := l.QueryArchived("alice", id)
	tassert(t, err == nil && ok, "alice cannot see history: %v %v", ok, err)
	tassert(t, old.Record.Stakeholder("bob"), "bob dropped from %v", old.Record.Observers)
	tassert(t, !old.Record.Stakeholder("mallory"), "mallory added to %v %v", old.Record.Signatories, old.Record.Observers)
	var got note
	err = old.Record.Decode(&got)
	tassert(t, err == nil && got.Text == "private", "payload %q: %v", got.Text, err)
}

func TestIncrementalSync(t *testing.T) {
	db := setup(t, nil)
	l1 := openLedger(t, db)
	l2 := openLedger(t, db)

	createNote(t, l1, "alice", nil, "one")
	createNote(t, l1, "alice", nil, "two")
	err := l2.Refresh()
	tassert(t, err == nil, "%v", err)
	first := l2.commits[0]

	id := createNote(t, l1, "alice", nil, "three")
	id4 := createNote(t, l1, "alice", nil, "four")

	stream, err := db.OpenStream(journalLabel)
	tassert(t, err == nil, "%v", err)
	leaves, found, err := l2.since(stream.RootNode)
	tassert(t, err == nil && found, "last replayed root not found: %v", err)
	tassert(t, len(leaves) == 2, "new commits %d", len(leaves))

	err = l2.Refresh()
	tassert(t, err == nil, "%v", err)
	tassert(t, l2.Seq() == 4, "seq %d", l2.Seq())
	tassert(t, l2.commits[0] == first, "journal replayed from the start")
	for _, want := range []ID{id, id4} {
		_, ok, err := l2.Query("alice", want)
		tassert(t, err == nil && ok, "l2 missing %s: %v", want, err)
	}

	// a ledger that has replayed nothing walks the whole chain
	fresh := &Ledger{Db: db}
	fresh.reset()
	_, found, err = fresh.since(stream.RootNode)
	tassert(t, err == nil && !found, "fresh ledger found a root: %v", err)
}
