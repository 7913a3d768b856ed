package db

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
	"github.com/vmihailenco/msgpack"
)

const journalLabel = "journal"

// Ledger indexes every record version in the journal and commits new
// transitions.  The index is rebuilt from the journal whenever the
// journal head on disk differs from the one last replayed, so several
// processes can share one database.
type Ledger struct {
	Db      *Db
	mu      sync.Mutex
	head    string // journal symlink target at last sync
	seq     uint64
	index   map[ID]*Version
	commits []*Commit
}

// OpenLedger replays the journal of db.
func OpenLedger(db *Db) (ledger *Ledger, err error) {
	ledger = &Ledger{Db: db}
	ledger.reset()
	err = ledger.Refresh()
	if err != nil {
		return nil, err
	}
	return
}

func (l *Ledger) reset() {
	l.head = ""
	l.seq = 0
	l.index = make(map[ID]*Version)
	l.commits = nil
}

// Refresh replays the journal if another process moved its head.
func (l *Ledger) Refresh() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sync()
}

// sync must be called with mu held.  Only the commits added since
// the last replayed root are applied; if that root is no longer in the
// chain, the whole journal is replayed.
func (l *Ledger) sync() (err error) {
	// a partial replay is discarded so the next sync starts over
	defer func() {
		if err != nil {
			l.reset()
		}
	}()
	defer Return(&err)
	target, err := l.Db.Target(journalLabel)
	Ck(err)
	if target == l.head {
		return
	}
	if target == "" {
		l.reset()
		return
	}
	stream, err := l.Db.OpenStream(journalLabel)
	Ck(err)
	leaves, found, err := l.since(stream.RootNode)
	Ck(err)
	if !found {
		l.reset()
		leaves, err = stream.RootNode.Leaves()
		Ck(err)
	}
	for _, leaf := range leaves {
		path := leaf.GetPath()
		buf, err := l.Db.GetBlock(path)
		Ck(err)
		commit := &Commit{}
		err = msgpack.Unmarshal(buf, commit)
		Ck(err, "commit %s", path.Canon)
		commit.ID = ID(path.Addr)
		recs := make(map[ID]Record)
		for _, id := range commit.Created {
			rec, err := l.loadRecord(id)
			Ck(err)
			recs[id] = rec
		}
		err = l.apply(commit, recs)
		Ck(err)
	}
	l.head = filepath.Join("..", stream.RootNode.Path.Rel)
	log.Debugf("ledger synced to seq %d, %d new commits", l.seq, len(leaves))
	return
}

// since walks back from root to the last replayed root and returns
// the commit blocks appended after it, oldest first.  found is false
// when nothing was replayed yet or the walk reached the first commit
// without meeting that root.
func (l *Ledger) since(root *Tree) (leaves []Object, found bool, err error) {
	if l.head == "" {
		return nil, false, nil
	}
	node := root
	for filepath.Join("..", node.Path.Rel) != l.head {
		entries, err := node.Entries()
		if err != nil {
			return nil, false, err
		}
		if len(entries) != 2 {
			return nil, false, nil
		}
		prev, ok := entries[0].(*Tree)
		if !ok {
			return nil, false, fmt.Errorf("malformed journal node: %s", node.Path.Canon)
		}
		leaves = append([]Object{entries[1]}, leaves...)
		node = prev
	}
	return leaves, true, nil
}

func (l *Ledger) loadRecord(id ID) (rec Record, err error) {
	defer Return(&err)
	path, err := l.Db.PathFromAddr(id)
	Ck(err)
	buf, err := l.Db.GetBlock(path)
	Ck(err)
	err = msgpack.Unmarshal(buf, &rec)
	Ck(err, "record %s", id)
	return
}

func (l *Ledger) apply(c *Commit, recs map[ID]Record) error {
	if c.Seq != l.seq+1 {
		return fmt.Errorf("journal out of order: commit %d after %d", c.Seq, l.seq)
	}
	for _, id := range c.Created {
		l.index[id] = &Version{ID: id, Record: recs[id], Active: true, CreatedAt: c.Seq}
	}
	for _, a := range c.Archived {
		v, ok := l.index[a.ID]
		if !ok {
			return fmt.Errorf("commit %d archives unknown record %s", c.Seq, a.ID)
		}
		v.Active = false
		v.SupersededBy = a.SupersededBy
		v.ArchivedAt = c.Seq
	}
	l.seq = c.Seq
	l.commits = append(l.commits, c)
	return nil
}

// Submit runs fn against a new Tx and commits whatever it created and
// archived as one atomic journal entry.  If fn returns an error,
// nothing is written and that error is returned unchanged.
func (l *Ledger) Submit(committer Party, action string, fn func(tx *Tx) error) (commit *Commit, err error) {
	defer Return(&err)

	unlock, err := l.Db.Lock()
	Ck(err)
	defer unlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	err = l.sync()
	Ck(err)

	tx := &Tx{
		ledger:    l,
		committer: committer,
		seq:       l.seq + 1,
		archived:  make(map[ID]ID),
	}
	err = fn(tx)
	if err != nil {
		log.Debugf("%s by %s rejected: %v", action, committer, err)
		return nil, err
	}
	if len(tx.created) == 0 && len(tx.archived) == 0 {
		return nil, fmt.Errorf("empty transition: %s", action)
	}

	commit, err = l.commit(tx, action)
	Ck(err)
	log.Debugf("commit %d %s by %s: created %v archived %v", commit.Seq, action, committer, commit.Created, commit.Archived)
	return
}

// commit must be called with mu and the db lock held.
func (l *Ledger) commit(tx *Tx, action string) (commit *Commit, err error) {
	defer Return(&err)
	algo := l.Db.Algo

	// record blocks first; nothing refers to them until the head moves
	recs := make(map[ID]Record)
	commit = &Commit{Seq: tx.seq, Committer: tx.committer, Action: action}
	for _, p := range tx.created {
		block, err := l.Db.PutBlock(algo, p.buf)
		Ck(err)
		Assert(ID(block.Path.Addr) == p.id, "address mismatch: %s != %s", block.Path.Addr, p.id)
		commit.Created = append(commit.Created, p.id)
		recs[p.id] = p.rec
	}
	for _, id := range tx.order {
		commit.Archived = append(commit.Archived, Archival{ID: id, SupersededBy: tx.archived[id]})
	}

	buf, err := msgpack.Marshal(commit)
	Ck(err)
	commit.ID, err = l.Db.Addr("block", algo, buf)
	Ck(err)

	var stream *Stream
	if l.head == "" {
		block, err := l.Db.PutBlock(algo, buf)
		Ck(err)
		tree, err := l.Db.PutTree(algo, block)
		Ck(err)
		stream, err = tree.LinkStream(journalLabel)
		Ck(err)
	} else {
		old, err := l.Db.OpenStream(journalLabel)
		Ck(err)
		stream, err = old.AppendBlock(algo, buf)
		Ck(err)
	}

	err = l.apply(commit, recs)
	Ck(err)
	l.head = filepath.Join("..", stream.RootNode.Path.Rel)
	return
}

// Query returns the version id if viewer may see it.  ok is false
// when the version is archived, unknown, or viewer is neither a
// signatory nor an observer.
func (l *Ledger) Query(viewer Party, id ID) (v *Version, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	err = l.sync()
	if err != nil {
		return
	}
	found, exists := l.index[id]
	if !exists || !found.VisibleTo(viewer) {
		return nil, false, nil
	}
	return found.clone(), true, nil
}

// QueryArchived returns an archived version to its signatories.
func (l *Ledger) QueryArchived(viewer Party, id ID) (v *Version, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	err = l.sync()
	if err != nil {
		return
	}
	found, exists := l.index[id]
	if !exists || found.Active || !Contains(found.Record.Signatories, viewer) {
		return nil, false, nil
	}
	return found.clone(), true, nil
}

// Visible lists every active version viewer may see, oldest first.
func (l *Ledger) Visible(viewer Party) (versions []*Version, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	err = l.sync()
	if err != nil {
		return
	}
	for _, v := range l.index {
		if v.VisibleTo(viewer) {
			versions = append(versions, v.clone())
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.Record.Slot < b.Record.Slot
	})
	return
}

// Lookup returns any version, active or not, without a visibility
// check.  For journal tooling only.
func (l *Ledger) Lookup(id ID) (v *Version, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	err = l.sync()
	if err != nil {
		return
	}
	found, ok := l.index[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return found.clone(), nil
}

// Seq returns the sequence number of the last replayed commit.
func (l *Ledger) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Commits returns the journal, oldest first.
func (l *Ledger) Commits() (commits []*Commit, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	err = l.sync()
	if err != nil {
		return
	}
	return append(commits, l.commits...), nil
}

// CommitsSince returns the replayed commits with Seq > seq.
func (l *Ledger) CommitsSince(seq uint64) (commits []*Commit) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.commits {
		if c.Seq > seq {
			commits = append(commits, c)
		}
	}
	return
}
