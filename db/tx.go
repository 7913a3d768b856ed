package db

import (
	"fmt"

	. "github.com/stevegt/goadapt"
	"github.com/vmihailenco/msgpack"
)

// Tx collects the records created and archived by one transition.
// It reads the ledger as of the start of the transition; nothing it
// does is visible to anyone until Submit commits it.
type Tx struct {
	ledger    *Ledger
	committer Party
	seq       uint64
	created   []*pending
	archived  map[ID]ID
	order     []ID
}

type pending struct {
	id  ID
	buf []byte
	rec Record
}

// Committer returns the party submitting the transition.
func (tx *Tx) Committer() Party {
	return tx.committer
}

// Fetch returns the active version with identity id.  Versions
// archived before or during this transition fail with
// *ArchivedError; unknown identities with *NotFoundError.
func (tx *Tx) Fetch(id ID) (v *Version, err error) {
	found, ok := tx.ledger.index[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if !found.Active {
		return nil, &ArchivedError{ID: id, SupersededBy: found.SupersededBy}
	}
	if succ, ok := tx.archived[id]; ok {
		return nil, &ArchivedError{ID: id, SupersededBy: succ}
	}
	return found.clone(), nil
}

// Latest follows the supersession chain starting at id and returns
// the active version at its end.  If the chain ends in a version
// archived without a successor, that *ArchivedError is returned.
func (tx *Tx) Latest(id ID) (v *Version, err error) {
	for {
		v, err = tx.Fetch(id)
		archived, ok := err.(*ArchivedError)
		if !ok || archived.SupersededBy == "" {
			return
		}
		id = archived.SupersededBy
	}
}

// Create adds a new record version and returns its identity.
func (tx *Tx) Create(kind string, signatories, observers []Party, payload interface{}) (id ID, err error) {
	defer Return(&err)
	signatories = Parties(signatories...)
	if kind == "" || len(signatories) == 0 {
		return "", fmt.Errorf("record %q needs a kind and at least one signatory", kind)
	}

	body, err := msgpack.Marshal(payload)
	Ck(err)
	rec := Record{
		Seq:         tx.seq,
		Slot:        len(tx.created),
		Kind:        kind,
		Signatories: signatories,
		Observers:   Parties(observers...),
		Payload:     body,
	}
	buf, err := msgpack.Marshal(&rec)
	Ck(err)
	id, err = tx.ledger.Db.Addr("block", tx.ledger.Db.Algo, buf)
	Ck(err)
	tx.created = append(tx.created, &pending{id: id, buf: buf, rec: rec})
	return
}

// Archive consumes the active version id.  successor may be empty.
func (tx *Tx) Archive(id ID, successor ID) (err error) {
	_, err = tx.Fetch(id)
	if err != nil {
		return
	}
	tx.archived[id] = successor
	tx.order = append(tx.order, id)
	return
}
