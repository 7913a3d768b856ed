package db

import (
	"sort"

	"github.com/vmihailenco/msgpack"
)

// Party is the opaque name of a participant.
type Party string

// ID is the address of the block holding one record version.
type ID string

// Parties returns the non-empty members of ps, sorted and deduplicated.
// Sorting keeps record encodings, and therefore identities, stable.
func Parties(ps ...Party) (out []Party) {
	seen := make(map[Party]bool)
	for _, p := range ps {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return
}

// Contains reports whether p is in ps.
func Contains(ps []Party, p Party) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}

// Record is the stored envelope of one record version.  Payload is
// the msgpack encoding of the kind-specific value.
type Record struct {
	Seq         uint64  `msgpack:"seq"`
	Slot        int     `msgpack:"slot"`
	Kind        string  `msgpack:"kind"`
	Signatories []Party `msgpack:"signatories"`
	Observers   []Party `msgpack:"observers"`
	Payload     []byte  `msgpack:"payload"`
}

// Stakeholder reports whether p is a signatory or observer.
func (rec *Record) Stakeholder(p Party) bool {
	return Contains(rec.Signatories, p) || Contains(rec.Observers, p)
}

// Decode unmarshals the payload into out.
func (rec *Record) Decode(out interface{}) error {
	return msgpack.Unmarshal(rec.Payload, out)
}

// Version is a record plus its ledger state.
type Version struct {
	ID           ID
	Record       Record
	Active       bool
	SupersededBy ID
	CreatedAt    uint64 // commit seq
	ArchivedAt   uint64 // commit seq, 0 while active
}

// clone returns a copy of v that shares no memory with the index.
func (v *Version) clone() *Version {
	cp := *v
	cp.Record.Signatories = append([]Party(nil), v.Record.Signatories...)
	cp.Record.Observers = append([]Party(nil), v.Record.Observers...)
	cp.Record.Payload = append([]byte(nil), v.Record.Payload...)
	return &cp
}

// VisibleTo is the visibility rule: an active version is visible to
// its signatories and observers, and to nobody else.
func (v *Version) VisibleTo(p Party) bool {
	return v.Active && v.Record.Stakeholder(p)
}

// Archival records that a version was consumed, and by what.
type Archival struct {
	ID           ID `msgpack:"id"`
	SupersededBy ID `msgpack:"superseded_by"`
}

// Commit is one atomic transition as written to the journal.
type Commit struct {
	ID        ID         `msgpack:"-"`
	Seq       uint64     `msgpack:"seq"`
	Committer Party      `msgpack:"committer"`
	Action    string     `msgpack:"action"`
	Created   []ID       `msgpack:"created"`
	Archived  []Archival `msgpack:"archived"`
}
