package custody

import (
	"fmt"
	"strings"

	. "github.com/stevegt/goadapt"
	"github.com/t7a/custody/db"
)

// Vault runs the custody workflow against one database.
type Vault struct {
	Ledger *db.Ledger
}

// Create initializes a new database as described by cfg and opens it.
func Create(cfg db.Db) (vault *Vault, err error) {
	defer Return(&err)
	d, err := cfg.Create()
	if err != nil {
		return nil, err
	}
	ledger, err := db.OpenLedger(d)
	Ck(err)
	return &Vault{Ledger: ledger}, nil
}

// Open opens the database in dir and replays its journal.
func Open(dir string) (vault *Vault, err error) {
	defer Return(&err)
	d, err := db.Open(dir)
	if err != nil {
		return nil, err
	}
	ledger, err := db.OpenLedger(d)
	Ck(err)
	return &Vault{Ledger: ledger}, nil
}

// Db returns the underlying database.
func (v *Vault) Db() *db.Db {
	return v.Ledger.Db
}

// Snapshot is what a party sees of one record version.  Value holds
// the entity by value: Asset, Organization, TransferProposal,
// TransferRequest, Transfer or TransferDenial.
type Snapshot struct {
	ID           db.ID
	Kind         string
	Signatories  []db.Party
	Observers    []db.Party
	Active       bool
	SupersededBy db.ID
	Value        interface{}
}

func snapshot(v *db.Version) (snap *Snapshot, err error) {
	value, err := decode(v.Record)
	if err != nil {
		return
	}
	snap = &Snapshot{
		ID:           v.ID,
		Kind:         v.Record.Kind,
		Signatories:  v.Record.Signatories,
		Observers:    v.Record.Observers,
		Active:       v.Active,
		SupersededBy: v.SupersededBy,
		Value:        value,
	}
	return
}

// Query returns the active version id as seen by viewer.  ok is false
// when viewer has no visibility on it.
func (v *Vault) Query(viewer db.Party, id db.ID) (snap *Snapshot, ok bool, err error) {
	version, ok, err := v.Ledger.Query(viewer, id)
	if err != nil || !ok {
		return
	}
	snap, err = snapshot(version)
	if err != nil {
		return nil, false, err
	}
	return
}

// History returns an archived version to its signatories.
func (v *Vault) History(viewer db.Party, id db.ID) (snap *Snapshot, ok bool, err error) {
	version, ok, err := v.Ledger.QueryArchived(viewer, id)
	if err != nil || !ok {
		return
	}
	snap, err = snapshot(version)
	if err != nil {
		return nil, false, err
	}
	return
}

// Visible lists every active version viewer can see, oldest first.
func (v *Vault) Visible(viewer db.Party) (snaps []*Snapshot, err error) {
	defer Return(&err)
	versions, err := v.Ledger.Visible(viewer)
	Ck(err)
	for _, version := range versions {
		snap, err := snapshot(version)
		Ck(err)
		snaps = append(snaps, snap)
	}
	return
}

// Fields returns the entity as key=value pairs in a fixed order.
func (s *Snapshot) Fields() (fields []string) {
	kv := func(k string, v interface{}) {
		fields = append(fields, fmt.Sprintf("%s=%v", k, v))
	}
	kv("kind", s.Kind)
	switch v := s.Value.(type) {
	case Asset:
		kv("name", v.Name)
		kv("issuer", v.Issuer)
		kv("owner", v.Owner)
		kv("custodian", v.Custodian)
	case Organization:
		kv("owner", v.Owner)
		kv("risk", v.Risk)
		kv("ops", v.Ops)
		kv("traders", join(v.Traders))
	case TransferProposal:
		kv("org", v.Org)
		kv("trader", v.Trader)
		kv("risk", v.Risk)
		kv("ops", v.Ops)
		kv("asset", v.Asset)
		kv("to", v.TransferTo)
		kv("approvals", join(v.Approvals))
	case TransferRequest:
		kv("org", v.Org)
		kv("trader", v.Trader)
		kv("asset", v.Asset)
		kv("to", v.TransferTo)
		kv("custodian", v.Custodian)
	case Transfer:
		kv("org", v.Org)
		kv("trader", v.Trader)
		kv("to", v.TransferTo)
		kv("custodian", v.Custodian)
		kv("asset", v.Asset)
	case TransferDenial:
		kv("org", v.Org)
		kv("trader", v.Trader)
		kv("to", v.TransferTo)
		kv("custodian", v.Custodian)
		kv("reason", v.Reason)
		kv("name", v.Asset.Name)
		kv("owner", v.Asset.Owner)
	}
	return
}

func join(ps []db.Party) string {
	var ss []string
	for _, p := range ps {
		ss = append(ss, string(p))
	}
	return strings.Join(ss, ",")
}
