package custody

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/t7a/custody/db"
)

// Record kinds as stored in the ledger.
const (
	KindAsset          = "Asset"
	KindOrganization   = "Organization"
	KindProposal       = "TransferProposal"
	KindRequest        = "TransferRequest"
	KindTransfer       = "Transfer"
	KindTransferDenial = "TransferDenial"
)

// record is implemented by every workflow entity.
type record interface {
	kind() string
	signatories() []db.Party
	observers() []db.Party
}

// Asset is the custodial unit of value.
type Asset struct {
	Issuer    db.Party `msgpack:"issuer"`
	Owner     db.Party `msgpack:"owner"`
	Custodian db.Party `msgpack:"custodian"`
	Name      string   `msgpack:"name"`
}

func (a Asset) kind() string            { return KindAsset }
func (a Asset) signatories() []db.Party { return []db.Party{a.Issuer} }
func (a Asset) observers() []db.Party   { return []db.Party{a.Owner, a.Custodian} }

// Organization is a named group of traders under one owning party.
type Organization struct {
	Owner   db.Party   `msgpack:"owner"`
	Risk    db.Party   `msgpack:"risk"`
	Ops     db.Party   `msgpack:"ops"`
	Traders []db.Party `msgpack:"traders"`
}

func (o Organization) kind() string            { return KindOrganization }
func (o Organization) signatories() []db.Party { return []db.Party{o.Owner} }
func (o Organization) observers() []db.Party {
	return append([]db.Party{o.Risk, o.Ops}, o.Traders...)
}

// TransferProposal collects risk and ops sign-off.  Every approver
// becomes a signatory of the successor version.
type TransferProposal struct {
	Org        db.Party   `msgpack:"org"`
	Trader     db.Party   `msgpack:"trader"`
	Risk       db.Party   `msgpack:"risk"`
	Ops        db.Party   `msgpack:"ops"`
	Asset      db.ID      `msgpack:"asset"`
	TransferTo db.Party   `msgpack:"transfer_to"`
	Approvals  []db.Party `msgpack:"approvals"`
}

func (p TransferProposal) kind() string { return KindProposal }
func (p TransferProposal) signatories() []db.Party {
	return append([]db.Party{p.Org, p.Trader}, p.Approvals...)
}
func (p TransferProposal) observers() []db.Party { return []db.Party{p.Risk, p.Ops} }

// Approved reports whether both risk and ops have signed.
func (p TransferProposal) Approved() bool {
	return db.Contains(p.Approvals, p.Risk) && db.Contains(p.Approvals, p.Ops)
}

// TransferRequest is a fully approved proposal awaiting the custodian.
type TransferRequest struct {
	Org        db.Party `msgpack:"org"`
	Trader     db.Party `msgpack:"trader"`
	TransferTo db.Party `msgpack:"transfer_to"`
	Asset      db.ID    `msgpack:"asset"`
	Custodian  db.Party `msgpack:"custodian"`
}

func (r TransferRequest) kind() string            { return KindRequest }
func (r TransferRequest) signatories() []db.Party { return []db.Party{r.Org, r.Trader} }
func (r TransferRequest) observers() []db.Party   { return []db.Party{r.Custodian} }

// Transfer records a completed transfer.  Asset is the identity of
// the asset version created by it.
type Transfer struct {
	Org        db.Party `msgpack:"org"`
	Trader     db.Party `msgpack:"trader"`
	TransferTo db.Party `msgpack:"transfer_to"`
	Custodian  db.Party `msgpack:"custodian"`
	Asset      db.ID    `msgpack:"asset"`
}

func (t Transfer) kind() string            { return KindTransfer }
func (t Transfer) signatories() []db.Party { return []db.Party{t.Custodian} }
func (t Transfer) observers() []db.Party   { return []db.Party{t.Org, t.Trader} }

// TransferDenial records a refused transfer and the asset as it was
// at denial time.
type TransferDenial struct {
	Org        db.Party `msgpack:"org"`
	Trader     db.Party `msgpack:"trader"`
	Asset      Asset    `msgpack:"asset"`
	Custodian  db.Party `msgpack:"custodian"`
	TransferTo db.Party `msgpack:"transfer_to"`
	Reason     string   `msgpack:"reason"`
}

func (d TransferDenial) kind() string            { return KindTransferDenial }
func (d TransferDenial) signatories() []db.Party { return []db.Party{d.Custodian} }
func (d TransferDenial) observers() []db.Party   { return []db.Party{d.Org, d.Trader} }

func create(tx *db.Tx, rec record) (id db.ID, err error) {
	id, err = tx.Create(rec.kind(), rec.signatories(), rec.observers(), rec)
	if err != nil {
		return
	}
	log.Debugf("%s creates %s %s", tx.Committer(), rec.kind(), id)
	return
}

// fetch decodes the active version id into out, which must point at
// the entity type for kind.
func fetch(tx *db.Tx, action string, id db.ID, kind string, out interface{}) error {
	v, err := tx.Fetch(id)
	if err != nil {
		return stale(err)
	}
	if v.Record.Kind != kind {
		return &PreconditionError{Action: action, Reason: fmt.Sprintf("%s is a %s, not a %s", id, v.Record.Kind, kind)}
	}
	return v.Record.Decode(out)
}

// decode returns the entity stored in rec by value.
func decode(rec db.Record) (value interface{}, err error) {
	switch rec.Kind {
	case KindAsset:
		var v Asset
		err = rec.Decode(&v)
		value = v
	case KindOrganization:
		var v Organization
		err = rec.Decode(&v)
		value = v
	case KindProposal:
		var v TransferProposal
		err = rec.Decode(&v)
		value = v
	case KindRequest:
		var v TransferRequest
		err = rec.Decode(&v)
		value = v
	case KindTransfer:
		var v Transfer
		err = rec.Decode(&v)
		value = v
	case KindTransferDenial:
		var v TransferDenial
		err = rec.Decode(&v)
		value = v
	default:
		err = fmt.Errorf("unknown record kind %q", rec.Kind)
	}
	return
}
