package custody

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/t7a/custody/db"
)

// ApproveProposal adds party to the proposal's approvals and returns
// the successor proposal.  If the proposal was already superseded by
// another approval, the approval lands on the latest version; if it
// was escalated, the call fails with StaleReferenceError.  An id that
// names some other kind of record is a PreconditionError.
func (v *Vault) ApproveProposal(caller db.Party, id db.ID, party db.Party) (next db.ID, err error) {
	if caller != party {
		return "", &AuthorizationError{Party: caller, Action: "approve", Reason: "caller must be the approving party"}
	}
	_, err = v.Ledger.Submit(caller, "approve", func(tx *db.Tx) (err error) {
		version, err := tx.Latest(id)
		if err != nil {
			return stale(err)
		}
		if version.Record.Kind != KindProposal {
			return &PreconditionError{Action: "approve", Reason: fmt.Sprintf("%s is a %s, not a %s", version.ID, version.Record.Kind, KindProposal)}
		}
		if version.ID != id {
			log.Debugf("approve: %s moved on to %s", id, version.ID)
		}
		var proposal TransferProposal
		err = version.Record.Decode(&proposal)
		if err != nil {
			return
		}
		if party != proposal.Risk && party != proposal.Ops {
			return &AuthorizationError{Party: caller, Action: "approve", Reason: "approval restricted to Risk and Ops"}
		}
		if db.Contains(proposal.Approvals, party) {
			return &DuplicateApprovalError{Party: party, Proposal: version.ID}
		}
		proposal.Approvals = db.Parties(append(proposal.Approvals, party)...)
		next, err = create(tx, proposal)
		if err != nil {
			return
		}
		return tx.Archive(version.ID, next)
	})
	if err != nil {
		return "", err
	}
	return
}

// CreateRequest escalates a fully approved proposal to custodian.  The
// proposal is consumed.
func (v *Vault) CreateRequest(caller db.Party, id db.ID, custodian db.Party) (request db.ID, err error) {
	_, err = v.Ledger.Submit(caller, "request", func(tx *db.Tx) (err error) {
		var proposal TransferProposal
		err = fetch(tx, "request", id, KindProposal, &proposal)
		if err != nil {
			return
		}
		if caller != proposal.Trader {
			return &AuthorizationError{Party: caller, Action: "request", Reason: "only the proposing trader may escalate"}
		}
		if !proposal.Approved() {
			return &PreconditionError{Action: "request", Reason: "all parties must approve"}
		}
		if custodian == "" {
			return &PreconditionError{Action: "request", Reason: "custodian required"}
		}
		request, err = create(tx, TransferRequest{
			Org:        proposal.Org,
			Trader:     proposal.Trader,
			TransferTo: proposal.TransferTo,
			Asset:      proposal.Asset,
			Custodian:  custodian,
		})
		if err != nil {
			return
		}
		return tx.Archive(id, "")
	})
	if err != nil {
		return "", err
	}
	return
}
