package custody

import (
	"github.com/t7a/custody/db"
)

// CreateOrganization records org with owner as its signatory.  Risk
// and ops must be two distinct parties, neither of them a trader.
func (v *Vault) CreateOrganization(owner db.Party, org Organization) (id db.ID, err error) {
	if org.Owner == "" {
		org.Owner = owner
	}
	if org.Owner != owner {
		return "", &AuthorizationError{Party: owner, Action: "org", Reason: "only the owner may create an organization"}
	}
	org.Traders = db.Parties(org.Traders...)
	switch {
	case owner == "":
		return "", &PreconditionError{Action: "org", Reason: "owner required"}
	case org.Risk == "" || org.Ops == "":
		return "", &PreconditionError{Action: "org", Reason: "risk and ops required"}
	case org.Risk == org.Ops:
		return "", &PreconditionError{Action: "org", Reason: "risk and ops must be different parties"}
	case db.Contains(org.Traders, org.Risk) || db.Contains(org.Traders, org.Ops):
		return "", &PreconditionError{Action: "org", Reason: "risk and ops cannot be traders"}
	}
	_, err = v.Ledger.Submit(owner, "org", func(tx *db.Tx) (err error) {
		id, err = create(tx, org)
		return
	})
	if err != nil {
		return "", err
	}
	return
}

// ProposeTransfer starts a transfer workflow for an asset held by the
// organization.  The caller must be trader, and trader must be on the
// organization's roster.  The organization itself is left untouched.
func (v *Vault) ProposeTransfer(caller db.Party, orgID, asset db.ID, transferTo, trader db.Party) (id db.ID, err error) {
	if caller != trader {
		return "", &AuthorizationError{Party: caller, Action: "propose", Reason: "caller must be the proposing trader"}
	}
	_, err = v.Ledger.Submit(caller, "propose", func(tx *db.Tx) (err error) {
		var org Organization
		err = fetch(tx, "propose", orgID, KindOrganization, &org)
		if err != nil {
			return
		}
		if !db.Contains(org.Traders, trader) {
			return &PreconditionError{Action: "propose", Reason: "trader not a member"}
		}
		if transferTo == "" {
			return &PreconditionError{Action: "propose", Reason: "transfer target required"}
		}
		var a Asset
		err = fetch(tx, "propose", asset, KindAsset, &a)
		if err != nil {
			return
		}
		if a.Owner != org.Owner {
			return &PreconditionError{Action: "propose", Reason: "asset not owned by the organization"}
		}
		id, err = create(tx, TransferProposal{
			Org:        org.Owner,
			Trader:     trader,
			Risk:       org.Risk,
			Ops:        org.Ops,
			Asset:      asset,
			TransferTo: transferTo,
		})
		return
	})
	if err != nil {
		return "", err
	}
	return
}
