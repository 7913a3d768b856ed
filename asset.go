package custody

import (
	log "github.com/sirupsen/logrus"
	"github.com/t7a/custody/db"
)

// IssueAsset creates asset with issuer as its sole signatory.  An
// empty asset.Issuer is filled in with issuer.
func (v *Vault) IssueAsset(issuer db.Party, asset Asset) (id db.ID, err error) {
	if asset.Issuer == "" {
		asset.Issuer = issuer
	}
	if asset.Issuer != issuer {
		return "", &AuthorizationError{Party: issuer, Action: "issue", Reason: "only the issuer may create an asset"}
	}
	switch {
	case issuer == "":
		return "", &PreconditionError{Action: "issue", Reason: "issuer required"}
	case asset.Name == "":
		return "", &PreconditionError{Action: "issue", Reason: "asset name must not be empty"}
	case asset.Owner == "":
		return "", &PreconditionError{Action: "issue", Reason: "owner required"}
	case asset.Custodian == "":
		return "", &PreconditionError{Action: "issue", Reason: "custodian required"}
	}
	_, err = v.Ledger.Submit(issuer, "issue", func(tx *db.Tx) (err error) {
		id, err = create(tx, asset)
		return
	})
	if err != nil {
		return "", err
	}
	log.Debugf("%s issued %s %q to %s", issuer, id, asset.Name, asset.Owner)
	return
}

// TransferAsset hands ownership and custody of the asset to newOwner.
// Only the current custodian may call it.
func (v *Vault) TransferAsset(caller db.Party, asset db.ID, newOwner db.Party) (id db.ID, err error) {
	_, err = v.Ledger.Submit(caller, "transfer", func(tx *db.Tx) (err error) {
		id, err = transferAsset(tx, "transfer", caller, asset, newOwner)
		return
	})
	if err != nil {
		return "", err
	}
	return
}

// transferAsset is the custodian-only transfer, shared with the
// custodian's execution of a TransferRequest.
func transferAsset(tx *db.Tx, action string, caller db.Party, id db.ID, newOwner db.Party) (next db.ID, err error) {
	var asset Asset
	err = fetch(tx, action, id, KindAsset, &asset)
	if err != nil {
		return
	}
	if caller != asset.Custodian {
		return "", &AuthorizationError{Party: caller, Action: action, Reason: "only the custodian may transfer the asset"}
	}
	if newOwner == "" {
		return "", &PreconditionError{Action: action, Reason: "new owner required"}
	}
	asset.Owner = newOwner
	asset.Custodian = newOwner
	next, err = create(tx, asset)
	if err != nil {
		return
	}
	err = tx.Archive(id, next)
	return
}

// DesignateCustodian replaces the asset's custodian.  Only the current
// owner may call it.
func (v *Vault) DesignateCustodian(caller db.Party, id db.ID, newCustodian db.Party) (next db.ID, err error) {
	_, err = v.Ledger.Submit(caller, "designate", func(tx *db.Tx) (err error) {
		var asset Asset
		err = fetch(tx, "designate", id, KindAsset, &asset)
		if err != nil {
			return
		}
		if caller != asset.Owner {
			return &AuthorizationError{Party: caller, Action: "designate", Reason: "only the owner may designate a custodian"}
		}
		if newCustodian == "" {
			return &PreconditionError{Action: "designate", Reason: "custodian required"}
		}
		asset.Custodian = newCustodian
		next, err = create(tx, asset)
		if err != nil {
			return
		}
		return tx.Archive(id, next)
	})
	if err != nil {
		return "", err
	}
	return
}
