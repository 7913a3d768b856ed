package custody

import (
	log "github.com/sirupsen/logrus"
	"github.com/t7a/custody/db"
)

// decision loads the request and the asset it refers to and checks
// that caller is the custodian of both.
func decision(tx *db.Tx, action string, caller db.Party, id db.ID) (request TransferRequest, asset Asset, err error) {
	err = fetch(tx, action, id, KindRequest, &request)
	if err != nil {
		return
	}
	if caller != request.Custodian {
		err = &AuthorizationError{Party: caller, Action: action, Reason: "only the designated custodian may decide"}
		return
	}
	err = fetch(tx, action, request.Asset, KindAsset, &asset)
	if err != nil {
		return
	}
	if asset.Custodian != request.Custodian {
		err = &PreconditionError{Action: action, Reason: "custodian mismatch"}
	}
	return
}

// ApproveRequest executes the transfer: the asset passes to the
// request's target, a Transfer is recorded and the request is
// consumed, all in one commit.
func (v *Vault) ApproveRequest(caller db.Party, id db.ID) (asset, transfer db.ID, err error) {
	_, err = v.Ledger.Submit(caller, "execute", func(tx *db.Tx) (err error) {
		request, _, err := decision(tx, "execute", caller, id)
		if err != nil {
			return
		}
		asset, err = transferAsset(tx, "execute", caller, request.Asset, request.TransferTo)
		if err != nil {
			return
		}
		transfer, err = create(tx, Transfer{
			Org:        request.Org,
			Trader:     request.Trader,
			TransferTo: request.TransferTo,
			Custodian:  request.Custodian,
			Asset:      asset,
		})
		if err != nil {
			return
		}
		return tx.Archive(id, transfer)
	})
	if err != nil {
		return "", "", err
	}
	log.Debugf("%s executed %s: asset %s transfer %s", caller, id, asset, transfer)
	return
}

// DenyRequest refuses the transfer.  The request is consumed and a
// TransferDenial carrying the asset as it stands is recorded.  The
// asset is not touched.
func (v *Vault) DenyRequest(caller db.Party, id db.ID, reason string) (denial db.ID, err error) {
	_, err = v.Ledger.Submit(caller, "deny", func(tx *db.Tx) (err error) {
		request, asset, err := decision(tx, "deny", caller, id)
		if err != nil {
			return
		}
		if reason == "" {
			return &PreconditionError{Action: "deny", Reason: "reason required"}
		}
		denial, err = create(tx, TransferDenial{
			Org:        request.Org,
			Trader:     request.Trader,
			Asset:      asset,
			Custodian:  request.Custodian,
			TransferTo: request.TransferTo,
			Reason:     reason,
		})
		if err != nil {
			return
		}
		return tx.Archive(id, denial)
	})
	if err != nil {
		return "", err
	}
	return
}
