package server

import (
	"fmt"

	"github.com/t7a/custody"
	"github.com/t7a/custody/db"
)

func ids(ids ...db.ID) (fields []string) {
	for _, id := range ids {
		fields = append(fields, string(id))
	}
	return
}

func registerActions(dp *Dispatcher) {
	dp.Register("issue", 3, "<name> <owner> <custodian>", func(v *custody.Vault, req *Request) ([]string, error) {
		id, err := v.IssueAsset(req.Party, custody.Asset{
			Name:      req.Args[0],
			Owner:     db.Party(req.Args[1]),
			Custodian: db.Party(req.Args[2]),
		})
		return ids(id), err
	})
	dp.Register("designate", 2, "<asset> <custodian>", func(v *custody.Vault, req *Request) ([]string, error) {
		id, err := v.DesignateCustodian(req.Party, db.ID(req.Args[0]), db.Party(req.Args[1]))
		return ids(id), err
	})
	dp.Register("transfer", 2, "<asset> <newowner>", func(v *custody.Vault, req *Request) ([]string, error) {
		id, err := v.TransferAsset(req.Party, db.ID(req.Args[0]), db.Party(req.Args[1]))
		return ids(id), err
	})
	dp.Register("org", 2, "<risk> <ops> <trader>...", func(v *custody.Vault, req *Request) ([]string, error) {
		var traders []db.Party
		for _, t := range req.Args[2:] {
			traders = append(traders, db.Party(t))
		}
		id, err := v.CreateOrganization(req.Party, custody.Organization{
			Risk:    db.Party(req.Args[0]),
			Ops:     db.Party(req.Args[1]),
			Traders: traders,
		})
		return ids(id), err
	})
	dp.Register("propose", 3, "<org> <asset> <to>", func(v *custody.Vault, req *Request) ([]string, error) {
		id, err := v.ProposeTransfer(req.Party, db.ID(req.Args[0]), db.ID(req.Args[1]), db.Party(req.Args[2]), req.Party)
		return ids(id), err
	})
	dp.Register("approve", 1, "<proposal>", func(v *custody.Vault, req *Request) ([]string, error) {
		id, err := v.ApproveProposal(req.Party, db.ID(req.Args[0]), req.Party)
		return ids(id), err
	})
	dp.Register("request", 2, "<proposal> <custodian>", func(v *custody.Vault, req *Request) ([]string, error) {
		id, err := v.CreateRequest(req.Party, db.ID(req.Args[0]), db.Party(req.Args[1]))
		return ids(id), err
	})
	dp.Register("execute", 1, "<request>", func(v *custody.Vault, req *Request) ([]string, error) {
		asset, transfer, err := v.ApproveRequest(req.Party, db.ID(req.Args[0]))
		return ids(asset, transfer), err
	})
	dp.Register("deny", 2, "<request> <reason>", func(v *custody.Vault, req *Request) ([]string, error) {
		id, err := v.DenyRequest(req.Party, db.ID(req.Args[0]), req.Args[1])
		return ids(id), err
	})
	dp.Register("show", 1, "<id>", func(v *custody.Vault, req *Request) ([]string, error) {
		snap, ok, err := v.Query(req.Party, db.ID(req.Args[0]))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("not visible to %s: %s", req.Party, req.Args[0])
		}
		return snap.Fields(), nil
	})
	dp.Register("ls", 0, "", func(v *custody.Vault, req *Request) (fields []string, err error) {
		snaps, err := v.Visible(req.Party)
		if err != nil {
			return
		}
		for _, snap := range snaps {
			fields = append(fields, string(snap.ID))
		}
		return
	})
}
