package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docopt/docopt-go"
	log "github.com/sirupsen/logrus"
	"github.com/t7a/custody"
	"github.com/t7a/custody/config"
	"github.com/t7a/custody/db"
)

const usage = `custody

Usage:
  custody init
  custody issue --as=<party> <name> <owner> <label>
  custody designate --as=<party> <ref> <custodian> <label>
  custody transfer --as=<party> <ref> <newowner> <label>
  custody org --as=<party> <risk> <ops> <roster> <label>
  custody propose --as=<party> <orgref> <ref> <newowner> <label>
  custody approve --as=<party> <ref> <label>
  custody request --as=<party> <ref> <custodian> <label>
  custody execute --as=<party> <ref> <label> <receipt>
  custody deny --as=<party> <ref> <reason> <label>
  custody show --as=<party> <ref>
  custody ls --as=<party>
  custody journal

Records are named by labels, which are stored in the database and can
be used wherever a <ref> is expected.  An asset is issued with its
owner as custodian.  <roster> is a file listing one trader per line.

The database directory is $DBDIR, or the current directory.

Options:
  -h --help      Show this screen.
  --version      Show version.
  --as=<party>   Act as this party.
`

type Opts struct {
	Init      bool
	Issue     bool
	Designate bool
	Transfer  bool
	Org       bool
	Propose   bool
	Approve   bool
	Request   bool
	Execute   bool
	Deny      bool
	Show      bool
	Ls        bool
	Journal   bool
	As        string
	Name      string
	Owner     string
	Label     string
	Ref       string
	Orgref    string
	Custodian string
	Newowner  string
	Risk      string
	Ops       string
	Roster    string
	Receipt   string
	Reason    string
}

func main() {
	// see https://github.com/google/go-cmdtest
	os.Exit(run())
}

func run() (rc int) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "custody: %v\n", err)
		return 22
	}
	config.InitLogging(cfg.Debug)

	parser := &docopt.Parser{HelpHandler: docopt.PrintHelpOnly, OptionsFirst: false}
	o, err := parser.ParseArgs(usage, os.Args[1:], "0.0")
	if err != nil {
		return 22
	}
	var opts Opts
	err = o.Bind(&opts)
	if err != nil {
		log.Error(err)
		return 22
	}
	log.Debug(opts)

	if opts.Init {
		_, err = custody.Create(cfg.Db())
		if err != nil {
			fmt.Fprintf(os.Stderr, "custody: %v\n", err)
			return 42
		}
		fmt.Printf("Initialized empty database in %s\n", cfg.Dir)
		return 0
	}
	vault, err := custody.Open(cfg.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "custody: %v\n", err)
		return 42
	}
	c := &cli{vault: vault, party: db.Party(opts.As)}

	switch true {
	case opts.Issue:
		err = c.issue(opts.Name, opts.Owner, opts.Label)
	case opts.Designate:
		err = c.designate(opts.Ref, opts.Custodian, opts.Label)
	case opts.Transfer:
		err = c.transfer(opts.Ref, opts.Newowner, opts.Label)
	case opts.Org:
		err = c.org(opts.Risk, opts.Ops, opts.Roster, opts.Label)
	case opts.Propose:
		err = c.propose(opts.Orgref, opts.Ref, opts.Newowner, opts.Label)
	case opts.Approve:
		err = c.approve(opts.Ref, opts.Label)
	case opts.Request:
		err = c.request(opts.Ref, opts.Custodian, opts.Label)
	case opts.Execute:
		err = c.execute(opts.Ref, opts.Label, opts.Receipt)
	case opts.Deny:
		err = c.deny(opts.Ref, opts.Reason, opts.Label)
	case opts.Show:
		err = c.show(opts.Ref)
	case opts.Ls:
		err = c.ls()
	case opts.Journal:
		err = c.journal()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "custody: %s\n", c.relabel(err.Error()))
		return 1
	}
	return 0
}

type cli struct {
	vault *custody.Vault
	party db.Party
}

func (c *cli) resolve(ref string) (db.ID, error) {
	return c.vault.Db().Resolve(ref)
}

// labels maps every labelled record to its label.
func (c *cli) labels() (names map[db.ID]string, err error) {
	names = make(map[db.ID]string)
	entries, err := os.ReadDir(filepath.Join(c.vault.Db().Dir, "label"))
	if err != nil {
		return
	}
	for _, entry := range entries {
		id, err := c.resolve(entry.Name())
		if err != nil {
			return nil, err
		}
		names[id] = entry.Name()
	}
	return
}

// relabel replaces every labelled record address in s with its label.
func (c *cli) relabel(s string) string {
	names, err := c.labels()
	if err != nil {
		log.Debugf("labels: %v", err)
		return s
	}
	for id, label := range names {
		s = strings.ReplaceAll(s, string(id), label)
	}
	return s
}

// describe renders a snapshot, with record addresses replaced by
// their labels.
func (c *cli) describe(snap *custody.Snapshot) string {
	return c.relabel(string(snap.ID) + " " + strings.Join(snap.Fields(), " "))
}

// record labels id and shows it as seen by the caller.
func (c *cli) record(id db.ID, label string) (err error) {
	err = c.vault.Db().Link(label, id)
	if err != nil {
		return
	}
	return c.print(id, label)
}

func (c *cli) print(id db.ID, ref string) (err error) {
	snap, ok, err := c.vault.Query(c.party, id)
	if err != nil {
		return
	}
	if !ok {
		return fmt.Errorf("not visible to %s: %s", c.party, ref)
	}
	fmt.Println(c.describe(snap))
	return
}

func (c *cli) issue(name, owner, label string) (err error) {
	id, err := c.vault.IssueAsset(c.party, custody.Asset{
		Name:      name,
		Owner:     db.Party(owner),
		Custodian: db.Party(owner),
	})
	if err != nil {
		return
	}
	return c.record(id, label)
}

func (c *cli) designate(ref, custodian, label string) (err error) {
	id, err := c.resolve(ref)
	if err != nil {
		return
	}
	next, err := c.vault.DesignateCustodian(c.party, id, db.Party(custodian))
	if err != nil {
		return
	}
	return c.record(next, label)
}

func (c *cli) transfer(ref, newowner, label string) (err error) {
	id, err := c.resolve(ref)
	if err != nil {
		return
	}
	next, err := c.vault.TransferAsset(c.party, id, db.Party(newowner))
	if err != nil {
		return
	}
	// the caller gave the asset away, so show it as the new owner
	c.party = db.Party(newowner)
	return c.record(next, label)
}

func readRoster(fn string) (traders []db.Party, err error) {
	fh, err := os.Open(fn)
	if err != nil {
		return
	}
	defer fh.Close()
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		traders = append(traders, db.Party(line))
	}
	err = scanner.Err()
	return
}

func (c *cli) org(risk, ops, roster, label string) (err error) {
	traders, err := readRoster(roster)
	if err != nil {
		return
	}
	id, err := c.vault.CreateOrganization(c.party, custody.Organization{
		Risk:    db.Party(risk),
		Ops:     db.Party(ops),
		Traders: traders,
	})
	if err != nil {
		return
	}
	return c.record(id, label)
}

func (c *cli) propose(orgref, ref, newowner, label string) (err error) {
	org, err := c.resolve(orgref)
	if err != nil {
		return
	}
	asset, err := c.resolve(ref)
	if err != nil {
		return
	}
	id, err := c.vault.ProposeTransfer(c.party, org, asset, db.Party(newowner), c.party)
	if err != nil {
		return
	}
	return c.record(id, label)
}

func (c *cli) approve(ref, label string) (err error) {
	id, err := c.resolve(ref)
	if err != nil {
		return
	}
	next, err := c.vault.ApproveProposal(c.party, id, c.party)
	if err != nil {
		return
	}
	return c.record(next, label)
}

func (c *cli) request(ref, custodian, label string) (err error) {
	id, err := c.resolve(ref)
	if err != nil {
		return
	}
	req, err := c.vault.CreateRequest(c.party, id, db.Party(custodian))
	if err != nil {
		return
	}
	return c.record(req, label)
}

func (c *cli) execute(ref, label, receipt string) (err error) {
	id, err := c.resolve(ref)
	if err != nil {
		return
	}
	asset, transfer, err := c.vault.ApproveRequest(c.party, id)
	if err != nil {
		return
	}
	err = c.vault.Db().Link(label, asset)
	if err != nil {
		return
	}
	// the custodian keeps sight of the receipt only
	return c.record(transfer, receipt)
}

func (c *cli) deny(ref, reason, label string) (err error) {
	id, err := c.resolve(ref)
	if err != nil {
		return
	}
	denial, err := c.vault.DenyRequest(c.party, id, reason)
	if err != nil {
		return
	}
	return c.record(denial, label)
}

func (c *cli) show(ref string) (err error) {
	id, err := c.resolve(ref)
	if err != nil {
		return
	}
	return c.print(id, ref)
}

func (c *cli) ls() (err error) {
	snaps, err := c.vault.Visible(c.party)
	if err != nil {
		return
	}
	for _, snap := range snaps {
		fmt.Println(c.describe(snap))
	}
	return
}

func (c *cli) journal() (err error) {
	commits, err := c.vault.Ledger.Commits()
	if err != nil {
		return
	}
	for _, commit := range commits {
		fmt.Printf("%d %s %s created %d archived %d\n", commit.Seq, commit.Committer, commit.Action, len(commit.Created), len(commit.Archived))
	}
	return
}
