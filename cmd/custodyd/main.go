package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/docopt/docopt-go"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
	"github.com/t7a/custody"
	"github.com/t7a/custody/config"
	"github.com/t7a/custody/db"
	"github.com/t7a/custody/server"
)

const usage = `custodyd

Usage:
  custodyd init [<dbdir>]
  custodyd serve [<dbdir>] [<socket>]

Requests are lines of the form "<party> <action> <args>...", one per
line.  A relative <socket> lives in <dbdir>.

Options:
  -h --help     Show this screen.
  --version     Show version.
`

type Opts struct {
	Init   bool
	Serve  bool
	Dbdir  string
	Socket string
}

func main() {
	rc, msg := Run()
	if len(msg) > 0 {
		fmt.Fprintf(os.Stderr, msg+"\n")
	}
	os.Exit(rc)
}

func Run() (rc int, msg string) {
	defer Halt(&rc, &msg)

	cfg, err := config.Load()
	Ck(err)
	config.InitLogging(cfg.Debug)

	parser := &docopt.Parser{OptionsFirst: false}
	o, _ := parser.ParseArgs(usage, os.Args[1:], "0.0")
	var opts Opts
	err = o.Bind(&opts)
	Ck(err)

	if opts.Dbdir != "" {
		cfg.Dir = opts.Dbdir
	}
	if opts.Socket != "" {
		cfg.Socket = opts.Socket
	}

	if opts.Init {
		_, err := custody.Create(cfg.Db())
		Ck(err)
		fmt.Printf("Initialized empty database in %s\n", cfg.Dir)
	}

	if opts.Serve {
		err := serve(cfg)
		Ck(err)
	}

	return
}

func serve(cfg config.Config) (err error) {
	defer Return(&err)

	vault, err := custody.Open(cfg.Dir)
	Ck(err)

	fn := cfg.Socket
	if !filepath.IsAbs(fn) {
		fn = filepath.Join(cfg.Dir, fn)
	}

	srv := server.New(vault)
	err = srv.Listen(fn)
	Ck(err)

	watcher, err := vault.Ledger.Watch()
	Ck(err)
	go follow(watcher)

	// shut down on SIGINT or SIGTERM
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Infof("%v: shutting down", s)
		watcher.Close()
		srv.Close()
	}()

	log.Infof("serving %s on %s", cfg.Dir, fn)
	err = srv.Serve()
	Ck(err)
	return
}

// follow logs every commit that lands in the journal, including those
// made by other processes sharing the database.
func follow(w *db.Watcher) {
	for {
		select {
		case commit, ok := <-w.Events:
			if !ok {
				return
			}
			log.Infof("commit %d: %s %s created %d archived %d",
				commit.Seq, commit.Committer, commit.Action, len(commit.Created), len(commit.Archived))
		case err := <-w.Errors:
			log.Errorf("watch: %v", err)
		}
	}
}
