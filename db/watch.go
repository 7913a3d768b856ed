package db

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// Watcher follows the journal of a database that other processes
// write to.  Every commit newer than the ledger's state at Watch time
// is sent on Events, in order.  Events is closed after Close.
type Watcher struct {
	Events chan *Commit
	Errors chan error
	ledger *Ledger
	fsw    *fsnotify.Watcher
	seen   uint64
	done   chan struct{}
	once   sync.Once
}

// Watch starts a watcher on the ledger's stream directory.
func (l *Ledger) Watch() (w *Watcher, err error) {
	defer Return(&err)
	fsw, err := fsnotify.NewWatcher()
	Ck(err)
	err = fsw.Add(filepath.Join(l.Db.Dir, "stream"))
	if err != nil {
		fsw.Close()
		return nil, err
	}
	w = &Watcher{
		Events: make(chan *Commit, 64),
		Errors: make(chan error, 1),
		ledger: l,
		fsw:    fsw,
		seen:   l.Seq(),
		done:   make(chan struct{}),
	}
	go w.run()
	return
}

func (w *Watcher) run() {
	defer close(w.Events)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != journalLabel {
				continue
			}
			log.Debugf("watch %v", ev)
			err := w.ledger.Refresh()
			if err != nil {
				w.error(err)
				continue
			}
			for _, c := range w.ledger.CommitsSince(w.seen) {
				select {
				case w.Events <- c:
					w.seen = c.Seq
				case <-w.done:
					return
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.error(err)
		}
	}
}

func (w *Watcher) error(err error) {
	select {
	case w.Errors <- err:
	default:
		log.Error(err)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() (err error) {
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return
}
