// Package server exposes the custody workflow on a UNIX domain socket.
//
// The protocol is line oriented.  A request is
//
//	<party> <action> <args...>
//
// split with shell quoting rules.  The reply is one line, either
// "ok" followed by quoted result fields, or "error" followed by the
// error message.
package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/alessio/shellescape"
	"github.com/google/shlex"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
	"github.com/t7a/custody"
	"github.com/t7a/custody/db"
)

// Request is one parsed request line.
type Request struct {
	Party  db.Party
	Action string
	Args   []string
}

// Parse splits txt and returns the parts in a Request struct.
func Parse(txt string) (req *Request, err error) {
	defer Return(&err)
	parts, err := shlex.Split(txt)
	Ck(err)
	ErrnoIf(len(parts) < 2, syscall.EINVAL, "malformed request: %q", txt)
	req = &Request{
		Party:  db.Party(parts[0]),
		Action: parts[1],
		Args:   parts[2:],
	}
	return
}

// String returns the request as a quoted request line, without the
// trailing newline.
func (req *Request) String() string {
	words := append([]string{string(req.Party), req.Action}, req.Args...)
	return shellescape.QuoteCommand(words)
}

// Handler performs one action for req.Party and returns the reply
// fields.
type Handler func(vault *custody.Vault, req *Request) (fields []string, err error)

type handlerEntry struct {
	nargs   int // minimum
	usage   string
	handler Handler
}

// Dispatcher maps actions to handlers.
type Dispatcher struct {
	handlers map[string]handlerEntry
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]handlerEntry)}
}

// Register records handler for action.  Requests with fewer than
// nargs arguments are rejected with usage.
func (dp *Dispatcher) Register(action string, nargs int, usage string, handler Handler) {
	dp.handlers[action] = handlerEntry{nargs: nargs, usage: usage, handler: handler}
}

// Dispatch calls the handler registered for req.Action.
func (dp *Dispatcher) Dispatch(vault *custody.Vault, req *Request) (fields []string, err error) {
	entry, ok := dp.handlers[req.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action: %s", req.Action)
	}
	if len(req.Args) < entry.nargs {
		return nil, fmt.Errorf("usage: %s %s", req.Action, entry.usage)
	}
	return entry.handler(vault, req)
}

// Server answers requests against one vault.
type Server struct {
	Vault      *custody.Vault
	Dispatcher *Dispatcher
	listener   net.Listener
	wg         sync.WaitGroup
	mu         sync.Mutex
	conns      map[net.Conn]bool
	closed     bool
}

// New returns a server with every workflow action registered.
func New(vault *custody.Vault) *Server {
	dp := NewDispatcher()
	registerActions(dp)
	return &Server{
		Vault:      vault,
		Dispatcher: dp,
		conns:      make(map[net.Conn]bool),
	}
}

// Listen on a new UNIX domain socket at fn.  A stale socket file
// left by a previous server is removed first.
func (s *Server) Listen(fn string) (err error) {
	defer Return(&err)
	info, err := os.Lstat(fn)
	if err == nil && info.Mode()&os.ModeSocket != 0 {
		conn, dialErr := net.Dial("unix", fn)
		if dialErr == nil {
			conn.Close()
			return fmt.Errorf("socket in use: %s", fn)
		}
		err = os.Remove(fn)
		Ck(err)
	}
	s.listener, err = net.Listen("unix", fn)
	Ck(err)
	log.Debugf("listening on %s", fn)
	return
}

// Serve accepts connections until Close is called.
func (s *Server) Serve() (err error) {
	Assert(s.listener != nil, "Serve called before Listen")
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.mu.Lock()
		s.conns[conn] = true
		s.mu.Unlock()
		s.wg.Add(1)
		go s.handle(conn)
	}
}

// Close stops the listener, closes open connections and waits for
// their handlers to return.
func (s *Server) Close() (err error) {
	s.mu.Lock()
	s.closed = true
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return
}

// handle a single connection from a client
func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	rd := bufio.NewReader(conn)
	for {
		txt, err := rd.ReadString('\n')
		if err == io.EOF && len(strings.TrimSpace(txt)) == 0 {
			return
		}
		if err != nil && err != io.EOF {
			log.Debugf("read: %v", err)
			return
		}
		if strings.TrimSpace(txt) == "" {
			continue
		}
		reply := s.Do(txt)
		_, werr := io.WriteString(conn, reply+"\n")
		if werr != nil {
			log.Debugf("write: %v", werr)
			return
		}
		if err == io.EOF {
			return
		}
	}
}

// Do executes one request line and returns the reply line.
func (s *Server) Do(txt string) (reply string) {
	req, err := Parse(txt)
	if err == nil {
		log.Debugf("request %s", req)
		var fields []string
		fields, err = s.Dispatcher.Dispatch(s.Vault, req)
		if err == nil {
			return shellescape.QuoteCommand(append([]string{"ok"}, fields...))
		}
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	log.Debugf("reply error %s", msg)
	return "error " + msg
}
