package server

import (
	"bufio"
	"io"
	"net"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"
	"github.com/t7a/custody/db"
)

// RemoteError is an error reply from the server.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string {
	return e.Msg
}

// Client talks to a Server over its socket.
type Client struct {
	conn net.Conn
	rd   *bufio.Reader
}

// Connect to an existing UNIX domain socket
func Connect(fn string) (client *Client, err error) {
	conn, err := net.Dial("unix", fn)
	if err != nil {
		return
	}
	return &Client{conn: conn, rd: bufio.NewReader(conn)}, nil
}

// Do sends one request and returns the fields of an ok reply.  An
// error reply comes back as *RemoteError.
func (c *Client) Do(party db.Party, action string, args ...string) (fields []string, err error) {
	req := &Request{Party: party, Action: action, Args: args}
	_, err = io.WriteString(c.conn, req.String()+"\n")
	if err != nil {
		return
	}
	line, err := c.rd.ReadString('\n')
	if err != nil {
		return nil, errors.Wrapf(err, "reading reply to %s", action)
	}
	line = strings.TrimRight(line, "\n")
	if strings.HasPrefix(line, "error ") {
		return nil, &RemoteError{Msg: strings.TrimPrefix(line, "error ")}
	}
	words, err := shlex.Split(line)
	if err != nil {
		return
	}
	if len(words) == 0 || words[0] != "ok" {
		return nil, errors.Errorf("malformed reply: %q", line)
	}
	return words[1:], nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
