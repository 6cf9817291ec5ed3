// Package greetd speaks the greetd IPC protocol over its local socket.
//
// Every message on the wire is a 4-byte payload length in host byte order
// followed by a JSON object whose "type" field selects the message kind.
// The protocol is strictly request/response: each request written by the
// greeter is answered by exactly one response.
package greetd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

const (
	// EnvSocket is set by greetd to the path of its socket
	EnvSocket = "GREETD_SOCK"

	// ConnectTimeout is the default timeout for connecting to greetd
	ConnectTimeout = 5 * time.Second
)

// ErrNoSocket is returned when no socket path is known
var ErrNoSocket = errors.New("greetd socket path not set (is " + EnvSocket + " exported?)")

// SocketPathFromEnv returns the socket path greetd exported to the greeter
func SocketPathFromEnv() (string, error) {
	path := os.Getenv(EnvSocket)
	if path == "" {
		return "", ErrNoSocket
	}
	return path, nil
}

// Conn is a single connection to greetd
type Conn struct {
	path string

	mu   sync.Mutex
	conn net.Conn
}

// Dial connects to the greetd socket at path
func Dial(ctx context.Context, path string) (*Conn, error) {
	if path == "" {
		return nil, ErrNoSocket
	}

	dialer := net.Dialer{Timeout: ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to greetd: %w", err)
	}

	return &Conn{path: path, conn: conn}, nil
}

// SocketPath returns the path this connection was dialed on
func (c *Conn) SocketPath() string {
	return c.path
}

// Send writes one request
func (c *Conn) Send(req Request) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	return WriteRequest(conn, req)
}

// Receive blocks until greetd sends one response
func (c *Conn) Receive() (Response, error) {
	conn, err := c.current()
	if err != nil {
		return Response{}, err
	}
	return ReadResponse(conn)
}

// Close closes the connection. Closing twice is not an error.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Conn) current() (net.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, net.ErrClosed
	}
	return c.conn, nil
}
