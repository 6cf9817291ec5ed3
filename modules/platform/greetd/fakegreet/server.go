// Package fakegreet is an in-process stand-in for greetd.
//
// It listens on a unix socket, speaks the greetd wire format and hands every
// request to a Handler. Every request it receives is recorded so callers can
// assert on exactly what a greeter sent and on which connection.
package fakegreet

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"tgreet/modules/platform/greetd"
)

// Recorded is a request as seen by the server
type Recorded struct {
	Conn    int
	Request greetd.Request
}

// Handler answers one request received on connection conn.
// A zero Response writes nothing. hangup closes the connection afterwards.
type Handler interface {
	Handle(conn int, req greetd.Request) (resp greetd.Response, hangup bool)
}

// ConnCloser is implemented by handlers that keep per-connection state.
// Closed is called once a connection has gone away, like greetd cancelling
// the session of a greeter that disconnected.
type ConnCloser interface {
	Closed(conn int)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(conn int, req greetd.Request) (greetd.Response, bool)

// Handle calls f
func (f HandlerFunc) Handle(conn int, req greetd.Request) (greetd.Response, bool) {
	return f(conn, req)
}

// ErrNoRequest is returned by Next when nothing arrives in time
var ErrNoRequest = errors.New("no request received")

// Server is a fake greetd listening on a unix socket
type Server struct {
	socketPath string
	listener   net.Listener
	handler    Handler

	requests chan Recorded

	mu     sync.Mutex
	conns  map[int]net.Conn
	nextID int

	done chan struct{}
	wg   sync.WaitGroup
}

// NewServer creates a server that will listen on socketPath
func NewServer(socketPath string, handler Handler) *Server {
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		requests:   make(chan Recorded, 256),
		conns:      make(map[int]net.Conn),
		done:       make(chan struct{}),
	}
}

// SocketPath returns the socket path clients should dial
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start starts accepting connections
func (s *Server) Start() error {
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and every open connection and waits for handlers
func (s *Server) Stop() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)

	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	os.Remove(s.socketPath)
}

// Requests streams every received request in arrival order
func (s *Server) Requests() <-chan Recorded {
	return s.requests
}

// Next returns the next received request or ErrNoRequest after timeout
func (s *Server) Next(timeout time.Duration) (Recorded, error) {
	select {
	case rec := <-s.requests:
		return rec, nil
	case <-time.After(timeout):
		return Recorded{}, ErrNoRequest
	}
}

// Connections returns how many connections have been accepted so far
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		s.mu.Lock()
		s.nextID++
		id := s.nextID
		s.conns[id] = conn
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleClient(id, conn)
	}
}

func (s *Server) handleClient(id int, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		conn.Close()
		if c, ok := s.handler.(ConnCloser); ok {
			c.Closed(id)
		}
	}()

	for {
		req, err := greetd.ReadRequest(conn)
		if err != nil {
			return
		}

		select {
		case s.requests <- Recorded{Conn: id, Request: req}:
		default:
		}

		resp, hangup := s.handler.Handle(id, req)
		if resp.Type != "" {
			if err := greetd.WriteResponse(conn, resp); err != nil {
				return
			}
		}
		if hangup {
			return
		}
	}
}
