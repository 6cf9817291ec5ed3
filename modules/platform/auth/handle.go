// Package auth drives a greetd login conversation on behalf of a front-end.
//
// The conversation runs on its own goroutine and talks to the front-end
// through two small mailboxes: commands flow in, responses flow out. The
// front-end never blocks on greetd; it polls responses between frames and
// answers prompts with commands.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tgreet/modules/platform/greetd"
	"tgreet/modules/platform/logger"
)

// MailboxSize is the capacity of each direction
const MailboxSize = 4

// Default reconnect backoff
const (
	DefaultRetryBackoffMin = 250 * time.Millisecond
	DefaultRetryBackoffMax = 5 * time.Second
)

var (
	// ErrWorkerExited is returned when sending to a conversation that has ended
	ErrWorkerExited = errors.New("auth worker has exited")

	// ErrNoUser is returned by Start when no user name is given
	ErrNoUser = errors.New("no user to authenticate")
)

// Options configures a conversation
type Options struct {
	SocketPath string
	Env        []string

	RetryBackoffMin time.Duration
	RetryBackoffMax time.Duration

	// Dial defaults to greetd.Dial
	Dial DialFunc

	// Logger defaults to the global logger
	Logger *logger.Logger
}

// Handle is the front-end's side of a running conversation
type Handle struct {
	commands  chan Command
	responses chan Response
	done      chan struct{}

	// set by the worker goroutine before done is closed
	err error

	shutdownOnce sync.Once
	shutdownErr  error
}

// Start spawns the worker for user. The worker connects to greetd and
// issues create_session right away.
func Start(ctx context.Context, user string, opts Options) (*Handle, error) {
	if user == "" {
		return nil, ErrNoUser
	}
	if opts.SocketPath == "" {
		return nil, greetd.ErrNoSocket
	}

	dial := opts.Dial
	if dial == nil {
		dial = greetd.Dial
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	env := make([]string, len(opts.Env))
	copy(env, opts.Env)

	h := &Handle{
		commands:  make(chan Command, MailboxSize),
		responses: make(chan Response, MailboxSize),
		done:      make(chan struct{}),
	}

	w := &worker{
		user:       user,
		socketPath: opts.SocketPath,
		env:        env,
		dial:       dial,
		commands:   h.commands,
		responses:  h.responses,
		backoffMin: opts.RetryBackoffMin,
		backoffMax: opts.RetryBackoffMax,
		log:        log.With("auth"),
	}

	go func() {
		err := w.run(ctx)
		if err != nil && !errors.Is(err, ErrInvariantViolated) {
			w.log.Error("conversation failed: %v", err)
			w.emit(Failed(err.Error()))
		}
		h.err = err
		close(h.responses)
		close(h.done)
	}()

	return h, nil
}

// SendCommand queues cmd for the worker, blocking while the mailbox is full.
// It returns ErrWorkerExited once the worker has stopped.
func (h *Handle) SendCommand(cmd Command) error {
	select {
	case <-h.done:
		return ErrWorkerExited
	default:
	}

	select {
	case h.commands <- cmd:
		return nil
	case <-h.done:
		return ErrWorkerExited
	}
}

// TryResponse returns the next pending response without blocking
func (h *Handle) TryResponse() (Response, bool) {
	select {
	case resp, ok := <-h.responses:
		if !ok {
			return Response{}, false
		}
		return resp, true
	default:
		return Response{}, false
	}
}

// Responses is closed once the worker has exited and every response was read
func (h *Handle) Responses() <-chan Response {
	return h.responses
}

// Done is closed when the worker has exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns why the worker exited, or nil while it is running
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Shutdown asks the worker to quit and waits for it.
// Responses still pending are discarded. A worker blocked on greetd I/O
// sees the Quit once that I/O completes. Safe to call more than once.
func (h *Handle) Shutdown() error {
	h.shutdownOnce.Do(func() {
		responses := h.responses

	deliver:
		for {
			select {
			case h.commands <- Quit():
				break deliver
			case <-h.done:
				break deliver
			case _, ok := <-responses:
				// keep a worker blocked on a full response mailbox moving
				if !ok {
					responses = nil
				}
			}
		}

		if responses != nil {
			for range responses {
			}
		}
		<-h.done

		h.shutdownErr = h.err
	})
	return h.shutdownErr
}

// Run starts a conversation, hands it to fn and always shuts it down,
// joining fn's error with the worker's.
func Run(ctx context.Context, user string, opts Options, fn func(*Handle) error) error {
	h, err := Start(ctx, user, opts)
	if err != nil {
		return fmt.Errorf("failed to start auth worker: %w", err)
	}

	fnErr := fn(h)
	return errors.Join(fnErr, h.Shutdown())
}
