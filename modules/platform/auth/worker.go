package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tgreet/modules/platform/greetd"
	"tgreet/modules/platform/logger"
)

var (
	// ErrInvariantViolated means the front-end sent a command the conversation did not ask for
	ErrInvariantViolated = errors.New("internal invariant violated")

	// ErrUnexpectedMessage means greetd sent a message the conversation cannot accept
	ErrUnexpectedMessage = errors.New("unexpected message from greetd")
)

// state is a step of the login conversation
type state int

const (
	stateAwaitingDaemon state = iota
	stateAwaitingUserAnswer
	stateAwaitingSessionChoice
	stateAwaitingStartResult
	stateDone
)

func (s state) String() string {
	switch s {
	case stateAwaitingDaemon:
		return "awaiting daemon"
	case stateAwaitingUserAnswer:
		return "awaiting user answer"
	case stateAwaitingSessionChoice:
		return "awaiting session choice"
	case stateAwaitingStartResult:
		return "awaiting start result"
	case stateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DialFunc opens a connection to greetd
type DialFunc func(ctx context.Context, path string) (*greetd.Conn, error)

// worker runs one login conversation against greetd.
// It owns the connection and the conversation state; the front-end only
// reaches it through the two mailboxes.
type worker struct {
	user       string
	socketPath string
	env        []string
	dial       DialFunc

	commands  <-chan Command
	responses chan<- Response

	conn *greetd.Conn

	// input kind of the last relayed prompt, nil once answered
	expected *InputKind

	attempt    string
	failures   int
	backoffMin time.Duration
	backoffMax time.Duration

	log *logger.Logger
}

// run drives the conversation until it succeeds, is quit, or fails
func (w *worker) run(ctx context.Context) error {
	defer w.disconnect()

	if err := w.connect(ctx); err != nil {
		return err
	}

	st := stateAwaitingDaemon
	for st != stateDone {
		var err error
		switch st {
		case stateAwaitingDaemon:
			st, err = w.awaitDaemon(ctx)
		case stateAwaitingUserAnswer:
			st, err = w.awaitUserAnswer()
		case stateAwaitingSessionChoice:
			st, err = w.awaitSessionChoice()
		case stateAwaitingStartResult:
			st, err = w.awaitStartResult(ctx)
		default:
			err = fmt.Errorf("%w: entered unknown %s", ErrInvariantViolated, st)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// connect opens a fresh connection and starts a new greetd session
func (w *worker) connect(ctx context.Context) error {
	conn, err := w.dial(ctx, w.socketPath)
	if err != nil {
		return err
	}
	w.conn = conn
	w.expected = nil
	w.attempt = uuid.New().String()[:8]

	w.log.Debug("[%s] create_session for %s", w.attempt, w.user)
	return w.send(greetd.CreateSession(w.user))
}

func (w *worker) disconnect() {
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

// restart replaces the failed greetd session with a brand-new one.
// greetd drops the session on any error, so there is nothing to cancel.
func (w *worker) restart(ctx context.Context) (state, error) {
	w.disconnect()
	w.failures++

	if delay := w.backoff(); delay > 0 {
		w.log.Debug("[%s] retrying in %s after %d consecutive failures", w.attempt, delay, w.failures)
		quit, err := w.wait(delay)
		if err != nil || quit {
			return stateDone, err
		}
	}

	if err := w.connect(ctx); err != nil {
		return stateDone, err
	}
	return stateAwaitingDaemon, nil
}

// backoff returns the pause before the next reconnect. The first retry is immediate.
func (w *worker) backoff() time.Duration {
	if w.failures <= 1 || w.backoffMin <= 0 {
		return 0
	}
	delay := w.backoffMin
	for i := 2; i < w.failures && delay < w.backoffMax; i++ {
		delay *= 2
	}
	if w.backoffMax > 0 && delay > w.backoffMax {
		delay = w.backoffMax
	}
	return delay
}

// wait pauses for delay while still honouring Quit
func (w *worker) wait(delay time.Duration) (bool, error) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return false, nil
	case cmd, ok := <-w.commands:
		if !ok || cmd.Kind == CommandQuit {
			return true, nil
		}
		return false, w.violation(stateAwaitingDaemon, cmd)
	}
}

func (w *worker) awaitDaemon(ctx context.Context) (state, error) {
	resp, err := w.conn.Receive()
	if err != nil {
		return stateDone, fmt.Errorf("failed to read from greetd: %w", err)
	}

	switch resp.Type {
	case greetd.RespSuccess:
		w.failures = 0
		w.log.Info("[%s] authenticated %s", w.attempt, w.user)
		w.emit(GetSession())
		return stateAwaitingSessionChoice, nil

	case greetd.RespAuthMessage:
		w.failures = 0
		kind := InputKindFor(resp.AuthMessageType)
		w.log.Debug("[%s] %s prompt", w.attempt, resp.AuthMessageType)
		w.emit(Message(resp.AuthMessage))
		w.emit(GetInput(kind))
		w.expected = &kind
		return stateAwaitingUserAnswer, nil

	case greetd.RespError:
		w.log.Warn("[%s] greetd %s: %s", w.attempt, resp.ErrorType, resp.Description)
		w.emit(Failed(resp.Description))
		return w.restart(ctx)
	}

	return stateDone, fmt.Errorf("%w: %q", ErrUnexpectedMessage, resp.Type)
}

func (w *worker) awaitUserAnswer() (state, error) {
	cmd := w.next()

	switch cmd.Kind {
	case CommandQuit:
		return stateDone, nil

	case CommandEntered:
		if w.expected != nil && (*w.expected == InputPassword || *w.expected == InputVisible) {
			w.expected = nil
			text := cmd.Text
			if err := w.send(greetd.PostAuthMessageResponse(&text)); err != nil {
				return stateDone, err
			}
			return stateAwaitingDaemon, nil
		}

	case CommandNext:
		if w.expected != nil && *w.expected == InputNone {
			w.expected = nil
			if err := w.send(greetd.PostAuthMessageResponse(nil)); err != nil {
				return stateDone, err
			}
			return stateAwaitingDaemon, nil
		}
	}

	return stateDone, w.violation(stateAwaitingUserAnswer, cmd)
}

func (w *worker) awaitSessionChoice() (state, error) {
	cmd := w.next()

	switch cmd.Kind {
	case CommandQuit:
		return stateDone, nil

	case CommandSession:
		w.log.Info("[%s] starting session: %s", w.attempt, cmd.Text)
		if err := w.send(greetd.StartSession([]string{"sh", "-c", cmd.Text}, w.env)); err != nil {
			return stateDone, err
		}
		return stateAwaitingStartResult, nil
	}

	return stateDone, w.violation(stateAwaitingSessionChoice, cmd)
}

func (w *worker) awaitStartResult(ctx context.Context) (state, error) {
	resp, err := w.conn.Receive()
	if err != nil {
		return stateDone, fmt.Errorf("failed to read from greetd: %w", err)
	}

	switch resp.Type {
	case greetd.RespSuccess:
		w.log.Info("[%s] session started", w.attempt)
		w.emit(Succeeded())
		return stateDone, nil

	case greetd.RespError:
		// a failed start invalidates the session: authenticate again from scratch
		w.log.Warn("[%s] session start failed: %s", w.attempt, resp.Description)
		w.emit(Failed(resp.Description))
		return w.restart(ctx)
	}

	return stateDone, fmt.Errorf("%w: %s while waiting for session start", ErrUnexpectedMessage, resp.Type)
}

// next blocks for the next command. A closed mailbox reads as Quit.
func (w *worker) next() Command {
	cmd, ok := <-w.commands
	if !ok {
		return Quit()
	}
	return cmd
}

func (w *worker) send(req greetd.Request) error {
	if err := w.conn.Send(req); err != nil {
		return fmt.Errorf("failed to send %s: %w", req.Type, err)
	}
	return nil
}

func (w *worker) emit(resp Response) {
	w.responses <- resp
}

func (w *worker) violation(st state, cmd Command) error {
	expected := "nothing"
	if w.expected != nil {
		expected = w.expected.String()
	}
	err := fmt.Errorf("%w: got %s command while %s (expected input: %s)", ErrInvariantViolated, cmd.Kind, st, expected)
	w.log.Error("[%s] %v", w.attempt, err)
	return err
}
