// Package console is a line-mode greeter for serial consoles and pipes.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"tgreet/modules/platform/auth"
	"tgreet/modules/platform/logger"
	"tgreet/modules/platform/sessions"
)

var (
	// ErrConversationEnded is returned when the conversation stops without starting a session
	ErrConversationEnded = errors.New("login conversation ended")

	// ErrAborted is returned when the user closes the input
	ErrAborted = errors.New("login aborted")
)

// Controller is the console's view of a running login conversation
type Controller interface {
	SendCommand(cmd auth.Command) error
	Responses() <-chan auth.Response
}

// Console answers a login conversation line by line
type Console struct {
	ctrl    Controller
	reader  LineReader
	out     io.Writer
	session sessions.Session

	// last message not yet shown
	pending string
}

// New creates a console that will launch session once authenticated
func New(ctrl Controller, reader LineReader, out io.Writer, session sessions.Session) *Console {
	return &Console{
		ctrl:    ctrl,
		reader:  reader,
		out:     out,
		session: session,
	}
}

// Run handles responses until the session starts, the conversation ends or input closes.
// Cancelling ctx closes the reader so a pending prompt returns.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintf(c.out, "session: %s\n", c.session.Name)

	stop := context.AfterFunc(ctx, func() { c.reader.Close() })
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case resp, ok := <-c.ctrl.Responses():
			if !ok {
				c.flush()
				return ErrConversationEnded
			}
			done, err := c.handle(ctx, resp)
			if err != nil || done {
				return err
			}
		}
	}
}

func (c *Console) handle(ctx context.Context, resp auth.Response) (bool, error) {
	switch resp.Kind {
	case auth.ResponseSuccess:
		c.flush()
		fmt.Fprintf(c.out, "starting %s\n", c.session.Name)
		return true, nil

	case auth.ResponseError:
		c.flush()
		fmt.Fprintf(c.out, "error: %s\n", resp.Text)

	case auth.ResponseMessage:
		c.flush()
		c.pending = resp.Text

	case auth.ResponseGetInput:
		return false, c.answer(ctx, resp.Input)

	case auth.ResponseGetSession:
		c.flush()
		return false, c.send(auth.Session(c.session.Command))
	}

	return false, nil
}

func (c *Console) answer(ctx context.Context, kind auth.InputKind) error {
	prompt := c.pending
	c.pending = ""

	var (
		line string
		err  error
	)
	switch kind {
	case auth.InputPassword:
		line, err = c.reader.ReadPassword(promptText(prompt))
	case auth.InputVisible:
		line, err = c.reader.ReadLine(promptText(prompt))
	default:
		if prompt != "" {
			fmt.Fprintln(c.out, prompt)
		}
		_, err = c.reader.ReadLine("[press enter] ")
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return ErrAborted
		}
		return fmt.Errorf("failed to read answer: %w", err)
	}

	if kind == auth.InputNone {
		return c.send(auth.Next())
	}
	return c.send(auth.Entered(line))
}

func (c *Console) send(cmd auth.Command) error {
	if err := c.ctrl.SendCommand(cmd); err != nil {
		if errors.Is(err, auth.ErrWorkerExited) {
			logger.Debug("console: %s dropped, worker exited", cmd.Kind)
			return nil
		}
		return err
	}
	return nil
}

func (c *Console) flush() {
	if c.pending != "" {
		fmt.Fprintln(c.out, c.pending)
		c.pending = ""
	}
}

func promptText(message string) string {
	if message == "" {
		return "> "
	}
	if strings.HasSuffix(message, " ") {
		return message
	}
	return message + " "
}
