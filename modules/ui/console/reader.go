package console

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// LineReader reads answers from the user
type LineReader interface {
	ReadLine(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Close() error
}

// NewReader returns a readline reader on a terminal and a plain line reader otherwise
func NewReader(in io.Reader, out io.Writer) (LineReader, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return newReadlineReader(f, out)
	}
	return NewScannerReader(in, out), nil
}

// readlineReader edits lines interactively and masks passwords
type readlineReader struct {
	rl *readline.Instance
}

func newReadlineReader(in *os.File, out io.Writer) (*readlineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:           in,
		Stdout:          out,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		// answers to a greeter never belong in a history file
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	return &readlineReader{rl: rl}, nil
}

func (r *readlineReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	return r.rl.Readline()
}

func (r *readlineReader) ReadPassword(prompt string) (string, error) {
	secret, err := r.rl.ReadPassword(prompt)
	return string(secret), err
}

func (r *readlineReader) Close() error {
	return r.rl.Close()
}

// ScannerReader reads plain lines, for pipes and non-TTY input
type ScannerReader struct {
	in      io.Reader
	scanner *bufio.Scanner
	out     io.Writer
}

// NewScannerReader creates a reader over in that prints prompts to out
func NewScannerReader(in io.Reader, out io.Writer) *ScannerReader {
	return &ScannerReader{in: in, scanner: bufio.NewScanner(in), out: out}
}

// ReadLine prints prompt and reads one line
func (r *ScannerReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// ReadPassword reads like ReadLine; without a terminal there is no echo to hide
func (r *ScannerReader) ReadPassword(prompt string) (string, error) {
	line, err := r.ReadLine(prompt)
	if err == nil {
		fmt.Fprintln(r.out)
	}
	return line, err
}

// Close closes the input when it can be closed, unblocking a pending read
func (r *ScannerReader) Close() error {
	if c, ok := r.in.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
