package auth

import (
	"fmt"

	"tgreet/modules/platform/greetd"
)

// InputKind tells the front-end what kind of answer the current prompt needs
type InputKind int

const (
	InputNone     InputKind = iota // acknowledge only
	InputPassword                  // masked text
	InputVisible                   // echoed text
)

func (k InputKind) String() string {
	switch k {
	case InputNone:
		return "none"
	case InputPassword:
		return "password"
	case InputVisible:
		return "visible"
	default:
		return fmt.Sprintf("InputKind(%d)", int(k))
	}
}

// InputKindFor maps a greetd prompt type to the input it requires
func InputKindFor(t greetd.AuthMessageType) InputKind {
	switch t {
	case greetd.AuthVisible:
		return InputVisible
	case greetd.AuthSecret:
		return InputPassword
	default:
		// info and error prompts carry no credential expectation
		return InputNone
	}
}

// CommandKind identifies a command sent by the front-end
type CommandKind int

const (
	CommandQuit CommandKind = iota
	CommandEntered
	CommandNext
	CommandSession
)

func (k CommandKind) String() string {
	switch k {
	case CommandQuit:
		return "quit"
	case CommandEntered:
		return "entered"
	case CommandNext:
		return "next"
	case CommandSession:
		return "session"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// Command is sent by the front-end to the worker
type Command struct {
	Kind CommandKind
	Text string // Entered: the answer, Session: the launch command
}

// Quit aborts the conversation
func Quit() Command {
	return Command{Kind: CommandQuit}
}

// Entered answers a Password or Visible prompt
func Entered(text string) Command {
	return Command{Kind: CommandEntered, Text: text}
}

// Next acknowledges a prompt that requested no input
func Next() Command {
	return Command{Kind: CommandNext}
}

// Session answers GetSession with the chosen launch command
func Session(launchCommand string) Command {
	return Command{Kind: CommandSession, Text: launchCommand}
}

// ResponseKind identifies a response emitted by the worker
type ResponseKind int

const (
	ResponseSuccess ResponseKind = iota
	ResponseError
	ResponseMessage
	ResponseGetInput
	ResponseGetSession
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseSuccess:
		return "success"
	case ResponseError:
		return "error"
	case ResponseMessage:
		return "message"
	case ResponseGetInput:
		return "get_input"
	case ResponseGetSession:
		return "get_session"
	default:
		return fmt.Sprintf("ResponseKind(%d)", int(k))
	}
}

// Response is emitted by the worker to the front-end
type Response struct {
	Kind  ResponseKind
	Text  string    // Error and Message
	Input InputKind // GetInput
}

// Succeeded reports that the session was started; the front-end should close
func Succeeded() Response {
	return Response{Kind: ResponseSuccess}
}

// Failed carries a recoverable problem to display
func Failed(message string) Response {
	return Response{Kind: ResponseError, Text: message}
}

// Message carries an informational or prompt string to display
func Message(text string) Response {
	return Response{Kind: ResponseMessage, Text: text}
}

// GetInput requests an answer of the given kind
func GetInput(kind InputKind) Response {
	return Response{Kind: ResponseGetInput, Input: kind}
}

// GetSession requests the launch command of the chosen session
func GetSession() Response {
	return Response{Kind: ResponseGetSession}
}
