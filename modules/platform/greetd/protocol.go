package greetd

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single message payload
const MaxFrameSize = 1 << 20

// ErrMalformedFrame is returned when a frame cannot be decoded
var ErrMalformedFrame = errors.New("malformed greetd frame")

// RequestType identifies the type of request
type RequestType string

const (
	// Greeter -> greetd
	ReqCreateSession           RequestType = "create_session"
	ReqPostAuthMessageResponse RequestType = "post_auth_message_response"
	ReqStartSession            RequestType = "start_session"
	ReqCancelSession           RequestType = "cancel_session"
)

// ResponseType identifies the type of response
type ResponseType string

const (
	// greetd -> Greeter
	RespSuccess     ResponseType = "success"
	RespError       ResponseType = "error"
	RespAuthMessage ResponseType = "auth_message"
)

// ErrorType classifies an error response
type ErrorType string

const (
	ErrorTypeError     ErrorType = "error"
	ErrorTypeAuthError ErrorType = "auth_error"
)

// AuthMessageType classifies an authentication prompt
type AuthMessageType string

const (
	AuthVisible AuthMessageType = "visible"
	AuthSecret  AuthMessageType = "secret"
	AuthInfo    AuthMessageType = "info"
	AuthError   AuthMessageType = "error"
)

// Request is a message sent to greetd
type Request struct {
	Type RequestType

	// create_session
	Username string

	// post_auth_message_response; nil encodes as null
	Response *string

	// start_session
	Cmd []string
	Env []string
}

// CreateSession builds a create_session request
func CreateSession(username string) Request {
	return Request{Type: ReqCreateSession, Username: username}
}

// PostAuthMessageResponse builds a post_auth_message_response request
func PostAuthMessageResponse(response *string) Request {
	return Request{Type: ReqPostAuthMessageResponse, Response: response}
}

// StartSession builds a start_session request
func StartSession(cmd, env []string) Request {
	return Request{Type: ReqStartSession, Cmd: cmd, Env: env}
}

// CancelSession builds a cancel_session request
func CancelSession() Request {
	return Request{Type: ReqCancelSession}
}

// MarshalJSON emits exactly the fields greetd expects for each request type
func (r Request) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case ReqCreateSession:
		return json.Marshal(struct {
			Type     RequestType `json:"type"`
			Username string      `json:"username"`
		}{r.Type, r.Username})
	case ReqPostAuthMessageResponse:
		return json.Marshal(struct {
			Type     RequestType `json:"type"`
			Response *string     `json:"response"`
		}{r.Type, r.Response})
	case ReqStartSession:
		return json.Marshal(struct {
			Type RequestType `json:"type"`
			Cmd  []string    `json:"cmd"`
			Env  []string    `json:"env"`
		}{r.Type, nonNil(r.Cmd), nonNil(r.Env)})
	case ReqCancelSession:
		return json.Marshal(struct {
			Type RequestType `json:"type"`
		}{r.Type})
	default:
		return nil, fmt.Errorf("unknown request type %q", r.Type)
	}
}

// UnmarshalJSON decodes a request and rejects unknown types
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     RequestType `json:"type"`
		Username string      `json:"username"`
		Response *string     `json:"response"`
		Cmd      []string    `json:"cmd"`
		Env      []string    `json:"env"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case ReqCreateSession:
		*r = CreateSession(raw.Username)
	case ReqPostAuthMessageResponse:
		*r = PostAuthMessageResponse(raw.Response)
	case ReqStartSession:
		*r = StartSession(nonNil(raw.Cmd), nonNil(raw.Env))
	case ReqCancelSession:
		*r = CancelSession()
	default:
		return fmt.Errorf("unknown request type %q", raw.Type)
	}
	return nil
}

// Response is a message received from greetd
type Response struct {
	Type ResponseType

	// error
	ErrorType   ErrorType
	Description string

	// auth_message
	AuthMessageType AuthMessageType
	AuthMessage     string
}

// Success builds a success response
func Success() Response {
	return Response{Type: RespSuccess}
}

// Error builds an error response
func Error(errorType ErrorType, description string) Response {
	return Response{Type: RespError, ErrorType: errorType, Description: description}
}

// AuthMessage builds an auth_message response
func AuthMessage(messageType AuthMessageType, message string) Response {
	return Response{Type: RespAuthMessage, AuthMessageType: messageType, AuthMessage: message}
}

// MarshalJSON emits exactly the fields greetd emits for each response type
func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case RespSuccess:
		return json.Marshal(struct {
			Type ResponseType `json:"type"`
		}{r.Type})
	case RespError:
		return json.Marshal(struct {
			Type        ResponseType `json:"type"`
			ErrorType   ErrorType    `json:"error_type"`
			Description string       `json:"description"`
		}{r.Type, r.ErrorType, r.Description})
	case RespAuthMessage:
		return json.Marshal(struct {
			Type            ResponseType    `json:"type"`
			AuthMessageType AuthMessageType `json:"auth_message_type"`
			AuthMessage     string          `json:"auth_message"`
		}{r.Type, r.AuthMessageType, r.AuthMessage})
	default:
		return nil, fmt.Errorf("unknown response type %q", r.Type)
	}
}

// UnmarshalJSON decodes a response and validates its discriminants
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type            ResponseType    `json:"type"`
		ErrorType       ErrorType       `json:"error_type"`
		Description     string          `json:"description"`
		AuthMessageType AuthMessageType `json:"auth_message_type"`
		AuthMessage     string          `json:"auth_message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case RespSuccess:
		*r = Success()
	case RespError:
		switch raw.ErrorType {
		case ErrorTypeError, ErrorTypeAuthError:
		default:
			return fmt.Errorf("unknown error type %q", raw.ErrorType)
		}
		*r = Error(raw.ErrorType, raw.Description)
	case RespAuthMessage:
		switch raw.AuthMessageType {
		case AuthVisible, AuthSecret, AuthInfo, AuthError:
		default:
			return fmt.Errorf("unknown auth message type %q", raw.AuthMessageType)
		}
		*r = AuthMessage(raw.AuthMessageType, raw.AuthMessage)
	default:
		return fmt.Errorf("unknown response type %q", raw.Type)
	}
	return nil
}

// WriteRequest encodes a request as one frame
func WriteRequest(w io.Writer, req Request) error {
	return writeFrame(w, req)
}

// ReadRequest decodes one request frame
func ReadRequest(r io.Reader) (Request, error) {
	var req Request
	err := readFrame(r, &req)
	return req, err
}

// WriteResponse encodes a response as one frame
func WriteResponse(w io.Writer, resp Response) error {
	return writeFrame(w, resp)
}

// ReadResponse decodes one response frame
func ReadResponse(r io.Reader) (Response, error) {
	var resp Response
	err := readFrame(r, &resp)
	return resp, err
}

// writeFrame writes the length header and payload in a single write
func writeFrame(w io.Writer, v json.Marshaler) error {
	payload, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: payload of %d bytes", ErrMalformedFrame, len(payload))
	}

	frame := make([]byte, 4+len(payload))
	binary.NativeEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// readFrame reads one frame into v. A clean EOF before the header is returned as io.EOF.
func readFrame(r io.Reader, v json.Unmarshaler) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("failed to read message header: %w", err)
	}

	size := binary.NativeEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return fmt.Errorf("%w: declared length %d", ErrMalformedFrame, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("failed to read message body: %w", err)
	}

	if err := v.UnmarshalJSON(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
