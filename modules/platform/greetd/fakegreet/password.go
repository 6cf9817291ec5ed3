package fakegreet

import (
	"sync"

	"tgreet/modules/platform/greetd"
)

// Prompts used by PasswordHandler
const (
	PasswordPrompt = "Password:"
	AuthFailed     = "Authentication failed"
)

type stage int

const (
	stageMotd stage = iota
	stagePassword
	stageAuthenticated
)

type conversation struct {
	user  string
	stage stage
}

// PasswordHandler emulates greetd in front of a password-only PAM stack.
// An optional Motd is sent as an info message before the password prompt.
// A wrong password fails the conversation and hangs up, as greetd does.
type PasswordHandler struct {
	Users      map[string]string
	Motd       string
	StartError string

	mu       sync.Mutex
	sessions map[int]*conversation
	launched [][]string
}

// NewPasswordHandler creates a handler accepting the given user/password pairs
func NewPasswordHandler(users map[string]string, motd string) *PasswordHandler {
	return &PasswordHandler{
		Users:    users,
		Motd:     motd,
		sessions: make(map[int]*conversation),
	}
}

// Launched returns the command of every session started so far
func (h *PasswordHandler) Launched() [][]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]string, len(h.launched))
	copy(out, h.launched)
	return out
}

// Closed implements ConnCloser
func (h *PasswordHandler) Closed(conn int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, conn)
}

// Handle implements Handler
func (h *PasswordHandler) Handle(conn int, req greetd.Request) (greetd.Response, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions == nil {
		h.sessions = make(map[int]*conversation)
	}
	c := h.sessions[conn]

	switch req.Type {
	case greetd.ReqCreateSession:
		if c != nil {
			return greetd.Error(greetd.ErrorTypeError, "a session is already being configured"), false
		}
		c = &conversation{user: req.Username, stage: stagePassword}
		h.sessions[conn] = c
		if h.Motd != "" {
			c.stage = stageMotd
			return greetd.AuthMessage(greetd.AuthInfo, h.Motd), false
		}
		return greetd.AuthMessage(greetd.AuthSecret, PasswordPrompt), false

	case greetd.ReqPostAuthMessageResponse:
		if c == nil {
			return greetd.Error(greetd.ErrorTypeError, "no session active"), false
		}
		switch c.stage {
		case stageMotd:
			c.stage = stagePassword
			return greetd.AuthMessage(greetd.AuthSecret, PasswordPrompt), false
		case stagePassword:
			want, known := h.Users[c.user]
			if known && req.Response != nil && *req.Response == want {
				c.stage = stageAuthenticated
				return greetd.Success(), false
			}
			delete(h.sessions, conn)
			return greetd.Error(greetd.ErrorTypeAuthError, AuthFailed), true
		default:
			return greetd.Error(greetd.ErrorTypeError, "session is already authenticated"), false
		}

	case greetd.ReqStartSession:
		if c == nil || c.stage != stageAuthenticated {
			return greetd.Error(greetd.ErrorTypeError, "session not yet authenticated"), false
		}
		delete(h.sessions, conn)
		if h.StartError != "" {
			return greetd.Error(greetd.ErrorTypeError, h.StartError), true
		}
		h.launched = append(h.launched, req.Cmd)
		return greetd.Success(), false

	case greetd.ReqCancelSession:
		delete(h.sessions, conn)
		return greetd.Success(), false
	}

	return greetd.Error(greetd.ErrorTypeError, "unknown request"), false
}
