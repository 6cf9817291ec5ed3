package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgreet/modules/platform/greetd"
	"tgreet/modules/platform/greetd/fakegreet"
)

const waitFor = 2 * time.Second

func startFake(t *testing.T, handler fakegreet.Handler) *fakegreet.Server {
	t.Helper()

	dir, err := os.MkdirTemp("", "tg")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	srv := fakegreet.NewServer(filepath.Join(dir, "greetd.sock"), handler)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

func testOptions(socket string) Options {
	return Options{
		SocketPath:      socket,
		RetryBackoffMin: 10 * time.Millisecond,
		RetryBackoffMax: 40 * time.Millisecond,
	}
}

func startHandle(t *testing.T, srv *fakegreet.Server, user string) *Handle {
	t.Helper()
	h, err := Start(context.Background(), user, testOptions(srv.SocketPath()))
	require.NoError(t, err)
	t.Cleanup(func() { h.Shutdown() })
	return h
}

// recv waits for the next response
func recv(t *testing.T, h *Handle) Response {
	t.Helper()
	select {
	case resp, ok := <-h.Responses():
		require.True(t, ok, "response mailbox closed")
		return resp
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a response")
		return Response{}
	}
}

func expectRequest(t *testing.T, srv *fakegreet.Server, want greetd.Request) fakegreet.Recorded {
	t.Helper()
	rec, err := srv.Next(waitFor)
	require.NoError(t, err)
	assert.Equal(t, want, rec.Request)
	return rec
}

func expectNoRequest(t *testing.T, srv *fakegreet.Server) {
	t.Helper()
	rec, err := srv.Next(100 * time.Millisecond)
	assert.ErrorIs(t, err, fakegreet.ErrNoRequest, "unexpected request %+v", rec.Request)
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(waitFor):
		t.Fatal("worker did not exit")
	}
}

func strptr(s string) *string { return &s }

func TestStartValidation(t *testing.T) {
	_, err := Start(context.Background(), "", testOptions("/run/greetd.sock"))
	assert.ErrorIs(t, err, ErrNoUser)

	_, err = Start(context.Background(), "alice", testOptions(""))
	assert.ErrorIs(t, err, greetd.ErrNoSocket)
}

func TestSecretPromptIsRelayed(t *testing.T) {
	srv := startFake(t, fakegreet.NewPasswordHandler(map[string]string{"alice": "hunter2"}, ""))
	h := startHandle(t, srv, "alice")

	assert.Equal(t, Message(fakegreet.PasswordPrompt), recv(t, h))
	assert.Equal(t, GetInput(InputPassword), recv(t, h))

	require.NoError(t, h.SendCommand(Entered("hunter2")))

	expectRequest(t, srv, greetd.CreateSession("alice"))
	expectRequest(t, srv, greetd.PostAuthMessageResponse(strptr("hunter2")))
	assert.Equal(t, GetSession(), recv(t, h))
}

func TestAuthErrorRestartsConversation(t *testing.T) {
	srv := startFake(t, fakegreet.NewPasswordHandler(map[string]string{"alice": "hunter2"}, ""))
	h := startHandle(t, srv, "alice")

	recv(t, h)
	recv(t, h)
	require.NoError(t, h.SendCommand(Entered("wrong")))

	assert.Equal(t, Failed(fakegreet.AuthFailed), recv(t, h))
	assert.Equal(t, Message(fakegreet.PasswordPrompt), recv(t, h))
	assert.Equal(t, GetInput(InputPassword), recv(t, h))

	first := expectRequest(t, srv, greetd.CreateSession("alice"))
	expectRequest(t, srv, greetd.PostAuthMessageResponse(strptr("wrong")))
	second := expectRequest(t, srv, greetd.CreateSession("alice"))
	assert.NotEqual(t, first.Conn, second.Conn, "restart must use a fresh connection")

	// the new conversation is fully usable
	require.NoError(t, h.SendCommand(Entered("hunter2")))
	assert.Equal(t, GetSession(), recv(t, h))
}

func TestSessionStart(t *testing.T) {
	handler := fakegreet.NewPasswordHandler(map[string]string{"alice": "hunter2"}, "")
	srv := startFake(t, handler)
	h := startHandle(t, srv, "alice")

	recv(t, h)
	recv(t, h)
	require.NoError(t, h.SendCommand(Entered("hunter2")))
	require.Equal(t, GetSession(), recv(t, h))

	require.NoError(t, h.SendCommand(Session("/usr/bin/mysession")))
	assert.Equal(t, Succeeded(), recv(t, h))

	waitDone(t, h)
	assert.NoError(t, h.Shutdown())

	expectRequest(t, srv, greetd.CreateSession("alice"))
	expectRequest(t, srv, greetd.PostAuthMessageResponse(strptr("hunter2")))
	expectRequest(t, srv, greetd.StartSession([]string{"sh", "-c", "/usr/bin/mysession"}, []string{}))
	assert.Equal(t, [][]string{{"sh", "-c", "/usr/bin/mysession"}}, handler.Launched())
}

func TestSessionStartCarriesEnv(t *testing.T) {
	srv := startFake(t, fakegreet.NewPasswordHandler(map[string]string{"alice": "pw"}, ""))
	opts := testOptions(srv.SocketPath())
	opts.Env = []string{"XDG_SESSION_TYPE=wayland"}

	h, err := Start(context.Background(), "alice", opts)
	require.NoError(t, err)
	defer h.Shutdown()

	recv(t, h)
	recv(t, h)
	require.NoError(t, h.SendCommand(Entered("pw")))
	recv(t, h)
	require.NoError(t, h.SendCommand(Session("sway")))
	assert.Equal(t, Succeeded(), recv(t, h))

	srv.Next(waitFor)
	srv.Next(waitFor)
	expectRequest(t, srv, greetd.StartSession([]string{"sh", "-c", "sway"}, []string{"XDG_SESSION_TYPE=wayland"}))
}

func TestPromptTypesMapToInputKinds(t *testing.T) {
	steps := []struct {
		prompt greetd.AuthMessageType
		kind   InputKind
		answer Command
		posted *string
	}{
		{greetd.AuthVisible, InputVisible, Entered("123456"), strptr("123456")},
		{greetd.AuthSecret, InputPassword, Entered("hunter2"), strptr("hunter2")},
		{greetd.AuthInfo, InputNone, Next(), nil},
		{greetd.AuthError, InputNone, Next(), nil},
	}

	step := 0
	srv := startFake(t, fakegreet.HandlerFunc(func(conn int, req greetd.Request) (greetd.Response, bool) {
		if step == len(steps) {
			return greetd.Success(), false
		}
		s := steps[step]
		step++
		return greetd.AuthMessage(s.prompt, string(s.prompt)+" prompt"), false
	}))
	h := startHandle(t, srv, "bob")

	expectRequest(t, srv, greetd.CreateSession("bob"))
	for _, s := range steps {
		assert.Equal(t, Message(string(s.prompt)+" prompt"), recv(t, h))
		assert.Equal(t, GetInput(s.kind), recv(t, h))
		require.NoError(t, h.SendCommand(s.answer))
		expectRequest(t, srv, greetd.PostAuthMessageResponse(s.posted))
	}
	assert.Equal(t, GetSession(), recv(t, h))
}

func TestInputKindFor(t *testing.T) {
	assert.Equal(t, InputVisible, InputKindFor(greetd.AuthVisible))
	assert.Equal(t, InputPassword, InputKindFor(greetd.AuthSecret))
	assert.Equal(t, InputNone, InputKindFor(greetd.AuthInfo))
	assert.Equal(t, InputNone, InputKindFor(greetd.AuthError))
}

func TestInvariantViolations(t *testing.T) {
	// handlers keep per-connection state, so every case needs its own
	motd := func() fakegreet.Handler {
		return fakegreet.NewPasswordHandler(map[string]string{"alice": "pw"}, "Welcome")
	}
	plain := func() fakegreet.Handler {
		return fakegreet.NewPasswordHandler(map[string]string{"alice": "pw"}, "")
	}

	tests := []struct {
		name       string
		newHandler func() fakegreet.Handler
		// commands that bring the worker to the state under test
		setup []Command
		bad   Command
	}{
		{"entered while no input requested", motd, nil, Entered("x")},
		{"next while password requested", plain, nil, Next()},
		{"session while prompting", plain, nil, Session("sway")},
		{"entered while choosing session", plain, []Command{Entered("pw")}, Entered("again")},
		{"next while choosing session", plain, []Command{Entered("pw")}, Next()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startFake(t, tt.newHandler())
			h := startHandle(t, srv, "alice")

			recv(t, h)
			recv(t, h)
			for _, cmd := range tt.setup {
				require.NoError(t, h.SendCommand(cmd))
				require.Equal(t, GetSession(), recv(t, h))
			}
			expectRequest(t, srv, greetd.CreateSession("alice"))
			for range tt.setup {
				srv.Next(waitFor)
			}

			require.NoError(t, h.SendCommand(tt.bad))
			waitDone(t, h)

			err := h.Shutdown()
			assert.ErrorIs(t, err, ErrInvariantViolated)
			expectNoRequest(t, srv)

			// the worker never reports invariant violations as a response
			_, ok := h.TryResponse()
			assert.False(t, ok)
		})
	}
}

func TestQuitEndsConversation(t *testing.T) {
	tests := []struct {
		name  string
		setup []Command
	}{
		{"while prompting", nil},
		{"while choosing session", []Command{Entered("pw")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startFake(t, fakegreet.NewPasswordHandler(map[string]string{"alice": "pw"}, ""))
			h := startHandle(t, srv, "alice")

			recv(t, h)
			recv(t, h)
			for _, cmd := range tt.setup {
				require.NoError(t, h.SendCommand(cmd))
				recv(t, h)
			}
			for i := 0; i < len(tt.setup)+1; i++ {
				srv.Next(waitFor)
			}

			require.NoError(t, h.SendCommand(Quit()))
			waitDone(t, h)
			assert.NoError(t, h.Shutdown())
			expectNoRequest(t, srv)
		})
	}
}

func TestStartErrorReauthenticates(t *testing.T) {
	handler := fakegreet.NewPasswordHandler(map[string]string{"alice": "pw"}, "")
	handler.StartError = "exec failed"
	srv := startFake(t, handler)
	h := startHandle(t, srv, "alice")

	recv(t, h)
	recv(t, h)
	require.NoError(t, h.SendCommand(Entered("pw")))
	require.Equal(t, GetSession(), recv(t, h))
	require.NoError(t, h.SendCommand(Session("broken")))

	assert.Equal(t, Failed("exec failed"), recv(t, h))
	assert.Equal(t, Message(fakegreet.PasswordPrompt), recv(t, h))
	assert.Equal(t, GetInput(InputPassword), recv(t, h))

	expectRequest(t, srv, greetd.CreateSession("alice"))
	expectRequest(t, srv, greetd.PostAuthMessageResponse(strptr("pw")))
	expectRequest(t, srv, greetd.StartSession([]string{"sh", "-c", "broken"}, []string{}))
	expectRequest(t, srv, greetd.CreateSession("alice"))
}

func TestAuthMessageWhileStartingIsFatal(t *testing.T) {
	srv := startFake(t, fakegreet.HandlerFunc(func(conn int, req greetd.Request) (greetd.Response, bool) {
		switch req.Type {
		case greetd.ReqCreateSession:
			return greetd.Success(), false
		default:
			return greetd.AuthMessage(greetd.AuthSecret, "again?"), false
		}
	}))
	h := startHandle(t, srv, "alice")

	require.Equal(t, GetSession(), recv(t, h))
	require.NoError(t, h.SendCommand(Session("sway")))

	resp := recv(t, h)
	assert.Equal(t, ResponseError, resp.Kind)
	assert.Contains(t, resp.Text, ErrUnexpectedMessage.Error())

	waitDone(t, h)
	err := h.Shutdown()
	assert.ErrorIs(t, err, ErrUnexpectedMessage)
	assert.False(t, errors.Is(err, ErrInvariantViolated))
}

func TestShutdownDuringRetryLoop(t *testing.T) {
	srv := startFake(t, fakegreet.HandlerFunc(func(conn int, req greetd.Request) (greetd.Response, bool) {
		return greetd.Error(greetd.ErrorTypeError, "pam unavailable"), true
	}))
	h := startHandle(t, srv, "alice")

	for i := 0; i < 3; i++ {
		assert.Equal(t, Failed("pam unavailable"), recv(t, h))
	}

	stopped := make(chan error, 1)
	go func() { stopped <- h.Shutdown() }()

	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("shutdown did not complete while the worker was retrying")
	}
}

func TestTransportFailureIsReported(t *testing.T) {
	srv := startFake(t, fakegreet.HandlerFunc(func(conn int, req greetd.Request) (greetd.Response, bool) {
		return greetd.Response{}, true
	}))
	h := startHandle(t, srv, "alice")

	resp := recv(t, h)
	assert.Equal(t, ResponseError, resp.Kind)
	assert.Contains(t, resp.Text, "failed to read from greetd")

	waitDone(t, h)
	err := h.Shutdown()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvariantViolated))
}

func TestDialFailureIsReported(t *testing.T) {
	h, err := Start(context.Background(), "alice", testOptions(filepath.Join(t.TempDir(), "missing.sock")))
	require.NoError(t, err)

	resp := recv(t, h)
	assert.Equal(t, ResponseError, resp.Kind)
	waitDone(t, h)
	assert.Error(t, h.Err())
	assert.Error(t, h.Shutdown())
}

func TestSendCommandAfterExit(t *testing.T) {
	h, err := Start(context.Background(), "alice", testOptions(filepath.Join(t.TempDir(), "missing.sock")))
	require.NoError(t, err)
	waitDone(t, h)

	assert.ErrorIs(t, h.SendCommand(Next()), ErrWorkerExited)
	h.Shutdown()
	assert.ErrorIs(t, h.SendCommand(Quit()), ErrWorkerExited)
}

func TestTryResponseDoesNotBlock(t *testing.T) {
	// a daemon that never answers leaves the worker waiting on the socket
	srv := startFake(t, fakegreet.HandlerFunc(func(conn int, req greetd.Request) (greetd.Response, bool) {
		return greetd.Response{}, false
	}))
	h := startHandle(t, srv, "alice")
	expectRequest(t, srv, greetd.CreateSession("alice"))

	_, ok := h.TryResponse()
	assert.False(t, ok)
	assert.Nil(t, h.Err())

	// closing the socket ends the pending read
	srv.Stop()
	waitDone(t, h)
	resp, ok := h.TryResponse()
	require.True(t, ok)
	assert.Equal(t, ResponseError, resp.Kind)
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := startFake(t, fakegreet.NewPasswordHandler(nil, ""))
	h := startHandle(t, srv, "alice")

	recv(t, h)
	assert.NoError(t, h.Shutdown())
	assert.NoError(t, h.Shutdown())
}

func TestRunAlwaysShutsDown(t *testing.T) {
	srv := startFake(t, fakegreet.NewPasswordHandler(nil, ""))
	boom := errors.New("front-end failed")

	var seen *Handle
	err := Run(context.Background(), "alice", testOptions(srv.SocketPath()), func(h *Handle) error {
		seen = h
		recv(t, h)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	require.NotNil(t, seen)
	select {
	case <-seen.Done():
	default:
		t.Fatal("worker still running after Run returned")
	}
}

func TestRunRejectsMissingUser(t *testing.T) {
	called := false
	err := Run(context.Background(), "", testOptions("/run/greetd.sock"), func(h *Handle) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNoUser)
	assert.False(t, called)
}
