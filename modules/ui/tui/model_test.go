package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgreet/modules/platform/auth"
	"tgreet/modules/platform/sessions"
	"tgreet/modules/platform/system"
)

// fakeController queues responses and records commands
type fakeController struct {
	pending  []auth.Response
	commands []auth.Command
	done     chan struct{}
	sendErr  error
}

func newFakeController(responses ...auth.Response) *fakeController {
	return &fakeController{pending: responses, done: make(chan struct{})}
}

func (f *fakeController) SendCommand(cmd auth.Command) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeController) TryResponse() (auth.Response, bool) {
	if len(f.pending) == 0 {
		return auth.Response{}, false
	}
	resp := f.pending[0]
	f.pending = f.pending[1:]
	return resp, true
}

func (f *fakeController) Done() <-chan struct{} {
	return f.done
}

func (f *fakeController) push(responses ...auth.Response) {
	f.pending = append(f.pending, responses...)
}

type fakePower struct {
	reboots, poweroffs int
	err                error
}

func (p *fakePower) Reboot() error   { p.reboots++; return p.err }
func (p *fakePower) PowerOff() error { p.poweroffs++; return p.err }

type fakeHost struct{}

func (fakeHost) Get() system.HostInfo {
	return system.HostInfo{Hostname: "archbox", Platform: "arch"}
}

var testSessions = []sessions.Session{
	{Name: "Default", Command: "sway"},
	{Path: "/usr/share/wayland-sessions/hyprland.desktop", Name: "Hyprland", Command: "Hyprland"},
	{Path: "/usr/share/xsessions/i3.desktop", Name: "i3", Command: "i3"},
}

var t0 = time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)

func newTestModel(ctrl Controller, power PowerController) Model {
	m := NewModel(ctrl, Options{
		User:     "alice",
		Sessions: testSessions,
		Power:    power,
		Host:     fakeHost{},
	})
	m.now = t0
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func tick(t *testing.T, m Model, at time.Time) (Model, tea.Cmd) {
	return update(t, m, tickMsg(at))
}

func press(t *testing.T, m Model, keyType tea.KeyType) (Model, tea.Cmd) {
	return update(t, m, tea.KeyMsg{Type: keyType})
}

func typeText(t *testing.T, m Model, text string) Model {
	for _, r := range text {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestPasswordPrompt(t *testing.T) {
	ctrl := newFakeController(auth.Message("Password:"), auth.GetInput(auth.InputPassword))
	m := newTestModel(ctrl, nil)

	m, _ = tick(t, m, t0)
	assert.True(t, m.awaiting)
	assert.Equal(t, "Password:", m.prompt)
	require.Len(t, m.toasts, 1)
	assert.False(t, m.toasts[0].isError)

	m = typeText(t, m, "hunter2")
	assert.NotContains(t, m.View(), "hunter2")
	assert.Contains(t, m.View(), "Password:")

	m, _ = press(t, m, tea.KeyEnter)
	assert.Equal(t, []auth.Command{auth.Entered("hunter2")}, ctrl.commands)
	assert.False(t, m.awaiting)

	// a second enter without a new prompt sends nothing
	m, _ = press(t, m, tea.KeyEnter)
	assert.Len(t, ctrl.commands, 1)
}

func TestVisiblePromptEchoes(t *testing.T) {
	ctrl := newFakeController(auth.Message("Username:"), auth.GetInput(auth.InputVisible))
	m := newTestModel(ctrl, nil)

	m, _ = tick(t, m, t0)
	m = typeText(t, m, "otp123")
	assert.Contains(t, m.View(), "otp123")

	press(t, m, tea.KeyEnter)
	assert.Equal(t, []auth.Command{auth.Entered("otp123")}, ctrl.commands)
}

func TestInfoPromptSendsNext(t *testing.T) {
	ctrl := newFakeController(auth.Message("Welcome"), auth.GetInput(auth.InputNone))
	m := newTestModel(ctrl, nil)

	m, _ = tick(t, m, t0)
	assert.Contains(t, m.View(), "press enter to continue")

	// typing is ignored when no input is requested
	m = typeText(t, m, "x")
	press(t, m, tea.KeyEnter)
	assert.Equal(t, []auth.Command{auth.Next()}, ctrl.commands)
}

func TestGetSessionAnswersWithSelection(t *testing.T) {
	ctrl := newFakeController(auth.GetSession())
	m := newTestModel(ctrl, nil)

	tick(t, m, t0)
	assert.Equal(t, []auth.Command{auth.Session("sway")}, ctrl.commands)
}

func TestSessionSelector(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(ctrl, nil)

	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, focusSessions, m.focus)
	assert.Contains(t, m.View(), "Hyprland")

	m = typeText(t, m, "Hy")
	require.Len(t, m.matches, 1)
	// a single match is selected right away
	assert.Equal(t, "Hyprland", m.selected.Name)

	m, _ = press(t, m, tea.KeyEnter)
	assert.Equal(t, focusInput, m.focus)

	ctrl.push(auth.GetSession())
	tick(t, m, t0)
	assert.Equal(t, []auth.Command{auth.Session("Hyprland")}, ctrl.commands)
}

func TestSessionSelectorCursor(t *testing.T) {
	m := newTestModel(newFakeController(), nil)

	m, _ = press(t, m, tea.KeyTab)
	m, _ = press(t, m, tea.KeyDown)
	m, _ = press(t, m, tea.KeyDown)
	m, _ = press(t, m, tea.KeyDown)
	assert.Equal(t, 2, m.cursor)
	m, _ = press(t, m, tea.KeyUp)

	m, _ = press(t, m, tea.KeyEnter)
	assert.Equal(t, "Hyprland", m.selected.Name)
}

func TestSuccessQuits(t *testing.T) {
	ctrl := newFakeController(auth.Succeeded())
	m := newTestModel(ctrl, nil)

	m, cmd := tick(t, m, t0)
	assert.True(t, isQuit(cmd))
	assert.True(t, m.Succeeded())
	assert.False(t, m.Ended())
}

func TestErrorsShowAsToastsAndExpire(t *testing.T) {
	ctrl := newFakeController(auth.Failed("Authentication failed"))
	m := newTestModel(ctrl, nil)

	m, _ = tick(t, m, t0)
	require.Len(t, m.toasts, 1)
	assert.True(t, m.toasts[0].isError)
	assert.Contains(t, m.View(), "Authentication failed")

	m, _ = tick(t, m, t0.Add(ToastDuration-time.Second))
	assert.Len(t, m.toasts, 1)

	m, _ = tick(t, m, t0.Add(ToastDuration+time.Second))
	assert.Empty(t, m.toasts)
}

func TestWorkerExitEndsProgram(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(ctrl, nil)

	m, cmd := tick(t, m, t0)
	assert.False(t, isQuit(cmd))

	ctrl.push(auth.Failed("failed to read from greetd: EOF"))
	close(ctrl.done)

	m, cmd = tick(t, m, t0)
	assert.True(t, isQuit(cmd))
	assert.True(t, m.Ended())
	require.Len(t, m.toasts, 1)
	assert.Equal(t, "failed to read from greetd: EOF", m.toasts[0].text)
}

func TestPowerKeys(t *testing.T) {
	power := &fakePower{}
	m := newTestModel(newFakeController(), power)
	assert.Contains(t, m.View(), "F1")

	m, _ = press(t, m, tea.KeyF1)
	m, _ = press(t, m, tea.KeyF2)
	assert.Equal(t, 1, power.reboots)
	assert.Equal(t, 1, power.poweroffs)

	power.err = errors.New("failed to reboot: not permitted")
	m, _ = press(t, m, tea.KeyF1)
	require.Len(t, m.toasts, 1)
	assert.True(t, m.toasts[0].isError)
}

func TestPowerHidden(t *testing.T) {
	power := &fakePower{}
	m := newTestModel(newFakeController(), power)
	m.ui.ShowPower = false

	press(t, m, tea.KeyF1)
	assert.Zero(t, power.reboots)
}

func TestQuitKey(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(ctrl, nil)

	m, cmd := press(t, m, tea.KeyCtrlC)
	assert.True(t, isQuit(cmd))
	assert.Empty(t, ctrl.commands)
	assert.Empty(t, m.View())
}

func TestSendAfterWorkerExitIsQuiet(t *testing.T) {
	ctrl := newFakeController(auth.GetInput(auth.InputNone))
	m := newTestModel(ctrl, nil)
	m, _ = tick(t, m, t0)

	ctrl.sendErr = auth.ErrWorkerExited
	m, _ = press(t, m, tea.KeyEnter)
	assert.Empty(t, m.toasts)
}

func TestViewShowsClockAndHost(t *testing.T) {
	m := newTestModel(newFakeController(), nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})

	view := m.View()
	assert.Contains(t, view, "09:26")
	assert.Contains(t, view, "Saturday March 14")
	assert.Contains(t, view, "archbox")
	assert.Contains(t, view, "alice")
	assert.Contains(t, view, "Default")
}
