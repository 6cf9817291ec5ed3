package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tgreet/modules/platform/auth"
	"tgreet/modules/platform/config"
	"tgreet/modules/platform/logger"
	"tgreet/modules/platform/sessions"
	"tgreet/modules/platform/system"
)

// ToastDuration is how long a message or error stays on screen
const ToastDuration = 5 * time.Second

// Controller is the greeter's view of a running login conversation
type Controller interface {
	SendCommand(cmd auth.Command) error
	TryResponse() (auth.Response, bool)
	Done() <-chan struct{}
}

// PowerController performs power actions
type PowerController interface {
	Reboot() error
	PowerOff() error
}

// HostSource provides host facts for the header
type HostSource interface {
	Get() system.HostInfo
}

// Options configures the greeter model
type Options struct {
	User     string
	Sessions []sessions.Session // The first one is selected initially
	UI       *config.UIConfig
	Power    PowerController // nil hides power actions
	Host     HostSource      // nil hides the host header
}

type focusArea int

const (
	focusInput focusArea = iota
	focusSessions
)

type toast struct {
	text    string
	isError bool
	expires time.Time
}

// tickMsg drives response polling and redraws
type tickMsg time.Time

// Model is the main TUI model
type Model struct {
	ctrl Controller
	opts Options
	ui   *config.UIConfig

	keys    KeyMap
	help    help.Model
	input   textinput.Model
	filter  textinput.Model
	spinner spinner.Model

	// Conversation
	prompt    string
	inputKind auth.InputKind
	awaiting  bool // a GetInput is outstanding

	// Sessions
	sessions []sessions.Session
	matches  []sessions.Session
	cursor   int
	selected sessions.Session

	focus  focusArea
	toasts []toast

	width  int
	height int
	now    time.Time

	succeeded bool
	ended     bool // worker exited without starting a session
	quitting  bool
}

// NewModel creates a new greeter model
func NewModel(ctrl Controller, opts Options) Model {
	ui := opts.UI
	if ui == nil {
		ui = config.DefaultUIConfig()
	}

	input := textinput.New()
	input.Prompt = "› "
	input.EchoCharacter = '•'
	input.Width = CardWidth - 4
	input.Blur()

	filter := textinput.New()
	filter.Prompt = "session: "
	filter.Placeholder = "type to filter"
	filter.Width = CardWidth - 12

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = HintStyle

	m := Model{
		ctrl:     ctrl,
		opts:     opts,
		ui:       ui,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		input:    input,
		filter:   filter,
		spinner:  sp,
		sessions: opts.Sessions,
		now:      time.Now(),
	}
	if len(m.sessions) > 0 {
		m.selected = m.sessions[0]
	}
	m.matches = sessions.Filter(m.sessions, "", SelectorLines)

	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.spinner.Tick,
	)
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.ui.RefreshInterval(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		m.expireToasts()
		if m.drain() {
			return m, tea.Quit
		}
		return m, m.tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		if m.quitting || m.drain() {
			return m, tea.Quit
		}
		return m, cmd
	}

	return m, nil
}

// drain handles every pending response. It returns true when the program should end.
func (m *Model) drain() bool {
	for {
		resp, ok := m.ctrl.TryResponse()
		if !ok {
			break
		}
		m.handleResponse(resp)
	}
	if m.succeeded {
		return true
	}

	select {
	case <-m.ctrl.Done():
		// the worker may have queued its last responses before exiting
		for {
			resp, ok := m.ctrl.TryResponse()
			if !ok {
				break
			}
			m.handleResponse(resp)
		}
		if !m.succeeded {
			logger.Warn("greeter: conversation ended without a session")
			m.ended = true
		}
		return true
	default:
		return false
	}
}

func (m *Model) handleResponse(resp auth.Response) {
	switch resp.Kind {
	case auth.ResponseSuccess:
		m.succeeded = true

	case auth.ResponseError:
		m.addToast(resp.Text, true)
		m.awaiting = false

	case auth.ResponseMessage:
		m.prompt = resp.Text
		m.addToast(resp.Text, false)

	case auth.ResponseGetInput:
		m.awaiting = true
		m.inputKind = resp.Input
		m.input.Reset()
		switch resp.Input {
		case auth.InputPassword:
			m.input.EchoMode = textinput.EchoPassword
		default:
			m.input.EchoMode = textinput.EchoNormal
		}
		if m.focus == focusInput && resp.Input != auth.InputNone {
			m.input.Focus()
		}

	case auth.ResponseGetSession:
		m.awaiting = false
		m.send(auth.Session(m.selected.Command))
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return nil

	case key.Matches(msg, m.keys.Reboot):
		m.power(func(p PowerController) error { return p.Reboot() })
		return nil

	case key.Matches(msg, m.keys.PowerOff):
		m.power(func(p PowerController) error { return p.PowerOff() })
		return nil

	case key.Matches(msg, m.keys.Focus):
		m.toggleFocus()
		return nil
	}

	if m.focus == focusSessions {
		return m.handleSelectorKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Submit):
		if !m.awaiting {
			return nil
		}
		m.awaiting = false
		if m.inputKind == auth.InputNone {
			m.send(auth.Next())
		} else {
			m.send(auth.Entered(m.input.Value()))
		}
		m.input.Reset()
		m.input.Blur()
		return nil

	case key.Matches(msg, m.keys.Cancel):
		m.input.Reset()
		return nil
	}

	if !m.awaiting || m.inputKind == auth.InputNone {
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) handleSelectorKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Submit):
		if m.cursor < len(m.matches) {
			m.selected = m.matches[m.cursor]
		}
		m.toggleFocus()
		return nil

	case key.Matches(msg, m.keys.Cancel):
		m.toggleFocus()
		return nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.matches)-1 {
			m.cursor++
		}
		return nil
	}

	var cmd tea.Cmd
	before := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.refilter()
	}
	return cmd
}

func (m *Model) refilter() {
	m.matches = sessions.Filter(m.sessions, m.filter.Value(), SelectorLines)
	m.cursor = 0
	if len(m.matches) == 1 {
		m.selected = m.matches[0]
	}
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusSessions
		m.input.Blur()
		m.filter.Focus()
		return
	}
	m.focus = focusInput
	m.filter.Blur()
	if m.awaiting && m.inputKind != auth.InputNone {
		m.input.Focus()
	}
}

// send delivers one command; a failure means the worker is gone and drain will notice
func (m *Model) send(cmd auth.Command) {
	if err := m.ctrl.SendCommand(cmd); err != nil && !errors.Is(err, auth.ErrWorkerExited) {
		m.addToast(err.Error(), true)
	}
}

func (m *Model) power(action func(PowerController) error) {
	if m.opts.Power == nil || !m.ui.ShowPower {
		return
	}
	if err := action(m.opts.Power); err != nil {
		m.addToast(err.Error(), true)
	}
}

func (m *Model) addToast(text string, isError bool) {
	if text == "" {
		return
	}
	m.toasts = append(m.toasts, toast{
		text:    text,
		isError: isError,
		expires: m.now.Add(ToastDuration),
	})
}

func (m *Model) expireToasts() {
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if m.now.Before(t.expires) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

// Succeeded returns true once the session was started
func (m Model) Succeeded() bool {
	return m.succeeded
}

// Ended returns true when the conversation stopped without a session
func (m Model) Ended() bool {
	return m.ended
}
