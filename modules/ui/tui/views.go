package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tgreet/modules/platform/auth"
)

// View renders the greeter
func (m Model) View() string {
	if m.quitting || m.succeeded {
		return ""
	}

	sections := []string{}
	if m.ui.ShowClock {
		sections = append(sections, m.renderClock())
	}
	sections = append(sections, m.renderCard())
	if m.focus == focusSessions {
		sections = append(sections, m.renderSelector())
	}
	if toasts := m.renderToasts(); toasts != "" {
		sections = append(sections, toasts)
	}
	body := lipgloss.JoinVertical(lipgloss.Center, sections...)

	header := m.renderHeader()
	footer := m.renderFooter()

	if m.width == 0 || m.height == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	}

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, body),
		footer,
	)
}

func (m Model) renderHeader() string {
	if m.opts.Host == nil || !m.ui.ShowHost {
		return ""
	}
	return HeaderStyle.Render(m.opts.Host.Get().Summary())
}

func (m Model) renderClock() string {
	return lipgloss.JoinVertical(lipgloss.Center,
		DateStyle.Render(m.now.Format(m.ui.DateFormat)),
		TimeStyle.Render(m.now.Format(m.ui.TimeFormat)),
	)
}

func (m Model) renderCard() string {
	var b strings.Builder

	b.WriteString(UserStyle.Render(m.opts.User))
	b.WriteString("\n\n")

	switch {
	case !m.awaiting:
		b.WriteString(m.spinner.View() + " " + HintStyle.Render("waiting for greetd"))
	case m.inputKind == auth.InputNone:
		b.WriteString(PromptStyle.Render(m.prompt))
		b.WriteString("\n")
		b.WriteString(HintStyle.Render("press enter to continue"))
	default:
		b.WriteString(PromptStyle.Render(m.prompt))
		b.WriteString("\n")
		b.WriteString(m.input.View())
	}

	b.WriteString("\n\n")
	b.WriteString(SessionLabelStyle.Render("session "))
	b.WriteString(SessionNameStyle.Render(m.selected.Name))

	return CardStyle.Render(b.String())
}

func (m Model) renderSelector() string {
	lines := []string{m.filter.View()}
	for i, s := range m.matches {
		style := SelectorItemStyle
		if i == m.cursor {
			style = SelectorItemActiveStyle
		}
		lines = append(lines, style.Render(s.Name))
	}
	if len(m.matches) == 0 {
		lines = append(lines, HintStyle.Render("no matching session"))
	}
	return SelectorStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		style := ToastInfoStyle
		if t.isError {
			style = ToastErrorStyle
		}
		lines = append(lines, style.Render(t.text))
	}
	return lipgloss.NewStyle().MarginTop(1).Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	var parts []string
	if m.opts.Power != nil && m.ui.ShowPower {
		parts = append(parts,
			PowerKeyStyle.Render("F1")+" "+PowerLabelStyle.Render("reboot"),
			PowerKeyStyle.Render("F2")+" "+PowerLabelStyle.Render("power off"),
		)
	}
	parts = append(parts, m.help.View(m.keys))
	return HelpStyle.Render(strings.Join(parts, "   "))
}
