package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Layout constants
const (
	CardWidth     = 44 // Login card inner width
	SelectorLines = 10 // Visible session matches
)

// Color palette
var (
	ColorPrimary = lipgloss.Color("#8BD5CA") // Teal
	ColorAccent  = lipgloss.Color("#F5BDE6") // Pink
	ColorError   = lipgloss.Color("#ED8796") // Red
	ColorMuted   = lipgloss.Color("#6E738D") // Gray
	ColorText    = lipgloss.Color("#CAD3F5") // Light
	ColorBg      = lipgloss.Color("#24273A") // Dark
	ColorBgAlt   = lipgloss.Color("#363A4F") // Dark alt
	ColorBorder  = lipgloss.Color("#494D64") // Gray border
)

var (
	// Header
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)

	// Clock
	DateStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary)

	TimeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	// Login card
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2).
			Width(CardWidth)

	UserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	PromptStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	HintStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)

	SessionLabelStyle = lipgloss.NewStyle().
				Foreground(ColorMuted)

	SessionNameStyle = lipgloss.NewStyle().
				Foreground(ColorAccent)

	// Session selector
	SelectorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(0, 1).
			Width(CardWidth)

	SelectorItemStyle = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Padding(0, 1)

	SelectorItemActiveStyle = lipgloss.NewStyle().
				Background(ColorBgAlt).
				Foreground(ColorAccent).
				Bold(true).
				Padding(0, 1)

	// Toasts
	ToastInfoStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorPrimary).
			PaddingLeft(1)

	ToastErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorError).
			PaddingLeft(1)

	// Power panel
	PowerKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	PowerLabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Footer
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)
)
