// Package tui is the full-screen greeter front-end.
//
// The model never blocks on greetd: on every tick and after every key press it
// drains the conversation's pending responses, then renders.
package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrConversationEnded is returned when the login conversation stops without starting a session
var ErrConversationEnded = errors.New("login conversation ended")

// Run starts the TUI main loop (blocking) until a session starts, the
// conversation ends or the user quits.
func Run(ctx context.Context, ctrl Controller, opts Options) error {
	program := tea.NewProgram(
		NewModel(ctrl, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	finalModel, err := program.Run()
	if err != nil {
		return fmt.Errorf("failed to run greeter: %w", err)
	}

	if m, ok := finalModel.(Model); ok && m.Ended() {
		return ErrConversationEnded
	}
	return nil
}
