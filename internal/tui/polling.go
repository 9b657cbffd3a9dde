package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hay-kot/lobby/internal/lobby"
)

// completionMsg carries a backend reply from the client's inbox into Update.
type completionMsg struct {
	completion lobby.Completion
}

// refreshTickMsg is sent to trigger an automatic search.
type refreshTickMsg struct{}

// waitForCompletion returns a command that blocks until the client's inbox
// yields a completion. Update re-issues it after every delivery.
func waitForCompletion(inbox <-chan lobby.Completion) tea.Cmd {
	return func() tea.Msg {
		comp, ok := <-inbox
		if !ok {
			return nil
		}
		return completionMsg{completion: comp}
	}
}

// scheduleRefresh returns a command that schedules the next automatic
// search, or nil when auto refresh is disabled.
func scheduleRefresh(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}
