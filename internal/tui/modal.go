package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/hay-kot/lobby/internal/core/confirm"
)

// Modal renders the open confirmation of a confirm.Flow. The flow owns the
// lifecycle; Modal only tracks which button is highlighted.
type Modal struct {
	flow            *confirm.Flow
	confirmSelected bool // true = confirm button selected, false = cancel button selected
}

// NewModal creates a modal bound to flow.
func NewModal(flow *confirm.Flow) Modal {
	return Modal{
		flow:            flow,
		confirmSelected: true,
	}
}

// Open shows a new confirmation and resets the selection to Confirm. An
// already open confirmation is resolved as cancelled by the flow.
func (m *Modal) Open(title, message string, done func(confirm.Result)) {
	m.confirmSelected = true
	m.flow.Open(confirm.Prompt{Title: title, Message: message}, done)
}

// ToggleSelection switches the selected button.
func (m *Modal) ToggleSelection() {
	m.confirmSelected = !m.confirmSelected
}

// ConfirmSelected returns true if the confirm button is selected.
func (m Modal) ConfirmSelected() bool {
	return m.confirmSelected
}

// Submit resolves the confirmation with the selected button.
func (m *Modal) Submit() {
	if m.confirmSelected {
		m.flow.Confirm()
		return
	}
	m.flow.Cancel()
}

// Cancel resolves the confirmation as cancelled.
func (m *Modal) Cancel() {
	m.flow.Cancel()
}

// Visible returns whether the modal should be displayed.
func (m Modal) Visible() bool {
	return m.flow != nil && m.flow.IsOpen()
}

// Overlay renders the modal centered over the screen.
func (m Modal) Overlay(background string, width, height int) string {
	if !m.Visible() {
		return background
	}

	var confirmBtn, cancelBtn string
	if m.confirmSelected {
		confirmBtn = modalButtonSelectedStyle.Render("Confirm")
		cancelBtn = modalButtonStyle.Render("Cancel")
	} else {
		confirmBtn = modalButtonStyle.Render("Confirm")
		cancelBtn = modalButtonSelectedStyle.Render("Cancel")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Center, confirmBtn, "  ", cancelBtn)
	buttonRow := lipgloss.NewStyle().MarginTop(1).Render(buttons)

	prompt := m.flow.Prompt()
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		modalTitleStyle.Render(prompt.Title),
		"",
		prompt.Message,
		buttonRow,
		modalHelpStyle.Render("←/→ select  enter confirm  esc cancel"),
	)

	return overlay(modalStyle.Render(content), width, height)
}

// overlay centers a rendered box on a blank screen of the given size.
func overlay(box string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
