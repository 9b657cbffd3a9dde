package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/hay-kot/lobby/internal/core/session"
)

// Details modal layout constants.
const (
	detailsModalMaxWidth  = 72 // maximum modal width in columns
	detailsModalMaxHeight = 24 // maximum modal height in rows
	detailsModalMargin    = 4  // margin from screen edges
	detailsModalChrome    = 6  // rows for title, help, and spacing
	detailsModalPadding   = 4  // padding inside content area
	glamourGutter         = 2  // glamour adds gutter space
)

// DetailsModal shows one session rendered as markdown.
type DetailsModal struct {
	record   session.Record
	viewport viewport.Model
}

// NewDetailsModal creates a details modal sized for the screen.
func NewDetailsModal(r session.Record, width, height int) DetailsModal {
	modalWidth := min(width-detailsModalMargin, detailsModalMaxWidth)
	modalHeight := min(height-detailsModalMargin, detailsModalMaxHeight)
	contentHeight := max(modalHeight-detailsModalChrome, 1)

	vp := viewport.New(modalWidth-detailsModalPadding, contentHeight)
	vp.Style = lipgloss.NewStyle()

	m := DetailsModal{record: r, viewport: vp}
	m.viewport.SetContent(renderMarkdown(sessionMarkdown(r), modalWidth-detailsModalPadding-glamourGutter))

	return m
}

// Record returns the session shown.
func (m DetailsModal) Record() session.Record {
	return m.record
}

// ScrollUp scrolls the viewport up.
func (m *DetailsModal) ScrollUp() {
	m.viewport.ScrollUp(1)
}

// ScrollDown scrolls the viewport down.
func (m *DetailsModal) ScrollDown() {
	m.viewport.ScrollDown(1)
}

// Overlay renders the modal centered over the screen.
func (m DetailsModal) Overlay(width, height int) string {
	modalWidth := min(width-detailsModalMargin, detailsModalMaxWidth)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		modalTitleStyle.Render(m.record.DisplayName),
		m.viewport.View(),
		modalHelpStyle.Render("[↑/↓/j/k] scroll  [enter] join  [esc/i] close"),
	)

	return overlay(modalStyle.Width(modalWidth).Render(content), width, height)
}

// sessionMarkdown describes a session as a markdown document.
func sessionMarkdown(r session.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.DisplayName)
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Map | `%s` |\n", r.MapName)
	fmt.Fprintf(&b, "| Mode | %s |\n", r.GameMode)
	fmt.Fprintf(&b, "| Players | %s |\n", r.Slots())
	fmt.Fprintf(&b, "| Ping | %dms |\n", r.PingMs)
	fmt.Fprintf(&b, "| ID | `%s` |\n\n", r.ID)

	switch {
	case r.IsFull():
		b.WriteString("> This session is **full**.\n")
	case r.PasswordProtected:
		b.WriteString("> A **password** is required to join.\n")
	default:
		b.WriteString("> Open for players.\n")
	}

	return b.String()
}

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string, width int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("tokyo-night"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}

	rendered, err := renderer.Render(md)
	if err != nil {
		return md
	}

	content := strings.TrimSpace(rendered)
	content = stripLeadingDecorative(content)
	return stripTrailingDecorative(content)
}

// ansiPattern matches ANSI escape sequences.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// isDecorativeLine checks if a line contains only horizontal rule characters
// or spaces after stripping ANSI codes.
func isDecorativeLine(line string) bool {
	stripped := strings.TrimSpace(ansiPattern.ReplaceAllString(line, ""))
	for _, r := range stripped {
		if r != '─' && r != '━' && r != '-' && r != '=' {
			return false
		}
	}
	return true
}

// stripLeadingDecorative removes leading decorative lines from content.
func stripLeadingDecorative(content string) string {
	lines := strings.Split(content, "\n")
	start := 0
	for start < len(lines) && isDecorativeLine(lines[start]) {
		start++
	}
	return strings.Join(lines[start:], "\n")
}

// stripTrailingDecorative removes trailing decorative lines from content.
func stripTrailingDecorative(content string) string {
	lines := strings.Split(content, "\n")
	end := len(lines)
	for end > 0 && isDecorativeLine(lines[end-1]) {
		end--
	}
	return strings.Join(lines[:end], "\n")
}
