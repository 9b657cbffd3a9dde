package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/lobby"
)

// BrowserView renders one search generation as a compact table:
//
//	name [lock]          map          mode        players  ping
//
// It never filters on its own; the visible rows are whatever the search
// snapshot's Visible yields for its filter text.
type BrowserView struct {
	search     lobby.SearchState
	visible    []session.Record
	cursor     int
	width      int
	height     int
	offset     int    // scroll offset for viewport
	selectedID string // kept while the list is empty so a refresh can restore it
	filtering  bool
	filter     string
}

// NewBrowserView creates an empty browser.
func NewBrowserView() *BrowserView {
	return &BrowserView{}
}

// SetSearch replaces the displayed snapshot. The cursor follows the selected
// session by ID across refreshes, including through the empty searching
// state. When that session is gone a new generation starts at the top and
// the same generation clamps the row index.
func (v *BrowserView) SetSearch(s lobby.SearchState) {
	if rec, ok := v.Selected(); ok {
		v.selectedID = rec.ID
	}
	newGeneration := s.Generation != v.search.Generation

	v.search = s
	v.visible = slices.Collect(s.Visible())

	idx := slices.IndexFunc(v.visible, func(r session.Record) bool { return r.ID == v.selectedID })
	switch {
	case idx >= 0:
		v.cursor = idx
	case len(v.visible) == 0:
		v.cursor = 0
	case newGeneration:
		v.cursor = 0
		v.offset = 0
	case v.cursor >= len(v.visible):
		v.cursor = len(v.visible) - 1
	}
	v.clampOffset()
}

// Search returns the displayed snapshot.
func (v *BrowserView) Search() lobby.SearchState {
	return v.search
}

// Visible returns the rows currently displayed.
func (v *BrowserView) Visible() []session.Record {
	return v.visible
}

// SetSize sets the viewport dimensions.
func (v *BrowserView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.clampOffset()
}

// visibleLines returns the number of row lines that fit.
func (v *BrowserView) visibleLines() int {
	// column header (1)
	reserved := 1
	if v.filtering || v.filter != "" {
		reserved++
	}
	return max(v.height-reserved, 1)
}

// clampOffset ensures the offset keeps the cursor visible.
func (v *BrowserView) clampOffset() {
	visible := v.visibleLines()

	if v.cursor < v.offset {
		v.offset = v.cursor
	} else if v.cursor >= v.offset+visible {
		v.offset = v.cursor - visible + 1
	}

	maxOffset := max(len(v.visible)-visible, 0)
	v.offset = min(max(v.offset, 0), maxOffset)
}

// MoveUp moves cursor up.
func (v *BrowserView) MoveUp() {
	if v.cursor > 0 {
		v.cursor--
		v.clampOffset()
	}
}

// MoveDown moves cursor down.
func (v *BrowserView) MoveDown() {
	if v.cursor < len(v.visible)-1 {
		v.cursor++
		v.clampOffset()
	}
}

// Selected returns the record under the cursor.
func (v *BrowserView) Selected() (session.Record, bool) {
	if v.cursor >= len(v.visible) {
		return session.Record{}, false
	}
	return v.visible[v.cursor], true
}

// StartFilter begins filter input mode.
func (v *BrowserView) StartFilter() {
	v.filtering = true
}

// ConfirmFilter keeps the filter and exits filter mode.
func (v *BrowserView) ConfirmFilter() {
	v.filtering = false
}

// CancelFilter exits filter mode and clears the filter.
func (v *BrowserView) CancelFilter() {
	v.filtering = false
	v.filter = ""
}

// IsFiltering returns true if filter input is active.
func (v *BrowserView) IsFiltering() bool {
	return v.filtering
}

// Filter returns the filter text being edited.
func (v *BrowserView) Filter() string {
	return v.filter
}

// AddFilterRunes appends typed text to the filter.
func (v *BrowserView) AddFilterRunes(runes []rune) {
	v.filter += string(runes)
}

// DeleteFilterRune removes the last rune from the filter.
func (v *BrowserView) DeleteFilterRune() {
	if r := []rune(v.filter); len(r) > 0 {
		v.filter = string(r[:len(r)-1])
	}
}

// View renders the browser.
func (v *BrowserView) View() string {
	var b strings.Builder

	mapWidth := 14
	modeWidth := 12
	playersWidth := 7
	pingWidth := 6
	nameWidth := max(v.width-mapWidth-modeWidth-playersWidth-pingWidth-8, 16)

	if v.filtering {
		b.WriteString(" ")
		b.WriteString(selectedStyle.Render("Filter: "))
		b.WriteString(v.filter)
		b.WriteString("▎\n")
	} else if v.filter != "" {
		b.WriteString(" ")
		b.WriteString(subtleStyle.Render("Filter: " + v.filter))
		b.WriteString("\n")
	}

	header := fmt.Sprintf("%-*s %-*s %-*s %*s %*s",
		nameWidth, "Name", mapWidth, "Map", modeWidth, "Mode", playersWidth, "Players", pingWidth, "Ping")
	b.WriteString("  ")
	b.WriteString(subtleStyle.Render(header))
	b.WriteString("\n")

	if len(v.visible) == 0 {
		b.WriteString(subtleStyle.Render("  " + v.emptyMessage()))
		return b.String()
	}

	end := min(v.offset+v.visibleLines(), len(v.visible))
	for i := v.offset; i < end; i++ {
		b.WriteString(v.renderRow(v.visible[i], i == v.cursor, nameWidth, mapWidth, modeWidth, playersWidth, pingWidth))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (v *BrowserView) emptyMessage() string {
	switch v.search.Status {
	case lobby.SearchIdle:
		return "No search yet, press r to search"
	case lobby.SearchSearching:
		return "Searching..."
	case lobby.SearchFailed:
		return "Search failed, press r to retry"
	}
	if len(v.search.Results) > 0 {
		return "No matching sessions"
	}
	return "No sessions found"
}

func (v *BrowserView) renderRow(r session.Record, selected bool, nameW, mapW, modeW, playersW, pingW int) string {
	var b strings.Builder

	if selected {
		b.WriteString(selectedBorderStyle.Render("┃"))
		b.WriteString(" ")
	} else {
		b.WriteString("  ")
	}

	style := normalStyle
	switch {
	case r.IsFull():
		style = fullStyle
	case selected:
		style = selectedStyle
	}

	name := r.DisplayName
	if r.PasswordProtected {
		name += " " + iconLock
	}

	b.WriteString(style.Render(padRight(name, nameW)))
	b.WriteString(" ")
	b.WriteString(style.Render(padRight(r.MapName, mapW)))
	b.WriteString(" ")
	b.WriteString(style.Render(padRight(r.GameMode, modeW)))
	b.WriteString(" ")
	b.WriteString(style.Render(fmt.Sprintf("%*s", playersW, r.Slots())))
	b.WriteString(" ")
	b.WriteString(pingStyle(r.PingMs).Render(fmt.Sprintf("%*s", pingW, fmt.Sprintf("%dms", r.PingMs))))

	return b.String()
}

// padRight truncates or pads s to exactly width cells.
func padRight(s string, width int) string {
	if lipgloss.Width(s) > width {
		runes := []rune(s)
		for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
			runes = runes[:len(runes)-1]
		}
		s = string(runes) + "…"
	}
	return s + strings.Repeat(" ", max(width-lipgloss.Width(s), 0))
}

func pingStyle(ms uint) lipgloss.Style {
	switch {
	case ms < 60:
		return pingGoodStyle
	case ms < 120:
		return pingFairStyle
	default:
		return pingBadStyle
	}
}
