// Package tui implements the Bubble Tea menu for lobby.
package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/hay-kot/lobby/internal/styles"
)

var (
	colorGreen  = styles.ColorGreen
	colorYellow = styles.ColorYellow
	colorBlue   = styles.ColorBlue
	colorGray   = styles.ColorGray
	colorWhite  = styles.ColorWhite
	colorRed    = styles.ColorRed
)

// Styles used for rendering the menu.
var (
	// Selected row style (matches border color).
	selectedStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	// Normal row style (no color, uses terminal default).
	normalStyle = lipgloss.NewStyle()

	// Full sessions are dimmed; they cannot be joined.
	fullStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	// Column headers and subtle text.
	subtleStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	// Left accent bar for the selected row.
	selectedBorderStyle = lipgloss.NewStyle().
				Foreground(colorBlue)

	pingGoodStyle = lipgloss.NewStyle().Foreground(colorGreen)
	pingFairStyle = lipgloss.NewStyle().Foreground(colorYellow)
	pingBadStyle  = lipgloss.NewStyle().Foreground(colorRed)

	statusOKStyle  = lipgloss.NewStyle().Foreground(colorGreen).PaddingLeft(1)
	statusErrStyle = lipgloss.NewStyle().Foreground(colorRed).PaddingLeft(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			PaddingLeft(1)

	// Tab bar.
	viewSelectedStyle = lipgloss.NewStyle().
				Foreground(colorBlue).
				Bold(true)
	viewNormalStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)

// Icons and symbols.
const (
	iconDot  = "•"
	iconLock = "🔒"
)

// banner is the ASCII art header.
const banner = styles.Banner

// bannerStyle styles the ASCII art banner.
var bannerStyle = styles.BannerStyle.
	PaddingLeft(1).
	PaddingBottom(1)

// Modal styles.
var (
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Padding(1, 2)

	modalTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	modalHelpStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			MarginTop(1)

	modalButtonStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(lipgloss.Color("#3b4261")).
				Foreground(lipgloss.Color("#a9b1d6"))

	modalButtonSelectedStyle = lipgloss.NewStyle().
					Padding(0, 1).
					Background(colorBlue).
					Foreground(styles.ColorNight).
					Bold(true)

	// Spinner style.
	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorBlue)
)
