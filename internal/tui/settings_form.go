package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/hay-kot/lobby/internal/core/config"
	"github.com/hay-kot/lobby/internal/core/validate"
	"github.com/hay-kot/lobby/internal/styles"
)

const maxResultsLimit = 100

// SettingsForm edits the player and search settings.
type SettingsForm struct {
	form       *huh.Form
	playerName string
	maxResults string
	hideFull   bool
}

// NewSettingsForm creates a form prefilled from cfg.
func NewSettingsForm(cfg *config.Config) *SettingsForm {
	f := &SettingsForm{
		playerName: cfg.Player.Name,
		maxResults: strconv.Itoa(cfg.Search.MaxResults),
		hideFull:   cfg.Search.HideFull,
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Player Name").
				Value(&f.playerName).
				Validate(validate.PlayerName),
			huh.NewInput().
				Title("Max Results").
				Description("Sessions fetched per search").
				Value(&f.maxResults).
				Validate(func(s string) error {
					_, err := parseMaxResults(s)
					return err
				}),
			huh.NewConfirm().
				Title("Hide Full Sessions").
				Value(&f.hideFull),
		),
	).WithTheme(styles.FormTheme()).WithShowHelp(false)

	return f
}

// Form returns the underlying huh.Form for tea.Model integration.
func (f *SettingsForm) Form() *huh.Form {
	return f.form
}

// SetForm stores the form returned by Update.
func (f *SettingsForm) SetForm(form *huh.Form) {
	f.form = form
}

// Completed reports whether the user submitted the form.
func (f *SettingsForm) Completed() bool {
	return f.form.State == huh.StateCompleted
}

// Apply writes the inputs into cfg.
func (f *SettingsForm) Apply(cfg *config.Config) {
	n, _ := parseMaxResults(f.maxResults)
	cfg.Player.Name = strings.TrimSpace(f.playerName)
	cfg.Search.MaxResults = n
	cfg.Search.HideFull = f.hideFull
}

// View renders the form.
func (f *SettingsForm) View() string {
	return f.form.View()
}

func parseMaxResults(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > maxResultsLimit {
		return 0, fmt.Errorf("must be between 1 and %d", maxResultsLimit)
	}
	return n, nil
}
