package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/core/validate"
	"github.com/hay-kot/lobby/internal/styles"
)

// GameModes offered by the host form.
var GameModes = []string{"defuse", "hostage", "deathmatch", "arms_race"}

// hostValues holds the raw form inputs.
type hostValues struct {
	displayName string
	mapName     string
	gameMode    string
	maxPlayers  string
	public      bool
	password    string
}

func defaultHostValues() hostValues {
	return hostValues{
		mapName:    "de_dust2",
		gameMode:   GameModes[0],
		maxPlayers: "10",
		public:     true,
	}
}

// HostForm wraps a huh.Form for hosting a new session.
type HostForm struct {
	form   *huh.Form
	values *hostValues
}

// NewHostForm creates an empty host form.
func NewHostForm() *HostForm {
	return newHostForm(defaultHostValues())
}

// newHostForm builds a form prefilled with v. It is used to restore the
// user's input after a rejected submit.
func newHostForm(v hostValues) *HostForm {
	f := &HostForm{values: &v}

	modes := huh.NewOptions(GameModes...)

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Session Name").
				Value(&f.values.displayName).
				Validate(validate.DisplayName),
			huh.NewInput().
				Title("Map").
				Value(&f.values.mapName).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("map is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Game Mode").
				Options(modes...).
				Value(&f.values.gameMode),
			huh.NewInput().
				Title("Max Players").
				Value(&f.values.maxPlayers).
				Validate(func(s string) error {
					_, err := parseMaxPlayers(s)
					return err
				}),
			huh.NewConfirm().
				Title("Public").
				Description("List the session in searches").
				Value(&f.values.public),
			huh.NewInput().
				Title("Password").
				Description("Leave empty for an open session").
				EchoMode(huh.EchoModePassword).
				Value(&f.values.password),
		),
	).WithTheme(styles.FormTheme()).WithShowHelp(false)

	return f
}

// Form returns the underlying huh.Form for tea.Model integration.
func (f *HostForm) Form() *huh.Form {
	return f.form
}

// SetForm stores the form returned by Update.
func (f *HostForm) SetForm(form *huh.Form) {
	f.form = form
}

// Completed reports whether the user submitted the form.
func (f *HostForm) Completed() bool {
	return f.form.State == huh.StateCompleted
}

// Dirty reports whether any input differs from the defaults.
func (f *HostForm) Dirty() bool {
	return *f.values != defaultHostValues()
}

// Retry returns a fresh form holding the same inputs.
func (f *HostForm) Retry() *HostForm {
	return newHostForm(*f.values)
}

// Config converts the inputs to a session config. Only valid once the form's
// validators passed.
func (f *HostForm) Config() session.Config {
	maxPlayers, _ := parseMaxPlayers(f.values.maxPlayers)
	return session.Config{
		DisplayName:         strings.TrimSpace(f.values.displayName),
		MapName:             strings.TrimSpace(f.values.mapName),
		GameMode:            f.values.gameMode,
		MaxPlayers:          maxPlayers,
		IsPublic:            f.values.public,
		IsPasswordProtected: f.values.password != "",
		Password:            f.values.password,
	}
}

// View renders the form.
func (f *HostForm) View() string {
	return f.form.View()
}

func parseMaxPlayers(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("max players must be a number")
	}
	if err := validate.MaxPlayers(uint(n)); err != nil {
		return 0, err
	}
	return uint(n), nil
}
