package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hay-kot/lobby/internal/backend/memory"
	"github.com/hay-kot/lobby/internal/core/config"
	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	model   *Model
	backend *memory.Backend
	client  *lobby.Client
	cfg     *config.Config
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	backend := memory.New(zerolog.Nop(), memory.Options{})
	backend.SeedDemo()

	client := lobby.New(backend, zerolog.Nop(), lobby.Options{})
	t.Cleanup(client.Close)

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	opts.Log = zerolog.Nop()
	m := New(&cfg, client, opts)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	return &harness{model: m, backend: backend, client: client, cfg: &cfg}
}

// press sends key presses through Update.
func (h *harness) press(keys ...string) {
	for _, k := range keys {
		h.model.Update(keyMsg(k))
	}
}

// pump moves one completion from the client's inbox through Update.
func (h *harness) pump(t *testing.T) {
	t.Helper()
	select {
	case comp := <-h.client.Completions():
		h.model.Update(completionMsg{completion: comp})
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a completion")
	}
}

// search runs a search to completion.
func (h *harness) search(t *testing.T) {
	t.Helper()
	h.press("r")
	h.pump(t)
	require.Equal(t, lobby.SearchCompleted, h.model.browser.Search().Status)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func visibleNames(m *Model) []string {
	var names []string
	for _, r := range m.browser.Visible() {
		names = append(names, r.DisplayName)
	}
	return names
}

func TestModel_Search(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("r")
	assert.Equal(t, lobby.SearchSearching, h.model.browser.Search().Status)
	assert.Contains(t, h.model.View(), "searching")

	h.pump(t)

	assert.Equal(t, []string{"Alpha Squad", "Beta Testers", "Gamma Ray", "Late Night Casuals"}, visibleNames(h.model))
	assert.Equal(t, "found 4 sessions", h.model.status)
	assert.Contains(t, h.model.View(), "Alpha Squad")
}

func TestModel_SearchFailureClearsList(t *testing.T) {
	h := newHarness(t, Options{})
	h.search(t)

	h.backend.FailNext(session.KindFind, assert.AnError)
	h.press("r")
	h.pump(t)

	assert.Equal(t, lobby.SearchFailed, h.model.browser.Search().Status)
	assert.Empty(t, h.model.browser.Visible())
	assert.True(t, h.model.statusErr)
	assert.Contains(t, h.model.View(), "Search failed")
}

func TestModel_Filter(t *testing.T) {
	h := newHarness(t, Options{})
	h.search(t)

	h.press("/", "g", "a")
	assert.True(t, h.model.browser.IsFiltering())
	assert.Equal(t, []string{"Gamma Ray"}, visibleNames(h.model))
	assert.Equal(t, "ga", h.client.Search().FilterText)

	h.press("backspace")
	assert.Equal(t, []string{"Gamma Ray", "Late Night Casuals"}, visibleNames(h.model))

	h.press("enter")
	assert.False(t, h.model.browser.IsFiltering())
	assert.Equal(t, "g", h.model.browser.Filter(), "enter keeps the filter")

	h.press("/", "esc")
	assert.Len(t, visibleNames(h.model), 4)
	assert.Empty(t, h.client.Search().FilterText)
}

func TestModel_CancelSearch(t *testing.T) {
	h := newHarness(t, Options{})
	h.backend.Hold()

	h.press("r")
	require.True(t, h.client.Busy(session.KindFind))

	h.press("c")
	assert.False(t, h.client.Busy(session.KindFind))
	assert.Equal(t, lobby.SearchIdle, h.model.browser.Search().Status)
	assert.Equal(t, "search cancelled", h.model.status)

	// The cancelled reply is dropped when it arrives.
	h.backend.Release()
	comp := <-h.client.Completions()
	h.model.Update(completionMsg{completion: comp})
	assert.Empty(t, h.model.browser.Visible())
}

func TestModel_QuitConfirmation(t *testing.T) {
	h := newHarness(t, Options{})

	t.Run("esc keeps the menu open", func(t *testing.T) {
		h.press("q")
		require.True(t, h.model.modal.Visible())
		assert.Contains(t, h.model.View(), "Leave the lobby?")

		h.press("esc")
		assert.False(t, h.model.modal.Visible())
		assert.False(t, h.model.quitting)
	})

	t.Run("cancel button keeps the menu open", func(t *testing.T) {
		h.press("q", "right", "enter")
		assert.False(t, h.model.modal.Visible())
		assert.False(t, h.model.quitting)
	})

	t.Run("confirm quits", func(t *testing.T) {
		h.press("q", "enter")
		assert.True(t, h.model.quitting)
		assert.Empty(t, h.model.View())
	})
}

func TestModel_Join(t *testing.T) {
	h := newHarness(t, Options{})
	h.search(t)

	h.press("enter")
	require.True(t, h.model.modal.Visible())
	assert.Contains(t, h.model.View(), "Join Session")

	h.press("enter")
	assert.True(t, h.client.Busy(session.KindJoin))
	h.pump(t)

	joined := h.model.Joined()
	require.NotNil(t, joined)
	assert.Equal(t, "Alpha Squad", joined.Record.DisplayName)
	assert.True(t, strings.HasSuffix(joined.ConnectString, "/"+joined.Record.ID))
	assert.True(t, h.model.quitting)
}

func TestModel_JoinCancelled(t *testing.T) {
	h := newHarness(t, Options{})
	h.search(t)

	h.press("enter", "esc")
	assert.False(t, h.client.Busy(session.KindJoin))
	assert.Nil(t, h.model.Joined())
}

func TestModel_JoinFullSession(t *testing.T) {
	h := newHarness(t, Options{})
	h.search(t)

	h.press("down", "down")
	rec, ok := h.model.browser.Selected()
	require.True(t, ok)
	require.Equal(t, "Gamma Ray", rec.DisplayName)

	h.press("enter", "enter")
	h.pump(t)

	assert.Nil(t, h.model.Joined())
	assert.False(t, h.model.quitting)
	assert.True(t, h.model.statusErr)
	assert.Contains(t, h.model.status, "full")
}

func TestModel_JoinWithPassword(t *testing.T) {
	h := newHarness(t, Options{})
	h.backend.Seed(session.Config{
		DisplayName:         "Zeta Private",
		MapName:             "de_nuke",
		GameMode:            "defuse",
		MaxPlayers:          4,
		IsPublic:            true,
		IsPasswordProtected: true,
		Password:            "hunter2",
	})
	h.search(t)

	h.press("/")
	h.press("z", "e", "t", "a", "enter")
	require.Equal(t, []string{"Zeta Private"}, visibleNames(h.model))

	h.press("enter", "enter")
	require.Equal(t, statePassword, h.model.state)

	h.press("h", "u", "n", "t", "e", "r", "2", "enter")
	require.Equal(t, stateNormal, h.model.state)
	h.pump(t)

	require.NotNil(t, h.model.Joined())
	assert.Equal(t, "Zeta Private", h.model.Joined().Record.DisplayName)
}

func TestModel_DetailsModal(t *testing.T) {
	h := newHarness(t, Options{})
	h.search(t)

	h.press("i")
	require.Equal(t, stateDetails, h.model.state)
	assert.Equal(t, "Alpha Squad", h.model.details.Record().DisplayName)
	assert.Contains(t, h.model.View(), "Alpha Squad")

	h.press("esc")
	assert.Equal(t, stateNormal, h.model.state)

	h.press("i", "enter")
	assert.True(t, h.model.modal.Visible(), "enter in details asks to join")
}

func TestModel_HostDiscardConfirmation(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("tab")
	require.Equal(t, ViewHost, h.model.activeView)

	t.Run("clean form leaves without asking", func(t *testing.T) {
		h.press("esc")
		assert.Equal(t, ViewBrowse, h.model.activeView)
		assert.False(t, h.model.modal.Visible())
	})

	t.Run("dirty form asks before discarding", func(t *testing.T) {
		h.press("tab")
		h.model.hostForm.values.displayName = "Half Done"

		h.press("esc")
		require.True(t, h.model.modal.Visible())

		h.press("esc")
		assert.Equal(t, ViewHost, h.model.activeView)
		assert.Equal(t, "Half Done", h.model.hostForm.values.displayName)

		h.press("esc", "enter")
		assert.Equal(t, ViewBrowse, h.model.activeView)
		assert.False(t, h.model.hostForm.Dirty())
	})
}

func TestModel_HostSubmit(t *testing.T) {
	h := newHarness(t, Options{})

	form := NewHostForm()
	form.values.displayName = "Omega Night"
	h.model.hostForm = form
	h.model.activeView = ViewHost

	h.model.submitHost()
	assert.Equal(t, ViewBrowse, h.model.activeView)
	assert.True(t, h.client.Busy(session.KindCreate))

	h.pump(t) // create
	assert.Contains(t, h.model.status, "hosting Omega Night")

	h.pump(t) // search started after hosting
	assert.Contains(t, visibleNames(h.model), "Omega Night")
}

func TestModel_HostSubmitFailureRestoresInput(t *testing.T) {
	h := newHarness(t, Options{})
	h.backend.FailNext(session.KindCreate, assert.AnError)

	form := NewHostForm()
	form.values.displayName = "Doomed"
	h.model.hostForm = form

	h.model.submitHost()
	h.pump(t)

	assert.True(t, h.model.statusErr)
	assert.Contains(t, h.model.status, "host Doomed")
	assert.Equal(t, "Doomed", h.model.hostForm.values.displayName)
	assert.Equal(t, lobby.SearchIdle, h.model.browser.Search().Status, "browse state untouched")
}

func TestModel_HostSubmitRejectedConfig(t *testing.T) {
	h := newHarness(t, Options{})

	form := NewHostForm()
	form.values.displayName = "No Map"
	form.values.mapName = ""
	h.model.hostForm = form
	h.model.activeView = ViewHost

	h.model.submitHost()

	assert.False(t, h.client.Busy(session.KindCreate))
	assert.True(t, h.model.statusErr)
	assert.Contains(t, h.model.status, "invalid session config")
	assert.Equal(t, ViewHost, h.model.activeView)
	assert.Equal(t, "No Map", h.model.hostForm.values.displayName)
}

func TestModel_AutoRefreshDoesNotSupersede(t *testing.T) {
	h := newHarness(t, Options{})
	h.backend.Hold()

	h.press("r")
	gen := h.client.Search().Generation

	h.model.Update(refreshTickMsg{})
	assert.Equal(t, gen, h.client.Search().Generation)
	assert.False(t, h.model.statusErr)
}

func TestModel_SettingsSaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	h := newHarness(t, Options{ConfigPath: path})

	form := NewSettingsForm(h.cfg)
	form.playerName = "renamed"
	form.maxResults = "2"
	form.Apply(h.cfg)
	require.NoError(t, h.cfg.Save(path))

	loaded, err := config.Load(path, h.cfg.DataDir)
	require.NoError(t, err)
	assert.Equal(t, "renamed", loaded.Player.Name)
	assert.Equal(t, 2, loaded.Search.MaxResults)

	h.search(t)
	assert.Len(t, visibleNames(h.model), 2)
}
