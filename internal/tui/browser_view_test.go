package tui

import (
	"testing"

	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func browserState(gen uint64, filter string, names ...string) lobby.SearchState {
	records := make([]session.Record, len(names))
	for i, n := range names {
		records[i] = session.Record{
			ID:             n,
			DisplayName:    n,
			MapName:        "de_dust2",
			GameMode:       "defuse",
			CurrentPlayers: 1,
			MaxPlayers:     10,
			Generation:     gen,
		}
	}
	return lobby.SearchState{
		Status:     lobby.SearchCompleted,
		Generation: gen,
		Results:    records,
		FilterText: filter,
	}
}

func TestBrowserView(t *testing.T) {
	t.Run("cursor movement is bounded", func(t *testing.T) {
		v := NewBrowserView()
		v.SetSize(100, 20)
		v.SetSearch(browserState(1, "", "Alpha", "Beta", "Gamma"))

		v.MoveUp()
		rec, ok := v.Selected()
		require.True(t, ok)
		assert.Equal(t, "Alpha", rec.DisplayName)

		v.MoveDown()
		v.MoveDown()
		v.MoveDown()
		rec, _ = v.Selected()
		assert.Equal(t, "Gamma", rec.DisplayName)
	})

	t.Run("shows the filtered rows in order", func(t *testing.T) {
		v := NewBrowserView()
		v.SetSize(100, 20)
		v.SetSearch(browserState(1, "a", "Alpha", "Bravo", "Echo", "Delta"))

		var names []string
		for _, r := range v.Visible() {
			names = append(names, r.DisplayName)
		}
		assert.Equal(t, []string{"Alpha", "Bravo", "Delta"}, names)
	})

	t.Run("new generation resets the cursor", func(t *testing.T) {
		v := NewBrowserView()
		v.SetSize(100, 20)
		v.SetSearch(browserState(1, "", "Alpha", "Beta"))
		v.MoveDown()

		v.SetSearch(browserState(2, "", "Gamma", "Delta"))
		rec, _ := v.Selected()
		assert.Equal(t, "Gamma", rec.DisplayName)
	})

	t.Run("refresh keeps the selected session", func(t *testing.T) {
		v := NewBrowserView()
		v.SetSize(100, 20)
		v.SetSearch(browserState(1, "", "Alpha", "Beta", "Gamma"))
		v.MoveDown()

		v.SetSearch(lobby.SearchState{Status: lobby.SearchSearching, Generation: 2})
		_, ok := v.Selected()
		assert.False(t, ok)

		v.SetSearch(browserState(2, "", "Delta", "Gamma", "Beta"))
		rec, ok := v.Selected()
		require.True(t, ok)
		assert.Equal(t, "Beta", rec.DisplayName)
	})

	t.Run("same generation clamps the cursor", func(t *testing.T) {
		v := NewBrowserView()
		v.SetSize(100, 20)
		v.SetSearch(browserState(1, "", "Alpha", "Beta", "Gamma"))
		v.MoveDown()
		v.MoveDown()

		v.SetSearch(browserState(1, "alpha", "Alpha", "Beta", "Gamma"))
		rec, ok := v.Selected()
		require.True(t, ok)
		assert.Equal(t, "Alpha", rec.DisplayName)
	})

	t.Run("nothing selected when empty", func(t *testing.T) {
		v := NewBrowserView()
		_, ok := v.Selected()
		assert.False(t, ok)
		assert.Contains(t, v.View(), "No search yet")
	})

	t.Run("empty message distinguishes filter misses", func(t *testing.T) {
		v := NewBrowserView()
		v.SetSize(100, 20)
		v.SetSearch(browserState(1, "zzz", "Alpha"))
		assert.Contains(t, v.View(), "No matching sessions")

		v.SetSearch(browserState(2, ""))
		assert.Contains(t, v.View(), "No sessions found")
	})

	t.Run("filter editing", func(t *testing.T) {
		v := NewBrowserView()
		v.StartFilter()
		v.AddFilterRunes([]rune("dé"))
		v.DeleteFilterRune()
		assert.Equal(t, "d", v.Filter())
		assert.Contains(t, v.View(), "Filter: d")

		v.ConfirmFilter()
		assert.False(t, v.IsFiltering())
		assert.Equal(t, "d", v.Filter())

		v.CancelFilter()
		assert.Empty(t, v.Filter())
	})

	t.Run("marks protected sessions", func(t *testing.T) {
		v := NewBrowserView()
		v.SetSize(120, 20)
		s := browserState(1, "", "Vault")
		s.Results[0].PasswordProtected = true
		v.SetSearch(s)

		assert.Contains(t, v.View(), "Vault "+iconLock)
		assert.Contains(t, v.View(), "1/10")
	})
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "abc  ", padRight("abc", 5))
	assert.Equal(t, "abcd…", padRight("abcdefgh", 5))
}
