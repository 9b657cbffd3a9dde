package printer

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/stretchr/testify/assert"
)

func TestFatalError_ValidationBox(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	fieldErrs := criterio.NewFieldErrors("display_name", errors.New("name is required"))
	p.FatalError(fmt.Errorf("host session: %w", fieldErrs))

	out := buf.String()
	assert.Contains(t, out, "Validation Error")
	assert.Contains(t, out, "host session")
	assert.Contains(t, out, "display_name: name is required")
}

func TestFatalError_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.FatalError(errors.New("backend unreachable"))
	p.FatalError(nil)

	assert.Contains(t, buf.String(), "╭ Error")
	assert.Contains(t, buf.String(), "backend unreachable")
}

func TestSessions(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Sessions([]session.Record{
		{ID: "abc123", DisplayName: "Alpha Squad", MapName: "de_dust2", GameMode: "defuse", CurrentPlayers: 3, MaxPlayers: 10, PingMs: 42},
		{ID: "def456", DisplayName: "Locked", MapName: "cs_office", CurrentPlayers: 8, MaxPlayers: 8, PasswordProtected: true},
	})

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Alpha Squad")
	assert.Contains(t, out, "3/10")
	assert.Contains(t, out, "42ms")
	assert.Contains(t, out, "Locked "+Lock)
}

func TestSessions_Empty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Sessions(nil)

	assert.Contains(t, buf.String(), "no sessions found")
}

func TestCheckItems(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Section("Backend")
	p.CheckItem("reachable", "http://127.0.0.1:8080")
	p.WarnItem("stale sessions", "2 past ttl")
	p.FailItem("store", "")

	out := buf.String()
	assert.Contains(t, out, "Backend")
	assert.Contains(t, out, Check+" reachable http://127.0.0.1:8080")
	assert.Contains(t, out, Dot+" stale sessions 2 past ttl")
	assert.Contains(t, out, Cross+" store\n")
}
