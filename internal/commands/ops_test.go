package commands

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/lobby/internal/backend/memory"
	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/lobby"
)

func TestMatchSession(t *testing.T) {
	records := []session.Record{
		{ID: "abc123", DisplayName: "Alpha Squad"},
		{ID: "def456", DisplayName: "Twins"},
		{ID: "ghi789", DisplayName: "twins"},
		{ID: "Alpha Squad", DisplayName: "Impostor"},
	}

	tests := []struct {
		name    string
		target  string
		wantID  string
		wantErr string
	}{
		{name: "by id", target: "def456", wantID: "def456"},
		{name: "id wins over name", target: "Alpha Squad", wantID: "Alpha Squad"},
		{name: "name ignores case", target: "ALPHA squad", wantID: "abc123"},
		{name: "trims input", target: "  abc123 ", wantID: "abc123"},
		{name: "ambiguous name", target: "TWINS", wantErr: "def456, ghi789"},
		{name: "no match", target: "nobody", wantErr: "session not found"},
		{name: "empty", target: " ", wantErr: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matchSession(records, tt.target)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func newTestClient(t *testing.T) (*lobby.Client, *memory.Backend) {
	t.Helper()

	backend := memory.New(zerolog.Nop(), memory.Options{HostAddr: "10.0.0.1:27015"})
	client := lobby.New(backend, zerolog.Nop(), lobby.Options{
		Timeouts: lobby.Timeouts{Create: time.Second, Find: time.Second, Join: time.Second},
	})
	t.Cleanup(client.Close)

	return client, backend
}

func TestHostFindJoin(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	id, err := hostSession(ctx, client, session.Config{
		DisplayName: "Night Owls",
		MapName:     "de_nuke",
		GameMode:    "defuse",
		MaxPlayers:  4,
		IsPublic:    true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = hostSession(ctx, client, session.Config{
		DisplayName:         "Vault",
		MapName:             "de_vertigo",
		MaxPlayers:          4,
		IsPublic:            true,
		IsPasswordProtected: true,
		Password:            "hunter2",
	})
	require.NoError(t, err)

	records, err := findRecords(ctx, client, session.Query{MaxResults: 10}, "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	filtered, err := findRecords(ctx, client, session.Query{MaxResults: 10}, "owl")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, id, filtered[0].ID)

	res, err := joinRecord(ctx, client, session.JoinRequest{Record: filtered[0], PlayerName: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:27015/"+id, res.ConnectString)

	vault, err := matchSession(records, "vault")
	require.NoError(t, err)

	_, err = joinRecord(ctx, client, session.JoinRequest{Record: vault, Password: "wrong"})
	require.ErrorIs(t, err, session.ErrStaleRecord, "records from an older search are rejected")

	records, err = findRecords(ctx, client, session.Query{MaxResults: 10}, "")
	require.NoError(t, err)
	vault, err = matchSession(records, "vault")
	require.NoError(t, err)

	_, err = joinRecord(ctx, client, session.JoinRequest{Record: vault, Password: "wrong"})
	require.ErrorIs(t, err, session.ErrBackendFailure)
	assert.Contains(t, err.Error(), "bad_password")
}

func TestHostSession_RejectsInvalidConfig(t *testing.T) {
	client, backend := newTestClient(t)

	_, err := hostSession(context.Background(), client, session.Config{DisplayName: "No Map", MaxPlayers: 4})
	require.Error(t, err)
	assert.Empty(t, backend.Sessions())
}
