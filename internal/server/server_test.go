package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/lobbyapi"
	"github.com/hay-kot/lobby/internal/store/jsonfile"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()

	store := jsonfile.New(filepath.Join(t.TempDir(), "sessions.json"))
	srv := New(store, zerolog.Nop(), opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return srv, ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func create(t *testing.T, ts *httptest.Server, cfg session.Config) string {
	t.Helper()

	var resp lobbyapi.CreateResponse
	code := doJSON(t, http.MethodPost, ts.URL+lobbyapi.SessionsPath, lobbyapi.CreateRequest{Config: cfg}, &resp)
	require.Equal(t, http.StatusCreated, code)
	require.Len(t, resp.ID, 6)
	return resp.ID
}

func find(t *testing.T, ts *httptest.Server, rawQuery string) []session.Record {
	t.Helper()

	var resp lobbyapi.FindResponse
	code := doJSON(t, http.MethodGet, ts.URL+lobbyapi.SessionsPath+"?"+rawQuery, nil, &resp)
	require.Equal(t, http.StatusOK, code)
	return resp.Sessions
}

func TestServer_CreateAndFind(t *testing.T) {
	srv, ts := newTestServer(t, Options{AdvertiseHost: "10.0.0.5:7777"})

	create(t, ts, session.Config{DisplayName: "Dust", MapName: "de_dust2", GameMode: "defuse", MaxPlayers: 10, IsPublic: true})
	create(t, ts, session.Config{DisplayName: "Office", MapName: "cs_office", GameMode: "hostage", MaxPlayers: 10, IsPublic: true})
	create(t, ts, session.Config{DisplayName: "Private", MapName: "de_nuke", GameMode: "defuse", MaxPlayers: 10})

	all := find(t, ts, "")
	require.Len(t, all, 2)
	assert.Equal(t, "Dust", all[0].DisplayName)
	assert.NotEmpty(t, all[0].JoinHandle)
	assert.Equal(t, uint(1), all[0].CurrentPlayers)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "map glob", query: "map=de_*", want: []string{"Dust"}},
		{name: "mode", query: "mode=HOSTAGE", want: []string{"Office"}},
		{name: "max", query: "max=1", want: []string{"Dust"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := find(t, ts, tt.query)
			names := make([]string, len(got))
			for i, r := range got {
				names[i] = r.DisplayName
			}
			assert.Equal(t, tt.want, names)
		})
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(srv.metrics.SessionsCreated))
	assert.Equal(t, float64(4), testutil.ToFloat64(srv.metrics.Searches))
}

func TestServer_FindBadQuery(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	for _, q := range []string{"max=abc", "max=0", "hide_full=maybe"} {
		var resp lobbyapi.ErrorResponse
		code := doJSON(t, http.MethodGet, ts.URL+lobbyapi.SessionsPath+"?"+q, nil, &resp)
		assert.Equal(t, http.StatusBadRequest, code, q)
		assert.NotEmpty(t, resp.Error)
	}
}

func TestServer_CreateValidation(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var resp lobbyapi.ErrorResponse
	code := doJSON(t, http.MethodPost, ts.URL+lobbyapi.SessionsPath, lobbyapi.CreateRequest{
		Config: session.Config{MaxPlayers: 0, IsPasswordProtected: true},
	}, &resp)

	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "validation failed", resp.Error)
	assert.Contains(t, resp.Fields, "display_name")
	assert.Contains(t, resp.Fields, "max_players")
	assert.Contains(t, resp.Fields, "password")
}

func TestServer_CreateRejectsUnknownFields(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, err := http.Post(ts.URL+lobbyapi.SessionsPath, "application/json", strings.NewReader(`{"nope":1}`))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Join(t *testing.T) {
	srv, ts := newTestServer(t, Options{AdvertiseHost: "10.0.0.5:7777"})

	openID := create(t, ts, session.Config{DisplayName: "Open", MapName: "m", MaxPlayers: 2, IsPublic: true})
	lockedID := create(t, ts, session.Config{
		DisplayName: "Locked", MapName: "m", MaxPlayers: 4, IsPublic: true,
		IsPasswordProtected: true, Password: "hunter2",
	})

	tokens := map[string]string{}
	for _, r := range find(t, ts, "") {
		tokens[r.ID] = r.JoinHandle
	}

	tests := []struct {
		name     string
		id       string
		req      lobbyapi.JoinRequest
		wantCode int
		want     string
		wantConn string
	}{
		{
			name:     "ok",
			id:       openID,
			req:      lobbyapi.JoinRequest{JoinToken: tokens[openID], Player: "p1"},
			wantCode: http.StatusOK,
			want:     "ok",
			wantConn: "10.0.0.5:7777/" + openID,
		},
		{
			name:     "full",
			id:       openID,
			req:      lobbyapi.JoinRequest{JoinToken: tokens[openID], Player: "p2"},
			wantCode: http.StatusConflict,
			want:     "full",
		},
		{
			name:     "bad password",
			id:       lockedID,
			req:      lobbyapi.JoinRequest{JoinToken: tokens[lockedID], Player: "p1", Password: "nope"},
			wantCode: http.StatusForbidden,
			want:     "bad_password",
		},
		{
			name:     "good password",
			id:       lockedID,
			req:      lobbyapi.JoinRequest{JoinToken: tokens[lockedID], Player: "p1", Password: "hunter2"},
			wantCode: http.StatusOK,
			want:     "ok",
			wantConn: "10.0.0.5:7777/" + lockedID,
		},
		{
			name:     "wrong token",
			id:       lockedID,
			req:      lobbyapi.JoinRequest{JoinToken: "forged", Player: "p1", Password: "hunter2"},
			wantCode: http.StatusNotFound,
			want:     "not_found",
		},
		{
			name:     "unknown session",
			id:       "zzzzzz",
			req:      lobbyapi.JoinRequest{JoinToken: "x", Player: "p1"},
			wantCode: http.StatusNotFound,
			want:     "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp lobbyapi.JoinResponse
			code := doJSON(t, http.MethodPost, ts.URL+lobbyapi.JoinPath(tt.id), tt.req, &resp)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.want, resp.Result)
			assert.Equal(t, tt.wantConn, resp.ConnectString)
		})
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(srv.metrics.Joins.WithLabelValues("ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(srv.metrics.Joins.WithLabelValues("not_found")))

	open, err := srv.store.Get(context.Background(), openID)
	require.NoError(t, err)
	assert.Equal(t, []string{"host", "p1"}, open.Players)
}

func TestServer_JoinRequiresPlayer(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	id := create(t, ts, session.Config{DisplayName: "Open", MapName: "m", MaxPlayers: 2, IsPublic: true})

	var resp lobbyapi.ErrorResponse
	code := doJSON(t, http.MethodPost, ts.URL+lobbyapi.JoinPath(id), lobbyapi.JoinRequest{JoinToken: "x"}, &resp)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, resp.Fields, "player")
}

func TestServer_RateLimit(t *testing.T) {
	_, ts := newTestServer(t, Options{RateLimit: 2, RateWindow: time.Minute})

	for range 2 {
		find(t, ts, "")
	}

	var resp lobbyapi.ErrorResponse
	code := doJSON(t, http.MethodGet, ts.URL+lobbyapi.SessionsPath, nil, &resp)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", resp.Error)

	// Health and metrics sit outside the limited API group.
	code = doJSON(t, http.MethodGet, ts.URL+"/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestServer_Metrics(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	create(t, ts, session.Config{DisplayName: "Open", MapName: "m", MaxPlayers: 2, IsPublic: true})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "lobby_sessions_created_total 1")
}

func TestServer_MetricsUnmatchedRoutes(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	for _, p := range []string{"/nope/abc", "/nope/def"} {
		code := doJSON(t, http.MethodGet, ts.URL+p, nil, nil)
		assert.Equal(t, http.StatusNotFound, code)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `path="unmatched"`)
	assert.NotContains(t, string(body), "/nope/")
}

func TestServer_PruneOnce(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	store := jsonfile.New(filepath.Join(t.TempDir(), "sessions.json"))
	srv := New(store, zerolog.Nop(), Options{SessionTTL: time.Hour})
	srv.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, session.Hosted{ID: "old", UpdatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.Save(ctx, session.Hosted{ID: "new", UpdatedAt: now.Add(-time.Minute)}))

	removed, err := srv.PruneOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.Pruned))

	remaining, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].ID)
}

func TestServer_PruneDisabled(t *testing.T) {
	store := jsonfile.New(filepath.Join(t.TempDir(), "sessions.json"))
	srv := New(store, zerolog.Nop(), Options{})

	removed, err := srv.PruneOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
