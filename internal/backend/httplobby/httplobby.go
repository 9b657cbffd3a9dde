// Package httplobby implements the session backend over the lobby server's
// REST API.
package httplobby

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/lobbyapi"
	"github.com/rs/zerolog"
)

const defaultRequestTimeout = 10 * time.Second

// StatusError is reported when the server answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Options configures the backend.
type Options struct {
	HostPlayer     string        // sent as the host's player name on create
	RequestTimeout time.Duration // per request, defaults to 10s
}

// Backend talks to a lobby server. Every dispatch runs its request on a new
// goroutine and invokes the callback exactly once.
type Backend struct {
	baseURL    string
	hostPlayer string
	client     *http.Client
	log        zerolog.Logger
	wg         sync.WaitGroup
}

var _ session.Backend = (*Backend)(nil)

// New creates a Backend for baseURL, e.g. "http://127.0.0.1:8080". The URL is
// checked on every dispatch so a bad value surfaces as a dispatch failure.
func New(baseURL string, log zerolog.Logger, opts Options) *Backend {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Backend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		hostPlayer: opts.HostPlayer,
		client:     &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Close waits for every request in flight to invoke its callback and drops
// idle connections.
func (b *Backend) Close() {
	b.wg.Wait()
	b.client.CloseIdleConnections()
}

// Find issues GET /api/v1/sessions.
func (b *Backend) Find(ctx context.Context, q session.Query, done func(session.FindReply)) error {
	params := url.Values{}
	if q.MaxResults > 0 {
		params.Set("max", strconv.Itoa(q.MaxResults))
	}
	if q.MapPattern != "" {
		params.Set("map", q.MapPattern)
	}
	if q.GameMode != "" {
		params.Set("mode", q.GameMode)
	}
	if q.HideFull {
		params.Set("hide_full", "true")
	}

	path := lobbyapi.SessionsPath
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	req, err := b.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	b.spawn(func() {
		var out lobbyapi.FindResponse
		if err := b.do(req, &out); err != nil {
			done(session.FindReply{OK: false, Err: err})
			return
		}
		done(session.FindReply{OK: true, Records: out.Sessions})
	})
	return nil
}

// Create issues POST /api/v1/sessions.
func (b *Backend) Create(ctx context.Context, cfg session.Config, done func(session.CreateReply)) error {
	req, err := b.newRequest(ctx, http.MethodPost, lobbyapi.SessionsPath, lobbyapi.CreateRequest{
		Config:     cfg,
		HostPlayer: b.hostPlayer,
	})
	if err != nil {
		return err
	}

	b.spawn(func() {
		var out lobbyapi.CreateResponse
		if err := b.do(req, &out); err != nil {
			done(session.CreateReply{OK: false, Err: err})
			return
		}
		done(session.CreateReply{OK: true, SessionID: out.ID})
	})
	return nil
}

// Join issues POST /api/v1/sessions/{id}/join. Rejections arrive with a
// non-2xx status and a result code in the body.
func (b *Backend) Join(ctx context.Context, jr session.JoinRequest, done func(session.JoinReply)) error {
	req, err := b.newRequest(ctx, http.MethodPost, lobbyapi.JoinPath(url.PathEscape(jr.Record.ID)), lobbyapi.JoinRequest{
		JoinToken: jr.Record.JoinHandle,
		Player:    jr.PlayerName,
		Password:  jr.Password,
	})
	if err != nil {
		return err
	}

	b.spawn(func() {
		resp, err := b.client.Do(req)
		if err != nil {
			b.log.Warn().Err(err).Str("session_id", jr.Record.ID).Msg("join request failed")
			done(session.JoinReply{Result: session.JoinUnknownError})
			return
		}
		defer resp.Body.Close() //nolint:errcheck

		var out lobbyapi.JoinResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			b.log.Warn().Err(err).Int("status", resp.StatusCode).Msg("decode join response")
			done(session.JoinReply{Result: session.JoinUnknownError})
			return
		}

		reply := session.JoinReply{Result: session.ParseJoinResult(out.Result)}
		if reply.Result == session.JoinOK {
			reply.ConnectString = out.ConnectString
		}
		done(reply)
	})
	return nil
}

func (b *Backend) spawn(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

// newRequest builds a request synchronously so URL and encoding problems
// are reported at dispatch.
func (b *Backend) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	u, err := url.Parse(b.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", b.baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", b.baseURL)
	}

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return req, nil
}

func (b *Backend) do(req *http.Request, out any) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	se := &StatusError{Code: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var er lobbyapi.ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		se.Message = er.Error
		if len(er.Fields) > 0 {
			parts := make([]string, 0, len(er.Fields))
			for _, field := range slices.Sorted(maps.Keys(er.Fields)) {
				parts = append(parts, field+": "+er.Fields[field])
			}
			se.Message += " (" + strings.Join(parts, ", ") + ")"
		}
	} else {
		se.Message = strings.TrimSpace(string(body))
	}

	return se
}
