// Package server implements the reference lobby server the HTTP backend
// talks to.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/hay-kot/criterio"
	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/core/validate"
	"github.com/hay-kot/lobby/internal/lobbyapi"
	"github.com/hay-kot/lobby/pkg/randid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxResults = 20
	maxBodyBytes      = 64 << 10
	shutdownTimeout   = 5 * time.Second
)

// errRejected aborts a store update without writing.
var errRejected = errors.New("join rejected")

// Store is the persistence the server needs on top of session.Store.
type Store interface {
	session.Store
	Update(ctx context.Context, id string, fn func(*session.Hosted) error) (session.Hosted, error)
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Options configures a Server.
type Options struct {
	AdvertiseHost string        // host:port placed in connect strings
	RateLimit     int           // requests per RateWindow per IP, 0 disables
	RateWindow    time.Duration // defaults to one minute
	SessionTTL    time.Duration // idle sessions older than this are pruned, 0 disables
	PruneInterval time.Duration // defaults to SessionTTL / 4
	Registry      *prometheus.Registry
}

// Server serves the lobby REST API.
type Server struct {
	store    Store
	log      zerolog.Logger
	opts     Options
	registry *prometheus.Registry
	metrics  *Metrics
	now      func() time.Time
}

// New creates a Server. A nil Registry gets a fresh one.
func New(store Store, log zerolog.Logger, opts Options) *Server {
	if opts.AdvertiseHost == "" {
		opts.AdvertiseHost = "127.0.0.1:7777"
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	if opts.PruneInterval <= 0 && opts.SessionTTL > 0 {
		opts.PruneInterval = opts.SessionTTL / 4
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Server{
		store:    store,
		log:      log,
		opts:     opts,
		registry: reg,
		metrics:  NewMetrics(reg),
		now:      time.Now,
	}
}

// Handler builds the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(s.requestLogger)
	r.Use(s.metrics.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route(lobbyapi.APIPrefix, func(r chi.Router) {
		if s.opts.RateLimit > 0 {
			r.Use(s.rateLimit())
		}
		r.Get("/sessions", s.handleFind)
		r.Post("/sessions", s.handleCreate)
		r.Post("/sessions/{id}/join", s.handleJoin)
	})

	return r
}

// Run serves on addr and prunes idle sessions until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info().Str("addr", addr).Str("advertise", s.opts.AdvertiseHost).Msg("lobby server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if s.opts.SessionTTL > 0 {
		g.Go(func() error {
			s.pruneLoop(ctx)
			return nil
		})
	}

	return g.Wait()
}

// PruneOnce removes sessions idle for longer than the configured TTL.
func (s *Server) PruneOnce(ctx context.Context) (int, error) {
	if s.opts.SessionTTL <= 0 {
		return 0, nil
	}

	removed, err := s.store.Prune(ctx, s.now().Add(-s.opts.SessionTTL))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	if removed > 0 {
		s.metrics.Pruned.Add(float64(removed))
		s.log.Info().Int("removed", removed).Msg("pruned idle sessions")
	}
	return removed, nil
}

func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PruneOnce(ctx); err != nil {
				s.log.Warn().Err(err).Msg("prune failed")
			}
		}
	}
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	hosted, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list sessions")
		writeError(w, http.StatusInternalServerError, errors.New("list sessions failed"))
		return
	}

	s.metrics.Searches.Inc()

	records := make([]session.Record, 0, min(len(hosted), q.MaxResults))
	for _, h := range hosted {
		rec := h.Record()
		if !q.Matches(rec) {
			continue
		}
		records = append(records, rec)
		if len(records) == q.MaxResults {
			break
		}
	}

	writeJSON(w, http.StatusOK, lobbyapi.FindResponse{Sessions: records})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req lobbyapi.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := validate.SessionConfig(req.Config); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	host := strings.TrimSpace(req.HostPlayer)
	if host == "" {
		host = "host"
	}

	now := s.now()
	h := session.Hosted{
		ID:           randid.Generate(randid.SessionIDLength),
		Config:       req.Config,
		PasswordHash: session.HashPassword(req.Password),
		HostAddr:     s.opts.AdvertiseHost,
		JoinToken:    uuid.NewString(),
		Players:      []string{host},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	h.Config.Password = ""

	if err := s.store.Save(r.Context(), h); err != nil {
		s.log.Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, errors.New("save session failed"))
		return
	}

	s.metrics.SessionsCreated.Inc()
	s.log.Info().Str("session_id", h.ID).Str("name", h.Config.DisplayName).Msg("session created")

	writeJSON(w, http.StatusCreated, lobbyapi.CreateResponse{ID: h.ID})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req lobbyapi.JoinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validate.PlayerName(req.Player); err != nil {
		writeError(w, http.StatusUnprocessableEntity, criterio.NewFieldErrors("player", err))
		return
	}

	var (
		result  session.JoinResult
		connect string
	)
	_, err := s.store.Update(r.Context(), id, func(h *session.Hosted) error {
		if h.JoinToken != req.JoinToken {
			result = session.JoinNotFound
			return errRejected
		}
		result = h.Admit(req.Player, req.Password, s.now())
		if result != session.JoinOK {
			return errRejected
		}
		connect = h.ConnectString()
		return nil
	})

	switch {
	case errors.Is(err, session.ErrNotFound):
		result = session.JoinNotFound
	case errors.Is(err, errRejected):
	case err != nil:
		s.log.Error().Err(err).Str("session_id", id).Msg("join session")
		writeError(w, http.StatusInternalServerError, errors.New("join failed"))
		return
	}

	s.metrics.Joins.WithLabelValues(result.String()).Inc()
	s.log.Debug().Str("session_id", id).Stringer("result", result).Msg("join attempt")

	writeJSON(w, joinStatus(result), lobbyapi.JoinResponse{Result: result.String(), ConnectString: connect})
}

func (s *Server) rateLimit() func(http.Handler) http.Handler {
	window := s.opts.RateWindow
	return httprate.Limit(
		s.opts.RateLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, lobbyapi.ErrorResponse{Error: "rate limit exceeded"})
		}),
	)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("request")
	})
}

func parseQuery(r *http.Request) (session.Query, error) {
	v := r.URL.Query()
	q := session.Query{
		MaxResults: defaultMaxResults,
		MapPattern: v.Get("map"),
		GameMode:   v.Get("mode"),
	}

	if raw := v.Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return session.Query{}, fmt.Errorf("max must be a positive integer")
		}
		q.MaxResults = n
	}

	if raw := v.Get("hide_full"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return session.Query{}, fmt.Errorf("hide_full must be a boolean")
		}
		q.HideFull = b
	}

	return q, nil
}

func joinStatus(r session.JoinResult) int {
	switch r {
	case session.JoinOK:
		return http.StatusOK
	case session.JoinFull:
		return http.StatusConflict
	case session.JoinNotFound:
		return http.StatusNotFound
	case session.JoinBadPassword:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an ErrorResponse, expanding criterio field errors.
func writeError(w http.ResponseWriter, code int, err error) {
	resp := lobbyapi.ErrorResponse{Error: err.Error()}

	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		resp.Error = "validation failed"
		resp.Fields = make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			resp.Fields[fe.Field] = fe.Err.Error()
		}
	}

	writeJSON(w, code, resp)
}
