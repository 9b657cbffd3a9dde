package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the lobby server's Prometheus collectors.
type Metrics struct {
	SessionsCreated prometheus.Counter
	Joins           *prometheus.CounterVec
	Searches        prometheus.Counter
	Pruned          prometheus.Counter
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "lobby_sessions_created_total",
			Help: "Total number of hosted sessions created.",
		}),
		Joins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lobby_joins_total",
			Help: "Total number of join attempts, by result.",
		}, []string{"result"}),
		Searches: f.NewCounter(prometheus.CounterOpts{
			Name: "lobby_searches_total",
			Help: "Total number of session searches served.",
		}),
		Pruned: f.NewCounter(prometheus.CounterOpts{
			Name: "lobby_sessions_pruned_total",
			Help: "Total number of idle sessions removed by the pruner.",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lobby_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// instrument records request latency labelled by route pattern.
const unmatchedRoute = "unmatched"

func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// Route patterns keep label cardinality bounded.
		path := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		m.RequestDuration.
			WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
