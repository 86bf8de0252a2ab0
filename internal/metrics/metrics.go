// Package metrics provides Prometheus instrumentation for the dev server.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chaosclash/internal/ports"
)

// Recorder holds the duel and HTTP collectors registered on one registry.
type Recorder struct {
	registry *prometheus.Registry

	// RoundsTotal counts resolved rounds by seat outcome.
	RoundsTotal *prometheus.CounterVec
	// PurchasesTotal counts purchase attempts by result kind.
	PurchasesTotal *prometheus.CounterVec
	// MatchesEndedTotal counts finished matches by win reason.
	MatchesEndedTotal *prometheus.CounterVec
	// ActiveMatches tracks hosted matches.
	ActiveMatches prometheus.Gauge
	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients prometheus.Gauge

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		RoundsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chaosclash_rounds_total",
			Help: "Total number of resolved rounds",
		}, []string{"outcome"}),
		PurchasesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chaosclash_purchases_total",
			Help: "Upgrade purchase attempts",
		}, []string{"result"}),
		MatchesEndedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chaosclash_matches_ended_total",
			Help: "Finished matches",
		}, []string{"reason", "draw"}),
		ActiveMatches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chaosclash_active_matches",
			Help: "Number of hosted matches",
		}),
		WebSocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chaosclash_websocket_clients",
			Help: "Number of connected WebSocket clients",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chaosclash_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chaosclash_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "path"}),
	}
}

func (r *Recorder) RoundResolved(outcome string) {
	r.RoundsTotal.WithLabelValues(outcome).Inc()
}

func (r *Recorder) PurchaseAttempted(result string) {
	r.PurchasesTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) MatchEnded(reason string, draw bool) {
	r.MatchesEndedTotal.WithLabelValues(reason, strconv.FormatBool(draw)).Inc()
}

var _ ports.MetricsPort = (*Recorder)(nil)

// Handler returns the Prometheus metrics HTTP handler.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Middleware returns an HTTP middleware that records request metrics.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, req)
		duration := time.Since(start).Seconds()

		path := routePattern(req)
		r.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(wrapped.status)).Inc()
		r.HTTPRequestDuration.WithLabelValues(req.Method, path).Observe(duration)
	})
}

// routePattern uses the chi route pattern to keep match ids out of label values.
func routePattern(req *http.Request) string {
	if rctx := chi.RouteContext(req.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return req.URL.Path
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := http.NewResponseController(w.ResponseWriter).Hijack()
	if err == nil {
		w.status = http.StatusSwitchingProtocols
	}
	return conn, rw, err
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
