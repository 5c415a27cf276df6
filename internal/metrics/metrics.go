// Package metrics exposes mcpwatch's Prometheus surface: restart counts,
// build outcomes, crash counts and queue depth, served over HTTP when
// --metrics-addr is set.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every metric mcpwatch records, registered against a private
// registry so repeated construction in tests never panics on duplicate
// registration.
type Metrics struct {
	RestartsTotal       *prometheus.CounterVec
	BuildFailuresTotal  prometheus.Counter
	CrashesTotal        prometheus.Counter
	QueueDepth          prometheus.Gauge
	BuildDurationSecond prometheus.Histogram

	registry *prometheus.Registry
}

// New creates and registers all metrics against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		registry: reg,
		RestartsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpwatch",
				Name:      "restarts_total",
				Help:      "Total number of server restarts, by trigger.",
			},
			[]string{"trigger"}, // the reload loop records trigger=file_change
		),
		BuildFailuresTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpwatch",
				Name:      "build_failures_total",
				Help:      "Total number of build command failures.",
			},
		),
		CrashesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpwatch",
				Name:      "crashes_total",
				Help:      "Total number of unsolicited child process exits.",
			},
		),
		QueueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpwatch",
				Name:      "queue_depth",
				Help:      "Number of client frames currently queued awaiting a server connection.",
			},
		),
		BuildDurationSecond: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "mcpwatch",
				Name:      "build_duration_seconds",
				Help:      "Duration of the build command.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// Server serves the /metrics endpoint on addr until ctx is canceled.
type Server struct {
	addr string
	http *http.Server
}

// NewServer builds (but does not start) an HTTP server exposing m's
// registry at /metrics.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return &Server{addr: addr, http: &http.Server{Addr: addr, Handler: mux}}
}

// Run starts serving and blocks until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
