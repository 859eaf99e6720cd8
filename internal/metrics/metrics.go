// Package metrics exposes Prometheus metrics for the RTSP control plane.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the server. It satisfies the
// rtsp.Stats contract so the dispatcher can report without importing this
// package.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsRemoved prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lyra_rtsp_requests_total",
			Help: "Total number of RTSP requests dispatched, by method",
		}, []string{"method"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lyra_rtsp_active_sessions",
			Help: "Number of currently active RTSP sessions",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lyra_rtsp_sessions_created_total",
			Help: "Total number of RTSP sessions created",
		}),
		SessionsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lyra_rtsp_sessions_removed_total",
			Help: "Total number of RTSP sessions torn down",
		}),
	}
}

// RequestHandled counts one dispatched request.
func (m *Metrics) RequestHandled(method string) {
	m.RequestsTotal.WithLabelValues(method).Inc()
}

// SessionOpened counts one created session.
func (m *Metrics) SessionOpened() {
	m.SessionsCreated.Inc()
	m.ActiveSessions.Inc()
}

// SessionClosed counts one removed session.
func (m *Metrics) SessionClosed() {
	m.SessionsRemoved.Inc()
	m.ActiveSessions.Dec()
}

// Server serves the /metrics scrape endpoint.
type Server struct {
	server *http.Server
}

// NewServer creates the scrape endpoint server on the given port.
func NewServer(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}
}

// Start serves the endpoint without blocking.
func (s *Server) Start() error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server error", "err", err)
		}
	}()
	return nil
}

// Stop shuts the endpoint down gracefully.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		slog.Error("Metrics server shutdown failed", "err", err)
	}
}
