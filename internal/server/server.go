// Package server exposes the scrape and health endpoints. Scrapes read the
// sample registry's last fully-written state and never wait on a refresh.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
)

// Health reports refresh-cycle state for the readiness endpoint.
type Health interface {
	Ready() bool
}

// NewPrometheusRegistry wraps the sample registry together with the standard
// Go and process collectors.
func NewPrometheusRegistry(sampleRegistry *metrics.Registry) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		sampleRegistry,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func getOnly(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func getOnlyFunc(h http.HandlerFunc) http.Handler { return getOnly(h) }

// New builds the HTTP server for the exposition and health endpoints.
func New(port int, gatherer prometheus.Gatherer, health Health, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	// Method-prefixed ServeMux patterns ("GET /metrics") need Go 1.22+; the
	// build toolchain is Go 1.21, so restrict the method explicitly instead.
	mux.Handle("/metrics", getOnly(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	})))
	mux.Handle("/health/live", getOnlyFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}))
	mux.Handle("/health/ready", getOnlyFunc(func(w http.ResponseWriter, _ *http.Request) {
		if health != nil && health.Ready() {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ready")
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "waiting for first successful refresh")
	}))

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
