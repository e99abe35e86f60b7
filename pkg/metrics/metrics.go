// Package metrics exposes Prometheus instruments for statement ingestion.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ingest"

// Metrics holds the ingestion instruments.
type Metrics struct {
	registry *prometheus.Registry

	StrategyAttempts *prometheus.CounterVec
	RowsParsed       *prometheus.CounterVec
	RowsDropped      *prometheus.CounterVec
	Duplicates       *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec
}

// New registers the instruments on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StrategyAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_strategy_attempts_total",
			Help:      "PDF extraction strategy attempts by outcome.",
		}, []string{"strategy", "outcome"}),
		RowsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "Records normalized into canonical transactions.",
		}, []string{"source"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Records dropped during normalization.",
		}, []string{"source"}),
		Duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Duplicate transactions by resolution.",
		}, []string{"resolution"}),
		PipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of one statement through the pipeline.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.StrategyAttempts,
		m.RowsParsed,
		m.RowsDropped,
		m.Duplicates,
		m.PipelineDuration,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveStrategy records one PDF strategy attempt. Its signature matches
// the extractor's observer hook.
func (m *Metrics) ObserveStrategy(strategy string, rows int, err error, _ time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case rows == 0:
		outcome = "empty"
	}
	m.StrategyAttempts.WithLabelValues(strategy, outcome).Inc()
}

// RecordNormalized counts parsed and dropped records for a source.
func (m *Metrics) RecordNormalized(source string, parsed, dropped int) {
	if m == nil {
		return
	}
	m.RowsParsed.WithLabelValues(source).Add(float64(parsed))
	m.RowsDropped.WithLabelValues(source).Add(float64(dropped))
}

// RecordDuplicates counts flagged and merged duplicates.
func (m *Metrics) RecordDuplicates(flagged, merged int) {
	if m == nil {
		return
	}
	m.Duplicates.WithLabelValues("flagged").Add(float64(flagged))
	m.Duplicates.WithLabelValues("merged").Add(float64(merged))
}

// ObservePipeline records the duration of one pipeline run.
func (m *Metrics) ObservePipeline(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on port until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
