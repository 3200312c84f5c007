// Package metrics exposes extraction telemetry as prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/installments-tracker/constants"
)

const namespace = "installments"

// Collector records extraction phases, pages, rows and outcomes on its own
// registry. It satisfies extract.Observer.
type Collector struct {
	registry *prometheus.Registry

	phaseSeconds *prometheus.HistogramVec
	pages        *prometheus.CounterVec
	failedPages  *prometheus.CounterVec
	rows         *prometheus.HistogramVec
	outcomes     *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		phaseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each extraction phase.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"phase"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_processed_total",
			Help:      "Pages processed, by pass.",
		}, []string{"source"}),
		failedPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_failed_total",
			Help:      "Pages that could not be read, by pass.",
		}, []string{"source"}),
		rows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rows_per_document",
			Help:      "Installment rows produced per document, by pass.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200},
		}, []string{"source"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Finished extractions, by outcome.",
		}, []string{"outcome"}),
	}
	c.registry.MustRegister(c.phaseSeconds, c.pages, c.failedPages, c.rows, c.outcomes)
	return c
}

func (c *Collector) PhaseDuration(phase constants.Phase, d time.Duration) {
	c.phaseSeconds.WithLabelValues(string(phase)).Observe(d.Seconds())
}

func (c *Collector) Pages(source constants.Source, pages, failed int) {
	c.pages.WithLabelValues(string(source)).Add(float64(pages))
	c.failedPages.WithLabelValues(string(source)).Add(float64(failed))
}

func (c *Collector) Rows(source constants.Source, rows int) {
	c.rows.WithLabelValues(string(source)).Observe(float64(rows))
}

func (c *Collector) Outcome(outcome string) {
	c.outcomes.WithLabelValues(outcome).Inc()
}

// Registry is the registry the collector's metrics live on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
		return err
	}
	return nil
}
