// Package metrics exposes pipeline progress counters via Prometheus.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	defaultCollector *Collector
	once             sync.Once
)

// Get returns the process-wide collector instance.
func Get() *Collector {
	once.Do(func() {
		defaultCollector = newCollector("nla")
	})
	return defaultCollector
}

// Collector holds the pipeline's Prometheus instruments.
type Collector struct {
	LinesParsed    prometheus.Counter
	ParseErrors    prometheus.Counter
	Degraded       prometheus.Counter
	RecordsWritten *prometheus.CounterVec
	BatchesFlushed *prometheus.CounterVec
	FlushDuration  prometheus.Histogram
	FilesCompleted prometheus.Counter
	FilesFailed    prometheus.Counter
	FilesSkipped   prometheus.Counter
	ActiveWorkers  prometheus.Gauge
}

func newCollector(namespace string) *Collector {
	return &Collector{
		LinesParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lines_parsed_total",
			Help: "Log lines successfully parsed",
		}),
		ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "parse_errors_total",
			Help: "Log lines that matched no known format",
		}),
		Degraded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "degraded_records_total",
			Help: "Records enriched with fallback defaults",
		}),
		RecordsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_written_total",
			Help: "Rows delivered to the sink by table",
		}, []string{"table"}),
		BatchesFlushed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "batches_flushed_total",
			Help: "Batch flushes by outcome",
		}, []string{"outcome"}),
		FlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "flush_duration_seconds",
			Help:    "Batch flush latency",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		FilesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "files_completed_total",
			Help: "Files fully processed",
		}),
		FilesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "files_failed_total",
			Help: "Files marked failed",
		}),
		FilesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "files_skipped_total",
			Help: "Files skipped as already completed",
		}),
		ActiveWorkers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_workers",
			Help: "Workers currently processing a file group",
		}),
	}
}

// Serve runs the exposition endpoint until the context is done.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn().Err(err).Msg("metrics endpoint stopped")
	}
}
