// Package metrics provides prometheus instrumentation for chairlift.
// Collectors cover the full generate-buffer-ship path: rows generated per
// stream, buffer depth, batches shipped, committed offsets, ingest request
// latency, and errors by component and type.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RowsGenerated counts records produced by the simulation, per stream.
	RowsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chairlift_rows_generated_total",
			Help: "Total records generated by the simulation",
		},
		[]string{"stream"},
	)

	// RowsShipped counts records appended to an ingest channel, per stream.
	// Redelivered rows count again; the service deduplicates by offset token.
	RowsShipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chairlift_rows_shipped_total",
			Help: "Total records appended to ingest channels",
		},
		[]string{"stream"},
	)

	// BatchesShipped counts NDJSON appends, per stream.
	BatchesShipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chairlift_batches_shipped_total",
			Help: "Total NDJSON batches appended to ingest channels",
		},
		[]string{"stream"},
	)

	// CommittedOffset tracks the last committed offset token, per stream.
	CommittedOffset = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chairlift_committed_offset",
			Help: "Latest offset token the ingest service reports committed",
		},
		[]string{"stream"},
	)

	// BufferDepth tracks rows awaiting commit confirmation, per stream.
	BufferDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chairlift_buffer_depth",
			Help: "Rows in the local durable buffer not yet deleted",
		},
		[]string{"stream"},
	)

	// IngestLatency observes ingest API round-trip latency by operation.
	IngestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chairlift_ingest_latency_seconds",
			Help:    "Latency of ingest API requests",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"operation"},
	)

	// Errors counts errors by component and error type.
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chairlift_errors_total",
			Help: "Total errors by component and type",
		},
		[]string{"component", "type"},
	)
)

// ObserveIngest records the latency of one ingest API call.
func ObserveIngest(operation string, start time.Time) {
	IngestLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled. It returns the
// http.Server error, or nil on graceful shutdown.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
