// Package api provides the digest service surface: request framing, the
// Arrow IPC digest handler, a TCP server and Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the digest engine.
type Metrics struct {
	// Digest metrics
	DigestsTotal  prometheus.Counter
	DigestsFailed prometheus.Counter
	DigestLatency prometheus.Histogram

	// Input volume metrics
	RowsHashed    prometheus.Counter
	BatchesHashed prometheus.Counter
	RequestBytes  prometheus.Histogram

	// Server metrics
	ActiveConnections prometheus.Gauge
}

// DefaultMetrics creates metrics with default settings.
var DefaultMetrics = NewMetrics("tablehash")

// NewMetrics creates a new Metrics instance with the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		DigestsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_total",
			Help:      "Total number of digest requests processed",
		}),
		DigestsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_failed_total",
			Help:      "Total number of digest requests that failed",
		}),
		DigestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "digest_latency_seconds",
			Help:      "Digest computation latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		RowsHashed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_hashed_total",
			Help:      "Total number of rows fed into digesters",
		}),
		BatchesHashed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_hashed_total",
			Help:      "Total number of record batches fed into digesters",
		}),
		RequestBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_bytes",
			Help:      "Size of digest request payloads in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of open client connections",
		}),
	}
}

// RecordDigest records the outcome of one digest request.
func (m *Metrics) RecordDigest(rows int64, batches int, payloadBytes int, duration time.Duration, err error) {
	m.DigestsTotal.Inc()
	m.DigestLatency.Observe(duration.Seconds())
	m.RequestBytes.Observe(float64(payloadBytes))
	if err != nil {
		m.DigestsFailed.Inc()
		return
	}
	m.RowsHashed.Add(float64(rows))
	m.BatchesHashed.Add(float64(batches))
}

// StartMetricsServer exposes /metrics on addr in a background goroutine
// and returns the server for shutdown.
func StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Metrics are best-effort; the digest service keeps running.
			_ = err
		}
	}()
	return srv
}
