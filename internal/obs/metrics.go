package obs

import "github.com/prometheus/client_golang/prometheus"

var (
	// RowsProcessed counts pricing rows processed, by outcome.
	RowsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repricer_rows_processed_total",
		Help: "Total pricing rows processed, partitioned by outcome",
	}, []string{"outcome"})

	// RetryAttempts counts retried pipeline attempts.
	RetryAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "repricer_retry_attempts_total",
		Help: "Total retried pipeline attempts",
	})

	// BatchFlushes counts batch flush attempts, by result.
	BatchFlushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repricer_batch_flushes_total",
		Help: "Total batch flush attempts, partitioned by result",
	}, []string{"result"})

	// BatchSize observes consolidated batch sizes at flush time.
	BatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "repricer_batch_size",
		Help:    "Consolidated update count per flushed batch",
		Buckets: prometheus.LinearBuckets(0, 5, 10),
	})

	// ChunkDuration observes wall time per processed chunk.
	ChunkDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "repricer_chunk_duration_seconds",
		Help:    "Wall time spent processing one chunk of requests",
		Buckets: prometheus.DefBuckets,
	})
)

// InitMetrics registers the repricer collectors with the default registry.
func InitMetrics() {
	prometheus.MustRegister(
		RowsProcessed,
		RetryAttempts,
		BatchFlushes,
		BatchSize,
		ChunkDuration,
	)
}
