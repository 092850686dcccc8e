package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	rowsExported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tennis_export_rows_total",
		Help: "Total number of rows written to external sinks",
	}, []string{"sink"})

	exportFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tennis_export_failures_total",
		Help: "Total number of failed export batches",
	}, []string{"sink"})

	batchInsertDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tennis_export_batch_duration_seconds",
		Help:    "Duration of export batch writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"sink"})
)
