package logic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons reported on the skipped/dropped counters.
const (
	reasonMissingPlayer = "missing_player"
	reasonBadDate       = "bad_date"
	reasonSamePlayer    = "same_player"
	reasonUnranked      = "both_unranked"
)

// Prometheus metrics
var (
	matchesAccumulated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tennis_matches_accumulated_total",
		Help: "Total number of matches applied to player statistics",
	})

	matchesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tennis_matches_skipped_total",
		Help: "Total number of unusable match rows skipped during accumulation",
	}, []string{"reason"})

	playersTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tennis_players_tracked",
		Help: "Number of distinct players in the most recent accumulation pass",
	})

	accumulateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tennis_accumulate_duration_seconds",
		Help:    "Duration of chronological accumulation passes",
		Buckets: prometheus.DefBuckets,
	})

	datasetRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tennis_dataset_rows_total",
		Help: "Total number of feature rows assembled",
	})

	datasetRowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tennis_dataset_rows_dropped_total",
		Help: "Total number of matches excluded from the dataset",
	}, []string{"reason"})
)
