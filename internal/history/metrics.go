package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	historyRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stagecore_history_records_total",
		Help: "Total number of steps recorded",
	})

	historyFolds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stagecore_history_folds_total",
		Help: "Total number of deltas folded into a base snapshot",
	})

	historyDeltas = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stagecore_history_deltas",
		Help: "Deltas currently held across open histories",
	})

	historyDeltaBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stagecore_history_delta_bytes",
		Help:    "Size of recorded deltas",
		Buckets: prometheus.ExponentialBuckets(64, 4, 8),
	})

	historyRestoreFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stagecore_history_restore_failures_total",
		Help: "Undo or redo steps that could not be reconstructed",
	})
)
