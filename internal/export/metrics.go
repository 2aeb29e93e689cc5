package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportTiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stagecore_export_tiles_total",
		Help: "PNG export tiles rendered.",
	})
	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagecore_exports_total",
		Help: "Completed exports by format.",
	}, []string{"format"})
	exportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stagecore_export_duration_seconds",
		Help:    "Time spent rendering an export.",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})
)
