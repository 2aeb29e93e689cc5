package collab

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stagecore_collab_rooms",
		Help: "Rooms with at least one connected client.",
	})
	clientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stagecore_collab_clients",
		Help: "Connected collaboration clients.",
	})
	patchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagecore_collab_patches_total",
		Help: "Document patches received, by result.",
	}, []string{"result"})
	savesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagecore_collab_saves_total",
		Help: "Room document saves, by result.",
	}, []string{"result"})
)
