// Package metrics exposes Prometheus instrumentation for progress tracking.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	segmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchtrack_segments_total",
		Help: "Watched segments received, by outcome",
	}, []string{"outcome"}) // outcome=merged|ignored|rejected

	storeOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchtrack_store_operations_total",
		Help: "State store operations by kind and outcome",
	}, []string{"op", "outcome"}) // op=load|save, outcome=ok|error|corrupt

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watchtrack_playback_sessions_active",
		Help: "Playback sessions currently tracked",
	})

	playbackEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchtrack_playback_events_total",
		Help: "Playback events handled by the observer",
	}, []string{"event"})

	catalogVideos = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watchtrack_catalog_videos",
		Help: "Videos in the catalog after the last load",
	})

	maintenanceRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchtrack_maintenance_runs_total",
		Help: "Scheduled maintenance runs by outcome",
	}, []string{"outcome"})
)

// RecordSegment counts one ingested segment. outcome is merged, ignored or rejected.
func RecordSegment(outcome string) {
	segmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordStoreOp counts a state store operation.
func RecordStoreOp(op, outcome string) {
	storeOpsTotal.WithLabelValues(op, outcome).Inc()
}

// SessionOpened increments the active session gauge.
func SessionOpened() { activeSessions.Inc() }

// SessionClosed decrements the active session gauge.
func SessionClosed() { activeSessions.Dec() }

// RecordPlaybackEvent counts a playback event by name.
func RecordPlaybackEvent(event string) {
	playbackEventsTotal.WithLabelValues(event).Inc()
}

// SetCatalogVideos records the catalog size.
func SetCatalogVideos(n int) {
	catalogVideos.Set(float64(n))
}

// RecordMaintenance counts a maintenance run.
func RecordMaintenance(outcome string) {
	maintenanceRunsTotal.WithLabelValues(outcome).Inc()
}
