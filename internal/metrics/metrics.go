package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for a recording session.
type Metrics struct {
	registry         *prometheus.Registry
	blocksCaptured   prometheus.Counter
	blocksDropped    prometheus.Counter
	segmentsApproved prometheus.Counter
	segmentsRejected prometheus.Counter
	timelineSeconds  prometheus.Gauge
}

// New creates and registers Prometheus metrics for the session.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	blocksCaptured := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retake_capture_blocks_total",
		Help: "Total number of audio blocks appended to the in-progress take",
	})
	blocksDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retake_capture_blocks_dropped_total",
		Help: "Total number of audio blocks dropped (lock contention, stale epoch, or not recording)",
	})
	segmentsApproved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retake_segments_approved_total",
		Help: "Total number of takes committed to the timeline",
	})
	segmentsRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retake_segments_rejected_total",
		Help: "Total number of takes discarded during review",
	})
	timelineSeconds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "retake_timeline_seconds",
		Help: "Total duration of the committed timeline in seconds",
	})

	registry.MustRegister(
		blocksCaptured,
		blocksDropped,
		segmentsApproved,
		segmentsRejected,
		timelineSeconds,
	)

	return &Metrics{
		registry:         registry,
		blocksCaptured:   blocksCaptured,
		blocksDropped:    blocksDropped,
		segmentsApproved: segmentsApproved,
		segmentsRejected: segmentsRejected,
		timelineSeconds:  timelineSeconds,
	}
}

// IncBlocksCaptured increments the captured block counter.
func (m *Metrics) IncBlocksCaptured() {
	m.blocksCaptured.Inc()
}

// IncBlocksDropped increments the dropped block counter.
func (m *Metrics) IncBlocksDropped() {
	m.blocksDropped.Inc()
}

// IncSegmentsApproved increments the approved take counter.
func (m *Metrics) IncSegmentsApproved() {
	m.segmentsApproved.Inc()
}

// IncSegmentsRejected increments the rejected take counter.
func (m *Metrics) IncSegmentsRejected() {
	m.segmentsRejected.Inc()
}

// SetTimelineSeconds sets the timeline duration gauge.
func (m *Metrics) SetTimelineSeconds(seconds float64) {
	m.timelineSeconds.Set(seconds)
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
