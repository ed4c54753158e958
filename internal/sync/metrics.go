package sync

import (
	gosync "sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vempat/vempat/internal/models"
)

// Metrics exposes Prometheus collectors for queue drains. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	drains   *prometheus.CounterVec
	entries  *prometheus.CounterVec
	duration prometheus.Histogram
	depth    *prometheus.GaugeVec
}

var (
	defaultOnce    gosync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the drain metrics against registerer, or the default
// registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func (m *Metrics) observeDrain(res DrainResult, took time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.drains.WithLabelValues(status).Inc()
	m.duration.Observe(took.Seconds())
	m.entries.WithLabelValues("succeeded").Add(float64(res.Succeeded))
	m.entries.WithLabelValues("retried").Add(float64(res.Retried))
	m.entries.WithLabelValues("quarantined").Add(float64(res.Quarantined))
}

func (m *Metrics) setDepth(st models.QueueStats) {
	if m == nil {
		return
	}
	m.depth.WithLabelValues("pending").Set(float64(st.Pending))
	m.depth.WithLabelValues("failed").Set(float64(st.Failed))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	drains := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vempat_sync_drains_total",
		Help: "Queue drains partitioned by status.",
	}, []string{"status"})
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vempat_sync_entries_total",
		Help: "Queue entries attempted, partitioned by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vempat_sync_drain_duration_seconds",
		Help:    "Duration in seconds of queue drains.",
		Buckets: prometheus.DefBuckets,
	})
	depth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vempat_sync_queue_entries",
		Help: "Entries currently in the sync queue by state.",
	}, []string{"state"})
	registerer.MustRegister(drains, entries, duration, depth)
	return &Metrics{drains: drains, entries: entries, duration: duration, depth: depth}
}
