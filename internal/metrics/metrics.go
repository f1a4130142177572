package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/streampulse/notify/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
//
// EnrichedDegraded is the placeholder-rate signal: it counts notifications
// that were delivered with placeholder names or omitted asset URLs. Degraded
// delivery is a success from the user's perspective but an operator signal.
type Metrics struct {
	EventsRecorded   *prometheus.CounterVec
	Enriched         *prometheus.CounterVec
	EnrichedDegraded *prometheus.CounterVec
	EnrichLatency    *prometheus.HistogramVec
	Parked           *prometheus.CounterVec
	PublishFailures  *prometheus.CounterVec

	PendingDepth prometheus.Gauge
	ParkedDepth  prometheus.Gauge

	GatewayConnections prometheus.Gauge
	GatewayDropped     prometheus.Counter
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_recorded_total",
			Help: "Total number of pending events durably recorded by producers.",
		}, []string{"kind"}),

		Enriched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_enriched_total",
			Help: "Total number of notifications enriched and persisted.",
		}, []string{"kind"}),

		EnrichedDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_enriched_degraded_total",
			Help: "Notifications delivered with placeholder values or omitted asset URLs.",
		}, []string{"kind"}),

		EnrichLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_enrich_seconds",
			Help:    "End-to-end latency from dequeue to retired pending marker.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),

		Parked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_parked_total",
			Help: "Events moved to the dead-letter collection after repeated permanent failures.",
		}, []string{"kind"}),

		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bus_publish_failures_total",
			Help: "Best-effort bus publishes that failed; the durable record was still written.",
		}, []string{"topic_class"}),

		PendingDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pending_index_depth",
			Help: "Current number of ids in the pending-index.",
		}),
		ParkedDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parked_depth",
			Help: "Current number of ids in the parked (dead-letter) collection.",
		}),

		GatewayConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_connections",
			Help: "Currently connected realtime clients.",
		}),
		GatewayDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_dropped_connections_total",
			Help: "Connections closed because their outbound buffer overflowed.",
		}),
	}

	reg.MustRegister(
		m.EventsRecorded,
		m.Enriched,
		m.EnrichedDegraded,
		m.EnrichLatency,
		m.Parked,
		m.PublishFailures,
		m.PendingDepth,
		m.ParkedDepth,
		m.GatewayConnections,
		m.GatewayDropped,
	)

	return m
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
// Centralises the prometheus observation calls so the worker package stays
// import-free.
func (m *Metrics) WorkerHooks() (
	onEnriched func(domain.EventKind, bool, time.Duration),
	onParked func(domain.EventKind),
	onPublishFailure func(string),
) {
	onEnriched = func(kind domain.EventKind, degraded bool, latency time.Duration) {
		m.Enriched.WithLabelValues(string(kind)).Inc()
		m.EnrichLatency.WithLabelValues(string(kind)).Observe(latency.Seconds())
		if degraded {
			m.EnrichedDegraded.WithLabelValues(string(kind)).Inc()
		}
	}
	onParked = func(kind domain.EventKind) {
		m.Parked.WithLabelValues(string(kind)).Inc()
	}
	onPublishFailure = func(topic string) {
		m.PublishFailures.WithLabelValues(topicClass(topic)).Inc()
	}
	return
}

// DepthHook returns the gauge callback expected by worker.NewParkedMonitor.
func (m *Metrics) DepthHook() func(pending, parked int) {
	return func(pending, parked int) {
		m.PendingDepth.Set(float64(pending))
		m.ParkedDepth.Set(float64(parked))
	}
}

// topicClass collapses per-user and per-channel topics into a bounded label
// set; raw topic names would explode cardinality.
func topicClass(topic string) string {
	switch {
	case strings.HasPrefix(topic, "notify.user."):
		return "user"
	case strings.HasPrefix(topic, "notify.channel."):
		return "channel"
	default:
		return "global"
	}
}
