package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	IncomingUpdates     *prometheus.CounterVec
	OutgoingMessages    *prometheus.CounterVec
	UsersResolved       *prometheus.CounterVec
	Deliveries          *prometheus.CounterVec
	Broadcasts          prometheus.Counter
	BroadcastDuration   prometheus.Histogram
	BroadcastRecipients prometheus.Histogram
	Errors              *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = New(namespace)
		prometheus.MustRegister(metricsInstance.Collectors()...)
	})
	return metricsInstance
}

// New builds an unregistered set of collectors.
func New(namespace string) *Metrics {
	return &Metrics{
		IncomingUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tg_incoming_updates_total",
			Help:      "Total Telegram updates dispatched, by event kind.",
		}, []string{"kind"}),
		OutgoingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tg_outgoing_messages_total",
			Help:      "Total Telegram messages sent or edited.",
		}, []string{"type"}),
		UsersResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_resolved_total",
			Help:      "User resolutions by outcome (created, existing, raced).",
		}, []string{"outcome"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_deliveries_total",
			Help:      "Notification delivery attempts by status.",
		}, []string{"status"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total broadcast runs.",
		}),
		BroadcastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_duration_seconds",
			Help:      "Wall time of a broadcast run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		BroadcastRecipients: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_recipients",
			Help:      "Snapshot size of a broadcast run.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors grouped by component.",
		}, []string{"component"}),
	}
}

// Collectors lists every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.IncomingUpdates,
		m.OutgoingMessages,
		m.UsersResolved,
		m.Deliveries,
		m.Broadcasts,
		m.BroadcastDuration,
		m.BroadcastRecipients,
		m.Errors,
	}
}
