package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks chat server Prometheus metrics. All metrics use the chat_
// prefix.
type Metrics struct {
	// ConnectionsActive is the current number of connected clients.
	ConnectionsActive prometheus.Gauge

	// ConnectionsTotal counts accepted connections.
	ConnectionsTotal prometheus.Counter

	// RoomsOpen is the current number of open rooms.
	RoomsOpen prometheus.Gauge

	// MessagesTotal counts dispatched messages by kind.
	MessagesTotal *prometheus.CounterVec

	// BroadcastDeliveriesTotal counts per-peer broadcast deliveries.
	BroadcastDeliveriesTotal prometheus.Counter

	// DecodeFailuresTotal counts connections torn down on framing or
	// decoding errors.
	DecodeFailuresTotal prometheus.Counter
}

// NewMetrics creates chat metrics registered against reg. Panics on duplicate
// registration, which is expected only during initialization.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_connections_active",
			Help: "Current number of connected clients",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_connections_total",
			Help: "Total accepted client connections",
		}),
		RoomsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_rooms_open",
			Help: "Current number of open rooms",
		}),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_messages_total",
				Help: "Total dispatched messages by kind",
			},
			[]string{"kind"},
		),
		BroadcastDeliveriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_broadcast_deliveries_total",
			Help: "Total per-peer broadcast deliveries",
		}),
		DecodeFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_decode_failures_total",
			Help: "Total connections closed on framing or decode errors",
		}),
	}

	reg.MustRegister(
		m.ConnectionsActive,
		m.ConnectionsTotal,
		m.RoomsOpen,
		m.MessagesTotal,
		m.BroadcastDeliveriesTotal,
		m.DecodeFailuresTotal,
	)
	return m
}
