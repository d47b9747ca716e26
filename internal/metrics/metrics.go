// Package metrics exposes Prometheus collectors for the realtime layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relaychat"

// Metrics groups the collectors updated by the hub and message service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	connections   prometheus.Gauge
	onlineUsers   prometheus.Gauge
	messagesSent  *prometheus.CounterVec
	eventsDropped prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Live realtime connections.",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Users with at least one live connection.",
		}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages persisted, by the transport they arrived on.",
		}, []string{"transport"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because a client buffer was full.",
		}),
	}
	reg.MustRegister(m.connections, m.onlineUsers, m.messagesSent, m.eventsDropped)
	return m
}

// SetConnections records the number of live connections.
func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

// SetOnlineUsers records the number of online users.
func (m *Metrics) SetOnlineUsers(n int) {
	if m == nil {
		return
	}
	m.onlineUsers.Set(float64(n))
}

// MessageSent counts one persisted message.
func (m *Metrics) MessageSent(transport string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(transport).Inc()
}

// EventDropped counts one event lost to a slow consumer.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}
