package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "syncroom"

type Metrics struct {
	roomsActive        prometheus.Gauge
	roomsCreated       prometheus.Counter
	connectionsActive  prometheus.Gauge
	connectionsDropped *prometheus.CounterVec
	eventsPublished    *prometheus.CounterVec
	commandsRejected   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of live rooms.",
		}),
		roomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Rooms created since start.",
		}),
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Push connections currently registered.",
		}),
		connectionsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_dropped_total",
			Help:      "Push connections dropped by the dispatcher.",
		}, []string{"reason"}),
		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Room events handed to the dispatcher.",
		}, []string{"type"}),
		commandsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Room commands rejected, by command and reason.",
		}, []string{"command", "reason"}),
	}
}

func (m *Metrics) RoomCreated() {
	m.roomsCreated.Inc()
	m.roomsActive.Inc()
}

func (m *Metrics) RoomDestroyed() {
	m.roomsActive.Dec()
}

func (m *Metrics) ConnectionOpened() {
	m.connectionsActive.Inc()
}

func (m *Metrics) ConnectionClosed() {
	m.connectionsActive.Dec()
}

func (m *Metrics) ConnectionDropped(reason string) {
	m.connectionsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) EventPublished(eventType string) {
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) CommandRejected(command, reason string) {
	m.commandsRejected.WithLabelValues(command, reason).Inc()
}
