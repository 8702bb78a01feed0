package relay

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the relay's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	clients prometheus.Gauge
	rooms   prometheus.Gauge
	frames  *prometheus.CounterVec
	dropped prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "liveboard",
			Subsystem: "relay",
			Name:      "clients",
			Help:      "Connected websocket clients on this node.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "liveboard",
			Subsystem: "relay",
			Name:      "rooms",
			Help:      "Rooms with at least one member on this node.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liveboard",
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Inbound frames by relay command.",
		}, []string{"command"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liveboard",
			Subsystem: "relay",
			Name:      "slow_clients_dropped_total",
			Help:      "Clients disconnected because their send buffer was full.",
		}),
	}
	reg.MustRegister(m.clients, m.rooms, m.frames, m.dropped)
	return m
}

func (m *Metrics) clientConnected(delta float64) {
	if m != nil {
		m.clients.Add(delta)
	}
}

func (m *Metrics) roomOpened(delta float64) {
	if m != nil {
		m.rooms.Add(delta)
	}
}

func (m *Metrics) frame(command string) {
	if m != nil {
		m.frames.WithLabelValues(command).Inc()
	}
}

func (m *Metrics) slowClient() {
	if m != nil {
		m.dropped.Inc()
	}
}
