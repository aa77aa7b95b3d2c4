package transport

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the process-wide counters/gauges a host can register
// once and pass to every Conn it drives, giving an operator visibility
// across every connection without per-connection scrape targets.
type Metrics struct {
	PacketsSent     prometheus.Counter
	PacketsReceived prometheus.Counter
	PacketsDropped  *prometheus.CounterVec
	BytesSent       prometheus.Counter
	BytesReceived   prometheus.Counter
	PacketsLost     prometheus.Counter
	ActiveStreams   prometheus.Gauge
	HandshakesDone  prometheus.Counter
}

// NewMetrics constructs a Metrics set and registers it with reg.
// Passing a nil registry is valid: the returned Metrics still counts
// but is registered nowhere, so nothing is exported, and it remains
// safe to pass to a Conn.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quic", Name: "packets_sent_total", Help: "QUIC packets sent.",
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quic", Name: "packets_received_total", Help: "QUIC packets received and authenticated.",
		}),
		PacketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quic", Name: "packets_dropped_total", Help: "QUIC packets dropped, by reason.",
		}, []string{"reason"}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quic", Name: "bytes_sent_total", Help: "UDP payload bytes sent.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quic", Name: "bytes_received_total", Help: "UDP payload bytes received.",
		}),
		PacketsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quic", Name: "packets_lost_total", Help: "Packets declared lost by loss detection.",
		}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quic", Name: "active_streams", Help: "Streams currently open across all connections.",
		}),
		HandshakesDone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quic", Name: "handshakes_completed_total", Help: "Handshakes that reached the established state.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.PacketsSent, m.PacketsReceived, m.PacketsDropped, m.BytesSent,
			m.BytesReceived, m.PacketsLost, m.ActiveStreams, m.HandshakesDone)
	}
	return m
}

// Attach wires the metrics into a Conn so every Send/Recv/loss event
// on it is reflected automatically; called once per Conn by the host
// (see the outer quic package).
func (m *Metrics) Attach(c *Conn) {
	if m == nil {
		return
	}
	c.metrics = m
}
