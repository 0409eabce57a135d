package probe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts device traffic. A nil *Metrics records nothing.
type Metrics struct {
	packets     *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	timeouts    prometheus.Counter
	undecodable prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		packets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tunprobe_packets_total",
			Help: "Packets moved through the TUN device",
		}, []string{"direction"}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tunprobe_bytes_total",
			Help: "Bytes moved through the TUN device",
		}, []string{"direction"}),
		timeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "tunprobe_read_timeouts_total",
			Help: "Reads that expired without a reply",
		}),
		undecodable: f.NewCounter(prometheus.CounterOpts{
			Name: "tunprobe_undecodable_total",
			Help: "Replies that could not be decoded",
		}),
	}
}

func (m *Metrics) sent(n int) {
	if m == nil {
		return
	}
	m.packets.WithLabelValues("tx").Inc()
	m.bytes.WithLabelValues("tx").Add(float64(n))
}

func (m *Metrics) received(n int) {
	if m == nil {
		return
	}
	m.packets.WithLabelValues("rx").Inc()
	m.bytes.WithLabelValues("rx").Add(float64(n))
}

func (m *Metrics) timedOut() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}

func (m *Metrics) undecoded() {
	if m == nil {
		return
	}
	m.undecodable.Inc()
}
