package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "webasto_monitor"

// Metrics holds the Prometheus collectors of the monitor. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	framesReceived      *prometheus.CounterVec
	decodeErrors        prometheus.Counter
	reconnectsScheduled prometheus.Counter
	linkUp              prometheus.Gauge
	gatewayRequests     *prometheus.CounterVec
	logSize             prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_received_total",
				Help:      "Decoded stream frames by event kind",
			},
			[]string{"kind"},
		),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Stream frames discarded because they could not be decoded",
		}),
		reconnectsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnect attempts scheduled after the stream closed",
		}),
		linkUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_link_up",
			Help:      "1 while the event stream is connected",
		}),
		gatewayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_requests_total",
				Help:      "Control API requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		logSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "message_log_entries",
			Help:      "Entries currently held in the message log",
		}),
	}

	m.registry.MustRegister(
		m.framesReceived,
		m.decodeErrors,
		m.reconnectsScheduled,
		m.linkUp,
		m.gatewayRequests,
		m.logSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) FrameReceived(kind string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) ReconnectScheduled() {
	if m == nil {
		return
	}
	m.reconnectsScheduled.Inc()
}

func (m *Metrics) SetLinkUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.linkUp.Set(1)
	} else {
		m.linkUp.Set(0)
	}
}

// GatewayRequest records one control API call; outcome is "ok" or "error".
func (m *Metrics) GatewayRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) SetLogSize(n int) {
	if m == nil {
		return
	}
	m.logSize.Set(float64(n))
}

// Handler serves the private registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
