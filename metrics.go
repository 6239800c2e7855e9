package notify

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/srishina/notify.go/internal/frametype"
)

const (
	metricsNamespace = "notify"
	metricsSubsystem = "stream"
)

// metrics holds the optional Prometheus collectors of a client. A nil
// *metrics is valid and records nothing.
type metrics struct {
	attempts   prometheus.Counter
	opens      prometheus.Counter
	failures   *prometheus.CounterVec
	reconnects prometheus.Counter
	frames     *prometheus.CounterVec
	connected  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "connection_attempts_total",
			Help: "Number of stream connection attempts.",
		}),
		opens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "connections_opened_total",
			Help: "Number of streams that were opened successfully.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "failures_total",
			Help: "Stream failures and rejected frames by kind.",
		}, []string{"kind"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "reconnects_scheduled_total",
			Help: "Number of reconnect timers armed by the backoff scheduler.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "frames_received_total",
			Help: "Frames received on the stream by type.",
		}, []string{"type"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "connected",
			Help: "1 while the stream is open, 0 otherwise.",
		}),
	}

	var err error
	m.attempts = register(reg, m.attempts, &err)
	m.opens = register(reg, m.opens, &err)
	m.failures = register(reg, m.failures, &err)
	m.reconnects = register(reg, m.reconnects, &err)
	m.frames = register(reg, m.frames, &err)
	m.connected = register(reg, m.connected, &err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing an identical collector that is already
// registered so that several clients can share one registry
func register[T prometheus.Collector](reg prometheus.Registerer, c T, errp *error) T {
	if *errp != nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		*errp = err
	}
	return c
}

func (m *metrics) attempt() {
	if m != nil {
		m.attempts.Inc()
	}
}

func (m *metrics) opened() {
	if m != nil {
		m.opens.Inc()
		m.connected.Set(1)
	}
}

func (m *metrics) closed() {
	if m != nil {
		m.connected.Set(0)
	}
}

func (m *metrics) failed(kind FailureKind) {
	if m != nil {
		m.failures.WithLabelValues(kind.String()).Inc()
	}
}

func (m *metrics) reconnectScheduled() {
	if m != nil {
		m.reconnects.Inc()
	}
}

func (m *metrics) frameReceived(typ string) {
	if m == nil {
		return
	}
	switch ft := frametype.FrameType(typ); {
	case ft.Text() != "", typ == "malformed", typ == "keepalive":
	default:
		typ = "other"
	}
	m.frames.WithLabelValues(typ).Inc()
}
