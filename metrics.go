package realtime

import "github.com/prometheus/client_golang/prometheus"

// metricsRegistry wires the connection subsystem to Prometheus,
// grounded on go-server-2/server.go's Stats struct of direct
// prometheus.Gauge/Counter fields (DESIGN.md), generalized from
// per-socket server stats to per-connection client stats.
type metricsRegistry struct {
	stateGauge         *prometheus.GaugeVec
	stateTransitions   *prometheus.CounterVec
	reconnectAttempts  prometheus.Counter
	pendingQueueDepth  prometheus.Gauge
	serialCounterGauge prometheus.Gauge
	acksTotal          prometheus.Counter
	nacksTotal         prometheus.Counter
	heartbeatsTotal    prometheus.Counter
}

// newMetricsRegistry constructs a metricsRegistry and registers its collectors
// with reg. Callers that don't want Prometheus wiring can pass nil to
// Options.Registerer and get an unregistered (but still usable) set.
func newMetricsRegistry(reg prometheus.Registerer) *metricsRegistry {
	m := &metricsRegistry{
		stateGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "realtime_connection_state",
			Help: "1 for the current connection state, 0 otherwise, labeled by state name.",
		}, []string{"state"}),
		stateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_state_transitions_total",
			Help: "Count of connection state transitions.",
		}, []string{"from", "to"}),
		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "realtime_reconnect_attempts_total",
			Help: "Count of transport open attempts made by the connection manager.",
		}),
		pendingQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_pending_queue_depth",
			Help: "Current number of ack-required frames awaiting Ack/Nack.",
		}),
		serialCounterGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_serial_counter",
			Help: "Current value of the outbound message serial counter.",
		}),
		acksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "realtime_acks_total",
			Help: "Count of Ack frames processed.",
		}),
		nacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "realtime_nacks_total",
			Help: "Count of Nack frames processed.",
		}),
		heartbeatsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "realtime_heartbeats_total",
			Help: "Count of Heartbeat frames received.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.stateGauge, m.stateTransitions, m.reconnectAttempts,
			m.pendingQueueDepth, m.serialCounterGauge,
			m.acksTotal, m.nacksTotal, m.heartbeatsTotal,
		)
	}
	return m
}

func (m *metricsRegistry) recordTransition(change StateChange) {
	if m == nil {
		return
	}
	for _, s := range []State{
		StateInitialized, StateConnecting, StateConnected, StateDisconnected,
		StateSuspended, StateClosing, StateClosed, StateFailed,
	} {
		v := 0.0
		if s == change.Current {
			v = 1.0
		}
		m.stateGauge.WithLabelValues(s.String()).Set(v)
	}
	m.stateTransitions.WithLabelValues(change.Previous.String(), change.Current.String()).Inc()
}
