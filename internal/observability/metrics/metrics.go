package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes integration-layer instruments.
type Metrics struct {
	remoteCalls  *prometheus.CounterVec
	dispatches   *prometheus.CounterVec
	callbacks    *prometheus.CounterVec
	remoteErrors *prometheus.CounterVec
}

// New registers the integration-layer instruments on the given registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orcus_remote_api_calls_total",
			Help: "Remote billing API calls by action and outcome.",
		}, []string{"action", "outcome"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orcus_payment_dispatch_total",
			Help: "Payment dispatch attempts by gateway and outcome.",
		}, []string{"gateway", "outcome"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orcus_payment_callback_total",
			Help: "Provider callback reconciliations by gateway and outcome.",
		}, []string{"gateway", "outcome"}),
		remoteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orcus_remote_api_errors_total",
			Help: "Remote billing API failures by action and error kind.",
		}, []string{"action", "kind"}),
	}

	for _, collector := range []prometheus.Collector{
		m.remoteCalls, m.dispatches, m.callbacks, m.remoteErrors,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordRemoteCall counts one remote billing API call.
func (m *Metrics) RecordRemoteCall(action, outcome string) {
	if m == nil {
		return
	}
	m.remoteCalls.WithLabelValues(normalize(action), normalize(outcome)).Inc()
}

// RecordRemoteError counts one remote billing API failure.
func (m *Metrics) RecordRemoteError(action, kind string) {
	if m == nil {
		return
	}
	m.remoteErrors.WithLabelValues(normalize(action), normalize(kind)).Inc()
}

// RecordDispatch counts one payment dispatch attempt.
func (m *Metrics) RecordDispatch(gateway, outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(normalize(gateway), normalize(outcome)).Inc()
}

// RecordCallback counts one provider callback reconciliation.
func (m *Metrics) RecordCallback(gateway, outcome string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(normalize(gateway), normalize(outcome)).Inc()
}

func normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
