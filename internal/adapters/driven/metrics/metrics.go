// Package metrics records session and relay outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.Metrics = (*Recorder)(nil)

const namespace = "saai"

// Recorder is a driven.Metrics backed by its own Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	grants *prometheus.CounterVec
	relays *prometheus.CounterVec
	state  *prometheus.GaugeVec
}

// NewRecorder creates a recorder with Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grant_attempts_total",
			Help:      "Recovery strategy calls by strategy and result.",
		}, []string{"strategy", "result"}),
		relays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_attempts_total",
			Help:      "Outbound webhook attempts by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current session state per profile (0 idle, 1 refreshing, 2 awaiting interactive auth).",
		}, []string{"profile"}),
	}

	r.registry.MustRegister(
		r.grants,
		r.relays,
		r.state,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// GrantAttempted counts one recovery strategy call.
func (r *Recorder) GrantAttempted(kind domain.GrantKind, ok bool) {
	r.grants.WithLabelValues(kind.String(), result(ok)).Inc()
}

// RelayAttempted counts one outbound call.
func (r *Recorder) RelayAttempted(endpoint domain.Endpoint, outcome string) {
	r.relays.WithLabelValues(string(endpoint), outcome).Inc()
}

// StateChanged records the current session state of a profile.
func (r *Recorder) StateChanged(profile string, state domain.SessionState) {
	r.state.WithLabelValues(profile).Set(float64(state))
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func result(ok bool) string {
	return strconv.FormatBool(ok)
}
