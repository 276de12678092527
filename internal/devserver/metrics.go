package devserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes dev-server lifecycle counters. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	starts        prometheus.Counter
	restarts      prometheus.Counter
	builds        *prometheus.CounterVec
	reloadClients prometheus.Gauge
}

// NewMetrics registers the dev-server metrics with reg. Passing nil uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		starts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rsbuild",
			Subsystem: "dev",
			Name:      "server_starts_total",
			Help:      "Number of successful dev server starts.",
		}),
		restarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rsbuild",
			Subsystem: "dev",
			Name:      "server_restarts_total",
			Help:      "Number of config-change triggered restarts.",
		}),
		builds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rsbuild",
			Subsystem: "dev",
			Name:      "builds_total",
			Help:      "Number of finished compilations by result.",
		}, []string{"result"}),
		reloadClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rsbuild",
			Subsystem: "dev",
			Name:      "reload_clients",
			Help:      "Browsers connected to the live-update channel.",
		}),
	}
}

// ServerStarted records a successful start.
func (m *Metrics) ServerStarted() {
	if m != nil {
		m.starts.Inc()
	}
}

// Restarted records a config-change triggered restart.
func (m *Metrics) Restarted() {
	if m != nil {
		m.restarts.Inc()
	}
}

// BuildFinished records a finished compilation.
func (m *Metrics) BuildFinished(failed bool) {
	if m == nil {
		return
	}
	result := "success"
	if failed {
		result = "failure"
	}
	m.builds.WithLabelValues(result).Inc()
}

// SetReloadClients records the live-update client count.
func (m *Metrics) SetReloadClients(n int) {
	if m != nil {
		m.reloadClients.Set(float64(n))
	}
}
