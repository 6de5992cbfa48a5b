// Package metrics exposes dashboard counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kiln_dashboard"

// Render outcomes.
const (
	RenderCreated     = "created"
	RenderUpdated     = "updated"
	RenderSkipped     = "skipped"
	RenderPlaceholder = "placeholder"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	pushesReceived prometheus.Counter
	commandsSent   *prometheus.CounterVec
	renders        *prometheus.CounterVec
	apiRequests    *prometheus.CounterVec
	activeTimers   prometheus.Gauge
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pushesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_updates_total",
			Help:      "Push updates received on the realtime channel.",
		}),
		commandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_sent_total",
			Help:      "Control commands emitted, by command.",
		}, []string{"command"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_renders_total",
			Help:      "Chart render passes, by outcome.",
		}, []string{"outcome"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Backend REST requests, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		activeTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_timers",
			Help:      "Repeating refresh timers currently scheduled.",
		}),
	}
	m.registry.MustRegister(
		m.pushesReceived,
		m.commandsSent,
		m.renders,
		m.apiRequests,
		m.activeTimers,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Push() {
	if m == nil {
		return
	}
	m.pushesReceived.Inc()
}

func (m *Metrics) Command(command string) {
	if m == nil {
		return
	}
	m.commandsSent.WithLabelValues(command).Inc()
}

func (m *Metrics) Render(outcome string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(outcome).Inc()
}

func (m *Metrics) API(endpoint string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.apiRequests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) TimerStarted() {
	if m == nil {
		return
	}
	m.activeTimers.Inc()
}

func (m *Metrics) TimerStopped() {
	if m == nil {
		return
	}
	m.activeTimers.Dec()
}
