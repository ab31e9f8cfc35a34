// Package observability holds the platform's domain-specific metrics, kept
// separate from gateway/middleware's generic per-route HTTP metrics.
package observability

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhb-labs/agentic-wallet/eventbus"
	"github.com/nhb-labs/agentic-wallet/types"
)

// Metrics exposes cycle-count and intent-outcome counters on a private
// registry, mirroring the teacher's per-component Observability shape in
// gateway/middleware/observability.go. The cycle and transaction counters
// are derived from the event bus and the intent counter is fed through
// RecordIntent, so neither the orchestrator nor the intent router needs a
// metrics dependency of its own.
type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal  *prometheus.CounterVec
	intentsTotal *prometheus.CounterVec
	txTotal      *prometheus.CounterVec
}

// NewMetrics constructs the registry and subscribes to bus for the
// lifetime of the process; there is no corresponding unsubscribe because
// metrics collection is expected to run until shutdown.
func NewMetrics(bus *eventbus.Bus) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "agent_cycles_total",
			Help:      "Total managed-agent decision cycles, by decision outcome.",
		}, []string{"decision"}),
		intentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "intents_total",
			Help:      "Total BYOA intents submitted through the Intent Router, by type and outcome.",
		}, []string{"type", "outcome"}),
		txTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "transactions_total",
			Help:      "Total chain transactions emitted onto the event bus, by status.",
		}, []string{"status"}),
	}
	registry.MustRegister(m.cyclesTotal, m.intentsTotal, m.txTotal)

	bus.Subscribe(m.observe)
	return m
}

func (m *Metrics) observe(event types.SystemEvent) {
	switch event.Kind {
	case types.EventAgentAction:
		action, _ := event.Data["action"].(string)
		if action == "" || strings.HasPrefix(action, "byoa_intent:") {
			return
		}
		m.cyclesTotal.WithLabelValues(action).Inc()
	case types.EventTransaction:
		status, _ := event.Data["status"].(string)
		if status == "" {
			status = "unknown"
		}
		m.txTotal.WithLabelValues(status).Inc()
	}
}

// RecordIntent counts one BYOA intent submission by type and outcome. The
// Intent Router never emits an event for a rejected intent (only the
// shared history store records it), so the HTTP handler that calls
// SubmitIntent reports the outcome here directly rather than this type
// inferring it from the bus.
func (m *Metrics) RecordIntent(intentType string, outcome types.IntentOutcome) {
	m.intentsTotal.WithLabelValues(intentType, string(outcome)).Inc()
}

// Handler exposes the metrics registry for GET /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry so callers can combine it with
// other registries behind a single /metrics endpoint.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
