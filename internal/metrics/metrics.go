// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors of the meeting agent service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meeting_agent"

// Webhook outcomes
const (
	OutcomeOK                  = "ok"
	OutcomeIgnored             = "ignored"
	OutcomeMissingHeaders      = "missing_headers"
	OutcomeInvalidSignature    = "invalid_signature"
	OutcomeInvalidPayload      = "invalid_payload"
	OutcomeMissingMeetingID    = "missing_meeting_id"
	OutcomeNotFoundOrStarted   = "not_found_or_started"
	OutcomeAgentNotFound       = "agent_not_found"
	OutcomeError               = "error"
	OutcomeBootstrapSkipped    = "skipped"
	OutcomeBootstrapTimeout    = "timeout"
	OutcomeBootstrapConnect    = "connect_failed"
	OutcomeBootstrapConfigure  = "configure_failed"
	OutcomeBootstrapSuccessful = "ok"
)

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	webhookEvents  *prometheus.CounterVec
	bootstrapTotal *prometheus.CounterVec
}

// New registers the service collectors, plus the Go and process collectors,
// on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		bootstrapTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstrap_total",
			Help:      "Agent session bootstrap attempts by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.webhookEvents,
		m.bootstrapTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveWebhook counts one webhook delivery.
func (m *Metrics) ObserveWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ObserveBootstrap counts one bootstrap attempt.
func (m *Metrics) ObserveBootstrap(outcome string) {
	if m == nil {
		return
	}
	m.bootstrapTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
