// Package metrics owns the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nexsite"

// Metrics groups the collectors registered on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	storeOperations *prometheus.CounterVec
	outboxWrites    *prometheus.CounterVec
	outboxPending   prometheus.Gauge
	leadSubmissions *prometheus.CounterVec
	demoFallbacks   *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		storeOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Data access calls by operation and result.",
		}, []string{"op", "result"}),
		outboxWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_writes_total",
			Help:      "Background writes by kind and result.",
		}, []string{"kind", "result"}),
		outboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "Background writes waiting to run.",
		}),
		leadSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_submissions_total",
			Help:      "Consultation form submissions by outcome.",
		}, []string{"outcome"}),
		demoFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "demo_fallbacks_total",
			Help:      "Admin screens that fell back to demo data.",
		}, []string{"screen"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.storeOperations,
		m.outboxWrites,
		m.outboxPending,
		m.leadSubmissions,
		m.demoFallbacks,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// StoreOperation counts one data access call.
func (m *Metrics) StoreOperation(op string, ok bool) {
	if m == nil {
		return
	}
	m.storeOperations.WithLabelValues(op, result(ok)).Inc()
}

// OutboxWrite counts one finished background write.
func (m *Metrics) OutboxWrite(kind string, ok bool) {
	if m == nil {
		return
	}
	m.outboxWrites.WithLabelValues(kind, result(ok)).Inc()
}

// OutboxPending sets the queue depth.
func (m *Metrics) OutboxPending(n int) {
	if m == nil {
		return
	}
	m.outboxPending.Set(float64(n))
}

// LeadSubmission counts one form submission.
func (m *Metrics) LeadSubmission(outcome string) {
	if m == nil {
		return
	}
	m.leadSubmissions.WithLabelValues(outcome).Inc()
}

// DemoFallback counts one admin screen served from demo data.
func (m *Metrics) DemoFallback(screen string) {
	if m == nil {
		return
	}
	m.demoFallbacks.WithLabelValues(screen).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
