// Package metrics exposes Prometheus instruments for the agent. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "querybird"

// Metrics holds the agent's collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	llmDuration    *prometheus.HistogramVec
	llmTokens      *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	toolCalls      *prometheus.CounterVec
	loopIterations *prometheus.HistogramVec
	summaries      *prometheus.CounterVec
	exchanges      *prometheus.CounterVec
}

// New creates a Metrics with its own registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of chat completion requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Tokens reported by the provider.",
		}, []string{"direction"}), // prompt | completion
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Latency of tool executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool executions by outcome.",
		}, []string{"tool", "status"}),
		loopIterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loop_iterations",
			Help:      "LLM round trips per query.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}, []string{"outcome"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summarization attempts by outcome.",
		}, []string{"status"}),
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Recorded exchanges by outcome.",
		}, []string{"status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.llmDuration, m.llmTokens,
		m.toolDuration, m.toolCalls,
		m.loopIterations, m.summaries, m.exchanges,
	)
	return m
}

// Registry returns the underlying registry, or nil for a nil Metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLLM(status string, d time.Duration, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.llmDuration.WithLabelValues(status).Observe(d.Seconds())
	if promptTokens > 0 {
		m.llmTokens.WithLabelValues("prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokens.WithLabelValues("completion").Add(float64(completionTokens))
	}
}

func (m *Metrics) ObserveToolCall(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
	m.toolCalls.WithLabelValues(tool, status).Inc()
}

func (m *Metrics) ObserveLoop(outcome string, iterations int) {
	if m == nil {
		return
	}
	m.loopIterations.WithLabelValues(outcome).Observe(float64(iterations))
}

func (m *Metrics) IncSummary(status string) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(status).Inc()
}

func (m *Metrics) IncExchange(status string) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(status).Inc()
}
