package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	queriesTotal   *prometheus.CounterVec
	agentDispatch  *prometheus.CounterVec
	providerErrors *prometheus.CounterVec
	retriesTotal   *prometheus.CounterVec
	genLatency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		queriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_queries_total",
				Help: "Total number of processed queries by classified intent",
			},
			[]string{"intent"},
		),
		agentDispatch: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_agent_dispatch_total",
				Help: "Total number of agent dispatches",
			},
			[]string{"agent"},
		),
		providerErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_provider_errors_total",
				Help: "Total number of data provider errors",
			},
			[]string{"provider"},
		),
		retriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_retries_total",
				Help: "Total number of retry attempts by service",
			},
			[]string{"service"},
		),
		genLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsight_generation_duration_seconds",
				Help:    "Duration of LLM generation calls in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"operation"},
		),
	}
}

// IncQuery records a processed query by intent.
func (r *Recorder) IncQuery(intent string) {
	r.queriesTotal.WithLabelValues(intent).Inc()
}

// IncAgentDispatch records a dispatch to a specialist agent.
func (r *Recorder) IncAgentDispatch(agent string) {
	r.agentDispatch.WithLabelValues(agent).Inc()
}

// IncProviderError records a data provider failure.
func (r *Recorder) IncProviderError(provider string) {
	r.providerErrors.WithLabelValues(provider).Inc()
}

// IncRetry records a retry attempt.
func (r *Recorder) IncRetry(service string) {
	r.retriesTotal.WithLabelValues(service).Inc()
}

// ObserveGenerationLatency records generation call latency in seconds.
func (r *Recorder) ObserveGenerationLatency(operation string, seconds float64) {
	r.genLatency.WithLabelValues(operation).Observe(seconds)
}
