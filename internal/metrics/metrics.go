// Package metrics records Prometheus counters for provider calls and experiments.
// The registry is private to llmsweep; a batch run dumps it with WriteTextfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets covers completion latencies from 100ms to 2 minutes.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Outcome and status label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"

	StatusCompleted = "completed"
	StatusAborted   = "aborted"
)

// Registry holds every llmsweep collector.
var Registry = prometheus.NewRegistry()

var (
	// ProviderCallsTotal counts provider calls by outcome.
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmsweep_provider_calls_total",
			Help: "Provider calls",
		},
		[]string{"provider", "model", "outcome"},
	)

	// ProviderCallDuration records provider call latency in seconds.
	ProviderCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llmsweep_provider_call_duration_seconds",
			Help:    "Provider call latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ExperimentsTotal counts experiments by terminal status.
	ExperimentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmsweep_experiments_total",
			Help: "Experiments run",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		ProviderCallsTotal,
		ProviderCallDuration,
		ExperimentsTotal,
	)
}

// ObserveCall records one provider call.
func ObserveCall(provider, model string, failed bool, elapsed time.Duration) {
	outcome := OutcomeSuccess
	if failed {
		outcome = OutcomeError
	}
	ProviderCallsTotal.WithLabelValues(provider, model, outcome).Inc()
	ProviderCallDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())
}

// ObserveExperiment records one experiment's terminal status.
func ObserveExperiment(status string) {
	ExperimentsTotal.WithLabelValues(status).Inc()
}

// WriteTextfile writes the registry in the text exposition format, suitable for
// the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
