package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckask_questions_total",
			Help: "Total number of questions processed, by final outcome.",
		},
		[]string{"outcome"},
	)
	repairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckask_repairs_total",
			Help: "Total number of repair attempts, by outcome.",
		},
		[]string{"outcome"},
	)
	generationLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckask_generation_latency_seconds",
			Help:    "Latency of text-generation calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"stage"},
	)
	executionLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckask_execution_latency_seconds",
			Help:    "Latency of statement executions against the data store.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage", "status"},
	)
	memoryEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckask_memory_entries",
			Help: "Current number of entries held in conversational memory.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		repairsTotal,
		generationLatencySeconds,
		executionLatencySeconds,
		memoryEntries,
	)
}

func ObserveQuestion(outcome string) {
	questionsTotal.WithLabelValues(outcome).Inc()
}

func ObserveRepair(outcome string) {
	repairsTotal.WithLabelValues(outcome).Inc()
}

func ObserveGeneration(stage string, elapsed time.Duration) {
	generationLatencySeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func ObserveExecution(stage string, ok bool, elapsed time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	executionLatencySeconds.WithLabelValues(stage, status).Observe(elapsed.Seconds())
}

func SetMemoryEntries(count int) {
	if count < 0 {
		count = 0
	}
	memoryEntries.Set(float64(count))
}
