// Package metrics exposes Prometheus collectors for pipeline runs.
//
// Registered series:
//
//	cryptoetl_runs_total{status}
//	cryptoetl_records_committed_total
//	cryptoetl_records_skipped_total
//	cryptoetl_stage_failures_total{stage}
//	cryptoetl_run_duration_seconds
//	cryptoetl_last_success_timestamp_seconds
//	go_* and process_* system metrics
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cryptoetl"

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics owns a private registry so tests and multiple runners never collide
// on the global one.
type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	committed     prometheus.Counter
	skipped       prometheus.Counter
	stageFailures *prometheus.CounterVec
	duration      prometheus.Histogram
	lastSuccess   prometheus.Gauge
}

// New builds and registers the pipeline collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status",
		}, []string{"status"}),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_committed_total",
			Help:      "Records committed to the snapshot table",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Upstream entries skipped as malformed",
		}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Failed runs by the stage that failed",
		}, []string{"stage"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a pipeline run",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
	m.registry.MustRegister(
		m.runs,
		m.committed,
		m.skipped,
		m.stageFailures,
		m.duration,
		m.lastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun records the result of one run. stage is ignored on success.
func (m *Metrics) ObserveRun(success bool, stage string, committed, skipped int, elapsed time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	m.skipped.Add(float64(skipped))
	if !success {
		m.runs.WithLabelValues(StatusFailure).Inc()
		m.stageFailures.WithLabelValues(stage).Inc()
		return
	}
	m.runs.WithLabelValues(StatusSuccess).Inc()
	m.committed.Add(float64(committed))
	m.lastSuccess.Set(float64(finishedAt.Unix()))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
