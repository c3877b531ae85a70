// Package metrics adapts the teacher's internal/metrics.Collector
// (Prometheus counters/histograms/gauges registered once and updated from
// pool lifecycle callbacks) from raft-recovery's job-dispatch counters to
// the pool's own terminal states and queue/worker gauges.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

// Collector owns the pool's Prometheus instrumentation. Callers build one
// with NewCollector, which registers it against the given registry (or the
// default one), and feed it from pool callbacks.
type Collector struct {
	submitted  prometheus.Counter
	completed  *prometheus.CounterVec
	latency    prometheus.Histogram
	workers    prometheus.Gauge
	workersIdle prometheus.Gauge
	queueDepth *prometheus.GaugeVec
}

// NewCollector builds a Collector and registers it against reg. Passing
// nil registers against prometheus.DefaultRegisterer, matching the
// teacher's package-level MustRegister calls.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskpool_jobs_submitted_total",
			Help: "Total jobs accepted by Submit.",
		}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskpool_jobs_completed_total",
			Help: "Total jobs reaching a terminal state, labeled by outcome.",
		}, []string{"status"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskpool_job_latency_seconds",
			Help:    "Wall-clock seconds from a job's first attempt start to its terminal outcome.",
			Buckets: prometheus.DefBuckets,
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskpool_workers_current",
			Help: "Current number of live workers.",
		}),
		workersIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskpool_workers_idle",
			Help: "Current number of idle workers.",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taskpool_queue_depth",
			Help: "Current queued job count, labeled by priority band.",
		}, []string{"priority"}),
	}
	reg.MustRegister(c.submitted, c.completed, c.latency, c.workers, c.workersIdle, c.queueDepth)
	return c
}

// RecordSubmit increments the submitted counter.
func (c *Collector) RecordSubmit() {
	c.submitted.Inc()
}

// RecordOutcome records a terminal outcome's status and latency.
func (c *Collector) RecordOutcome(o job.Outcome) {
	c.completed.WithLabelValues(o.Status.String()).Inc()
	c.latency.Observe(o.EndedAt.Sub(o.StartedAt).Seconds())
}

// SetWorkerCounts updates the live/idle worker gauges.
func (c *Collector) SetWorkerCounts(live, idle int) {
	c.workers.Set(float64(live))
	c.workersIdle.Set(float64(idle))
}

// SetQueueDepth updates the per-band queue depth gauge.
func (c *Collector) SetQueueDepth(p job.Priority, depth int) {
	c.queueDepth.WithLabelValues(p.String()).Set(float64(depth))
}

// StartServer exposes the registered metrics over HTTP at /metrics on the
// given port, blocking until the server returns an error; it has no
// shutdown hook of its own. Kept verbatim in spirit from the teacher's
// Collector.StartServer; wired only from cmd/taskpoolctl, never required
// by the core pool.
func StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
