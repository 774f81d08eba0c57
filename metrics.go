package forkjoin

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a point-in-time snapshot of a Scheduler's counters, returned
// by (*Scheduler).Metrics.
type Metrics struct {
	JobsSubmitted int64
	JobsExecuted  int64
	JobsCompleted int64
	JobsStolen    int64
	Replays       int64
	Outstanding   int64
}

// metricsCollector holds the live atomic counters backing Metrics and,
// if a Registerer was supplied via WithMetricsRegisterer, the Prometheus
// instruments mirroring them.
type metricsCollector struct {
	jobsSubmitted atomic.Int64
	jobsExecuted  atomic.Int64
	jobsCompleted atomic.Int64
	jobsStolen    atomic.Int64
	replays       atomic.Int64

	prom *promInstruments
}

type promInstruments struct {
	jobsSubmitted prometheus.Counter
	jobsExecuted  prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsStolen    prometheus.Counter
	replays       prometheus.Counter
}

// newMetricsCollector builds a collector. outstanding is called by the
// forkjoin_outstanding_jobs gauge on every scrape; it should read the
// Scheduler's live outstandingJobs counter.
func newMetricsCollector(reg prometheus.Registerer, outstanding func() float64) *metricsCollector {
	c := &metricsCollector{}
	if reg == nil {
		return c
	}
	c.prom = &promInstruments{
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forkjoin_jobs_submitted_total",
			Help: "Total jobs submitted via SubmitJob, SubmitChild, or replay/successor scheduling.",
		}),
		jobsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forkjoin_jobs_executed_total",
			Help: "Total job bodies invoked (including replayed bodies).",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forkjoin_jobs_completed_total",
			Help: "Total jobs whose onComplete has fired.",
		}),
		jobsStolen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forkjoin_jobs_stolen_total",
			Help: "Total jobs picked up from another worker's queue via work stealing.",
		}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forkjoin_replays_total",
			Help: "Total PlayBackPool invocations.",
		}),
	}
	outstandingGauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "forkjoin_outstanding_jobs",
		Help: "Jobs currently submitted but not yet completed.",
	}, outstanding)
	reg.MustRegister(
		c.prom.jobsSubmitted,
		c.prom.jobsExecuted,
		c.prom.jobsCompleted,
		c.prom.jobsStolen,
		c.prom.replays,
		outstandingGauge,
	)
	return c
}

func (c *metricsCollector) submitted() {
	c.jobsSubmitted.Add(1)
	if c.prom != nil {
		c.prom.jobsSubmitted.Inc()
	}
}

func (c *metricsCollector) executed() {
	c.jobsExecuted.Add(1)
	if c.prom != nil {
		c.prom.jobsExecuted.Inc()
	}
}

func (c *metricsCollector) completed() {
	c.jobsCompleted.Add(1)
	if c.prom != nil {
		c.prom.jobsCompleted.Inc()
	}
}

func (c *metricsCollector) stolen() {
	c.jobsStolen.Add(1)
	if c.prom != nil {
		c.prom.jobsStolen.Inc()
	}
}

func (c *metricsCollector) replayed() {
	c.replays.Add(1)
	if c.prom != nil {
		c.prom.replays.Inc()
	}
}

func (c *metricsCollector) snapshot(outstanding int64) Metrics {
	return Metrics{
		JobsSubmitted: c.jobsSubmitted.Load(),
		JobsExecuted:  c.jobsExecuted.Load(),
		JobsCompleted: c.jobsCompleted.Load(),
		JobsStolen:    c.jobsStolen.Load(),
		Replays:       c.replays.Load(),
		Outstanding:   outstanding,
	}
}
