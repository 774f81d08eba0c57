package forkjoin

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/vhlavac/forkjoin/logs"
)

// init mirrors the teacher's pooler.go init(): calling maxprocs.Set()
// once, at package load, so runtime.GOMAXPROCS(0) below reflects any
// cgroup CPU quota rather than the host's full core count.
func init() {
	_, _ = maxprocs.Set()
}

// config holds construction-time options for a Scheduler, built up by
// Option functions and defaulted by newDefaultConfig.
type config struct {
	logLevel   logs.Level
	limiter    *rate.Limiter
	registerer prometheus.Registerer
}

func newDefaultConfig() config {
	return config{
		logLevel: logs.LevelInfo,
	}
}

// defaultWorkerCount is what New falls back to when the caller passes a
// non-positive worker count.
func defaultWorkerCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}

// Option configures a Scheduler at construction time.
type Option func(*config)

// WithLogLevel sets the minimum level logged during the scheduler's own
// lifecycle (construction, worker start/stop, pool resets). It never
// affects job bodies themselves. It takes effect only when the
// package-level logs.Log has not been set yet; if it already has (by
// logs.Initialize or an earlier New), that logger and its level are kept
// and this option is ignored.
func WithLogLevel(level logs.Level) Option {
	return func(c *config) { c.logLevel = level }
}

// WithSubmissionRateLimiter throttles admission of SubmitJob/SubmitChild
// calls uniformly. This is an admission control, not a fairness or
// priority mechanism — spec Non-goals explicitly exclude both of those.
func WithSubmissionRateLimiter(limiter *rate.Limiter) Option {
	return func(c *config) { c.limiter = limiter }
}

// WithMetricsRegisterer registers the scheduler's counters and gauges
// with reg. If never called, metrics are tracked in-process (reachable
// via (*Scheduler).Metrics) but never exported to Prometheus.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) { c.registerer = reg }
}
