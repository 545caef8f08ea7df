// Package metrics collects and exposes Prometheus metrics for the agent.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records pipeline and workflow metrics. A nil *Collector is
// valid and records nothing, so callers never need to guard.
type Collector struct {
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	fetched        prometheus.Counter
	deduplicated   prometheus.Counter
	verified       prometheus.Counter
	digestItems    prometheus.Counter
	sourceFailures *prometheus.CounterVec
	commands       *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newshound_runs_total",
			Help: "Pipeline runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newshound_run_duration_seconds",
			Help:    "Wall-clock duration of pipeline runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newshound_articles_fetched_total",
			Help: "Articles returned by source fetches.",
		}),
		deduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newshound_articles_deduplicated_total",
			Help: "Articles dropped by the URL window filter.",
		}),
		verified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newshound_articles_verified_total",
			Help: "Articles that finished validation as verified.",
		}),
		digestItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newshound_digest_items_total",
			Help: "Items included in built digests.",
		}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newshound_source_failures_total",
			Help: "Fetch failures by source name.",
		}, []string{"source"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newshound_commands_total",
			Help: "Inbound workflow commands by verb.",
		}, []string{"verb"}),
	}

	reg.MustRegister(
		c.runs,
		c.runDuration,
		c.fetched,
		c.deduplicated,
		c.verified,
		c.digestItems,
		c.sourceFailures,
		c.commands,
	)

	return c
}

// RecordRun records a finished pipeline run.
func (c *Collector) RecordRun(status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(status).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// RecordBatch records the per-stage article counts of one run.
func (c *Collector) RecordBatch(fetched, deduplicated, verified int) {
	if c == nil {
		return
	}
	c.fetched.Add(float64(fetched))
	c.deduplicated.Add(float64(deduplicated))
	c.verified.Add(float64(verified))
}

// RecordDigestItems records how many items a built digest carried.
func (c *Collector) RecordDigestItems(count int) {
	if c == nil {
		return
	}
	c.digestItems.Add(float64(count))
}

// RecordSourceFailure records one failed source fetch.
func (c *Collector) RecordSourceFailure(source string) {
	if c == nil {
		return
	}
	c.sourceFailures.WithLabelValues(source).Inc()
}

// RecordCommand records one dispatched workflow command.
func (c *Collector) RecordCommand(verb string) {
	if c == nil {
		return
	}
	c.commands.WithLabelValues(verb).Inc()
}

// Handler returns the HTTP handler serving the given gatherer for scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
