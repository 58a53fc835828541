package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector instruments pipeline runs. The caller owns the registerer;
// the engine never exposes an HTTP endpoint itself.
type Collector struct {
	analysesTotal     prometheus.Counter
	analysisDuration  prometheus.Histogram
	stageDuration     *prometheus.HistogramVec
	messagesProcessed prometheus.Histogram
	eventsDetected    *prometheus.CounterVec
	badgesAwarded     prometheus.Counter
}

// NewCollector registers the pipeline metrics on reg. Passing nil uses
// a private registry, which keeps the collector inert but safe.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Collector{
		analysesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "analysis_engine_runs_total",
			Help: "Total number of completed analysis runs",
		}),
		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "analysis_engine_run_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analysis_engine_stage_duration_seconds",
			Help:    "Per-stage computation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		messagesProcessed: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "analysis_engine_messages_per_run",
			Help:    "Messages processed per analysis run",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
		eventsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_engine_events_detected_total",
			Help: "Behavioral events detected, by type",
		}, []string{"type"}),
		badgesAwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "analysis_engine_badges_awarded_total",
			Help: "Badges awarded across all runs",
		}),
	}
}

// ObserveRun records one completed analysis.
func (c *Collector) ObserveRun(duration time.Duration, messages int) {
	c.analysesTotal.Inc()
	c.analysisDuration.Observe(duration.Seconds())
	c.messagesProcessed.Observe(float64(messages))
}

// ObserveStage records one stage's duration.
func (c *Collector) ObserveStage(stage string, duration time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveEvents records detected behavioral events of one type.
func (c *Collector) ObserveEvents(eventType string, count int) {
	if count > 0 {
		c.eventsDetected.WithLabelValues(eventType).Add(float64(count))
	}
}

// ObserveBadges records awarded badges.
func (c *Collector) ObserveBadges(count int) {
	if count > 0 {
		c.badgesAwarded.Add(float64(count))
	}
}
