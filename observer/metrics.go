package observer

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsConfig struct {
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels
	Buckets     []float64
	Registry    prometheus.Registerer
}

type MetricsOption func(*MetricsConfig)

func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the flush duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Metrics exports Prometheus counters for one or more Systems. A nil
// *Metrics records nothing.
type Metrics struct {
	ObserversCreated prometheus.Counter
	WatcherRuns      prometheus.Counter
	Flushes          prometheus.Counter
	FlushDuration    prometheus.Histogram
	FlushSize        prometheus.Histogram
	LoopAborts       prometheus.Counter
	Errors           *prometheus.CounterVec
}

// NewMetrics registers the collectors, by default with
// prometheus.DefaultRegisterer. Registering twice on one registry panics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := MetricsConfig{
		Namespace: "observer",
		Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		ObserversCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "observers_created_total",
			Help:        "Containers that had an observer attached",
			ConstLabels: config.ConstLabels,
		}),
		WatcherRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "watcher_runs_total",
			Help:        "Watcher re-evaluations triggered by dependency changes",
			ConstLabels: config.ConstLabels,
		}),
		Flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Scheduler queue flushes",
			ConstLabels: config.ConstLabels,
		}),
		FlushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Time spent flushing the scheduler queue",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		FlushSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_watchers",
			Help:        "Watchers run per flush",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		}),
		LoopAborts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "infinite_loop_aborts_total",
			Help:        "Watchers skipped for exceeding the update count of a flush",
			ConstLabels: config.ConstLabels,
		}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Errors routed to the error handler",
			ConstLabels: config.ConstLabels,
		}, []string{"phase"}),
	}
}

func (m *Metrics) observed() {
	if m == nil {
		return
	}
	m.ObserversCreated.Inc()
}

func (m *Metrics) watcherRan() {
	if m == nil {
		return
	}
	m.WatcherRuns.Inc()
}

func (m *Metrics) loopAborted() {
	if m == nil {
		return
	}
	m.LoopAborts.Inc()
}

func (m *Metrics) flushed(d time.Duration, n int) {
	if m == nil {
		return
	}
	m.Flushes.Inc()
	m.FlushDuration.Observe(d.Seconds())
	m.FlushSize.Observe(float64(n))
}

func (m *Metrics) errored(err error) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(errorPhase(err)).Inc()
}

// errorPhase keeps the label set small: watcher errors report their phase,
// everything else is a hook.
func errorPhase(err error) string {
	var werr *WatcherError
	if errors.As(err, &werr) {
		return werr.Info
	}
	return "hook"
}
