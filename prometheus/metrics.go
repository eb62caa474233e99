// Package prometheus exports collation metrics using the Prometheus client
// library.
package prometheus

import (
	"sync"
	"time"

	"github.com/fwojciec/collate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace is the namespace all metrics are defined under.
const Namespace = "collate"

// Compile-time interface verification.
var (
	_ collate.ProgressListener = (*Metrics)(nil)
	_ collate.FailureListener  = (*Metrics)(nil)
)

// Metrics is a progress listener recording how many documents were
// collated and how long each took.
type Metrics struct {
	started   prometheus.Counter
	completed prometheus.Counter
	failed    prometheus.Counter
	running   prometheus.Gauge
	duration  prometheus.Histogram

	mu     sync.Mutex
	starts map[int]time.Time
	now    func() time.Time
}

// NewMetrics creates the collation metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		started: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "collations_started_total",
			Help:      "Number of base documents whose collation started",
		}),
		completed: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "collations_completed_total",
			Help:      "Number of base documents collated and cached",
		}),
		failed: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "collations_failed_total",
			Help:      "Number of started collations that failed",
		}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "collations_running",
			Help:      "Number of collations in progress",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "collation_duration_seconds",
			Help:      "Time to collate one base document against every witness",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		starts: make(map[int]time.Time),
		now:    time.Now,
	}
}

// CollationStarted implements collate.ProgressListener.
func (m *Metrics) CollationStarted(doc collate.Document) {
	m.mu.Lock()
	m.starts[doc.ID] = m.now()
	m.mu.Unlock()
	m.started.Inc()
	m.running.Inc()
}

// UpdateProgress implements collate.ProgressListener.
func (m *Metrics) UpdateProgress(collate.Document, float64) {}

// CollationCompleted implements collate.ProgressListener. Completions
// replayed for documents collated before subscribing are counted but not
// timed.
func (m *Metrics) CollationCompleted(doc collate.Document) {
	m.completed.Inc()
	m.mu.Lock()
	start, ok := m.starts[doc.ID]
	delete(m.starts, doc.ID)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.running.Dec()
	m.duration.Observe(m.now().Sub(start).Seconds())
}

// CollationFailed implements collate.FailureListener. The document stops
// counting as running and is not timed.
func (m *Metrics) CollationFailed(doc collate.Document, _ error) {
	m.failed.Inc()
	m.mu.Lock()
	_, ok := m.starts[doc.ID]
	delete(m.starts, doc.ID)
	m.mu.Unlock()
	if ok {
		m.running.Dec()
	}
}
