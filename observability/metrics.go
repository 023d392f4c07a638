// Package observability exposes Prometheus metrics for the submission run.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the run metrics. All Record methods are nil-safe so
// components can hold a nil *Collector when metrics are not wanted.
type Collector struct {
	gatherer prometheus.Gatherer

	Submissions     *prometheus.CounterVec
	RateLimitWaits  prometheus.Histogram
	TokenRefreshes  *prometheus.CounterVec
	CheckpointSaves *prometheus.CounterVec
	Rows            *prometheus.CounterVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	submissions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matchain_submissions_total",
		Help: "Final submission outcomes, labeled by outcome kind.",
	}, []string{"outcome"}), "matchain_submissions_total")
	if err != nil {
		return nil, err
	}

	waits, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "matchain_rate_limit_wait_seconds",
		Help:    "Time spent waiting after HTTP 429 responses.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	}), "matchain_rate_limit_wait_seconds")
	if err != nil {
		return nil, err
	}

	refreshes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matchain_token_refreshes_total",
		Help: "Session refresh attempts, labeled by result.",
	}, []string{"result"}), "matchain_token_refreshes_total")
	if err != nil {
		return nil, err
	}

	checkpoints, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matchain_checkpoint_writes_total",
		Help: "Checkpoint writes of record files, labeled by result.",
	}, []string{"result"}), "matchain_checkpoint_writes_total")
	if err != nil {
		return nil, err
	}

	rows, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matchain_rows_total",
		Help: "Processed rows, labeled by disposition (success, failed, invalid, skipped).",
	}, []string{"disposition"}), "matchain_rows_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Submissions:     submissions,
		RateLimitWaits:  waits,
		TokenRefreshes:  refreshes,
		CheckpointSaves: checkpoints,
		Rows:            rows,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) RecordSubmission(outcome string) {
	if c == nil {
		return
	}
	c.Submissions.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRateLimitWait(d time.Duration) {
	if c == nil {
		return
	}
	c.RateLimitWaits.Observe(d.Seconds())
}

func (c *Collector) RecordTokenRefresh(ok bool) {
	if c == nil {
		return
	}
	c.TokenRefreshes.WithLabelValues(result(ok)).Inc()
}

func (c *Collector) RecordCheckpoint(ok bool) {
	if c == nil {
		return
	}
	c.CheckpointSaves.WithLabelValues(result(ok)).Inc()
}

func (c *Collector) RecordRow(disposition string) {
	if c == nil {
		return
	}
	c.Rows.WithLabelValues(disposition).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
