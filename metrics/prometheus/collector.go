// Package prometheus exports h5features metrics through client_golang.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bootphon/h5features-sub000"
)

var _ h5features.MetricsCollector = (*Collector)(nil)

// Collector implements h5features.MetricsCollector.
type Collector struct {
	opLatency  *prometheus.HistogramVec
	items      prometheus.Counter
	rows       *prometheus.CounterVec
	commits    *prometheus.CounterVec
	generation prometheus.Gauge
}

// NewCollector creates a collector and registers it with reg. A nil reg
// registers with the default registry.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "h5features_operation_latency_seconds",
			Help:    "Latency of writes and reads",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "h5features_items_written_total",
			Help: "Items of committed writes",
		}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "h5features_rows_total",
			Help: "Feature rows written or read",
		}, []string{"op"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "h5features_commits_total",
			Help: "Committed group generations",
		}, []string{"kind"}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "h5features_last_generation",
			Help: "Generation of the last commit",
		}),
	}
	for _, m := range []prometheus.Collector{c.opLatency, c.items, c.rows, c.commits, c.generation} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordWrite implements h5features.MetricsCollector.
func (c *Collector) RecordWrite(items int, rows int64, d time.Duration, err error) {
	c.opLatency.WithLabelValues("write", status(err)).Observe(d.Seconds())
	if err == nil {
		c.items.Add(float64(items))
		c.rows.WithLabelValues("write").Add(float64(rows))
	}
}

// RecordRead implements h5features.MetricsCollector.
func (c *Collector) RecordRead(rows int64, d time.Duration, err error) {
	c.opLatency.WithLabelValues("read", status(err)).Observe(d.Seconds())
	if err == nil {
		c.rows.WithLabelValues("read").Add(float64(rows))
	}
}

// RecordCommit implements h5features.MetricsCollector.
func (c *Collector) RecordCommit(generation uint64, continued bool) {
	kind := "append"
	if continued {
		kind = "continuation"
	}
	c.commits.WithLabelValues(kind).Inc()
	c.generation.Set(float64(generation))
}
