// Package metrics records fetch activity in Prometheus collectors.
//
// Every Collector owns a private registry, so several runs in one process (or
// in tests) never collide. All recording methods are safe on a nil *Collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector groups the counters for one process
type Collector struct {
	registry *prometheus.Registry

	// Requests counts API calls by outcome ("ok" or an error kind)
	Requests *prometheus.CounterVec
	// RequestDuration observes API call latency
	RequestDuration prometheus.Histogram
	// Retries counts retry waits by error kind
	Retries *prometheus.CounterVec
	// Units counts pages (list) or rows (detail) completed
	Units *prometheus.CounterVec
	// Records counts records accumulated by variant
	Records *prometheus.CounterVec
	// Sentinels counts detail rows that produced a placeholder record
	Sentinels prometheus.Counter
	// CheckpointWrites counts checkpoint saves by result ("ok", "error")
	CheckpointWrites *prometheus.CounterVec
	// LastRunTimestamp is set when a run finishes
	LastRunTimestamp *prometheus.GaugeVec
}

// New creates a Collector with its own registry
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hirafetch_requests_total",
				Help: "Total number of HIRA API requests by outcome",
			},
			[]string{"outcome"},
		),
		RequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hirafetch_request_duration_seconds",
				Help:    "HIRA API request latency",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		Retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hirafetch_retries_total",
				Help: "Total number of retried API calls by error kind",
			},
			[]string{"kind"},
		),
		Units: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hirafetch_units_total",
				Help: "Pages (list) or rows (detail) completed",
			},
			[]string{"variant"},
		),
		Records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hirafetch_records_total",
				Help: "Records accumulated",
			},
			[]string{"variant"},
		),
		Sentinels: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "hirafetch_detail_sentinels_total",
				Help: "Detail rows recorded without detail data",
			},
		),
		CheckpointWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hirafetch_checkpoint_writes_total",
				Help: "Checkpoint saves by result",
			},
			[]string{"result"},
		),
		LastRunTimestamp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hirafetch_last_run_timestamp_seconds",
				Help: "Unix time the last run finished, by variant and status",
			},
			[]string{"variant", "status"},
		),
	}
}

// Registry exposes the private registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveRequest records one API call
func (c *Collector) ObserveRequest(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(outcome).Inc()
	c.RequestDuration.Observe(d.Seconds())
}

// IncRetry records one retry wait
func (c *Collector) IncRetry(kind string) {
	if c == nil {
		return
	}
	c.Retries.WithLabelValues(kind).Inc()
}

// IncUnit records a completed page or row
func (c *Collector) IncUnit(variant string) {
	if c == nil {
		return
	}
	c.Units.WithLabelValues(variant).Inc()
}

// AddRecords records accumulated records
func (c *Collector) AddRecords(variant string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.Records.WithLabelValues(variant).Add(float64(n))
}

// IncSentinel records a placeholder detail record
func (c *Collector) IncSentinel() {
	if c == nil {
		return
	}
	c.Sentinels.Inc()
}

// IncCheckpointWrite records a checkpoint save attempt
func (c *Collector) IncCheckpointWrite(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.CheckpointWrites.WithLabelValues(result).Inc()
}

// MarkRunFinished stamps the end of a run
func (c *Collector) MarkRunFinished(variant, status string) {
	if c == nil {
		return
	}
	c.LastRunTimestamp.WithLabelValues(variant, status).SetToCurrentTime()
}

// WriteTextfile writes all metrics in the text exposition format for the
// node_exporter textfile collector
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
