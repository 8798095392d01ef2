package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exposes service metrics as Prometheus collectors.
type PrometheusMetricsRecorder struct {
	duration  *prometheus.HistogramVec
	results   *prometheus.CounterVec
	cascaded  prometheus.Counter
	items     prometheus.Gauge
	instances prometheus.Gauge
}

// NewPrometheusMetricsRecorder registers the brickcore collectors with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusMetricsRecorder{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brickcore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of inventory service operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brickcore",
			Name:      "operations_total",
			Help:      "Inventory service operations by result.",
		}, []string{"operation", "result"}),
		cascaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brickcore",
			Name:      "cascade_duplicates_total",
			Help:      "Instances created by cascade duplication.",
		}),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "brickcore",
			Name:      "inventory_items",
			Help:      "Catalog items in the service inventory.",
		}),
		instances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "brickcore",
			Name:      "inventory_instances",
			Help:      "Instances in the service inventory.",
		}),
	}
	for _, c := range []prometheus.Collector{r.duration, r.results, r.cascaded, r.items, r.instances} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	result := "error"
	if success {
		result = "success"
	}
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, result).Inc()
}

// ObserveInventory implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) ObserveInventory(_ context.Context, stats InventoryStats) {
	r.cascaded.Add(float64(stats.Cascaded))
	r.items.Set(float64(stats.Items))
	r.instances.Set(float64(stats.Instances))
}
