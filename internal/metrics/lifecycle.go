package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "indexer"

// Index lifecycle Prometheus metrics.
var (
	LifecycleOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_operations_total",
			Help:      "Index lifecycle operations by outcome",
		},
		[]string{"operation", "status"}, // status: "ok" / "error"
	)

	LifecycleOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lifecycle_operation_duration_seconds",
			Help:      "Index lifecycle operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	LifecycleRollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_rollbacks_total",
			Help:      "Compensating actions run after partial failures",
		},
		[]string{"action", "status"},
	)
)

var registerLifecycle sync.Once

// RegisterLifecycleMetrics registers the lifecycle metrics with the default registry.
func RegisterLifecycleMetrics() {
	registerLifecycle.Do(func() {
		prometheus.MustRegister(
			LifecycleOperationsTotal,
			LifecycleOperationDuration,
			LifecycleRollbacksTotal,
		)
	})
}

// RegisterTopologyProbes exposes the probe count of a topology detector.
func RegisterTopologyProbes(reg prometheus.Registerer, probes func() int64) error {
	c := prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topology_probes_total",
			Help:      "Cluster mode probes sent to the search engine",
		},
		func() float64 { return float64(probes()) },
	)
	return reg.Register(c)
}

// Status maps an error to the "status" label value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
