package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zkwatcher",
			Subsystem: "check",
			Name:      "runs_total",
			Help:      "Total number of health check command runs",
		},
		[]string{"service", "status"},
	)

	CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zkwatcher",
			Subsystem: "check",
			Name:      "duration_seconds",
			Help:      "Health check command duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 90},
		},
		[]string{"service"},
	)

	ServiceHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "zkwatcher",
			Subsystem: "service",
			Name:      "healthy",
			Help:      "Whether the last check for a service passed (1) or failed (0)",
		},
		[]string{"service"},
	)

	RegistryUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zkwatcher",
			Subsystem: "registry",
			Name:      "updates_total",
			Help:      "Total number of registry update attempts",
		},
		[]string{"service", "status"},
	)
)

func init() {
	Registry.MustRegister(ChecksTotal, CheckDuration, ServiceHealthy, RegistryUpdatesTotal)
}
