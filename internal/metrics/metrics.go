// Package metrics defines the prometheus collectors for the congestion
// service and the /metrics handler that exposes them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PingRequests counts ping ingestions by outcome.
	PingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ping_requests_total",
		Help: "Total number of ping requests received.",
	}, []string{"status"})

	// CongestionRequests counts congestion queries by endpoint and outcome.
	CongestionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congestion_requests_total",
		Help: "Total number of congestion query requests.",
	}, []string{"endpoint", "status"})

	// RequestDuration observes request latency per endpoint.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "request_duration_seconds",
		Help: "Request latency in seconds.",
	}, []string{"endpoint"})

	// UniqueDevicesPerBucket tracks the current bucket's unique-device count
	// per cell.
	UniqueDevicesPerBucket = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "unique_devices_per_bucket",
		Help: "Number of unique devices in the current time bucket.",
	}, []string{"cell_id"})

	// CongestionLevels counts level classifications.
	CongestionLevels = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congestion_level_count",
		Help: "Count of congestion level classifications.",
	}, []string{"level"})

	// RedisOperations counts ephemeral-store operations by outcome.
	RedisOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_operations_total",
		Help: "Total Redis operations.",
	}, []string{"operation", "status"})

	// BaselineFlushes counts completed-bucket baseline updates by outcome.
	BaselineFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "baseline_flushes_total",
		Help: "Total baseline flushes of completed buckets.",
	}, []string{"status"})
)

// Handler returns the prometheus scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
