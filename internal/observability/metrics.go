package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	scanRequestsTotal  *prometheus.CounterVec
	scanLatencySeconds *prometheus.HistogramVec
	fraudFlagsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the scan pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		scanRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_scan_requests_total",
			Help: "Total number of attendance scan requests by outcome.",
		}, []string{"mode", "result"})

		scanLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_scan_latency_seconds",
			Help:    "Latency distribution for the scan pipeline.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"mode"})

		fraudFlagsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_fraud_flags_total",
			Help: "Total number of scan attempts flagged for device sharing.",
		}, []string{"mode"})

		prometheus.MustRegister(scanRequestsTotal, scanLatencySeconds, fraudFlagsTotal)
	})
}

// ScanRequests exposes the scan outcome counter.
func ScanRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return scanRequestsTotal
}

// ScanLatency exposes the scan latency histogram.
func ScanLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return scanLatencySeconds
}

// FraudFlags exposes the fraud flag counter.
func FraudFlags() *prometheus.CounterVec {
	RegisterMetrics()
	return fraudFlagsTotal
}
