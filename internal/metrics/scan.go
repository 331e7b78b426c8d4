package metrics

import "github.com/prometheus/client_golang/prometheus"

// Detector and pipeline Prometheus metrics.
var (
	DetectorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanguard",
			Name:      "detector_requests_total",
			Help:      "Total number of detector scan calls",
		},
		[]string{"status"},
	)

	DetectorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scanguard",
			Name:      "detector_request_duration_seconds",
			Help:      "Detector scan call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)

	DetectorDocumentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scanguard",
			Name:      "detector_documents_total",
			Help:      "Total documents sent to the detector",
		},
	)

	DetectorRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scanguard",
			Name:      "detector_retries_total",
			Help:      "Detector calls retried after a transient failure",
		},
	)

	PolicyBreaksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanguard",
			Name:      "policy_breaks_total",
			Help:      "Policy breaks reported by the detector",
		},
		[]string{"kind"},
	)

	RedactionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scanguard",
			Name:      "redactions_total",
			Help:      "Spans replaced with the redaction marker",
		},
	)

	ScanOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanguard",
			Name:      "scan_outcomes_total",
			Help:      "Pipeline outcomes by result",
		},
		[]string{"result"}, // "clean" / "detected" / "degraded"
	)

	ScanCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanguard",
			Name:      "scan_cache_total",
			Help:      "Scan cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	CredentialCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanguard",
			Name:      "credential_cache_total",
			Help:      "Detector credential cache hits and misses",
		},
		[]string{"result"},
	)

	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanguard",
			Name:      "model_requests_total",
			Help:      "Chat model calls by provider and status",
		},
		[]string{"provider", "status"},
	)
)

var scanMetricsRegistered bool

// RegisterScanMetrics registers detector and pipeline metrics. Must be called once from main.
func RegisterScanMetrics() {
	if scanMetricsRegistered {
		return
	}
	prometheus.MustRegister(DetectorRequestsTotal)
	prometheus.MustRegister(DetectorRequestDuration)
	prometheus.MustRegister(DetectorDocumentsTotal)
	prometheus.MustRegister(DetectorRetriesTotal)
	prometheus.MustRegister(PolicyBreaksTotal)
	prometheus.MustRegister(RedactionsTotal)
	prometheus.MustRegister(ScanOutcomesTotal)
	prometheus.MustRegister(ScanCacheTotal)
	prometheus.MustRegister(CredentialCacheTotal)
	prometheus.MustRegister(ModelRequestsTotal)
	scanMetricsRegistered = true
}
