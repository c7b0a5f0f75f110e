package metrics

import "github.com/prometheus/client_golang/prometheus"

// Sync job Prometheus metrics.
var (
	SyncDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refbase",
			Name:      "sync_documents_total",
			Help:      "Documents processed by sync jobs",
		},
		[]string{"job", "status"}, // status: succeeded / failed
	)

	SyncJobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "refbase",
			Name:      "sync_job_duration_seconds",
			Help:      "Sync job duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"job"},
	)

	SyncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refbase",
			Name:      "sync_runs_total",
			Help:      "Total sync job invocations",
		},
		[]string{"job"},
	)
)

var syncMetricsRegistered bool

// RegisterSyncMetrics registers Prometheus sync metrics. Must be called once from main.
func RegisterSyncMetrics() {
	if syncMetricsRegistered {
		return
	}
	prometheus.MustRegister(SyncDocumentsTotal)
	prometheus.MustRegister(SyncJobDuration)
	prometheus.MustRegister(SyncRunsTotal)
	syncMetricsRegistered = true
}
