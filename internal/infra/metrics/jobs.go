package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsTotal, jobsActive, jobItemsTotal, jobDurationSeconds, workerQueueRejectedTotal) }

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "download_jobs_total",
			Help: "Download jobs finished, labeled by kind and outcome.",
		},
		[]string{"kind", "status"}, // 'completed', 'partial', 'failed'
	)

	jobsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "download_jobs_active",
			Help: "Jobs currently registered in the active-jobs registry.",
		},
	)

	jobItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "download_job_items_total",
			Help: "Individual items processed by jobs, labeled by failure class.",
		},
		[]string{"result"}, // 'ok', 'spawn', 'exit', 'missing', 'store'
	)

	jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "download_job_duration_seconds",
			Help:    "Wall-clock duration of download jobs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"kind"},
	)

	workerQueueRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_queue_rejected_total",
			Help: "Tasks rejected because the background worker queue was full.",
		},
	)
)

func IncJob(kind, status string) {
	jobsTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func SetJobsActive(n int) {
	jobsActive.Set(float64(n))
}

func IncJobItem(result string) {
	jobItemsTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveJobDuration(kind string, d time.Duration) {
	jobDurationSeconds.WithLabelValues(norm(kind)).Observe(d.Seconds())
}

func IncQueueRejected() {
	workerQueueRejectedTotal.Inc()
}
