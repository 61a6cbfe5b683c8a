package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(throttleInFlight, throttleWaitSeconds, batchItemsTotal) }

var (
	throttleInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "throttle_in_flight",
			Help: "Operations currently holding a throttle permit.",
		},
		[]string{"throttle"},
	)

	throttleWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "throttle_wait_seconds",
			Help:    "Time spent waiting for a throttle permit.",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		},
		[]string{"throttle"},
	)

	batchItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_items_total",
			Help: "Items sent by batch senders, labeled by result.",
		},
		[]string{"result"}, // 'image', 'text', 'failed'
	)
)

func SetThrottleInFlight(name string, n int64) {
	throttleInFlight.WithLabelValues(norm(name)).Set(float64(n))
}

func ObserveThrottleWait(name string, d time.Duration) {
	throttleWaitSeconds.WithLabelValues(norm(name)).Observe(d.Seconds())
}

func IncBatchItem(result string) {
	batchItemsTotal.WithLabelValues(norm(result)).Inc()
}
