package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(progressUpdatesTotal) }

var progressUpdatesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "progress_updates_total",
		Help: "Progress reporter update calls, labeled by result and whether they were forced.",
	},
	[]string{"result", "forced"}, // 'sent', 'debounced', 'insignificant', 'failed'
)

func IncProgressUpdate(result string, forced bool) {
	progressUpdatesTotal.WithLabelValues(norm(result), boolLabel(forced)).Inc()
}
