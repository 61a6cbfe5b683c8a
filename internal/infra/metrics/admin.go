package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(adminCommandTotal, broadcastRecipientsTotal) }

var (
	adminCommandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_command_total",
			Help: "Tracks attempts to use admin commands.",
		},
		[]string{"command", "status"}, // status: 'authorized', 'unauthorized'
	)

	broadcastRecipientsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_recipients_total",
			Help: "Broadcast deliveries per result.",
		},
		[]string{"result"},
	)
)

func IncAdminCommand(command, status string) {
	adminCommandTotal.WithLabelValues(norm(command), norm(status)).Inc()
}

func AddBroadcastRecipients(succeeded, failed int) {
	broadcastRecipientsTotal.WithLabelValues("ok").Add(float64(succeeded))
	broadcastRecipientsTotal.WithLabelValues("failed").Add(float64(failed))
}
