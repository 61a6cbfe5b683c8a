package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		chatsSeenTotal,
		telegramCommandsReceivedTotal,
		telegramRateLimitTriggeredTotal,
		conversationTransitionsTotal,
		telegramAPICallsTotal,
	)
}

var (
	chatsSeenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_seen_total",
			Help: "Inbound messages that registered a conversation in the saved-chat set.",
		},
	)

	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming messages and commands from users.",
		},
		[]string{"command"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)

	telegramAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_api_calls_total",
			Help: "Outbound Bot API calls by method and result.",
		},
		[]string{"method", "result"},
	)

	conversationTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_transitions_total",
			Help: "State writes per target state; 'idle' counts clears.",
		},
		[]string{"state"},
	)
)

func IncChatSeen() {
	chatsSeenTotal.Inc()
}

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func IncTransition(state string) {
	conversationTransitionsTotal.WithLabelValues(norm(state)).Inc()
}

func IncTelegramAPICall(method string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	telegramAPICallsTotal.WithLabelValues(norm(method), result).Inc()
}
