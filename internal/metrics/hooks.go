package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HookSessions is the number of live WebSocket relay sessions.
	HookSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fireedge_hook_sessions",
			Help: "Number of live hook relay WebSocket sessions",
		},
	)

	// HookMessagesTotal counts hook messages by result (relayed, dropped, invalid).
	HookMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fireedge_hook_messages_total",
			Help: "Total number of hook messages received from ZeroMQ",
		},
		[]string{"result"},
	)
)

func registerHookMetrics() error {
	return register(HookSessions, HookMessagesTotal)
}
