package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RPCCallsTotal counts XML-RPC calls to oned by method and outcome
	// (ok, error, transport).
	RPCCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fireedge_rpc_calls_total",
			Help: "Total number of XML-RPC calls issued to oned",
		},
		[]string{"method", "outcome"},
	)

	// RPCCallDuration measures XML-RPC round trips in seconds.
	RPCCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fireedge_rpc_call_duration_seconds",
			Help:    "XML-RPC call duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)

	// OneFlowRequestsTotal counts proxied OneFlow requests by status code.
	OneFlowRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fireedge_oneflow_requests_total",
			Help: "Total number of requests proxied to OneFlow",
		},
		[]string{"operation", "status"},
	)
)

func registerRPCMetrics() error {
	return register(RPCCallsTotal, RPCCallDuration, OneFlowRequestsTotal)
}
