package rawtcp

import "github.com/prometheus/client_golang/prometheus"

// Connection outcomes, used as the "outcome" label.
const (
	outcomeStored      = "stored"
	outcomeEmpty       = "empty"
	outcomeTooLarge    = "too_large"
	outcomeHTTP        = "http_rejected"
	outcomeError       = "error"
	outcomeReadError   = "read_error"
	outcomeAborted     = "aborted"
	outcomeRateLimited = "rate_limited"
	outcomeBusy        = "busy"
)

var (
	// connsTotal counts finished raw connections by outcome.
	connsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchbin_tcp_connections_total",
			Help: "Total number of raw TCP connections handled, by outcome.",
		},
		[]string{"outcome"},
	)

	// activeConns gauges connections currently being read or answered.
	activeConns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fetchbin_tcp_active_connections",
			Help: "Current number of raw TCP connections being handled.",
		},
	)
)

func init() {
	prometheus.MustRegister(connsTotal, activeConns)
}
