package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Server Metrics
var (
	// ConnectionsCurrent - tracks sessions between accept and teardown
	ConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synchat_connections_current",
			Help: "Current number of registered chat connections",
		},
	)

	// ConnectionsTotal - tracks accepted connections
	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synchat_connections_total",
			Help: "Total accepted chat connections",
		},
	)

	// MessagesReceived - tracks decoded inbound records by kind
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synchat_messages_received_total",
			Help: "Total decoded records received by the server by kind",
		},
		[]string{"kind"},
	)

	// DecodeFailures - tracks dropped malformed records
	DecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synchat_decode_failures_total",
			Help: "Total malformed records dropped by the server",
		},
	)

	// Broadcasts - tracks fan-out passes by message kind
	Broadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synchat_broadcasts_total",
			Help: "Total broadcast passes by message kind",
		},
		[]string{"kind"},
	)

	// DeliveryFailures - tracks peers dropped after a failed send
	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synchat_delivery_failures_total",
			Help: "Total failed deliveries during broadcast",
		},
	)
)

// Client Metrics
var (
	// SyncRounds - tracks clock sync rounds by outcome
	SyncRounds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synchat_sync_rounds_total",
			Help: "Total clock sync rounds by outcome",
		},
		[]string{"outcome"},
	)

	// ClockOffset - tracks the offset applied by the last successful round
	ClockOffset = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synchat_clock_offset_seconds",
			Help: "Clock offset estimated by the last successful sync round",
		},
	)

	// SyncRTT - tracks round trip time of successful rounds
	SyncRTT = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synchat_sync_rtt_seconds",
			Help:    "Round trip time of sync exchanges in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)
