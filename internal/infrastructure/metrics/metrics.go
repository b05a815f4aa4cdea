package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LiveFramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devexchange_live_frames_received_total",
			Help: "Total number of decoded live channel frames by scope kind and event type",
		},
		[]string{"scope", "type"},
	)

	LiveFramesIgnored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devexchange_live_frames_ignored_total",
			Help: "Total number of live channel frames dropped before dispatch",
		},
		[]string{"scope", "reason"},
	)

	LiveChannelsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devexchange_live_channels_open",
			Help: "Number of live channels currently open",
		},
		[]string{"scope"},
	)

	LiveChannelFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devexchange_live_channel_failures_total",
			Help: "Total number of live channels that failed to open or dropped",
		},
		[]string{"scope", "stage"},
	)

	MergeResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devexchange_merge_results_total",
			Help: "Merge engine outcomes by collection and source",
		},
		[]string{"collection", "source", "result"},
	)

	SessionExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devexchange_session_expirations_total",
			Help: "Total number of credentials cleared after an authorization rejection",
		},
	)

	RESTRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devexchange_rest_request_duration_seconds",
			Help:    "Duration of REST calls to the backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	EdgeDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devexchange_edge_decisions_total",
			Help: "Edge guard routing decisions",
		},
		[]string{"decision"},
	)
)
