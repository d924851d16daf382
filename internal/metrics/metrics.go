// Package metrics exposes the Prometheus counters and gauges this service
// instruments itself with. Collection and scraping are an external
// collaborator's concern (spec.md §1); this package only registers and
// updates the series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BlocksGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cablecast_blocks_generated_total",
		Help: "Total number of schedule blocks generated, by channel.",
	}, []string{"channel"})

	BlockGenerationRelaxedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cablecast_block_generation_relaxed_total",
		Help: "Total number of schedule block generations that fell back to the relaxed cooldown pass.",
	}, []string{"channel"})

	TunesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cablecast_tunes_total",
		Help: "Total number of channel tune resolutions, by channel.",
	}, []string{"channel"})

	HLSProxyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cablecast_hls_proxy_requests_total",
		Help: "Total number of HLS proxy requests, by kind (master/proxy) and status.",
	}, []string{"kind", "status"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cablecast_active_sessions",
		Help: "Current number of tracked playback sessions.",
	})

	SessionsReapedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cablecast_sessions_reaped_total",
		Help: "Total number of idle playback sessions reaped.",
	})

	BroadcastClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cablecast_broadcast_clients",
		Help: "Current number of connected push-channel websocket clients.",
	})
)
