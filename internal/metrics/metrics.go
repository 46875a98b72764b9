package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerweather_upstream_calls_total",
			Help: "Total calls to upstream services",
		},
		[]string{"source", "endpoint", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powerweather_upstream_latency_seconds",
			Help:    "Upstream call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "endpoint"},
	)

	PayloadCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerweather_payload_cache_total",
			Help: "Payload cache lookups by result",
		},
		[]string{"result"},
	)

	ReadingsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerweather_readings_dropped_total",
			Help: "Readings treated as absent, by quality flag",
		},
		[]string{"flag"},
	)

	AssistRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerweather_assist_replies_total",
			Help: "Assist replies by surface and whether the remote service or the local fallback answered",
		},
		[]string{"surface", "source"},
	)

	PayloadsCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "powerweather_payloads_cleaned_total",
			Help: "Cached payloads removed by the cleanup job",
		},
	)
)
