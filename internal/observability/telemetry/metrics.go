package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Voice loop
	VoiceTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playground_voice_turns_total",
		Help: "Voice turns by outcome (ok, error, cancelled, device_error)",
	}, []string{"outcome"})

	VoiceTurnLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playground_voice_turn_latency_seconds",
		Help:    "Time from end of recording to reply received",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
	})

	VoiceState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playground_voice_state",
		Help: "Current voice state (0 idle, 1 listening, 2 processing, 3 speaking)",
	})

	// Chat
	ChatStreamChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playground_chat_stream_chunks_total",
		Help: "Streamed chat chunks applied to the transcript",
	})

	// Backend
	BackendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playground_backend_requests_total",
		Help: "Backend requests by endpoint and status class",
	}, []string{"endpoint", "status"})

	BackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "playground_backend_latency_seconds",
		Help:    "Backend request latency up to response headers",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playground_cache_lookups_total",
		Help: "History and catalog cache lookups",
	}, []string{"result"})
)
