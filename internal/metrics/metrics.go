package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tool metrics
var (
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartgenie_tool_calls_total",
			Help: "Total number of agent tool invocations",
		},
		[]string{"tool", "outcome"}, // outcome: ok, empty, degraded, fatal
	)

	ToolLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cartgenie_tool_latency_seconds",
			Help:    "Agent tool invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)

// Fallback chain metrics
var (
	FallbackTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartgenie_fallback_tier_total",
			Help: "Number of times each tier of a fallback chain produced the result",
		},
		[]string{"chain", "tier"}, // chain: extraction, embedding, page_fetch
	)
)

// Pipeline metrics
var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartgenie_pipeline_runs_total",
			Help: "Total number of cart optimization pipeline runs",
		},
		[]string{"status"}, // status: success, failed, malformed
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cartgenie_pipeline_duration_seconds",
			Help:    "Cart optimization pipeline duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	ReasoningCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartgenie_reasoning_calls_total",
			Help: "Total number of reasoning engine completions",
		},
		[]string{"model", "status"},
	)
)

// Upstream HTTP metrics
var (
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartgenie_upstream_requests_total",
			Help: "Total number of requests to upstream services",
		},
		[]string{"service", "status"},
	)
)
