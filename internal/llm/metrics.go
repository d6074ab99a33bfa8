package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	modelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navguide_model_calls_total",
		Help: "Model invocations by backend and result",
	}, []string{"backend", "result"})

	modelLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "navguide_model_latency_seconds",
		Help:    "Latency of successful model invocations",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~32s
	}, []string{"backend"})
)
