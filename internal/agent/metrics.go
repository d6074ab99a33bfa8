package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navguide_queries_total",
		Help: "Navigation queries by outcome",
	}, []string{"outcome"})

	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navguide_auto_steps_total",
		Help: "Auto-interaction steps by result",
	}, []string{"result"})
)
