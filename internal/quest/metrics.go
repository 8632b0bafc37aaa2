package quest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels: outcome (recorded, duplicate)
var assignmentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sparkd",
		Subsystem: "quest",
		Name:      "assignments_total",
		Help:      "Today's-quest reads by whether they recorded a new daily assignment",
	},
	[]string{"outcome"},
)
