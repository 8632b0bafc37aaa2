package redemption

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Labels: result (ok, insufficient, invalid_reward, error)
	redemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparkd",
			Subsystem: "redemption",
			Name:      "redeem_total",
			Help:      "Redeem attempts by result",
		},
		[]string{"result"},
	)

	sweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sparkd",
			Subsystem: "redemption",
			Name:      "swept_expired_total",
			Help:      "Redemptions moved to expired by the sweeper",
		},
	)
)
