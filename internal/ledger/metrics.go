package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK           = "ok"
	resultInsufficient = "insufficient"
)

var (
	pointsCredited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sparkd",
			Subsystem: "ledger",
			Name:      "points_credited_total",
			Help:      "Total spark points credited to users",
		},
	)

	pointsDebited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sparkd",
			Subsystem: "ledger",
			Name:      "points_debited_total",
			Help:      "Total spark points debited from users",
		},
	)

	// Labels: result (ok, insufficient)
	debitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparkd",
			Subsystem: "ledger",
			Name:      "debits_total",
			Help:      "Debit attempts by result",
		},
		[]string{"result"},
	)
)

// RecordCredit records credited points. Backends outside this package share
// the collectors through it and RecordDebit.
func RecordCredit(amount int64) { pointsCredited.Add(float64(amount)) }

// RecordDebit records a debit attempt; amount is counted only when ok.
func RecordDebit(amount int64, ok bool) {
	if !ok {
		debitsTotal.WithLabelValues(resultInsufficient).Inc()
		return
	}
	debitsTotal.WithLabelValues(resultOK).Inc()
	pointsDebited.Add(float64(amount))
}
