// Package metrics registers the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement outcome label values.
const (
	OutcomeSettled           = "settled"
	OutcomeRejected          = "rejected"
	OutcomeConflictExhausted = "conflict_exhausted"
)

var (
	// SettlementAttempts counts individual pipeline passes, including retries.
	SettlementAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_attempts_total",
		Help: "Settlement pipeline passes, retries included.",
	})

	// SettlementConflicts counts passes lost to a version conflict.
	SettlementConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_conflicts_total",
		Help: "Pipeline passes aborted by a party version conflict.",
	})

	// Settlements counts finished settlement requests by outcome.
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Finished settlement requests by outcome.",
	}, []string{"outcome"})
)
