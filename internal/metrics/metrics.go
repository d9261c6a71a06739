package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreated counts orders created, labelled by source
	// (direct_gig or accepted_proposal).
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigconnect_orders_created_total",
		Help: "Orders created after a successful payment.",
	}, []string{"source"})

	// OrderTransitions counts applied status transitions by target status.
	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigconnect_order_transitions_total",
		Help: "Order status transitions applied.",
	}, []string{"status"})

	// TransitionsDenied counts transitions rejected by the validator.
	TransitionsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gigconnect_order_transitions_denied_total",
		Help: "Order status transitions denied by the transition rules.",
	})

	// ReconcileRuns counts reconciliation outcomes per reference kind.
	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigconnect_payment_reconcile_total",
		Help: "Payment reconciliation runs by reference kind and outcome.",
	}, []string{"kind", "outcome"})
)
