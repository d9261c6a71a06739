// Package reconcile turns paid payment records into marketplace state: orders,
// accepted proposals, requirement status. It sits above the order and payment
// packages and is the only caller allowed to create orders on behalf of a
// client without an interactive request.
package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/gigconnect/server/internal/metrics"
	"github.com/gigconnect/server/internal/order"
	"github.com/gigconnect/server/internal/payment"
	"github.com/gigconnect/server/internal/requirement"
)

// acceptanceNote is recorded on orders the reconciler creates for proposals.
const acceptanceNote = "Payment verified - proposal accepted automatically"

// OrderWorkflow is the slice of the order service the reconciler drives.
type OrderWorkflow interface {
	PurchaseGig(ctx context.Context, gigID, clientID, paymentRef, clientNotes string) (*order.Order, error)
	AcceptProposal(ctx context.Context, proposalID, clientID, paymentRef, clientNotes string) (*order.Order, error)
	StartWork(ctx context.Context, orderID, freelancerID string) (*order.Order, error)
}

// RequirementStore is the slice of the requirement store the reconciler needs
// for post-acceptance cleanup.
type RequirementStore interface {
	SetRequirementStatus(ctx context.Context, id string, status requirement.Status) error
	RejectPendingSiblings(ctx context.Context, requirementID, keepProposalID, reason string) error
}

// PaymentStore loads the record being reconciled.
type PaymentStore interface {
	Get(ctx context.Context, id string) (*payment.Record, error)
}

// Reconciler implements payment.Reconciler. Every step after order creation is
// best effort: the order is the durable outcome, the rest is cleanup that a
// later re-invocation or manual pass can repair.
type Reconciler struct {
	orders       OrderWorkflow
	requirements RequirementStore
	payments     PaymentStore
}

func New(orders OrderWorkflow, requirements RequirementStore, payments PaymentStore) *Reconciler {
	return &Reconciler{orders: orders, requirements: requirements, payments: payments}
}

// HandleSuccessfulPayment creates the order a paid record entitles the client
// to. It is idempotent: re-invoking it for an already-reconciled record
// returns without side effects. A record that is not paid is skipped, never
// failed.
func (r *Reconciler) HandleSuccessfulPayment(ctx context.Context, paymentRecordID string) error {
	rec, err := r.payments.Get(ctx, paymentRecordID)
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("unknown", "error").Inc()
		return fmt.Errorf("load payment record %s: %w", paymentRecordID, err)
	}
	if rec.Status != payment.StatusPaid {
		log.Printf("reconcile: payment %s is %s, not paid; skipping", rec.ID, rec.Status)
		metrics.ReconcileRuns.WithLabelValues(string(rec.ReferenceKind), "skipped").Inc()
		return nil
	}

	switch rec.ReferenceKind {
	case payment.RefProposal:
		return r.reconcileProposal(ctx, rec)
	case payment.RefGig:
		return r.reconcileGig(ctx, rec)
	default:
		metrics.ReconcileRuns.WithLabelValues(string(rec.ReferenceKind), "error").Inc()
		return fmt.Errorf("payment %s has unknown reference kind %q", rec.ID, rec.ReferenceKind)
	}
}

func (r *Reconciler) reconcileProposal(ctx context.Context, rec *payment.Record) error {
	o, err := r.orders.AcceptProposal(ctx, rec.ReferenceID, rec.ClientID, rec.ExternalOrderID, acceptanceNote)
	if err != nil {
		// Leave the proposal and payment untouched; a re-invocation with the
		// same record retries from scratch.
		metrics.ReconcileRuns.WithLabelValues(string(payment.RefProposal), "error").Inc()
		return fmt.Errorf("accept proposal %s for payment %s: %w", rec.ReferenceID, rec.ID, err)
	}

	if o.RequirementID != nil {
		if err := r.requirements.SetRequirementStatus(ctx, *o.RequirementID, requirement.StatusInProgress); err != nil {
			log.Printf("reconcile: failed to move requirement %s to in_progress: %v", *o.RequirementID, err)
		}
		// The acceptance path already rejects pending siblings in its own
		// transaction; this pass only matters when the order was recreated
		// after a crash. It is idempotent over non-pending rows.
		if err := r.requirements.RejectPendingSiblings(ctx, *o.RequirementID, rec.ReferenceID,
			"Another freelancer was selected for this project"); err != nil {
			log.Printf("reconcile: failed to reject sibling proposals for requirement %s: %v", *o.RequirementID, err)
		}
	}

	r.autoStart(ctx, o)
	metrics.ReconcileRuns.WithLabelValues(string(payment.RefProposal), "ok").Inc()
	return nil
}

func (r *Reconciler) reconcileGig(ctx context.Context, rec *payment.Record) error {
	o, err := r.orders.PurchaseGig(ctx, rec.ReferenceID, rec.ClientID, rec.ExternalOrderID, "")
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues(string(payment.RefGig), "error").Inc()
		return fmt.Errorf("purchase gig %s for payment %s: %w", rec.ReferenceID, rec.ID, err)
	}

	r.autoStart(ctx, o)
	metrics.ReconcileRuns.WithLabelValues(string(payment.RefGig), "ok").Inc()
	return nil
}

// autoStart moves a freshly confirmed order into in_progress on the
// freelancer's behalf so paid work never sits waiting for a manual kick.
// An already started order is left alone.
func (r *Reconciler) autoStart(ctx context.Context, o *order.Order) {
	if o.Status != order.StatusConfirmed {
		return
	}
	if _, err := r.orders.StartWork(ctx, o.ID, o.FreelancerID); err != nil {
		log.Printf("reconcile: auto-start of order %s failed: %v", o.ID, err)
	}
}
