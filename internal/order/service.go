package order

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gigconnect/server/internal/catalog"
	"github.com/gigconnect/server/internal/metrics"
	"github.com/gigconnect/server/internal/payment"
	"github.com/gigconnect/server/internal/requirement"
)

// rejectionReason is set on pending sibling proposals when one is accepted.
const rejectionReason = "Another freelancer was selected for this project"

// Service is the order workflow: it turns verified payments into orders and
// drives every status change through the transition rules. Actor identity is
// always an explicit parameter; the service never reads ambient state.
type Service struct {
	orders       Store
	gigs         GigStore
	proposals    ProposalStore
	requirements RequirementStore
	payments     PaymentStore
	users        UserStore
}

func NewService(orders Store, gigs GigStore, proposals ProposalStore, requirements RequirementStore, payments PaymentStore, users UserStore) *Service {
	return &Service{
		orders:       orders,
		gigs:         gigs,
		proposals:    proposals,
		requirements: requirements,
		payments:     payments,
		users:        users,
	}
}

// amountMatches accepts an exact minor-unit match, or the legacy path where
// the charge was made in minor units against a major-unit price (x100).
// The scaled comparison is a migration shim for records written before
// amounts were normalized to paise end-to-end; drop it once those age out.
func amountMatches(paid, price int64) bool {
	return paid == price || paid == price*100
}

// loadPaidRecord resolves a payment reference (external order id or external
// payment id), requires it to be paid, and checks the amount against price.
func (s *Service) loadPaidRecord(ctx context.Context, paymentRef string, price int64) (*payment.Record, error) {
	rec, err := s.payments.GetByExternalRef(ctx, paymentRef)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if rec.Status != payment.StatusPaid {
		return nil, ErrPaymentNotCompleted
	}
	if !amountMatches(rec.Amount, price) {
		return nil, ErrAmountMismatch
	}
	return rec, nil
}

// PurchaseGig creates a confirmed order for a direct gig purchase. The gig
// must be active and the referenced payment paid for exactly the gig price.
// At most one order ever exists per payment reference: a repeat call with the
// same reference returns the existing order.
func (s *Service) PurchaseGig(ctx context.Context, gigID, clientID, paymentRef string, clientNotes string) (*Order, error) {
	gig, err := s.gigs.Get(ctx, gigID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if gig.Status != catalog.GigActive {
		return nil, ErrGigUnavailable
	}

	ok, err := s.users.Exists(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	if _, err := s.loadPaidRecord(ctx, paymentRef, gig.Price); err != nil {
		return nil, err
	}

	// Duplicate reconciliation of the same payment short-circuits here.
	if existing, err := s.orders.GetByPaymentRef(ctx, paymentRef); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	o := &Order{
		Type:         TypeGigPurchase,
		Source:       SourceDirectGig,
		ClientID:     clientID,
		FreelancerID: gig.FreelancerID,
		GigID:        &gig.ID,
		PaymentID:    paymentRef,
		Amount:       gig.Price,
		Title:        gig.Title,
		Description:  gig.Description,
		Status:       StatusConfirmed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if clientNotes != "" {
		o.ClientNotes = &clientNotes
	}
	if err := s.orders.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateOrder) {
			// Lost the race against a concurrent reconciliation of the same
			// payment; the winner's order is the order.
			return s.orders.GetByPaymentRef(ctx, paymentRef)
		}
		return nil, err
	}
	metrics.OrdersCreated.WithLabelValues(string(SourceDirectGig)).Inc()
	log.Printf("order: created gig purchase %s for client %s and gig %s", o.ID, clientID, gigID)
	return o, nil
}

// AcceptProposal creates a confirmed order from a paid-for proposal,
// atomically marking the proposal accepted and rejecting its pending
// siblings. It is idempotent: if the proposal is already accepted or in
// progress and an order exists, that order is returned unchanged. If the
// proposal is accepted but the order is missing (a crash between the two
// writes), the order is created to reconcile state.
func (s *Service) AcceptProposal(ctx context.Context, proposalID, clientID, paymentRef string, clientNotes string) (*Order, error) {
	p, err := s.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		if errors.Is(err, requirement.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	alreadyAccepted := false
	switch p.Status {
	case requirement.ProposalAccepted, requirement.ProposalInProgress:
		existing, err := s.orders.GetByProposal(ctx, proposalID)
		if err == nil {
			log.Printf("order: proposal %s already processed with existing order %s (status=%s)",
				proposalID, existing.ID, p.Status)
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Printf("order: proposal %s is %s but no order exists; creating order to reconcile state",
			proposalID, p.Status)
		alreadyAccepted = true
	case requirement.ProposalPending:
	default:
		return nil, ErrAlreadyProcessed
	}

	req, err := s.requirements.GetRequirement(ctx, p.RequirementID)
	if err != nil {
		if errors.Is(err, requirement.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if req.ClientID != clientID {
		return nil, ErrUnauthorized
	}

	if _, err := s.loadPaidRecord(ctx, paymentRef, p.ProposedPrice); err != nil {
		return nil, err
	}

	now := time.Now()
	o := &Order{
		Type:          TypeCustomProject,
		Source:        SourceAcceptedProposal,
		ClientID:      req.ClientID,
		FreelancerID:  p.FreelancerID,
		RequirementID: &req.ID,
		ProposalID:    &p.ID,
		PaymentID:     paymentRef,
		Amount:        p.ProposedPrice,
		Title:         req.Title,
		Description:   req.Description,
		Status:        StatusConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if clientNotes != "" {
		o.ClientNotes = &clientNotes
	}

	if alreadyAccepted {
		// Proposal state is already settled; only the order is missing.
		if err := s.orders.Create(ctx, o); err != nil {
			if errors.Is(err, ErrDuplicateOrder) {
				return s.orders.GetByProposal(ctx, proposalID)
			}
			return nil, err
		}
	} else {
		if err := s.orders.CreateAcceptingProposal(ctx, o, rejectionReason); err != nil {
			if errors.Is(err, ErrDuplicateOrder) {
				return s.orders.GetByPaymentRef(ctx, paymentRef)
			}
			return nil, err
		}
	}
	metrics.OrdersCreated.WithLabelValues(string(SourceAcceptedProposal)).Inc()
	log.Printf("order: created order %s from accepted proposal %s for requirement %s", o.ID, p.ID, req.ID)
	return o, nil
}

// UpdatePayload carries the optional notes attached to a status change.
type UpdatePayload struct {
	DeliveryNotes string
	ClientNotes   string
	RevisionNotes string
}

// UpdateStatus applies a validated status transition on behalf of an actor.
// Side effects are confined to the order itself and, for custom projects, the
// linked proposal's mirrored state.
func (s *Service) UpdateStatus(ctx context.Context, orderID, actorID string, newStatus Status, payload UpdatePayload) (*Order, error) {
	o, err := s.orders.GetForUser(ctx, orderID, actorID)
	if err != nil {
		return nil, err
	}

	role := o.RoleOf(actorID)
	if err := ValidateTransition(o.Status, newStatus, role); err != nil {
		metrics.TransitionsDenied.Inc()
		return nil, err
	}

	now := time.Now()
	previous := o.Status
	o.Status = newStatus
	o.UpdatedAt = now

	switch newStatus {
	case StatusInProgress:
		o.StartedAt = &now
	case StatusSubmittedForReview:
		o.DeliveredAt = &now
		if payload.DeliveryNotes != "" {
			o.DeliveryNotes = &payload.DeliveryNotes
		}
	case StatusCompleted:
		o.CompletedAt = &now
		if payload.ClientNotes != "" {
			o.ClientNotes = &payload.ClientNotes
		}
	case StatusRevisionRequested:
		if payload.RevisionNotes != "" {
			o.RevisionNotes = &payload.RevisionNotes
		}
		// A revision request immediately re-enters in_progress and clears
		// the delivered timestamp.
		o.Status = StatusInProgress
		o.DeliveredAt = nil
	}

	var mirror *ProposalMirror
	if o.Type == TypeCustomProject && o.ProposalID != nil {
		switch newStatus {
		case StatusInProgress:
			mirror = &ProposalMirror{ProposalID: *o.ProposalID, Status: requirement.ProposalInProgress}
		case StatusCompleted:
			mirror = &ProposalMirror{ProposalID: *o.ProposalID, Status: requirement.ProposalCompleted, CompletedAt: &now}
		}
	}

	if err := s.orders.Update(ctx, o, mirror); err != nil {
		return nil, err
	}
	metrics.OrderTransitions.WithLabelValues(string(newStatus)).Inc()
	log.Printf("order: updated order %s status from %s to %s", orderID, previous, newStatus)
	return o, nil
}

// StartWork - freelancer begins work on a confirmed order.
func (s *Service) StartWork(ctx context.Context, orderID, freelancerID string) (*Order, error) {
	return s.UpdateStatus(ctx, orderID, freelancerID, StatusInProgress, UpdatePayload{})
}

// DeliverWork - freelancer submits work for client review.
func (s *Service) DeliverWork(ctx context.Context, orderID, freelancerID, deliveryNotes string) (*Order, error) {
	return s.UpdateStatus(ctx, orderID, freelancerID, StatusSubmittedForReview, UpdatePayload{DeliveryNotes: deliveryNotes})
}

// ApproveWork - client approves submitted work and completes the order.
func (s *Service) ApproveWork(ctx context.Context, orderID, clientID, clientNotes string) (*Order, error) {
	return s.UpdateStatus(ctx, orderID, clientID, StatusCompleted, UpdatePayload{ClientNotes: clientNotes})
}

// RequestRevision - client sends submitted work back for changes.
func (s *Service) RequestRevision(ctx context.Context, orderID, clientID, revisionNotes string) (*Order, error) {
	return s.UpdateStatus(ctx, orderID, clientID, StatusRevisionRequested, UpdatePayload{RevisionNotes: revisionNotes})
}

// Get returns an order for one of its parties.
func (s *Service) Get(ctx context.Context, orderID, userID string) (*Order, error) {
	return s.orders.GetForUser(ctx, orderID, userID)
}

// GetByPaymentRef returns the order created for a payment reference, for one
// of its parties.
func (s *Service) GetByPaymentRef(ctx context.Context, paymentRef, userID string) (*Order, error) {
	o, err := s.orders.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		return nil, err
	}
	if o.RoleOf(userID) == "" {
		return nil, ErrUnauthorized
	}
	return o, nil
}

// ListForUser returns all orders the user is a party to.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListForUser(ctx, userID)
}
