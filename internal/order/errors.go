package order

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers a missing order, gig, proposal, requirement or
	// client, and an order the actor is not a party to.
	ErrNotFound = errors.New("order not found")
	// ErrUnauthorized is returned when the actor does not own the resource.
	ErrUnauthorized = errors.New("not authorized")
	// ErrGigUnavailable is returned when purchasing a non-active gig.
	ErrGigUnavailable = errors.New("gig is not available for purchase")
	// ErrPaymentNotFound is returned when no payment record matches the
	// supplied reference.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentNotCompleted is returned when the payment record is not paid.
	ErrPaymentNotCompleted = errors.New("payment not completed")
	// ErrAmountMismatch is returned when the paid amount does not match the
	// price being charged.
	ErrAmountMismatch = errors.New("payment amount does not match price")
	// ErrAlreadyProcessed is returned when the target was already consumed,
	// e.g. a proposal that is no longer pending.
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrDuplicateOrder is returned by the store when an insert collides
	// with an existing order for the same payment reference or proposal.
	ErrDuplicateOrder = errors.New("order already exists for this reference")
)

// InvalidTransitionError reports a denied status transition with enough
// detail for the caller to explain it: both statuses and the actor's role.
type InvalidTransitionError struct {
	From Status
	To   Status
	Role Role
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s for role %s", e.From, e.To, e.Role)
}
