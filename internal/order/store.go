package order

import (
	"context"
	"time"

	"github.com/gigconnect/server/internal/catalog"
	"github.com/gigconnect/server/internal/payment"
	"github.com/gigconnect/server/internal/requirement"
)

// ProposalMirror carries the proposal-side state change that must land in the
// same transaction as an order update.
type ProposalMirror struct {
	ProposalID  string
	Status      requirement.ProposalStatus
	CompletedAt *time.Time
}

// Store persists orders. Multi-entity mutations (accepting a proposal,
// mirroring proposal state) are single atomic operations so partial
// application is impossible.
type Store interface {
	Get(ctx context.Context, id string) (*Order, error)
	// GetForUser returns the order only if userID is a party to it.
	GetForUser(ctx context.Context, id, userID string) (*Order, error)
	GetByProposal(ctx context.Context, proposalID string) (*Order, error)
	GetByPaymentRef(ctx context.Context, paymentRef string) (*Order, error)
	// Create inserts the order. The store enforces at most one order per
	// payment reference and per proposal; a collision returns
	// ErrDuplicateOrder.
	Create(ctx context.Context, o *Order) error
	// CreateAcceptingProposal atomically marks the proposal accepted (it
	// must still be pending), rejects its pending siblings and inserts the
	// order. Returns ErrAlreadyProcessed if the proposal was concurrently
	// consumed.
	CreateAcceptingProposal(ctx context.Context, o *Order, rejectionReason string) error
	// Update persists the order and, when mirror is set, the linked
	// proposal's state in one transaction.
	Update(ctx context.Context, o *Order, mirror *ProposalMirror) error
	ListForUser(ctx context.Context, userID string) ([]Order, error)
}

// Read-side collaborators. The workflow service validates against these but
// never writes through them; payment records in particular are only ever
// mutated by the payment path.

type GigStore interface {
	Get(ctx context.Context, id string) (*catalog.Gig, error)
}

type ProposalStore interface {
	GetProposal(ctx context.Context, id string) (*requirement.Proposal, error)
}

type RequirementStore interface {
	GetRequirement(ctx context.Context, id string) (*requirement.Requirement, error)
}

type PaymentStore interface {
	GetByExternalRef(ctx context.Context, ref string) (*payment.Record, error)
}

type UserStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}
