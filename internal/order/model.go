package order

import "time"

// Status is the order state machine. Orders are created in confirmed (payment
// verified) and only ever move through ValidateTransition.
type Status string

const (
	StatusPendingPayment     Status = "pending_payment"
	StatusConfirmed          Status = "confirmed"
	StatusInProgress         Status = "in_progress"
	StatusSubmittedForReview Status = "submitted_for_review"
	StatusDelivered          Status = "delivered"
	StatusRevisionRequested  Status = "revision_requested"
	StatusCompleted          Status = "completed"
	StatusCancelled          Status = "cancelled"
	StatusRefunded           Status = "refunded"
)

// Type distinguishes the two kinds of paid work.
type Type string

const (
	TypeGigPurchase   Type = "gig_purchase"
	TypeCustomProject Type = "custom_project"
)

// Source records the acquisition path that produced the order.
type Source string

const (
	SourceDirectGig        Source = "direct_gig"
	SourceAcceptedProposal Source = "accepted_proposal"
)

// Role of an actor relative to a specific order.
type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
)

// Order is the authoritative unit of paid work, created exactly once per
// successful payment. Title, description and amount are snapshots taken at
// creation; later gig or requirement edits never touch them. Orders are never
// hard-deleted.
type Order struct {
	ID            string  `json:"id"`
	Type          Type    `json:"order_type"`
	Source        Source  `json:"order_source"`
	ClientID      string  `json:"client_id"`
	FreelancerID  string  `json:"freelancer_id"`
	GigID         *string `json:"gig_id,omitempty"`
	RequirementID *string `json:"requirement_id,omitempty"`
	ProposalID    *string `json:"proposal_id,omitempty"`
	PaymentID     string  `json:"payment_id"` // external gateway reference
	Amount        int64   `json:"amount"`     // minor units (paise)
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Status        Status  `json:"status"`

	DeliveryNotes *string `json:"delivery_notes,omitempty"`
	ClientNotes   *string `json:"client_notes,omitempty"`
	RevisionNotes *string `json:"revision_notes,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RoleOf resolves an actor's role on this order. Empty for non-parties.
func (o *Order) RoleOf(actorID string) Role {
	switch actorID {
	case o.ClientID:
		return RoleClient
	case o.FreelancerID:
		return RoleFreelancer
	default:
		return ""
	}
}
