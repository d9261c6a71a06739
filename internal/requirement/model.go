package requirement

import "time"

// Status is the requirement lifecycle.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusClosed     Status = "closed" // legacy: no longer accepting proposals
)

// Requirement is a client-posted custom-work request accepting proposals.
type Requirement struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	BudgetMin   int64     `json:"budget_min"` // minor units (paise)
	BudgetMax   int64     `json:"budget_max"`
	Skills      []string  `json:"skills"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProposalStatus is the proposal lifecycle.
type ProposalStatus string

const (
	ProposalPending            ProposalStatus = "pending"
	ProposalAccepted           ProposalStatus = "accepted" // transitional, moves to in_progress
	ProposalInProgress         ProposalStatus = "in_progress"
	ProposalAwaitingCompletion ProposalStatus = "awaiting_completion"
	ProposalCompleted          ProposalStatus = "completed"
	ProposalRejected           ProposalStatus = "rejected"
)

// Proposal is a freelancer's bid on a requirement, unique per
// (requirement, freelancer) pair.
type Proposal struct {
	ID              string         `json:"id"`
	RequirementID   string         `json:"requirement_id"`
	FreelancerID    string         `json:"freelancer_id"`
	ProposedPrice   int64          `json:"proposed_price"` // minor units (paise)
	Message         string         `json:"message"`
	Status          ProposalStatus `json:"status"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`
	CompletionNotes *string        `json:"completion_notes,omitempty"`
	ClientFeedback  *string        `json:"client_feedback,omitempty"`
	Rating          *int           `json:"rating,omitempty"` // optional 1-5
	SubmittedAt     *time.Time     `json:"submitted_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
