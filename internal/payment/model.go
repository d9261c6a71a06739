package payment

import "time"

// Status is the external charge lifecycle.
type Status string

const (
	StatusCreated Status = "created"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// ReferenceKind says what a payment record pays for.
type ReferenceKind string

const (
	RefGig      ReferenceKind = "gig"
	RefProposal ReferenceKind = "proposal"
)

// Record is one row per attempted external charge. A failed and retried
// attempt may produce a second record for the same reference; the
// reconciliation path guarantees at most one order per paid record.
type Record struct {
	ID                string        `json:"id"`
	ClientID          string        `json:"client_id"`
	ReferenceKind     ReferenceKind `json:"reference_kind"`
	ReferenceID       string        `json:"reference_id"`
	ExternalOrderID   string        `json:"external_order_id"`
	ExternalPaymentID *string       `json:"external_payment_id,omitempty"`
	Amount            int64         `json:"amount"` // minor units (paise)
	Currency          string        `json:"currency"`
	Status            Status        `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
