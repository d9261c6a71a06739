package catalog

import "time"

// GigStatus is the lifecycle state of a gig. Deleted gigs are kept as rows so
// existing orders referencing them stay resolvable.
type GigStatus string

const (
	GigActive   GigStatus = "active"
	GigInactive GigStatus = "inactive"
	GigDeleted  GigStatus = "deleted"
)

// Gig is a fixed-price, pre-defined service offering owned by one freelancer.
type Gig struct {
	ID           string    `json:"id"`
	FreelancerID string    `json:"freelancer_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        int64     `json:"price"` // minor units (paise)
	Skills       []string  `json:"skills"`
	Status       GigStatus `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
