package requirement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a requirement or proposal does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyApplied is returned when a freelancer submits a second
	// proposal for the same requirement.
	ErrAlreadyApplied = errors.New("already applied to this requirement")
)

// Store is the Postgres-backed store for requirements and proposals.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const requirementColumns = `id, client_id, title, description, budget_min, budget_max, skills, status, created_at, updated_at`

func scanRequirement(row pgx.Row) (*Requirement, error) {
	var r Requirement
	err := row.Scan(&r.ID, &r.ClientID, &r.Title, &r.Description, &r.BudgetMin, &r.BudgetMax,
		&r.Skills, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// GetRequirement returns a requirement by id.
func (s *Store) GetRequirement(ctx context.Context, id string) (*Requirement, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+requirementColumns+` FROM requirements WHERE id = $1`, id)
	return scanRequirement(row)
}

// CreateRequirement inserts a new open requirement.
func (s *Store) CreateRequirement(ctx context.Context, r *Requirement) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = StatusOpen
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	_, err := s.pool.Exec(ctx,
		`INSERT INTO requirements (id, client_id, title, description, budget_min, budget_max, skills, status, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.ClientID, r.Title, r.Description, r.BudgetMin, r.BudgetMax, r.Skills, r.Status, r.CreatedAt, r.UpdatedAt)
	return err
}

// SetRequirementStatus advances a requirement's lifecycle.
func (s *Store) SetRequirementStatus(ctx context.Context, id string, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE requirements SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOpenRequirements returns requirements currently accepting proposals.
func (s *Store) ListOpenRequirements(ctx context.Context) ([]Requirement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+requirementColumns+` FROM requirements WHERE status = 'open' ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequirements(rows)
}

// ListClientRequirements returns all requirements posted by a client.
func (s *Store) ListClientRequirements(ctx context.Context, clientID string) ([]Requirement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+requirementColumns+` FROM requirements WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequirements(rows)
}

func collectRequirements(rows pgx.Rows) ([]Requirement, error) {
	var reqs []Requirement
	for rows.Next() {
		var r Requirement
		if err := rows.Scan(&r.ID, &r.ClientID, &r.Title, &r.Description, &r.BudgetMin, &r.BudgetMax,
			&r.Skills, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

const proposalColumns = `id, requirement_id, freelancer_id, proposed_price, message, status,
    rejection_reason, completion_notes, client_feedback, rating, submitted_at, completed_at, created_at, updated_at`

func scanProposal(row pgx.Row) (*Proposal, error) {
	var p Proposal
	err := row.Scan(&p.ID, &p.RequirementID, &p.FreelancerID, &p.ProposedPrice, &p.Message, &p.Status,
		&p.RejectionReason, &p.CompletionNotes, &p.ClientFeedback, &p.Rating,
		&p.SubmittedAt, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetProposal returns a proposal by id.
func (s *Store) GetProposal(ctx context.Context, id string) (*Proposal, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)
	return scanProposal(row)
}

// CreateProposal inserts a pending proposal. A second proposal from the same
// freelancer for the same requirement violates the unique constraint and maps
// to ErrAlreadyApplied.
func (s *Store) CreateProposal(ctx context.Context, p *Proposal) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = ProposalPending
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.pool.Exec(ctx,
		`INSERT INTO proposals (id, requirement_id, freelancer_id, proposed_price, message, status, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.RequirementID, p.FreelancerID, p.ProposedPrice, p.Message, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyApplied
		}
		return err
	}
	return nil
}

// UpdateProposal rewrites the mutable proposal fields (status, notes,
// feedback, rating, timestamps).
func (s *Store) UpdateProposal(ctx context.Context, p *Proposal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE proposals SET status = $1, rejection_reason = $2, completion_notes = $3,
            client_feedback = $4, rating = $5, submitted_at = $6, completed_at = $7, updated_at = NOW()
         WHERE id = $8`,
		p.Status, p.RejectionReason, p.CompletionNotes, p.ClientFeedback, p.Rating,
		p.SubmittedAt, p.CompletedAt, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RejectPendingSiblings rejects every still-pending proposal on a requirement
// except the kept one. Safe to call repeatedly: only pending rows change.
func (s *Store) RejectPendingSiblings(ctx context.Context, requirementID, keepProposalID, reason string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE proposals SET status = 'rejected', rejection_reason = $1, updated_at = NOW()
         WHERE requirement_id = $2 AND id <> $3 AND status = 'pending'`,
		reason, requirementID, keepProposalID)
	return err
}

// ListRequirementProposals returns all proposals on a requirement.
func (s *Store) ListRequirementProposals(ctx context.Context, requirementID string) ([]Proposal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE requirement_id = $1 ORDER BY created_at`, requirementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProposals(rows)
}

// ListFreelancerProposals returns all proposals submitted by a freelancer.
func (s *Store) ListFreelancerProposals(ctx context.Context, freelancerID string) ([]Proposal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE freelancer_id = $1 ORDER BY created_at DESC`, freelancerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProposals(rows)
}

func collectProposals(rows pgx.Rows) ([]Proposal, error) {
	var proposals []Proposal
	for rows.Next() {
		var p Proposal
		if err := rows.Scan(&p.ID, &p.RequirementID, &p.FreelancerID, &p.ProposedPrice, &p.Message, &p.Status,
			&p.RejectionReason, &p.CompletionNotes, &p.ClientFeedback, &p.Rating,
			&p.SubmittedAt, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}
