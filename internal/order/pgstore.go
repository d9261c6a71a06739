package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed order store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const orderColumns = `id, order_type, order_source, client_id, freelancer_id, gig_id, requirement_id,
    proposal_id, payment_id, amount, title, description, status, delivery_notes, client_notes,
    revision_notes, created_at, updated_at, started_at, delivered_at, completed_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Type, &o.Source, &o.ClientID, &o.FreelancerID, &o.GigID, &o.RequirementID,
		&o.ProposalID, &o.PaymentID, &o.Amount, &o.Title, &o.Description, &o.Status, &o.DeliveryNotes,
		&o.ClientNotes, &o.RevisionNotes, &o.CreatedAt, &o.UpdatedAt, &o.StartedAt, &o.DeliveredAt, &o.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (s *PGStore) GetForUser(ctx context.Context, id, userID string) (*Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND (client_id = $2 OR freelancer_id = $2)`,
		id, userID)
	return scanOrder(row)
}

func (s *PGStore) GetByProposal(ctx context.Context, proposalID string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE proposal_id = $1`, proposalID)
	return scanOrder(row)
}

func (s *PGStore) GetByPaymentRef(ctx context.Context, paymentRef string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_id = $1`, paymentRef)
	return scanOrder(row)
}

const insertOrderSQL = `INSERT INTO orders (id, order_type, order_source, client_id, freelancer_id,
    gig_id, requirement_id, proposal_id, payment_id, amount, title, description, status,
    delivery_notes, client_notes, revision_notes, created_at, updated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

func insertArgs(o *Order) []any {
	return []any{o.ID, o.Type, o.Source, o.ClientID, o.FreelancerID, o.GigID, o.RequirementID,
		o.ProposalID, o.PaymentID, o.Amount, o.Title, o.Description, o.Status,
		o.DeliveryNotes, o.ClientNotes, o.RevisionNotes, o.CreatedAt, o.UpdatedAt}
}

// isUniqueViolation reports a collision with the unique indexes on
// payment_id and proposal_id.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PGStore) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if _, err := s.pool.Exec(ctx, insertOrderSQL, insertArgs(o)...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrder
		}
		return err
	}
	return nil
}

func (s *PGStore) CreateAcceptingProposal(ctx context.Context, o *Order, rejectionReason string) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.ProposalID == nil || o.RequirementID == nil {
		return errors.New("proposal and requirement ids required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Conditional update doubles as the concurrency guard: a second accept
	// for the same proposal finds it no longer pending and bails out.
	tag, err := tx.Exec(ctx,
		`UPDATE proposals SET status = 'accepted', updated_at = NOW() WHERE id = $1 AND status = 'pending'`,
		*o.ProposalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyProcessed
	}

	_, err = tx.Exec(ctx,
		`UPDATE proposals SET status = 'rejected', rejection_reason = $1, updated_at = NOW()
         WHERE requirement_id = $2 AND id <> $3 AND status = 'pending'`,
		rejectionReason, *o.RequirementID, *o.ProposalID)
	if err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, insertOrderSQL, insertArgs(o)...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrder
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *PGStore) Update(ctx context.Context, o *Order, mirror *ProposalMirror) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status = $1, delivery_notes = $2, client_notes = $3, revision_notes = $4,
            updated_at = $5, started_at = $6, delivered_at = $7, completed_at = $8
         WHERE id = $9`,
		o.Status, o.DeliveryNotes, o.ClientNotes, o.RevisionNotes,
		o.UpdatedAt, o.StartedAt, o.DeliveredAt, o.CompletedAt, o.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if mirror != nil {
		_, err = tx.Exec(ctx,
			`UPDATE proposals SET status = $1, completed_at = $2, updated_at = NOW() WHERE id = $3`,
			mirror.Status, mirror.CompletedAt, mirror.ProposalID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PGStore) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE client_id = $1 OR freelancer_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Type, &o.Source, &o.ClientID, &o.FreelancerID, &o.GigID, &o.RequirementID,
			&o.ProposalID, &o.PaymentID, &o.Amount, &o.Title, &o.Description, &o.Status, &o.DeliveryNotes,
			&o.ClientNotes, &o.RevisionNotes, &o.CreatedAt, &o.UpdatedAt, &o.StartedAt, &o.DeliveredAt, &o.CompletedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
