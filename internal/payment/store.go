package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a payment record does not exist.
var ErrNotFound = errors.New("payment not found")

// Store is the Postgres-backed payment record store. Payment status is only
// ever advanced here; the order workflow reads records but never writes them.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const recordColumns = `id, client_id, reference_kind, reference_id, external_order_id,
    external_payment_id, amount, currency, status, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.ClientID, &r.ReferenceKind, &r.ReferenceID, &r.ExternalOrderID,
		&r.ExternalPaymentID, &r.Amount, &r.Currency, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// Get returns a record by internal id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM payments WHERE id = $1`, id)
	return scanRecord(row)
}

// GetByExternalRef looks a record up by external order id first, then by
// external payment id. Callers hold whichever reference the gateway handed
// them, so either lookup must succeed.
func (s *Store) GetByExternalRef(ctx context.Context, ref string) (*Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM payments WHERE external_order_id = $1 OR external_payment_id = $1`, ref)
	return scanRecord(row)
}

// Create inserts a record in created status.
func (s *Store) Create(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = StatusCreated
	}
	if r.Currency == "" {
		r.Currency = "INR"
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payments (id, client_id, reference_kind, reference_id, external_order_id, amount, currency, status, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.ClientID, r.ReferenceKind, r.ReferenceID, r.ExternalOrderID, r.Amount, r.Currency, r.Status, r.CreatedAt, r.UpdatedAt)
	return err
}

// MarkPaid records a captured payment against a record.
func (s *Store) MarkPaid(ctx context.Context, externalOrderID, externalPaymentID string) (*Record, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE payments SET status = 'paid', external_payment_id = $1, updated_at = NOW()
         WHERE external_order_id = $2
         RETURNING `+recordColumns, externalPaymentID, externalOrderID)
	return scanRecord(row)
}

// MarkFailed marks a record failed (e.g. signature verification failure).
func (s *Store) MarkFailed(ctx context.Context, externalOrderID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE payments SET status = 'failed', updated_at = NOW() WHERE external_order_id = $1`, externalOrderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasOpenForReference reports whether a created or paid record already exists
// for a reference. Failed attempts do not count; a retry may create a fresh
// record for the same reference.
func (s *Store) HasOpenForReference(ctx context.Context, kind ReferenceKind, referenceID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE reference_kind = $1 AND reference_id = $2 AND status IN ('created','paid'))`,
		kind, referenceID).Scan(&exists)
	return exists, err
}
