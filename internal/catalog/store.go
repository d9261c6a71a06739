package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a gig does not exist.
var ErrNotFound = errors.New("gig not found")

// Store is the Postgres-backed gig store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const gigColumns = `id, freelancer_id, title, description, price, skills, status, created_at, updated_at`

func scanGig(row pgx.Row) (*Gig, error) {
	var g Gig
	err := row.Scan(&g.ID, &g.FreelancerID, &g.Title, &g.Description, &g.Price,
		&g.Skills, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// Get returns a gig by id, including inactive and deleted ones. Callers that
// care about purchasability check Status themselves.
func (s *Store) Get(ctx context.Context, id string) (*Gig, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+gigColumns+` FROM gigs WHERE id = $1`, id)
	return scanGig(row)
}

// Create inserts a new gig in active status.
func (s *Store) Create(ctx context.Context, g *Gig) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.Status == "" {
		g.Status = GigActive
	}
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now
	_, err := s.pool.Exec(ctx,
		`INSERT INTO gigs (id, freelancer_id, title, description, price, skills, status, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		g.ID, g.FreelancerID, g.Title, g.Description, g.Price, g.Skills, g.Status, g.CreatedAt, g.UpdatedAt)
	return err
}

// Update rewrites the mutable gig fields. Price and skill edits never touch
// existing orders, which snapshot title/description/amount at creation.
func (s *Store) Update(ctx context.Context, g *Gig) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE gigs SET title = $1, description = $2, price = $3, skills = $4, status = $5, updated_at = NOW()
         WHERE id = $6 AND status <> 'deleted'`,
		g.Title, g.Description, g.Price, g.Skills, g.Status, g.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus moves a gig through its lifecycle. Deletion is a status change,
// never a row removal.
func (s *Store) SetStatus(ctx context.Context, id, freelancerID string, status GigStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE gigs SET status = $1, updated_at = NOW() WHERE id = $2 AND freelancer_id = $3`,
		status, id, freelancerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive returns active gigs for public discovery.
func (s *Store) ListActive(ctx context.Context) ([]Gig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+gigColumns+` FROM gigs WHERE status = 'active' ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGigs(rows)
}

// ListByFreelancer returns all non-deleted gigs owned by a freelancer.
func (s *Store) ListByFreelancer(ctx context.Context, freelancerID string) ([]Gig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+gigColumns+` FROM gigs WHERE freelancer_id = $1 AND status <> 'deleted' ORDER BY created_at DESC`,
		freelancerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGigs(rows)
}

func collectGigs(rows pgx.Rows) ([]Gig, error) {
	var gigs []Gig
	for rows.Next() {
		var g Gig
		if err := rows.Scan(&g.ID, &g.FreelancerID, &g.Title, &g.Description, &g.Price,
			&g.Skills, &g.Status, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		gigs = append(gigs, g)
	}
	return gigs, rows.Err()
}
