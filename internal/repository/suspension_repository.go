package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SuspensionRepository defines the interface for suspension data access
type SuspensionRepository interface {
	Create(ctx context.Context, suspension *Suspension) error
	ListByMemberID(ctx context.Context, memberID uuid.UUID) ([]Suspension, error)
}

// suspensionRepository implements SuspensionRepository using PostgreSQL
type suspensionRepository struct {
	pool *pgxpool.Pool
}

// NewSuspensionRepository creates a new SuspensionRepository instance
func NewSuspensionRepository(pool *pgxpool.Pool) SuspensionRepository {
	return &suspensionRepository{pool: pool}
}

// Create inserts a new suspension record
func (r *suspensionRepository) Create(ctx context.Context, suspension *Suspension) error {
	query := `
		INSERT INTO suspensions (id, member_id, start_date, end_date, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	return r.pool.QueryRow(ctx, query,
		suspension.ID,
		suspension.MemberID,
		suspension.StartDate,
		suspension.EndDate,
		suspension.Reason,
	).Scan(&suspension.CreatedAt)
}

// ListByMemberID retrieves all suspension records for a member, latest end
// date first. Filtering for the currently active window is done by the
// eligibility derivation, not here.
func (r *suspensionRepository) ListByMemberID(ctx context.Context, memberID uuid.UUID) ([]Suspension, error) {
	query := `
		SELECT id, member_id, start_date, end_date, reason, created_at
		FROM suspensions
		WHERE member_id = $1
		ORDER BY end_date DESC
	`

	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suspensions []Suspension
	for rows.Next() {
		var s Suspension
		if err := rows.Scan(
			&s.ID,
			&s.MemberID,
			&s.StartDate,
			&s.EndDate,
			&s.Reason,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		suspensions = append(suspensions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return suspensions, nil
}
