package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors
var (
	ErrMemberNotFound   = errors.New("member not found")
	ErrExternalIDTaken  = errors.New("external id already taken")
)

// MemberRepository defines the interface for member data access
type MemberRepository interface {
	Create(ctx context.Context, member *Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	GetByExternalID(ctx context.Context, externalID string) (*Member, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, isActive bool) error
	UpdateMembershipExpiry(ctx context.Context, id uuid.UUID, expiry *time.Time) error
}

// memberRepository implements MemberRepository using PostgreSQL
type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository creates a new MemberRepository instance
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

// Create inserts a new member into the database
func (r *memberRepository) Create(ctx context.Context, member *Member) error {
	query := `
		INSERT INTO members (id, external_id, display_name, status, is_active, membership_expiry)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		member.ID,
		member.ExternalID,
		member.DisplayName,
		member.Status,
		member.IsActive,
		member.MembershipExpiry,
	).Scan(&member.CreatedAt, &member.UpdatedAt)

	if err != nil {
		// Unique constraint on external_id
		if strings.Contains(err.Error(), "idx_members_external_id") {
			return ErrExternalIDTaken
		}
		return err
	}

	return nil
}

// GetByID retrieves a member by their ID
func (r *memberRepository) GetByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	query := `
		SELECT id, external_id, display_name, status, is_active, membership_expiry, created_at, updated_at
		FROM members
		WHERE id = $1
	`

	member := &Member{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&member.ID,
		&member.ExternalID,
		&member.DisplayName,
		&member.Status,
		&member.IsActive,
		&member.MembershipExpiry,
		&member.CreatedAt,
		&member.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	return member, nil
}

// GetByExternalID retrieves a member by their public external identifier
func (r *memberRepository) GetByExternalID(ctx context.Context, externalID string) (*Member, error) {
	query := `
		SELECT id, external_id, display_name, status, is_active, membership_expiry, created_at, updated_at
		FROM members
		WHERE external_id = $1
	`

	member := &Member{}
	err := r.pool.QueryRow(ctx, query, externalID).Scan(
		&member.ID,
		&member.ExternalID,
		&member.DisplayName,
		&member.Status,
		&member.IsActive,
		&member.MembershipExpiry,
		&member.CreatedAt,
		&member.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	return member, nil
}

// UpdateStatus updates the membership status and active flag for a member
func (r *memberRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, isActive bool) error {
	query := `
		UPDATE members
		SET status = $1, is_active = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.pool.Exec(ctx, query, status, isActive, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	return nil
}

// UpdateMembershipExpiry updates the membership expiry date for a member
func (r *memberRepository) UpdateMembershipExpiry(ctx context.Context, id uuid.UUID, expiry *time.Time) error {
	query := `
		UPDATE members
		SET membership_expiry = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, expiry, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	return nil
}
