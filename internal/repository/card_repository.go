package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCardNotFound is returned when no card matches the lookup.
var ErrCardNotFound = errors.New("card not found")

// CardRepository defines the interface for card identifier data access
type CardRepository interface {
	// Reserve atomically claims a card number. It returns false when the
	// number is already taken, which is the signal for the generator to
	// retry with a fresh candidate.
	Reserve(ctx context.Context, card *Card) (bool, error)
	GetActiveByMemberID(ctx context.Context, memberID uuid.UUID) (*Card, error)
	GetByNumber(ctx context.Context, number string) (*Card, error)
	ListByMemberID(ctx context.Context, memberID uuid.UUID) ([]Card, error)
	RevokeActive(ctx context.Context, memberID uuid.UUID, at time.Time) (int, error)
}

// cardRepository implements CardRepository using PostgreSQL
type cardRepository struct {
	pool *pgxpool.Pool
}

// NewCardRepository creates a new CardRepository instance
func NewCardRepository(pool *pgxpool.Pool) CardRepository {
	return &cardRepository{pool: pool}
}

// Reserve inserts a card row, relying on the unique constraint on
// card_number for atomic reserve-or-fail semantics. Two callers racing to
// claim the same number cannot both succeed.
func (r *cardRepository) Reserve(ctx context.Context, card *Card) (bool, error) {
	query := `
		INSERT INTO cards (id, member_id, card_number, issue_year)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (card_number) DO NOTHING
		RETURNING issued_at
	`

	err := r.pool.QueryRow(ctx, query,
		card.ID,
		card.MemberID,
		card.Number,
		card.IssueYear,
	).Scan(&card.IssuedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict: number already claimed
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// GetActiveByMemberID retrieves the member's current (non-revoked) card
func (r *cardRepository) GetActiveByMemberID(ctx context.Context, memberID uuid.UUID) (*Card, error) {
	query := `
		SELECT id, member_id, card_number, issue_year, issued_at, revoked_at
		FROM cards
		WHERE member_id = $1 AND revoked_at IS NULL
		ORDER BY issued_at DESC
		LIMIT 1
	`

	card := &Card{}
	err := r.pool.QueryRow(ctx, query, memberID).Scan(
		&card.ID,
		&card.MemberID,
		&card.Number,
		&card.IssueYear,
		&card.IssuedAt,
		&card.RevokedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}

	return card, nil
}

// GetByNumber retrieves a card by its 16-digit number
func (r *cardRepository) GetByNumber(ctx context.Context, number string) (*Card, error) {
	query := `
		SELECT id, member_id, card_number, issue_year, issued_at, revoked_at
		FROM cards
		WHERE card_number = $1
	`

	card := &Card{}
	err := r.pool.QueryRow(ctx, query, number).Scan(
		&card.ID,
		&card.MemberID,
		&card.Number,
		&card.IssueYear,
		&card.IssuedAt,
		&card.RevokedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}

	return card, nil
}

// ListByMemberID retrieves all cards ever issued to a member, newest first
func (r *cardRepository) ListByMemberID(ctx context.Context, memberID uuid.UUID) ([]Card, error) {
	query := `
		SELECT id, member_id, card_number, issue_year, issued_at, revoked_at
		FROM cards
		WHERE member_id = $1
		ORDER BY issued_at DESC
	`

	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		var card Card
		if err := rows.Scan(
			&card.ID,
			&card.MemberID,
			&card.Number,
			&card.IssueYear,
			&card.IssuedAt,
			&card.RevokedAt,
		); err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

// RevokeActive marks all non-revoked cards of a member as revoked and
// returns how many rows were affected
func (r *cardRepository) RevokeActive(ctx context.Context, memberID uuid.UUID, at time.Time) (int, error) {
	query := `
		UPDATE cards
		SET revoked_at = $1
		WHERE member_id = $2 AND revoked_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, at, memberID)
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}
