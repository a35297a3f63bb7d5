package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ScanEventRepository defines the interface for scan audit trail access
type ScanEventRepository interface {
	Insert(ctx context.Context, event *ScanEvent) error
	ListByMemberID(ctx context.Context, memberID uuid.UUID, limit int) ([]ScanEvent, error)
	ListRecent(ctx context.Context, limit int) ([]ScanEvent, error)
}

// scanEventRepository implements ScanEventRepository using PostgreSQL
type scanEventRepository struct {
	db *sqlx.DB
}

// NewScanEventRepository creates a new ScanEventRepository instance
func NewScanEventRepository(db *sqlx.DB) ScanEventRepository {
	return &scanEventRepository{db: db}
}

// Insert records a decode attempt in the audit trail
func (r *scanEventRepository) Insert(ctx context.Context, event *ScanEvent) error {
	if event.ScannedAt.IsZero() {
		event.ScannedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO scan_events (id, scanner_id, member_id, token_kind, result, reason, scanned_at)
		VALUES (:id, :scanner_id, :member_id, :token_kind, :result, :reason, :scanned_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, event)
	return err
}

// ListByMemberID retrieves the most recent scan events for a member
func (r *scanEventRepository) ListByMemberID(ctx context.Context, memberID uuid.UUID, limit int) ([]ScanEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, scanner_id, member_id, token_kind, result, reason, scanned_at
		FROM scan_events
		WHERE member_id = $1
		ORDER BY scanned_at DESC
		LIMIT $2
	`

	var events []ScanEvent
	if err := r.db.SelectContext(ctx, &events, query, memberID, limit); err != nil {
		return nil, err
	}

	return events, nil
}

// ListRecent retrieves the most recent scan events across all members
func (r *scanEventRepository) ListRecent(ctx context.Context, limit int) ([]ScanEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, scanner_id, member_id, token_kind, result, reason, scanned_at
		FROM scan_events
		ORDER BY scanned_at DESC
		LIMIT $1
	`

	var events []ScanEvent
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, err
	}

	return events, nil
}
