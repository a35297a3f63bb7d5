package repository

import (
	"time"

	"github.com/google/uuid"
)

// Member represents a registered association member in the database.
type Member struct {
	ID               uuid.UUID  `db:"id"`
	ExternalID       string     `db:"external_id"`
	DisplayName      string     `db:"display_name"`
	Status           string     `db:"status"`
	IsActive         bool       `db:"is_active"`
	MembershipExpiry *time.Time `db:"membership_expiry"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// Card represents an issued card identifier in the database.
// Card numbers are immutable; a reissue revokes the old row and inserts a
// new one.
type Card struct {
	ID        uuid.UUID  `db:"id"`
	MemberID  uuid.UUID  `db:"member_id"`
	Number    string     `db:"card_number"`
	IssueYear int        `db:"issue_year"`
	IssuedAt  time.Time  `db:"issued_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}

// Suspension represents a disciplinary suspension window for a member.
// Both dates are inclusive.
type Suspension struct {
	ID        uuid.UUID `db:"id"`
	MemberID  uuid.UUID `db:"member_id"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

// ScanEvent represents one decode attempt recorded in the audit trail.
type ScanEvent struct {
	ID        uuid.UUID  `db:"id"`
	ScannerID string     `db:"scanner_id"`
	MemberID  *uuid.UUID `db:"member_id"`
	TokenKind string     `db:"token_kind"`
	Result    string     `db:"result"`
	Reason    *string    `db:"reason"`
	ScannedAt time.Time  `db:"scanned_at"`
}
