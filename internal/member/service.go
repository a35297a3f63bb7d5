// Package member implements the member registry: creation, status
// management, and disciplinary suspensions.
package member

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/ligadigital/membercard/internal/repository"
)

// Service errors
var (
	ErrMemberNotFound  = errors.New("member not found")
	ErrInvalidStatus   = errors.New("invalid membership status")
	ErrInvalidDateSpan = errors.New("suspension end date precedes start date")
)

// Error codes for API responses
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeMemberNotFound  = "MEMBER_NOT_FOUND"
)

// Membership statuses accepted by the registry
var validStatuses = map[string]bool{
	"active":    true,
	"suspended": true,
	"expired":   true,
	"revoked":   true,
}

const (
	externalIDLength  = 7
	externalIDCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// externalIDAttempts caps retries on an external id collision
	externalIDAttempts = 5
)

// MemberResponse represents member data in API responses
type MemberResponse struct {
	ID               string     `json:"id"`
	ExternalID       string     `json:"external_id"`
	DisplayName      string     `json:"display_name"`
	Status           string     `json:"status"`
	IsActive         bool       `json:"is_active"`
	MembershipExpiry *time.Time `json:"membership_expiry,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// SuspensionResponse represents suspension data in API responses
type SuspensionResponse struct {
	ID        string    `json:"id"`
	MemberID  string    `json:"member_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Reason    string    `json:"reason"`
}

// Service handles member registry business logic
type Service struct {
	memberRepo     repository.MemberRepository
	suspensionRepo repository.SuspensionRepository
	logger         *slog.Logger
}

// ServiceConfig contains configuration for the member Service
type ServiceConfig struct {
	MemberRepository     repository.MemberRepository
	SuspensionRepository repository.SuspensionRepository
	Logger               *slog.Logger
}

// NewService creates a new member Service instance
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		memberRepo:     cfg.MemberRepository,
		suspensionRepo: cfg.SuspensionRepository,
		logger:         cfg.Logger,
	}
}

// Create registers a new member with a freshly generated external id. New
// members start active; expiry is optional.
func (s *Service) Create(ctx context.Context, displayName string, expiry *time.Time) (*MemberResponse, error) {
	var member *repository.Member

	for attempt := 0; attempt < externalIDAttempts; attempt++ {
		externalID, err := generateExternalID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate external id: %w", err)
		}

		candidate := &repository.Member{
			ID:               uuid.New(),
			ExternalID:       externalID,
			DisplayName:      displayName,
			Status:           "active",
			IsActive:         true,
			MembershipExpiry: expiry,
		}

		err = s.memberRepo.Create(ctx, candidate)
		if err == nil {
			member = candidate
			break
		}
		if !errors.Is(err, repository.ErrExternalIDTaken) {
			return nil, fmt.Errorf("failed to create member: %w", err)
		}
	}
	if member == nil {
		return nil, errors.New("failed to allocate a unique external id")
	}

	s.logger.Info("Member created",
		"member_id", member.ID,
		"external_id", member.ExternalID,
	)

	return toMemberResponse(member), nil
}

// Get retrieves a member by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*MemberResponse, error) {
	member, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return toMemberResponse(member), nil
}

// UpdateStatus sets the stored membership status and active flag
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string, isActive bool) (*MemberResponse, error) {
	if !validStatuses[status] {
		return nil, ErrInvalidStatus
	}

	if err := s.memberRepo.UpdateStatus(ctx, id, status, isActive); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	s.logger.Info("Member status updated",
		"member_id", id,
		"status", status,
		"is_active", isActive,
	)

	return s.Get(ctx, id)
}

// Suspend records a disciplinary suspension for a member. Both dates are
// inclusive; the record itself carries no derived state.
func (s *Service) Suspend(ctx context.Context, memberID uuid.UUID, start, end time.Time, reason string) (*SuspensionResponse, error) {
	if end.Before(start) {
		return nil, ErrInvalidDateSpan
	}

	if _, err := s.memberRepo.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	suspension := &repository.Suspension{
		ID:        uuid.New(),
		MemberID:  memberID,
		StartDate: start,
		EndDate:   end,
		Reason:    reason,
	}
	if err := s.suspensionRepo.Create(ctx, suspension); err != nil {
		return nil, fmt.Errorf("failed to create suspension: %w", err)
	}

	s.logger.Info("Suspension recorded",
		"member_id", memberID,
		"start_date", start.Format("2006-01-02"),
		"end_date", end.Format("2006-01-02"),
	)

	return toSuspensionResponse(suspension), nil
}

// ListSuspensions retrieves all suspensions for a member, latest end first
func (s *Service) ListSuspensions(ctx context.Context, memberID uuid.UUID) ([]SuspensionResponse, error) {
	if _, err := s.memberRepo.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	suspensions, err := s.suspensionRepo.ListByMemberID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list suspensions: %w", err)
	}

	responses := make([]SuspensionResponse, len(suspensions))
	for i := range suspensions {
		responses[i] = *toSuspensionResponse(&suspensions[i])
	}
	return responses, nil
}

// generateExternalID draws a short public identifier. The charset drops the
// easily confused characters 0, O, 1 and I.
func generateExternalID() (string, error) {
	charsetLen := big.NewInt(int64(len(externalIDCharset)))
	id := make([]byte, externalIDLength)
	for i := range id {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		id[i] = externalIDCharset[n.Int64()]
	}
	return string(id), nil
}

func toMemberResponse(m *repository.Member) *MemberResponse {
	return &MemberResponse{
		ID:               m.ID.String(),
		ExternalID:       m.ExternalID,
		DisplayName:      m.DisplayName,
		Status:           m.Status,
		IsActive:         m.IsActive,
		MembershipExpiry: m.MembershipExpiry,
		CreatedAt:        m.CreatedAt,
	}
}

func toSuspensionResponse(s *repository.Suspension) *SuspensionResponse {
	return &SuspensionResponse{
		ID:        s.ID.String(),
		MemberID:  s.MemberID.String(),
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		Reason:    s.Reason,
	}
}
