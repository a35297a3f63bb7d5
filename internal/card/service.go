package card

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ligadigital/membercard/internal/events"
	"github.com/ligadigital/membercard/internal/metrics"
	"github.com/ligadigital/membercard/internal/repository"
)

// Service errors
var (
	ErrMemberNotFound = errors.New("member not found")
	ErrMemberInactive = errors.New("member account is inactive")
	ErrCardNotFound   = errors.New("card not found")
)

// Error codes for API responses
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeMemberNotFound      = "MEMBER_NOT_FOUND"
	CodeMemberInactive      = "MEMBER_INACTIVE"
	CodeCardNotFound        = "CARD_NOT_FOUND"
	CodeGenerationExhausted = "GENERATION_EXHAUSTED"
)

// CardResponse represents card data in API responses
type CardResponse struct {
	ID        string     `json:"id"`
	MemberID  string     `json:"member_id"`
	Number    string     `json:"card_number"`
	IssueYear int        `json:"issue_year"`
	IssuedAt  time.Time  `json:"issued_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Service handles card issuance business logic
type Service struct {
	memberRepo repository.MemberRepository
	cardRepo   repository.CardRepository
	generator  *Generator
	eventBus   events.EventBus
	logger     *slog.Logger
}

// ServiceConfig contains configuration for the card Service
type ServiceConfig struct {
	MemberRepository repository.MemberRepository
	CardRepository   repository.CardRepository
	Generator        *Generator
	EventBus         events.EventBus
	Logger           *slog.Logger
}

// NewService creates a new card Service instance
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		memberRepo: cfg.MemberRepository,
		cardRepo:   cfg.CardRepository,
		generator:  cfg.Generator,
		eventBus:   cfg.EventBus,
		logger:     cfg.Logger,
	}
}

// Issue generates and reserves a new card number for a member. When the
// member already holds an active card it is revoked first; card numbers are
// never mutated or reused.
func (s *Service) Issue(ctx context.Context, memberID uuid.UUID) (*CardResponse, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	if !member.IsActive {
		return nil, ErrMemberInactive
	}

	revoked, err := s.cardRepo.RevokeActive(ctx, memberID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to revoke existing cards: %w", err)
	}

	// The availability check is an atomic insert guarded by the unique
	// constraint on card_number, so a reservation race between two callers
	// surfaces here as an ordinary collision and draws a fresh candidate.
	var reserved *repository.Card
	identifier, err := s.generator.Generate(ctx, func(ctx context.Context, id Identifier) (bool, error) {
		candidate := &repository.Card{
			ID:        uuid.New(),
			MemberID:  memberID,
			Number:    id.Number,
			IssueYear: id.Year,
		}
		ok, err := s.cardRepo.Reserve(ctx, candidate)
		if err != nil {
			return false, err
		}
		if ok {
			reserved = candidate
		}
		return ok, nil
	})
	if err != nil {
		if errors.Is(err, ErrGenerationExhausted) {
			metrics.CardGenerationExhaustedTotal.Inc()
			s.logger.Error("Card generation exhausted retry cap",
				"member_id", memberID,
			)
		}
		return nil, err
	}

	metrics.CardsIssuedTotal.Inc()
	s.logger.Info("Card issued",
		"member_id", memberID,
		"card_id", reserved.ID,
		"issue_year", identifier.Year,
		"revoked_previous", revoked,
	)

	if s.eventBus != nil {
		s.publishCardIssuedEvent(member.ID.String(), identifier, revoked > 0)
	}

	return &CardResponse{
		ID:        reserved.ID.String(),
		MemberID:  memberID.String(),
		Number:    reserved.Number,
		IssueYear: reserved.IssueYear,
		IssuedAt:  reserved.IssuedAt,
	}, nil
}

// List retrieves all cards ever issued to a member, newest first
func (s *Service) List(ctx context.Context, memberID uuid.UUID) ([]CardResponse, error) {
	if _, err := s.memberRepo.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	cards, err := s.cardRepo.ListByMemberID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	responses := make([]CardResponse, len(cards))
	for i, c := range cards {
		responses[i] = CardResponse{
			ID:        c.ID.String(),
			MemberID:  c.MemberID.String(),
			Number:    c.Number,
			IssueYear: c.IssueYear,
			IssuedAt:  c.IssuedAt,
			RevokedAt: c.RevokedAt,
		}
	}

	return responses, nil
}

// Active retrieves the member's current non-revoked card
func (s *Service) Active(ctx context.Context, memberID uuid.UUID) (*CardResponse, error) {
	c, err := s.cardRepo.GetActiveByMemberID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get active card: %w", err)
	}

	return &CardResponse{
		ID:        c.ID.String(),
		MemberID:  c.MemberID.String(),
		Number:    c.Number,
		IssueYear: c.IssueYear,
		IssuedAt:  c.IssuedAt,
		RevokedAt: c.RevokedAt,
	}, nil
}

// publishCardIssuedEvent publishes a card_issued event to the event bus
func (s *Service) publishCardIssuedEvent(memberID string, id Identifier, reissued bool) {
	data, err := json.Marshal(events.CardIssuedEvent{
		MemberID:   memberID,
		CardNumber: id.Number,
		IssueYear:  id.Year,
		Reissued:   reissued,
	})
	if err != nil {
		s.logger.Warn("Failed to marshal card_issued event", "error", err)
		return
	}

	event := events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventTypeCardIssued,
		MemberID:  memberID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	if err := s.eventBus.Publish(event); err != nil {
		s.logger.Warn("Failed to publish card_issued event", "member_id", memberID, "error", err)
	}
}
