package verification

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
)

// Error codes for API responses
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeMemberNotFound  = "MEMBER_NOT_FOUND"
)

// Result classifies the outcome of a scan
type Result string

const (
	ResultVerified           Result = "verified"
	ResultBadSignature       Result = "bad_signature"
	ResultUnsupportedVersion Result = "unsupported_version"
	ResultExpired            Result = "expired"
	ResultMalformed          Result = "malformed"
	ResultReplayed           Result = "replayed"
)

// IssuedToken is the response to a token issue request
type IssuedToken struct {
	Token    string    `json:"token"`
	Kind     TokenKind `json:"kind"`
	Snapshot Snapshot  `json:"snapshot"`
	// Degraded is set when the eligibility derivation could not read all
	// of its inputs and fell back to the conservative not-eligible default
	Degraded bool `json:"degraded"`
}

// ScanResult is the response to a scan request. On any rejection the
// snapshot is absent entirely; a verifier never sees partially trusted
// fields.
type ScanResult struct {
	Verified bool      `json:"verified"`
	Result   Result    `json:"result"`
	Reason   string    `json:"reason,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// Service handles token issuance and scan verification
type Service struct {
	memberRepo     repository.MemberRepository
	cardRepo       repository.CardRepository
	suspensionRepo repository.SuspensionRepository
	scanRepo       repository.ScanEventRepository
	codec          *Codec
	replayGuard    ReplayGuard
	replayRetain   time.Duration
	eventBus       events.EventBus
	logger         *slog.Logger
	now            func() time.Time
}

// ServiceConfig contains configuration for the verification Service
type ServiceConfig struct {
	MemberRepository     repository.MemberRepository
	CardRepository       repository.CardRepository
	SuspensionRepository repository.SuspensionRepository
	ScanEventRepository  repository.ScanEventRepository
	Codec                *Codec
	// ReplayGuard may be nil; replay detection is then skipped
	ReplayGuard ReplayGuard
	// ReplayRetention is how long verification ids are remembered
	ReplayRetention time.Duration
	EventBus        events.EventBus
	Logger          *slog.Logger
	// Now overrides the clock, for tests
	Now func() time.Time
}

// NewService creates a new verification Service instance
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ReplayRetention <= 0 {
		cfg.ReplayRetention = 24 * time.Hour
	}

	return &Service{
		memberRepo:     cfg.MemberRepository,
		cardRepo:       cfg.CardRepository,
		suspensionRepo: cfg.SuspensionRepository,
		scanRepo:       cfg.ScanEventRepository,
		codec:          cfg.Codec,
		replayGuard:    cfg.ReplayGuard,
		replayRetain:   cfg.ReplayRetention,
		eventBus:       cfg.EventBus,
		logger:         cfg.Logger,
		now:            cfg.Now,
	}
}

// IssueToken builds a fresh status snapshot for a member and encodes it as
// a signed token. A failed suspension lookup degrades the derivation to
// not-eligible instead of aborting; it never defaults to eligible.
func (s *Service) IssueToken(ctx context.Context, memberID uuid.UUID, kind TokenKind, role string) (*IssuedToken, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	cardNumber := ""
	if activeCard, err := s.cardRepo.GetActiveByMemberID(ctx, memberID); err == nil {
		cardNumber = activeCard.Number
	} else if !errors.Is(err, repository.ErrCardNotFound) {
		s.logger.Warn("Failed to load active card for token", "member_id", memberID, "error", err)
	}

	degraded := false
	var windows []SuspensionWindow
	suspensions, err := s.suspensionRepo.ListByMemberID(ctx, memberID)
	if err != nil {
		degraded = true
		metrics.EligibilityDerivationsDegradedTotal.Inc()
		s.logger.Warn("Suspension lookup failed, degrading to not-eligible",
			"member_id", memberID,
			"error", err,
		)
	} else {
		windows = make([]SuspensionWindow, len(suspensions))
		for i, sus := range suspensions {
			windows[i] = SuspensionWindow{
				StartDate: sus.StartDate,
				EndDate:   sus.EndDate,
				Reason:    sus.Reason,
			}
		}
	}

	now := s.now().UTC()
	eligibility := CurrentEligibility(MemberState{
		Status:           MembershipStatus(member.Status),
		IsActive:         member.IsActive,
		MembershipExpiry: member.MembershipExpiry,
	}, windows, now)

	if degraded {
		eligibility.MatchEligible = false
	}

	expiryDate := NoExpiryDate
	if member.MembershipExpiry != nil {
		expiryDate = member.MembershipExpiry.UTC().Format(DateLayout)
	}

	snap := Snapshot{
		MemberRef:     member.ID.String(),
		DisplayName:   member.DisplayName,
		ExternalID:    member.ExternalID,
		CardNumber:    cardNumber,
		Status:        eligibility.Status.Code(),
		ExpiryDate:    expiryDate,
		MatchEligible: eligibility.MatchEligible,
		Kind:          kind,
	}
	if eligibility.Suspension != nil {
		snap.SuspensionEnd = eligibility.Suspension.EndDate.Format(DateLayout)
	}
	if kind == KindMatchVerification {
		snap.Role = role
		snap.VerificationID = uuid.New().String()
	}

	token, err := s.codec.Encode(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token: %w", err)
	}

	// The codec truncates the display name on the wire; mirror that in the
	// returned snapshot so callers see exactly what was signed.
	snap.DisplayName = truncateName(snap.DisplayName)

	metrics.TokensEncodedTotal.WithLabelValues(string(kind)).Inc()
	s.logger.Info("Verification token issued",
		"member_id", memberID,
		"kind", kind,
		"degraded", degraded,
	)

	if s.eventBus != nil {
		s.publishTokenIssuedEvent(member.ID.String(), kind, degraded)
	}

	return &IssuedToken{
		Token:    token,
		Kind:     kind,
		Snapshot: snap,
		Degraded: degraded,
	}, nil
}

// VerifyScan decodes and verifies a scanned token on behalf of a scanner.
// Rejections are results, not errors; the returned ScanResult is always
// safe to render to a match official as-is.
func (s *Service) VerifyScan(ctx context.Context, scannerID, token string) *ScanResult {
	snap, err := s.codec.Decode(token)

	var result *ScanResult
	switch {
	case err == nil:
		result = &ScanResult{Verified: true, Result: ResultVerified, Snapshot: snap}
	case errors.Is(err, ErrBadSignature):
		// Possible tampering or forgery; security-relevant.
		s.logger.Warn("Scan rejected: bad signature", "scanner_id", scannerID)
		result = &ScanResult{Result: ResultBadSignature, Reason: "signature verification failed"}
	case errors.Is(err, ErrUnsupportedVersion):
		result = &ScanResult{Result: ResultUnsupportedVersion, Reason: "token format newer than this verifier, please update"}
	case errors.Is(err, ErrTokenExpired):
		result = &ScanResult{Result: ResultExpired, Reason: "token expired, please rescan a fresh code"}
	default:
		result = &ScanResult{Result: ResultMalformed, Reason: "token unreadable, please rescan"}
	}

	if result.Verified && snap.Kind == KindMatchVerification && snap.VerificationID != "" && s.replayGuard != nil {
		firstUse, err := s.replayGuard.FirstUse(ctx, snap.VerificationID, s.replayRetain)
		if err != nil {
			// The guard is advisory; a guard outage must not block entry.
			s.logger.Warn("Replay guard unavailable", "scanner_id", scannerID, "error", err)
		} else if !firstUse {
			result = &ScanResult{Result: ResultReplayed, Reason: "token already used"}
		}
	}

	metrics.TokenDecodesTotal.WithLabelValues(string(result.Result)).Inc()

	if s.eventBus != nil {
		s.publishScanEvent(scannerID, result)
	}

	return result
}

// ScanHistory retrieves the recent scan audit trail for a member
func (s *Service) ScanHistory(ctx context.Context, memberID uuid.UUID, limit int) ([]repository.ScanEvent, error) {
	if _, err := s.memberRepo.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	history, err := s.scanRepo.ListByMemberID(ctx, memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan events: %w", err)
	}

	return history, nil
}

// publishTokenIssuedEvent publishes a token_issued event to the event bus
func (s *Service) publishTokenIssuedEvent(memberID string, kind TokenKind, degraded bool) {
	data, err := json.Marshal(events.TokenIssuedEvent{
		MemberID: memberID,
		Kind:     string(kind),
		Degraded: degraded,
	})
	if err != nil {
		s.logger.Warn("Failed to marshal token_issued event", "error", err)
		return
	}

	event := events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventTypeTokenIssued,
		MemberID:  memberID,
		Data:      data,
		Timestamp: s.now().UTC(),
	}

	if err := s.eventBus.Publish(event); err != nil {
		s.logger.Warn("Failed to publish token_issued event", "member_id", memberID, "error", err)
	}
}

// publishScanEvent publishes a scan_verified or scan_rejected event
func (s *Service) publishScanEvent(scannerID string, result *ScanResult) {
	payload := events.ScanResultEvent{
		ScannerID: scannerID,
		Result:    string(result.Result),
		Reason:    result.Reason,
	}

	eventType := events.EventTypeScanRejected
	memberID := ""
	if result.Verified {
		eventType = events.EventTypeScanVerified
		memberID = result.Snapshot.MemberRef
		payload.MemberID = memberID
		payload.TokenKind = string(result.Snapshot.Kind)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("Failed to marshal scan event", "error", err)
		return
	}

	event := events.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		MemberID:  memberID,
		ScannerID: scannerID,
		Data:      data,
		Timestamp: s.now().UTC(),
	}

	if err := s.eventBus.Publish(event); err != nil {
		s.logger.Warn("Failed to publish scan event", "scanner_id", scannerID, "error", err)
	}
}
