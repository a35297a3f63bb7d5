// Package verification implements the signed, versioned QR token protocol
// for offline-verifiable membership and match-eligibility checks.
package verification

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CurrentSchemaVersion is embedded in every encoded token. It must be
	// bumped whenever the payload layout changes so older decoders reject
	// the new format instead of guessing.
	CurrentSchemaVersion = 2

	// MaxDisplayNameLength bounds the display name inside the payload to
	// keep the token comfortably within QR capacity. Truncation is silent.
	MaxDisplayNameLength = 30

	// DateLayout is the compact calendar date encoding used in payloads
	DateLayout = "20060102"

	// NoExpiryDate is the sentinel for memberships without an expiry
	NoExpiryDate = "99991231"
)

// TokenKind marks the purpose of a payload
type TokenKind string

const (
	// KindDigitalCard is the payload shown on a member's digital card
	KindDigitalCard TokenKind = "digital-card"
	// KindMatchVerification is the payload scanned at match entry
	KindMatchVerification TokenKind = "match-verification"
)

// Valid reports whether the kind is one of the known values
func (k TokenKind) Valid() bool {
	return k == KindDigitalCard || k == KindMatchVerification
}

// StatusCode is the single-character membership status in the payload
type StatusCode string

const (
	StatusCodeActive    StatusCode = "A"
	StatusCodeSuspended StatusCode = "S"
	StatusCodeExpired   StatusCode = "E"
	StatusCodeRevoked   StatusCode = "R"
)

// Valid reports whether the code is one of the known values
func (c StatusCode) Valid() bool {
	switch c {
	case StatusCodeActive, StatusCodeSuspended, StatusCodeExpired, StatusCodeRevoked:
		return true
	}
	return false
}

// Codec errors. Domain rejections are returned values the caller must
// branch on; only misconfiguration is a hard error.
var (
	// ErrBadSignature means the payload failed signature verification.
	// No field of such a token may be trusted, even partially.
	ErrBadSignature = errors.New("token signature verification failed")
	// ErrUnsupportedVersion means the schema version is newer than this
	// decoder understands. Forward compatibility fails closed.
	ErrUnsupportedVersion = errors.New("token schema version not supported")
	// ErrTokenExpired means the token's freshness window has passed
	ErrTokenExpired = errors.New("token has expired")
	// ErrMalformedToken means the token is structurally broken or a
	// required field is missing. Missing fields are never zero-filled.
	ErrMalformedToken = errors.New("token is malformed")
)

var dateRegex = regexp.MustCompile(`^\d{8}$`)

// Snapshot is a point-in-time projection of a member's verification-relevant
// status. It is constructed fresh for every token, immutable once signed,
// and never persisted.
type Snapshot struct {
	// MemberRef is the opaque member identifier (JWT subject)
	MemberRef string `json:"member_ref"`
	// DisplayName is truncated to MaxDisplayNameLength runes
	DisplayName string `json:"display_name"`
	// ExternalID is the member's short public identifier
	ExternalID string `json:"external_id"`
	// CardNumber is the 16-digit card number, empty when no card is issued
	CardNumber string `json:"card_number,omitempty"`
	// Status is the single-character membership status
	Status StatusCode `json:"status"`
	// ExpiryDate is the membership expiry in DateLayout form
	ExpiryDate string `json:"expiry_date"`
	// MatchEligible is the derived match eligibility
	MatchEligible bool `json:"match_eligible"`
	// Kind is the payload purpose discriminator
	Kind TokenKind `json:"kind"`
	// Role is the subject's role for match-verification payloads
	Role string `json:"role,omitempty"`
	// VerificationID is the one-shot id of a match-verification payload
	VerificationID string `json:"verification_id,omitempty"`
	// SuspensionEnd is the end date of the governing suspension, if any
	SuspensionEnd string `json:"suspension_end,omitempty"`
}

// tokenClaims is the wire layout of the signed payload. Field names are
// kept short to hold the token well under QR capacity.
type tokenClaims struct {
	SchemaVersion  int    `json:"sv"`
	Kind           string `json:"kind"`
	DisplayName    string `json:"nm"`
	ExternalID     string `json:"pid"`
	CardNumber     string `json:"card,omitempty"`
	Status         string `json:"st"`
	ExpiryDate     string `json:"exp_on"`
	MatchEligible  bool   `json:"me"`
	Role           string `json:"role,omitempty"`
	VerificationID string `json:"vid,omitempty"`
	SuspensionEnd  string `json:"sus_end,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies verification tokens. The signing secret is
// injected at construction; the codec itself is stateless and safe for
// concurrent use.
type Codec struct {
	secret     []byte
	keyID      string
	issuer     string
	tokenTTL   time.Duration
	version    int
	maxVersion int
	now        func() time.Time
}

// CodecConfig holds configuration for Codec
type CodecConfig struct {
	// Secret is the HMAC signing secret; required
	Secret string
	// KeyID, when set, is emitted as the JWT kid header so tokens signed
	// under a retired key remain distinguishable after rotation
	KeyID string
	// Issuer is the JWT iss claim
	Issuer string
	// TokenTTL bounds the freshness window; zero disables the exp claim
	TokenTTL time.Duration
	// SchemaVersion overrides the encoded version, for tests
	SchemaVersion int
	// MaxSchemaVersion overrides the decoder's maximum, for tests
	MaxSchemaVersion int
	// Now overrides the clock, for tests
	Now func() time.Time
}

// NewCodec creates a new Codec instance
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("signing secret is required")
	}

	version := cfg.SchemaVersion
	if version <= 0 {
		version = CurrentSchemaVersion
	}
	maxVersion := cfg.MaxSchemaVersion
	if maxVersion <= 0 {
		maxVersion = CurrentSchemaVersion
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{
		secret:     []byte(cfg.Secret),
		keyID:      cfg.KeyID,
		issuer:     cfg.Issuer,
		tokenTTL:   cfg.TokenTTL,
		version:    version,
		maxVersion: maxVersion,
		now:        now,
	}, nil
}

// Encode serializes and signs a snapshot. The signature binds the whole
// payload, so mutating any field invalidates the token. Pure apart from
// reading the clock for iat/exp.
func (c *Codec) Encode(snap Snapshot) (string, error) {
	if !snap.Kind.Valid() {
		return "", fmt.Errorf("invalid token kind %q", snap.Kind)
	}
	if !snap.Status.Valid() {
		return "", fmt.Errorf("invalid status code %q", snap.Status)
	}
	if snap.MemberRef == "" {
		return "", errors.New("member ref is required")
	}
	if snap.ExternalID == "" {
		return "", errors.New("external id is required")
	}
	if !dateRegex.MatchString(snap.ExpiryDate) {
		return "", fmt.Errorf("expiry date must be %s formatted, got %q", DateLayout, snap.ExpiryDate)
	}

	now := c.now().UTC()
	claims := tokenClaims{
		SchemaVersion:  c.version,
		Kind:           string(snap.Kind),
		DisplayName:    truncateName(snap.DisplayName),
		ExternalID:     snap.ExternalID,
		CardNumber:     snap.CardNumber,
		Status:         string(snap.Status),
		ExpiryDate:     snap.ExpiryDate,
		MatchEligible:  snap.MatchEligible,
		Role:           snap.Role,
		VerificationID: snap.VerificationID,
		SuspensionEnd:  snap.SuspensionEnd,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   c.issuer,
			Subject:  snap.MemberRef,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if c.tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.tokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if c.keyID != "" {
		token.Header["kid"] = c.keyID
	}

	return token.SignedString(c.secret)
}

// Decode verifies and parses a token. The signature is checked before
// anything else; the schema version is checked before any field is
// returned. Every failure is one of the typed codec errors and never a
// partially filled snapshot.
func (c *Codec) Decode(tokenString string) (*Snapshot, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, c.keyFunc,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		default:
			// Signature failures, unexpected algorithms, and key id
			// mismatches are all treated as untrusted input.
			return nil, ErrBadSignature
		}
	}
	if !token.Valid {
		return nil, ErrBadSignature
	}

	if claims.SchemaVersion > c.maxVersion {
		return nil, ErrUnsupportedVersion
	}

	snap, err := claims.toSnapshot()
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// keyFunc returns the shared secret after checking the key id, when one is
// configured.
func (c *Codec) keyFunc(token *jwt.Token) (interface{}, error) {
	if c.keyID != "" {
		kid, _ := token.Header["kid"].(string)
		if kid != c.keyID {
			return nil, fmt.Errorf("unknown signing key id %q", kid)
		}
	}
	return c.secret, nil
}

// toSnapshot validates required fields and converts wire claims into a
// snapshot. A missing required field is a malformed token, never a default.
func (claims *tokenClaims) toSnapshot() (*Snapshot, error) {
	if claims.SchemaVersion <= 0 {
		return nil, ErrMalformedToken
	}
	if claims.Subject == "" {
		return nil, ErrMalformedToken
	}
	if !TokenKind(claims.Kind).Valid() {
		return nil, ErrMalformedToken
	}
	if !StatusCode(claims.Status).Valid() {
		return nil, ErrMalformedToken
	}
	if claims.ExternalID == "" {
		return nil, ErrMalformedToken
	}
	if !dateRegex.MatchString(claims.ExpiryDate) {
		return nil, ErrMalformedToken
	}

	return &Snapshot{
		MemberRef:      claims.Subject,
		DisplayName:    claims.DisplayName,
		ExternalID:     claims.ExternalID,
		CardNumber:     claims.CardNumber,
		Status:         StatusCode(claims.Status),
		ExpiryDate:     claims.ExpiryDate,
		MatchEligible:  claims.MatchEligible,
		Kind:           TokenKind(claims.Kind),
		Role:           claims.Role,
		VerificationID: claims.VerificationID,
		SuspensionEnd:  claims.SuspensionEnd,
	}, nil
}

// truncateName bounds a display name to MaxDisplayNameLength runes
func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxDisplayNameLength {
		return name
	}
	return string(runes[:MaxDisplayNameLength])
}
