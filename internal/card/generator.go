// Package card implements generation and issuance of checksum-protected
// 16-digit membership card numbers.
//
// Layout: prefix(1) + issue year(4) + random body(10) + Luhn check digit(1).
// The prefix and year region is non-random so operators can triage a number
// by eye; the ten random digits make collisions astronomically unlikely.
package card

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ligadigital/membercard/internal/luhn"
)

const (
	// NumberLength is the total length of a card number including the
	// check digit
	NumberLength = 16
	// DefaultSchemePrefix is the constant scheme marker digit
	DefaultSchemePrefix = "2"
	// DefaultMaxAttempts caps the uniqueness retry loop
	DefaultMaxAttempts = 10

	randomBodyLength = 10
)

// randomBodyBound is 10^randomBodyLength, the exclusive upper bound for the
// random body value.
var randomBodyBound = new(big.Int).Exp(big.NewInt(10), big.NewInt(randomBodyLength), nil)

// Generator errors
var (
	// ErrGenerationExhausted is returned when the retry cap is hit without
	// reserving a unique number. Infrastructure-level and retryable; it is
	// never caused by a malformed candidate.
	ErrGenerationExhausted = errors.New("card number generation exhausted retry cap")
)

// Identifier is a generated card number with its constituent fields.
// Immutable once issued; a reissue always produces a new Identifier.
type Identifier struct {
	// Number is the full 16-digit card number
	Number string
	// Prefix is the single scheme marker digit
	Prefix string
	// Year is the 4-digit issue year
	Year int
	// Body is the 10-digit random region
	Body string
	// CheckDigit is the trailing Luhn digit over the first 15 digits
	CheckDigit int
}

// AvailabilityCheck reports whether a candidate identifier could be claimed.
// Implementations must be atomic reserve-or-fail (a unique constraint, not
// read-then-write); returning true means the candidate is now reserved for
// the caller.
type AvailabilityCheck func(ctx context.Context, id Identifier) (bool, error)

// Generator produces unique, checksum-valid card identifiers.
type Generator struct {
	prefix      string
	maxAttempts int
	now         func() time.Time
	onRetry     func()
}

// GeneratorConfig holds configuration for Generator
type GeneratorConfig struct {
	// SchemePrefix is a single digit; defaults to DefaultSchemePrefix
	SchemePrefix string
	// MaxAttempts defaults to DefaultMaxAttempts
	MaxAttempts int
	// Now overrides the clock, for tests
	Now func() time.Time
	// OnRetry is invoked once per uniqueness collision, for metrics
	OnRetry func()
}

// NewGenerator creates a new Generator instance
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	prefix := cfg.SchemePrefix
	if prefix == "" {
		prefix = DefaultSchemePrefix
	}
	if len(prefix) != 1 || prefix[0] < '0' || prefix[0] > '9' {
		return nil, fmt.Errorf("scheme prefix must be a single digit, got %q", cfg.SchemePrefix)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Generator{
		prefix:      prefix,
		maxAttempts: maxAttempts,
		now:         now,
		onRetry:     cfg.OnRetry,
	}, nil
}

// Generate draws random candidates until the availability check reserves
// one, up to the configured retry cap. Every returned identifier is
// well-formed and Luhn-valid; failure is only possible through the check
// itself or ErrGenerationExhausted.
func (g *Generator) Generate(ctx context.Context, check AvailabilityCheck) (Identifier, error) {
	if check == nil {
		return Identifier{}, errors.New("availability check is required")
	}

	year := g.now().UTC().Year()

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Identifier{}, err
		}

		body, err := randomBody()
		if err != nil {
			return Identifier{}, fmt.Errorf("failed to draw random body: %w", err)
		}

		payload := fmt.Sprintf("%s%04d%s", g.prefix, year, body)
		checkDigit, err := luhn.CheckDigit(payload)
		if err != nil {
			return Identifier{}, fmt.Errorf("failed to compute check digit: %w", err)
		}

		candidate := Identifier{
			Number:     payload + string(rune('0'+checkDigit)),
			Prefix:     g.prefix,
			Year:       year,
			Body:       body,
			CheckDigit: checkDigit,
		}

		available, err := check(ctx, candidate)
		if err != nil {
			return Identifier{}, fmt.Errorf("availability check failed: %w", err)
		}
		if available {
			return candidate, nil
		}

		if g.onRetry != nil {
			g.onRetry()
		}
	}

	return Identifier{}, ErrGenerationExhausted
}

// randomBody draws a uniformly random 10-digit string
func randomBody() (string, error) {
	n, err := rand.Int(rand.Reader, randomBodyBound)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%010d", n), nil
}
