package card

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/ligadigital/membercard/internal/luhn"
)

func alwaysAvailable(ctx context.Context, id Identifier) (bool, error) {
	return true, nil
}

func mustGenerator(t *testing.T, cfg GeneratorConfig) *Generator {
	t.Helper()
	g, err := NewGenerator(cfg)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	return g
}

func TestGenerateProducesValidNumber(t *testing.T) {
	g := mustGenerator(t, GeneratorConfig{})

	id, err := g.Generate(context.Background(), alwaysAvailable)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(id.Number) != NumberLength {
		t.Errorf("Number length = %d, want %d", len(id.Number), NumberLength)
	}
	if !luhn.Valid(id.Number) {
		t.Errorf("Number %q fails checksum validation", id.Number)
	}
	if !strings.HasPrefix(id.Number, DefaultSchemePrefix) {
		t.Errorf("Number %q missing scheme prefix %q", id.Number, DefaultSchemePrefix)
	}
}

func TestGenerateLayout(t *testing.T) {
	fixed := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	g := mustGenerator(t, GeneratorConfig{
		SchemePrefix: "7",
		Now:          func() time.Time { return fixed },
	})

	id, err := g.Generate(context.Background(), alwaysAvailable)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if id.Prefix != "7" {
		t.Errorf("Prefix = %q, want 7", id.Prefix)
	}
	if id.Year != 2025 {
		t.Errorf("Year = %d, want 2025", id.Year)
	}
	if len(id.Body) != 10 {
		t.Errorf("Body length = %d, want 10", len(id.Body))
	}
	if id.Number[:1] != "7" || id.Number[1:5] != "2025" {
		t.Errorf("Number %q does not start with prefix and year", id.Number)
	}
	if id.Number[5:15] != id.Body {
		t.Errorf("Number body region %q != Body %q", id.Number[5:15], id.Body)
	}
	if last, _ := strconv.Atoi(id.Number[15:]); last != id.CheckDigit {
		t.Errorf("trailing digit %d != CheckDigit %d", last, id.CheckDigit)
	}
}

func TestGenerateUniqueness(t *testing.T) {
	g := mustGenerator(t, GeneratorConfig{})

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, err := g.Generate(context.Background(), alwaysAvailable)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if seen[id.Number] {
			t.Fatalf("duplicate number %q after %d draws", id.Number, i)
		}
		seen[id.Number] = true
	}
}

func TestGenerateExhaustsRetryCap(t *testing.T) {
	retries := 0
	g := mustGenerator(t, GeneratorConfig{
		MaxAttempts: 3,
		OnRetry:     func() { retries++ },
	})

	checks := 0
	_, err := g.Generate(context.Background(), func(ctx context.Context, id Identifier) (bool, error) {
		checks++
		return false, nil
	})

	if !errors.Is(err, ErrGenerationExhausted) {
		t.Errorf("Generate() error = %v, want ErrGenerationExhausted", err)
	}
	if checks != 3 {
		t.Errorf("availability checks = %d, want 3", checks)
	}
	if retries != 3 {
		t.Errorf("retry callbacks = %d, want 3", retries)
	}
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	g := mustGenerator(t, GeneratorConfig{})

	attempt := 0
	id, err := g.Generate(context.Background(), func(ctx context.Context, id Identifier) (bool, error) {
		attempt++
		return attempt >= 3, nil
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if attempt != 3 {
		t.Errorf("attempts = %d, want 3", attempt)
	}
	if !luhn.Valid(id.Number) {
		t.Errorf("Number %q fails checksum validation", id.Number)
	}
}

func TestGeneratePropagatesCheckError(t *testing.T) {
	g := mustGenerator(t, GeneratorConfig{})

	wantErr := errors.New("storage down")
	_, err := g.Generate(context.Background(), func(ctx context.Context, id Identifier) (bool, error) {
		return false, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Generate() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestGenerateHonorsContextCancellation(t *testing.T) {
	g := mustGenerator(t, GeneratorConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Generate(ctx, alwaysAvailable); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestNewGeneratorRejectsBadPrefix(t *testing.T) {
	for _, prefix := range []string{"22", "x", " "} {
		if _, err := NewGenerator(GeneratorConfig{SchemePrefix: prefix}); err == nil {
			t.Errorf("NewGenerator(prefix=%q) accepted invalid prefix", prefix)
		}
	}
}

func TestGenerateAlwaysChecksumValidProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.StringMatching(`[0-9]`).Draw(t, "prefix")
		year := rapid.IntRange(2000, 2099).Draw(t, "year")

		g, err := NewGenerator(GeneratorConfig{
			SchemePrefix: prefix,
			Now: func() time.Time {
				return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
			},
		})
		if err != nil {
			t.Fatalf("NewGenerator() error = %v", err)
		}

		id, err := g.Generate(context.Background(), alwaysAvailable)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		if len(id.Number) != NumberLength {
			t.Fatalf("Number length = %d, want %d", len(id.Number), NumberLength)
		}
		if !luhn.Valid(id.Number) {
			t.Fatalf("Number %q fails checksum validation", id.Number)
		}
		if id.Number[1:5] != strconv.Itoa(year) {
			t.Fatalf("year region %q, want %d", id.Number[1:5], year)
		}
	})
}
