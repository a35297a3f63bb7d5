package luhn

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestCheckDigitKnownValues(t *testing.T) {
	tests := []struct {
		payload string
		want    int
	}{
		// 4539148803436467 is a well-known Luhn-valid number.
		{"453914880343646", 7},
		// 79927398713 is the classic example from the algorithm description.
		{"7992739871", 3},
		{"0", 0},
		{"5", 9},
		{"00000000000000", 0},
	}

	for _, tt := range tests {
		got, err := CheckDigit(tt.payload)
		if err != nil {
			t.Fatalf("CheckDigit(%q) returned error: %v", tt.payload, err)
		}
		if got != tt.want {
			t.Errorf("CheckDigit(%q) = %d, want %d", tt.payload, got, tt.want)
		}
	}
}

func TestCheckDigitRejectsBadPayloads(t *testing.T) {
	for _, payload := range []string{"", "12a4", "12 34", "-123"} {
		if _, err := CheckDigit(payload); err == nil {
			t.Errorf("CheckDigit(%q) expected error, got nil", payload)
		}
	}
}

func TestValidKnownNumbers(t *testing.T) {
	valid := []string{
		"4539148803436467",
		"79927398713",
		"4539 1488 0343 6467",
		"4539-1488-0343-6467",
	}
	for _, n := range valid {
		if !Valid(n) {
			t.Errorf("Valid(%q) = false, want true", n)
		}
	}

	invalid := []string{
		"",
		"7",
		"79927398710",
		"4539148803436468",
		"4539x48803436467",
		"   ",
		"--",
	}
	for _, n := range invalid {
		if Valid(n) {
			t.Errorf("Valid(%q) = true, want false", n)
		}
	}
}

// Any payload plus its computed check digit must validate.
func TestPropertyRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.StringMatching(`[0-9]{1,30}`).Draw(t, "payload")

		digit, err := CheckDigit(payload)
		if err != nil {
			t.Fatalf("CheckDigit(%q) returned error: %v", payload, err)
		}

		full := payload + string(rune('0'+digit))
		if !Valid(full) {
			t.Fatalf("Valid(%q) = false for payload %q with check digit %d", full, payload, digit)
		}
	})
}

// Substituting any single digit of a valid number must break validation.
// This is the algorithm's guaranteed property, so detection is 100%.
func TestPropertySingleDigitSubstitutionDetected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.StringMatching(`[0-9]{1,30}`).Draw(t, "payload")

		digit, err := CheckDigit(payload)
		if err != nil {
			t.Fatalf("CheckDigit(%q) returned error: %v", payload, err)
		}
		full := payload + string(rune('0'+digit))

		pos := rapid.IntRange(0, len(full)-1).Draw(t, "pos")
		replacement := rapid.RuneFrom([]rune("0123456789")).Draw(t, "replacement")
		if byte(replacement) == full[pos] {
			t.Skip("same digit, not a substitution")
		}

		mutated := full[:pos] + string(replacement) + full[pos+1:]
		if Valid(mutated) {
			t.Fatalf("Valid(%q) = true after substituting position %d of %q", mutated, pos, full)
		}
	})
}

// Formatting characters never change the validation outcome.
func TestPropertyFormattingInsensitive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.StringMatching(`[0-9]{1,20}`).Draw(t, "payload")

		digit, err := CheckDigit(payload)
		if err != nil {
			t.Fatalf("CheckDigit(%q) returned error: %v", payload, err)
		}
		full := payload + string(rune('0'+digit))

		var b strings.Builder
		for i := 0; i < len(full); i++ {
			b.WriteByte(full[i])
			if rapid.Bool().Draw(t, "sep") {
				if rapid.Bool().Draw(t, "dash") {
					b.WriteByte('-')
				} else {
					b.WriteByte(' ')
				}
			}
		}

		if !Valid(b.String()) {
			t.Fatalf("Valid(%q) = false after inserting formatting into %q", b.String(), full)
		}
	})
}
