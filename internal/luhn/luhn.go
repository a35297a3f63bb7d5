// Package luhn implements the mod-10 check digit algorithm used to protect
// card numbers against single-digit and transposition errors.
package luhn

import (
	"errors"
	"strings"
)

// ErrInvalidPayload is returned by CheckDigit when the payload is empty or
// contains non-digit characters.
var ErrInvalidPayload = errors.New("luhn: payload must be a non-empty digit string")

// CheckDigit computes the check digit for a payload of decimal digits.
// The payload is the number without its trailing check digit. Doubling is
// anchored at the rightmost payload digit so that, once the check digit is
// appended, positions alternate correctly from the end of the full number.
func CheckDigit(payload string) (int, error) {
	if payload == "" {
		return 0, ErrInvalidPayload
	}

	sum := 0
	for i := 0; i < len(payload); i++ {
		c := payload[len(payload)-1-i]
		if c < '0' || c > '9' {
			return 0, ErrInvalidPayload
		}
		d := int(c - '0')
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}

	return (10 - sum%10) % 10, nil
}

// Valid reports whether a full number (payload + check digit) satisfies the
// checksum. Spaces and hyphens are stripped before validation; any other
// non-digit content, empty input, or a zero-length payload fails closed.
func Valid(number string) bool {
	stripped := Strip(number)
	if len(stripped) < 2 {
		return false
	}

	payload := stripped[:len(stripped)-1]
	provided := stripped[len(stripped)-1]
	if provided < '0' || provided > '9' {
		return false
	}

	expected, err := CheckDigit(payload)
	if err != nil {
		return false
	}

	return int(provided-'0') == expected
}

// Strip removes formatting characters (spaces and hyphens) from a candidate
// number. Formatting is tolerated on input but never part of the checksum.
func Strip(number string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, number)
}
