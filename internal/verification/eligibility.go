package verification

import (
	"time"
)

// MembershipStatus is the stored membership status domain
type MembershipStatus string

const (
	StatusActive    MembershipStatus = "active"
	StatusSuspended MembershipStatus = "suspended"
	StatusExpired   MembershipStatus = "expired"
	StatusRevoked   MembershipStatus = "revoked"
)

// Code maps a membership status onto its single-character payload code.
// Unknown statuses map to Revoked, the most restrictive code.
func (s MembershipStatus) Code() StatusCode {
	switch s {
	case StatusActive:
		return StatusCodeActive
	case StatusSuspended:
		return StatusCodeSuspended
	case StatusExpired:
		return StatusCodeExpired
	default:
		return StatusCodeRevoked
	}
}

// MemberState is the plain status-bearing view of a member used by the
// eligibility derivation, decoupled from any request or storage context.
type MemberState struct {
	Status           MembershipStatus
	IsActive         bool
	MembershipExpiry *time.Time
}

// SuspensionWindow is one disciplinary suspension record. Both dates are
// inclusive.
type SuspensionWindow struct {
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

// SuspensionDetail describes the suspension governing a derivation result,
// so a verifier can assess the remaining duration.
type SuspensionDetail struct {
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

// Eligibility is the result of the status derivation
type Eligibility struct {
	Status        MembershipStatus
	MatchEligible bool
	Suspension    *SuspensionDetail
}

// CurrentEligibility derives the membership status and match eligibility
// from live member state. Pure; "today" is passed in by the caller.
//
// Precedence: an active suspension (start <= today <= end, inclusive)
// always wins and forces Suspended/not-eligible. With overlapping active
// suspensions the one with the latest end date governs, so the reported
// end date is the true soonest-eligible date. An inactive account is never
// eligible regardless of stored status. Otherwise the stored status stands,
// with a lapsed membership expiry downgrading it to Expired, and only
// Active members are match-eligible.
func CurrentEligibility(state MemberState, suspensions []SuspensionWindow, today time.Time) Eligibility {
	day := dateOnly(today)

	var governing *SuspensionWindow
	for i := range suspensions {
		s := &suspensions[i]
		start := dateOnly(s.StartDate)
		end := dateOnly(s.EndDate)
		if start.After(day) || end.Before(day) {
			continue
		}
		if governing == nil || dateOnly(s.EndDate).After(dateOnly(governing.EndDate)) {
			governing = s
		}
	}

	if governing != nil {
		return Eligibility{
			Status:        StatusSuspended,
			MatchEligible: false,
			Suspension: &SuspensionDetail{
				StartDate: dateOnly(governing.StartDate),
				EndDate:   dateOnly(governing.EndDate),
				Reason:    governing.Reason,
			},
		}
	}

	if !state.IsActive {
		return Eligibility{
			Status:        state.Status,
			MatchEligible: false,
		}
	}

	if state.MembershipExpiry != nil && dateOnly(*state.MembershipExpiry).Before(day) {
		return Eligibility{
			Status:        StatusExpired,
			MatchEligible: false,
		}
	}

	return Eligibility{
		Status:        state.Status,
		MatchEligible: state.Status == StatusActive,
	}
}

// dateOnly truncates a timestamp to its UTC calendar date
func dateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
