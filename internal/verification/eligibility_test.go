package verification

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

var testToday = time.Date(2025, 8, 15, 10, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func activeMember() MemberState {
	return MemberState{Status: StatusActive, IsActive: true}
}

func TestCurrentEligibilityActiveMember(t *testing.T) {
	got := CurrentEligibility(activeMember(), nil, testToday)

	if got.Status != StatusActive {
		t.Errorf("Status = %v, want %v", got.Status, StatusActive)
	}
	if !got.MatchEligible {
		t.Error("MatchEligible = false, want true")
	}
	if got.Suspension != nil {
		t.Errorf("Suspension = %+v, want nil", got.Suspension)
	}
}

func TestCurrentEligibilitySuspensionEndingToday(t *testing.T) {
	// The end date is inclusive: a suspension ending today still bars entry.
	suspensions := []SuspensionWindow{
		{StartDate: date(2025, 8, 1), EndDate: date(2025, 8, 15), Reason: "red card"},
	}

	got := CurrentEligibility(activeMember(), suspensions, testToday)

	if got.Status != StatusSuspended {
		t.Errorf("Status = %v, want %v", got.Status, StatusSuspended)
	}
	if got.MatchEligible {
		t.Error("MatchEligible = true, want false")
	}
	if got.Suspension == nil {
		t.Fatal("Suspension = nil, want detail")
	}
	if !got.Suspension.EndDate.Equal(date(2025, 8, 15)) {
		t.Errorf("Suspension.EndDate = %v, want %v", got.Suspension.EndDate, date(2025, 8, 15))
	}
	if got.Suspension.Reason != "red card" {
		t.Errorf("Suspension.Reason = %q, want %q", got.Suspension.Reason, "red card")
	}
}

func TestCurrentEligibilitySuspensionEndedYesterday(t *testing.T) {
	suspensions := []SuspensionWindow{
		{StartDate: date(2025, 8, 1), EndDate: date(2025, 8, 14)},
	}

	got := CurrentEligibility(activeMember(), suspensions, testToday)

	if got.Status != StatusActive {
		t.Errorf("Status = %v, want %v", got.Status, StatusActive)
	}
	if !got.MatchEligible {
		t.Error("MatchEligible = false, want true")
	}
}

func TestCurrentEligibilityFutureSuspension(t *testing.T) {
	suspensions := []SuspensionWindow{
		{StartDate: date(2025, 9, 1), EndDate: date(2025, 9, 30)},
	}

	got := CurrentEligibility(activeMember(), suspensions, testToday)

	if got.Status != StatusActive || !got.MatchEligible {
		t.Errorf("future suspension should not govern, got %+v", got)
	}
}

func TestCurrentEligibilityOverlappingSuspensions(t *testing.T) {
	// The suspension with the latest end date governs, so the reported end
	// date is the true soonest-eligible date.
	suspensions := []SuspensionWindow{
		{StartDate: date(2025, 8, 10), EndDate: date(2025, 8, 20), Reason: "short"},
		{StartDate: date(2025, 8, 1), EndDate: date(2025, 9, 15), Reason: "long"},
		{StartDate: date(2025, 8, 14), EndDate: date(2025, 8, 16), Reason: "shortest"},
	}

	got := CurrentEligibility(activeMember(), suspensions, testToday)

	if got.Suspension == nil {
		t.Fatal("Suspension = nil, want detail")
	}
	if got.Suspension.Reason != "long" {
		t.Errorf("governing suspension = %q, want %q", got.Suspension.Reason, "long")
	}
	if !got.Suspension.EndDate.Equal(date(2025, 9, 15)) {
		t.Errorf("Suspension.EndDate = %v, want %v", got.Suspension.EndDate, date(2025, 9, 15))
	}
}

func TestCurrentEligibilityInactiveAccount(t *testing.T) {
	state := MemberState{Status: StatusActive, IsActive: false}

	got := CurrentEligibility(state, nil, testToday)

	if got.MatchEligible {
		t.Error("inactive account must not be match eligible")
	}
	if got.Status != StatusActive {
		t.Errorf("Status = %v, want stored status %v", got.Status, StatusActive)
	}
}

func TestCurrentEligibilityExpiredMembership(t *testing.T) {
	expiry := date(2025, 8, 14)
	state := MemberState{Status: StatusActive, IsActive: true, MembershipExpiry: &expiry}

	got := CurrentEligibility(state, nil, testToday)

	if got.Status != StatusExpired {
		t.Errorf("Status = %v, want %v", got.Status, StatusExpired)
	}
	if got.MatchEligible {
		t.Error("expired membership must not be match eligible")
	}
}

func TestCurrentEligibilityExpiryToday(t *testing.T) {
	// Membership expiring today is still valid through the day.
	expiry := date(2025, 8, 15)
	state := MemberState{Status: StatusActive, IsActive: true, MembershipExpiry: &expiry}

	got := CurrentEligibility(state, nil, testToday)

	if got.Status != StatusActive || !got.MatchEligible {
		t.Errorf("membership expiring today should still be active, got %+v", got)
	}
}

func TestCurrentEligibilityRevokedMember(t *testing.T) {
	state := MemberState{Status: StatusRevoked, IsActive: true}

	got := CurrentEligibility(state, nil, testToday)

	if got.Status != StatusRevoked {
		t.Errorf("Status = %v, want %v", got.Status, StatusRevoked)
	}
	if got.MatchEligible {
		t.Error("revoked member must not be match eligible")
	}
}

func TestCurrentEligibilitySuspensionOverridesExpiry(t *testing.T) {
	expiry := date(2025, 8, 1)
	state := MemberState{Status: StatusActive, IsActive: true, MembershipExpiry: &expiry}
	suspensions := []SuspensionWindow{
		{StartDate: date(2025, 8, 10), EndDate: date(2025, 8, 20)},
	}

	got := CurrentEligibility(state, suspensions, testToday)

	if got.Status != StatusSuspended {
		t.Errorf("Status = %v, want %v", got.Status, StatusSuspended)
	}
}

func TestActiveSuspensionNeverEligibleProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		startOffset := rapid.IntRange(-60, 0).Draw(t, "startOffset")
		endOffset := rapid.IntRange(0, 60).Draw(t, "endOffset")
		extra := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) SuspensionWindow {
			s := rapid.IntRange(-120, 120).Draw(t, "s")
			d := rapid.IntRange(0, 30).Draw(t, "d")
			return SuspensionWindow{
				StartDate: testToday.AddDate(0, 0, s),
				EndDate:   testToday.AddDate(0, 0, s+d),
			}
		}), 0, 5).Draw(t, "extra")

		active := SuspensionWindow{
			StartDate: testToday.AddDate(0, 0, startOffset),
			EndDate:   testToday.AddDate(0, 0, endOffset),
		}

		got := CurrentEligibility(activeMember(), append(extra, active), testToday)

		if got.MatchEligible {
			t.Fatalf("member with active suspension reported eligible: %+v", got)
		}
		if got.Status != StatusSuspended {
			t.Fatalf("Status = %v, want %v", got.Status, StatusSuspended)
		}
	})
}
