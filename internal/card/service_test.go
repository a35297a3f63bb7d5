package card

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ligadigital/membercard/internal/luhn"
	"github.com/ligadigital/membercard/internal/repository"
)

type fakeMemberRepo struct {
	members map[uuid.UUID]*repository.Member
}

func (f *fakeMemberRepo) Create(ctx context.Context, member *repository.Member) error {
	f.members[member.ID] = member
	return nil
}

func (f *fakeMemberRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Member, error) {
	member, ok := f.members[id]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}
	return member, nil
}

func (f *fakeMemberRepo) GetByExternalID(ctx context.Context, externalID string) (*repository.Member, error) {
	return nil, repository.ErrMemberNotFound
}

func (f *fakeMemberRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, isActive bool) error {
	return nil
}

func (f *fakeMemberRepo) UpdateMembershipExpiry(ctx context.Context, id uuid.UUID, expiry *time.Time) error {
	return nil
}

// fakeCardRepo reserves against an in-memory set keyed by card number,
// mirroring the unique constraint of the real table.
type fakeCardRepo struct {
	byNumber map[string]*repository.Card
	taken    map[string]bool
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{
		byNumber: make(map[string]*repository.Card),
		taken:    make(map[string]bool),
	}
}

func (f *fakeCardRepo) Reserve(ctx context.Context, card *repository.Card) (bool, error) {
	if f.taken[card.Number] {
		return false, nil
	}
	f.taken[card.Number] = true
	card.IssuedAt = time.Now().UTC()
	f.byNumber[card.Number] = card
	return true, nil
}

func (f *fakeCardRepo) GetActiveByMemberID(ctx context.Context, memberID uuid.UUID) (*repository.Card, error) {
	var latest *repository.Card
	for _, c := range f.byNumber {
		if c.MemberID != memberID || c.RevokedAt != nil {
			continue
		}
		if latest == nil || c.IssuedAt.After(latest.IssuedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, repository.ErrCardNotFound
	}
	return latest, nil
}

func (f *fakeCardRepo) GetByNumber(ctx context.Context, number string) (*repository.Card, error) {
	c, ok := f.byNumber[number]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	return c, nil
}

func (f *fakeCardRepo) ListByMemberID(ctx context.Context, memberID uuid.UUID) ([]repository.Card, error) {
	var out []repository.Card
	for _, c := range f.byNumber {
		if c.MemberID == memberID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCardRepo) RevokeActive(ctx context.Context, memberID uuid.UUID, at time.Time) (int, error) {
	revoked := 0
	for _, c := range f.byNumber {
		if c.MemberID == memberID && c.RevokedAt == nil {
			revokedAt := at
			c.RevokedAt = &revokedAt
			revoked++
		}
	}
	return revoked, nil
}

func newTestService(t *testing.T, memberRepo repository.MemberRepository, cardRepo repository.CardRepository) *Service {
	t.Helper()
	generator, err := NewGenerator(GeneratorConfig{})
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	return NewService(ServiceConfig{
		MemberRepository: memberRepo,
		CardRepository:   cardRepo,
		Generator:        generator,
	})
}

func activeTestMember() *repository.Member {
	return &repository.Member{
		ID:          uuid.New(),
		ExternalID:  "AB12345",
		DisplayName: "Jonas Example",
		Status:      "active",
		IsActive:    true,
	}
}

func TestIssueCard(t *testing.T) {
	member := activeTestMember()
	memberRepo := &fakeMemberRepo{members: map[uuid.UUID]*repository.Member{member.ID: member}}
	cardRepo := newFakeCardRepo()
	service := newTestService(t, memberRepo, cardRepo)

	card, err := service.Issue(context.Background(), member.ID)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if len(card.Number) != NumberLength {
		t.Errorf("Number length = %d, want %d", len(card.Number), NumberLength)
	}
	if !luhn.Valid(card.Number) {
		t.Errorf("Number %q fails checksum validation", card.Number)
	}
	if card.MemberID != member.ID.String() {
		t.Errorf("MemberID = %q, want %q", card.MemberID, member.ID)
	}
}

func TestIssueCardRevokesPrevious(t *testing.T) {
	member := activeTestMember()
	memberRepo := &fakeMemberRepo{members: map[uuid.UUID]*repository.Member{member.ID: member}}
	cardRepo := newFakeCardRepo()
	service := newTestService(t, memberRepo, cardRepo)

	first, err := service.Issue(context.Background(), member.ID)
	if err != nil {
		t.Fatalf("first Issue() error = %v", err)
	}
	second, err := service.Issue(context.Background(), member.ID)
	if err != nil {
		t.Fatalf("second Issue() error = %v", err)
	}

	if first.Number == second.Number {
		t.Error("reissue returned the same card number")
	}

	old, err := cardRepo.GetByNumber(context.Background(), first.Number)
	if err != nil {
		t.Fatalf("GetByNumber() error = %v", err)
	}
	if old.RevokedAt == nil {
		t.Error("previous card was not revoked on reissue")
	}

	active, err := service.Active(context.Background(), member.ID)
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if active.Number != second.Number {
		t.Errorf("Active() = %q, want %q", active.Number, second.Number)
	}
}

func TestIssueCardMemberNotFound(t *testing.T) {
	memberRepo := &fakeMemberRepo{members: make(map[uuid.UUID]*repository.Member)}
	service := newTestService(t, memberRepo, newFakeCardRepo())

	if _, err := service.Issue(context.Background(), uuid.New()); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("Issue() error = %v, want ErrMemberNotFound", err)
	}
}

func TestIssueCardInactiveMember(t *testing.T) {
	member := activeTestMember()
	member.IsActive = false
	memberRepo := &fakeMemberRepo{members: map[uuid.UUID]*repository.Member{member.ID: member}}
	service := newTestService(t, memberRepo, newFakeCardRepo())

	if _, err := service.Issue(context.Background(), member.ID); !errors.Is(err, ErrMemberInactive) {
		t.Errorf("Issue() error = %v, want ErrMemberInactive", err)
	}
}

func TestListCards(t *testing.T) {
	member := activeTestMember()
	memberRepo := &fakeMemberRepo{members: map[uuid.UUID]*repository.Member{member.ID: member}}
	service := newTestService(t, memberRepo, newFakeCardRepo())

	for i := 0; i < 3; i++ {
		if _, err := service.Issue(context.Background(), member.ID); err != nil {
			t.Fatalf("Issue() %d error = %v", i, err)
		}
	}

	cards, err := service.List(context.Background(), member.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(cards) != 3 {
		t.Errorf("List() returned %d cards, want 3", len(cards))
	}

	revoked := 0
	for _, c := range cards {
		if c.RevokedAt != nil {
			revoked++
		}
	}
	if revoked != 2 {
		t.Errorf("revoked cards = %d, want 2", revoked)
	}
}

func TestActiveCardNone(t *testing.T) {
	member := activeTestMember()
	memberRepo := &fakeMemberRepo{members: map[uuid.UUID]*repository.Member{member.ID: member}}
	service := newTestService(t, memberRepo, newFakeCardRepo())

	if _, err := service.Active(context.Background(), member.ID); !errors.Is(err, ErrCardNotFound) {
		t.Errorf("Active() error = %v, want ErrCardNotFound", err)
	}
}
