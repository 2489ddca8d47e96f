package practitioner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aesthetiq/aesthetiq/internal/platform/apperr"
)

// -- Mock Repositories --

type mockRepo struct {
	store map[uuid.UUID]*Practitioner
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Practitioner)}
}

func (m *mockRepo) Create(_ context.Context, p *Practitioner) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.store[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("practitioner", id.String())
	}
	return p, nil
}

func (m *mockRepo) UpdateProfile(_ context.Context, p *Practitioner) error {
	current, ok := m.store[p.ID]
	if !ok {
		return apperr.NotFound("practitioner", p.ID.String())
	}
	current.DisplayName = p.DisplayName
	current.ProfessionalTitle = p.ProfessionalTitle
	current.ProfessionalType = p.ProfessionalType
	current.YearsExperience = p.YearsExperience
	current.Bio = p.Bio
	current.PracticeAddress = p.PracticeAddress
	return nil
}

func (m *mockRepo) SetVerificationStatus(_ context.Context, id uuid.UUID, status string, verifiedAt *time.Time) error {
	p, ok := m.store[id]
	if !ok {
		return apperr.NotFound("practitioner", id.String())
	}
	p.VerificationStatus = status
	if verifiedAt != nil {
		p.VerifiedAt = verifiedAt
	}
	return nil
}

func (m *mockRepo) SetTrustScore(_ context.Context, id uuid.UUID, score int) error {
	p, ok := m.store[id]
	if !ok {
		return apperr.NotFound("practitioner", id.String())
	}
	p.TrustScore = score
	return nil
}

func (m *mockRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	p, ok := m.store[id]
	if !ok {
		return apperr.NotFound("practitioner", id.String())
	}
	p.IsActive = false
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Practitioner, int, error) {
	var items []*Practitioner
	for _, p := range m.store {
		if p.IsActive {
			items = append(items, p)
		}
	}
	return items, len(items), nil
}

type mockLicenseRepo struct {
	store map[uuid.UUID][]*License
}

func newMockLicenseRepo() *mockLicenseRepo {
	return &mockLicenseRepo{store: make(map[uuid.UUID][]*License)}
}

func (m *mockLicenseRepo) Create(_ context.Context, l *License) error {
	l.ID = uuid.New()
	m.store[l.PractitionerID] = append(m.store[l.PractitionerID], l)
	return nil
}

func (m *mockLicenseRepo) ListByPractitioner(_ context.Context, practitionerID uuid.UUID) ([]*License, error) {
	return m.store[practitionerID], nil
}

type mockSubscriptionRepo struct {
	store map[uuid.UUID]*Subscription
}

func newMockSubscriptionRepo() *mockSubscriptionRepo {
	return &mockSubscriptionRepo{store: make(map[uuid.UUID]*Subscription)}
}

func (m *mockSubscriptionRepo) GetActive(_ context.Context, practitionerID uuid.UUID) (*Subscription, error) {
	s, ok := m.store[practitionerID]
	if !ok || !s.IsActive {
		return nil, apperr.NotFound("subscription", practitionerID.String())
	}
	return s, nil
}

func (m *mockSubscriptionRepo) Upsert(_ context.Context, s *Subscription) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.store[s.PractitionerID] = s
	return nil
}

func newTestService() (*Service, *mockRepo, *mockLicenseRepo, *mockSubscriptionRepo) {
	repo := newMockRepo()
	licenses := newMockLicenseRepo()
	subs := newMockSubscriptionRepo()
	return NewService(repo, licenses, subs), repo, licenses, subs
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

// -- Service Tests --

func TestRegister_StartsUnverified(t *testing.T) {
	svc, _, _, _ := newTestService()
	p := &Practitioner{DisplayName: "Dr. Vega", TrustScore: 500, VerificationStatus: StatusVerified}
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.VerificationStatus != StatusUnverified {
		t.Errorf("expected unverified, got %s", p.VerificationStatus)
	}
	if p.TrustScore != 0 {
		t.Errorf("expected zero trust score, got %d", p.TrustScore)
	}
	if !p.IsActive {
		t.Error("expected new practitioner to be active")
	}
}

func TestRegister_MissingName(t *testing.T) {
	svc, _, _, _ := newTestService()
	err := svc.Register(context.Background(), &Practitioner{})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpdateProfile_DeactivatedFails(t *testing.T) {
	svc, repo, _, _ := newTestService()
	p := &Practitioner{DisplayName: "Dr. Vega"}
	svc.Register(context.Background(), p)
	repo.store[p.ID].IsActive = false

	err := svc.UpdateProfile(context.Background(), &Practitioner{ID: p.ID, DisplayName: "Dr. V"})
	var se *apperr.InvalidStateError
	if !errors.As(err, &se) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestDeactivate_SoftDelete(t *testing.T) {
	svc, repo, _, _ := newTestService()
	p := &Practitioner{DisplayName: "Dr. Vega"}
	svc.Register(context.Background(), p)

	if err := svc.Deactivate(context.Background(), p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.store[p.ID].IsActive {
		t.Error("expected practitioner deactivated")
	}
	if _, ok := repo.store[p.ID]; !ok {
		t.Error("deactivation must not delete the row")
	}
}

func TestAddLicense_MissingFields(t *testing.T) {
	svc, _, _, _ := newTestService()
	p := &Practitioner{DisplayName: "Dr. Vega"}
	svc.Register(context.Background(), p)

	err := svc.AddLicense(context.Background(), &License{PractitionerID: p.ID})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 2 {
		t.Errorf("expected both missing fields listed, got %v", ve.Fields)
	}
}

func TestValidLicenses_FiltersExpired(t *testing.T) {
	svc, _, licenses, _ := newTestService()
	p := &Practitioner{DisplayName: "Dr. Vega"}
	svc.Register(context.Background(), p)

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(365 * 24 * time.Hour)
	licenses.store[p.ID] = []*License{
		{PractitionerID: p.ID, LicenseNumber: "A1", IssuingAuthority: "GMC", IsActive: true, ExpiresAt: &past},
		{PractitionerID: p.ID, LicenseNumber: "A2", IssuingAuthority: "GMC", IsActive: true, ExpiresAt: &future},
		{PractitionerID: p.ID, LicenseNumber: "A3", IssuingAuthority: "GMC", IsActive: false},
	}

	valid, err := svc.ValidLicenses(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(valid) != 1 || valid[0].LicenseNumber != "A2" {
		t.Errorf("expected only the unexpired active license, got %d", len(valid))
	}
}

func TestActivePlan_DefaultsToFree(t *testing.T) {
	svc, _, _, _ := newTestService()
	plan, err := svc.ActivePlan(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan != PlanFree {
		t.Errorf("expected free plan for missing subscription, got %s", plan)
	}
}

func TestSetPlan_ThenResolve(t *testing.T) {
	svc, _, _, _ := newTestService()
	p := &Practitioner{DisplayName: "Dr. Vega"}
	svc.Register(context.Background(), p)

	if err := svc.SetPlan(context.Background(), p.ID, PlanProfessional); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plan, err := svc.ActivePlan(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan != PlanProfessional {
		t.Errorf("expected professional, got %s", plan)
	}
}

func TestSetPlan_InvalidPlan(t *testing.T) {
	svc, _, _, _ := newTestService()
	p := &Practitioner{DisplayName: "Dr. Vega"}
	svc.Register(context.Background(), p)

	err := svc.SetPlan(context.Background(), p.ID, "platinum")
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
