package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aesthetiq/aesthetiq/internal/domain/badge"
	"github.com/aesthetiq/aesthetiq/internal/domain/practitioner"
	"github.com/aesthetiq/aesthetiq/internal/domain/trust"
	"github.com/aesthetiq/aesthetiq/internal/platform/apperr"
)

// ---------------------------------------------------------------------------
// In-memory fakes for the adapter tests
// ---------------------------------------------------------------------------

type fakePractitionerRepo struct {
	practitioners map[uuid.UUID]*practitioner.Practitioner
}

func (f *fakePractitionerRepo) Create(_ context.Context, p *practitioner.Practitioner) error {
	f.practitioners[p.ID] = p
	return nil
}

func (f *fakePractitionerRepo) GetByID(_ context.Context, id uuid.UUID) (*practitioner.Practitioner, error) {
	p, ok := f.practitioners[id]
	if !ok {
		return nil, apperr.NotFound("practitioner", id.String())
	}
	return p, nil
}

func (f *fakePractitionerRepo) UpdateProfile(_ context.Context, p *practitioner.Practitioner) error {
	f.practitioners[p.ID] = p
	return nil
}

func (f *fakePractitionerRepo) SetVerificationStatus(_ context.Context, id uuid.UUID, status string, verifiedAt *time.Time) error {
	p, ok := f.practitioners[id]
	if !ok {
		return apperr.NotFound("practitioner", id.String())
	}
	p.VerificationStatus = status
	p.VerifiedAt = verifiedAt
	return nil
}

func (f *fakePractitionerRepo) SetTrustScore(_ context.Context, id uuid.UUID, score int) error {
	p, ok := f.practitioners[id]
	if !ok {
		return apperr.NotFound("practitioner", id.String())
	}
	p.TrustScore = score
	return nil
}

func (f *fakePractitionerRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	return nil
}

func (f *fakePractitionerRepo) List(_ context.Context, limit, offset int) ([]*practitioner.Practitioner, int, error) {
	return nil, 0, nil
}

type fakeLicenseRepo struct {
	licenses map[uuid.UUID][]*practitioner.License
}

func (f *fakeLicenseRepo) Create(_ context.Context, l *practitioner.License) error {
	f.licenses[l.PractitionerID] = append(f.licenses[l.PractitionerID], l)
	return nil
}

func (f *fakeLicenseRepo) ListByPractitioner(_ context.Context, id uuid.UUID) ([]*practitioner.License, error) {
	return f.licenses[id], nil
}

type fakeSubscriptionRepo struct{}

func (f *fakeSubscriptionRepo) GetActive(_ context.Context, id uuid.UUID) (*practitioner.Subscription, error) {
	return nil, apperr.NotFound("subscription", id.String())
}

func (f *fakeSubscriptionRepo) Upsert(_ context.Context, s *practitioner.Subscription) error {
	return nil
}

type fakeEventRepo struct {
	events []*trust.TrustEvent
}

func (f *fakeEventRepo) Append(_ context.Context, e *trust.TrustEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now() // mirrors the created_at DEFAULT NOW() column
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEventRepo) SumWeights(_ context.Context, id uuid.UUID) (int, error) {
	sum := 0
	for _, e := range f.events {
		if e.PractitionerID == id {
			sum += e.EventWeight
		}
	}
	return sum, nil
}

func (f *fakeEventRepo) CountByTypes(_ context.Context, id uuid.UUID, types []string, since time.Time) (int, error) {
	n := 0
	for _, e := range f.events {
		if e.PractitionerID != id || e.CreatedAt.Before(since) {
			continue
		}
		for _, t := range types {
			if e.EventType == t {
				n++
				break
			}
		}
	}
	return n, nil
}

func (f *fakeEventRepo) CountAll(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, e := range f.events {
		if e.PractitionerID == id {
			n++
		}
	}
	return n, nil
}

func (f *fakeEventRepo) ListByPractitioner(_ context.Context, id uuid.UUID, limit, offset int) ([]*trust.TrustEvent, int, error) {
	return nil, 0, nil
}

func newAdapterFixture() (*practitioner.Service, *trust.Service, *fakePractitionerRepo, *fakeLicenseRepo, *fakeEventRepo) {
	repo := &fakePractitionerRepo{practitioners: map[uuid.UUID]*practitioner.Practitioner{}}
	licenses := &fakeLicenseRepo{licenses: map[uuid.UUID][]*practitioner.License{}}
	events := &fakeEventRepo{}
	practitionerSvc := practitioner.NewService(repo, licenses, &fakeSubscriptionRepo{})
	trustSvc := trust.NewService(events, repo, []byte("test-key"), zerolog.Nop())
	return practitionerSvc, trustSvc, repo, licenses, events
}

// ---------------------------------------------------------------------------
// BadgeSignalAdapter
// ---------------------------------------------------------------------------

func TestBadgeSignalAdapter_AssemblesSnapshot(t *testing.T) {
	practitionerSvc, trustSvc, repo, licenses, _ := newAdapterFixture()
	id := uuid.New()
	verifiedAt := time.Now().Add(-200 * 24 * time.Hour)
	addr := "12 Harley Street, London"
	repo.practitioners[id] = &practitioner.Practitioner{
		ID:                 id,
		VerificationStatus: "verified",
		VerifiedAt:         &verifiedAt,
		PracticeAddress:    &addr,
		IsActive:           true,
	}
	licenses.licenses[id] = []*practitioner.License{
		{PractitionerID: id, IsActive: true, ExpiresAt: timePtr(time.Now().Add(365 * 24 * time.Hour))},
	}
	if _, err := trustSvc.RecordEvent(context.Background(), trust.EventConsultCompleted, id, nil, nil); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	sig, err := NewBadgeSignalAdapter(practitionerSvc, trustSvc).Signals(context.Background(), id)
	if err != nil {
		t.Fatalf("Signals: %v", err)
	}
	if sig.VerificationStatus != "verified" || !sig.HasPracticeAddress || sig.ValidLicenseCount != 1 {
		t.Errorf("signals = %+v", sig)
	}
	if sig.RecentCareEvents != 1 || sig.TotalEvents != 1 {
		t.Errorf("event counts = %d recent / %d total, want 1/1", sig.RecentCareEvents, sig.TotalEvents)
	}
	if !badge.Evaluate(badge.VerifiedPractice, *sig, time.Now()) {
		t.Error("verified_practice predicate false on a complete snapshot")
	}
}

// ---------------------------------------------------------------------------
// PractitionerDirectoryAdapter
// ---------------------------------------------------------------------------

func TestPractitionerDirectoryAdapter_RoundTrip(t *testing.T) {
	practitionerSvc, _, repo, licenses, _ := newAdapterFixture()
	id := uuid.New()
	title := "Aesthetic Nurse"
	repo.practitioners[id] = &practitioner.Practitioner{
		ID:                 id,
		VerificationStatus: "unverified",
		ProfessionalTitle:  &title,
		IsActive:           true,
	}
	licenses.licenses[id] = []*practitioner.License{
		{PractitionerID: id, IsActive: true},
	}

	dir := NewPractitionerDirectoryAdapter(practitionerSvc, repo)
	prof, err := dir.Profile(context.Background(), id)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if prof.VerificationStatus != "unverified" || prof.ProfessionalTitle == nil {
		t.Errorf("profile = %+v", prof)
	}
	n, err := dir.ValidLicenseCount(context.Background(), id)
	if err != nil || n != 1 {
		t.Errorf("ValidLicenseCount = %d, %v", n, err)
	}

	now := time.Now()
	if err := dir.SetVerificationStatus(context.Background(), id, "verified", &now); err != nil {
		t.Fatalf("SetVerificationStatus: %v", err)
	}
	if repo.practitioners[id].VerificationStatus != "verified" || repo.practitioners[id].VerifiedAt == nil {
		t.Errorf("status not written through: %+v", repo.practitioners[id])
	}
}

// ---------------------------------------------------------------------------
// ReportEventAdapter
// ---------------------------------------------------------------------------

func TestReportEventAdapter_RecordsNegativeEvent(t *testing.T) {
	practitionerSvc, trustSvc, repo, _, events := newAdapterFixture()
	_ = practitionerSvc
	id := uuid.New()
	repo.practitioners[id] = &practitioner.Practitioner{ID: id, IsActive: true}

	reporter := uuid.New()
	if err := NewReportEventAdapter(trustSvc).ReportSubmitted(context.Background(), id, reporter); err != nil {
		t.Fatalf("ReportSubmitted: %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("events = %d, want 1", len(events.events))
	}
	e := events.events[0]
	if e.EventType != trust.EventReportSubmitted || e.EventWeight != trust.Weights[trust.EventReportSubmitted] {
		t.Errorf("event = %+v", e)
	}
	if e.PatientIDHash == nil || *e.PatientIDHash == reporter.String() {
		t.Error("reporter id not hashed")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
