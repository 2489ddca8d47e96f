package badge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aesthetiq/aesthetiq/internal/platform/apperr"
)

type mockBadgeRepo struct {
	badges map[string]*Badge
}

func newMockBadgeRepo() *mockBadgeRepo {
	return &mockBadgeRepo{badges: map[string]*Badge{}}
}

func badgeKey(id uuid.UUID, t BadgeType) string { return id.String() + "/" + string(t) }

func (m *mockBadgeRepo) Get(_ context.Context, practitionerID uuid.UUID, t BadgeType) (*Badge, error) {
	b, ok := m.badges[badgeKey(practitionerID, t)]
	if !ok {
		return nil, apperr.NotFound("badge", string(t))
	}
	cp := *b
	return &cp, nil
}

func (m *mockBadgeRepo) ListByPractitioner(_ context.Context, practitionerID uuid.UUID, activeOnly bool) ([]*Badge, error) {
	var out []*Badge
	for _, b := range m.badges {
		if b.PractitionerID != practitionerID {
			continue
		}
		if activeOnly && !b.IsActive {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockBadgeRepo) Upsert(_ context.Context, b *Badge) error {
	cp := *b
	m.badges[badgeKey(b.PractitionerID, b.BadgeType)] = &cp
	return nil
}

type mockAuditRepo struct {
	entries []*AuditEntry
}

func (m *mockAuditRepo) Append(_ context.Context, e *AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditRepo) ListByPractitioner(_ context.Context, practitionerID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error) {
	var out []*AuditEntry
	for _, e := range m.entries {
		if e.PractitionerID == practitionerID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

type mockSignalSource struct {
	sig Signals
	err error
}

func (m *mockSignalSource) Signals(_ context.Context, _ uuid.UUID) (*Signals, error) {
	if m.err != nil {
		return nil, m.err
	}
	cp := m.sig
	return &cp, nil
}

func newTestService(src *mockSignalSource) (*Service, *mockBadgeRepo, *mockAuditRepo) {
	badges := newMockBadgeRepo()
	audit := &mockAuditRepo{}
	svc := NewService(badges, audit, src, zerolog.Nop())
	return svc, badges, audit
}

func timePtr(t time.Time) *time.Time { return &t }

func TestPredicates_Exhaustive(t *testing.T) {
	for _, bt := range AllBadgeTypes {
		if _, ok := predicates[bt]; !ok {
			t.Errorf("badge type %q has no predicate", bt)
		}
	}
	if len(predicates) != len(AllBadgeTypes) {
		t.Errorf("predicates has %d entries, AllBadgeTypes has %d", len(predicates), len(AllBadgeTypes))
	}
}

func TestCompute_AwardsEligibleBadges(t *testing.T) {
	now := time.Now()
	src := &mockSignalSource{sig: Signals{
		VerificationStatus: "verified",
		VerifiedAt:         timePtr(now.Add(-200 * 24 * time.Hour)),
		ValidLicenseCount:  1,
		HasPracticeAddress: true,
		RecentCareEvents:   6,
		TotalEvents:        150,
	}}
	svc, badges, audit := newTestService(src)
	pid := uuid.New()

	res, err := svc.Compute(context.Background(), pid)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(res.Awarded) != 4 {
		t.Fatalf("awarded %d badges, want 4: %v", len(res.Awarded), res.Awarded)
	}
	if len(audit.entries) != 4 {
		t.Errorf("audit entries = %d, want 4", len(audit.entries))
	}
	for _, e := range audit.entries {
		if !e.Automated || e.Action != ActionAwarded {
			t.Errorf("audit entry %q automated=%v action=%q", e.BadgeType, e.Automated, e.Action)
		}
	}
	b, err := badges.Get(context.Background(), pid, VerifiedIdentity)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !b.IsActive || b.Metadata.LastPredicate == nil || !*b.Metadata.LastPredicate {
		t.Errorf("badge = %+v, want active with last_predicate true", b)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	src := &mockSignalSource{sig: Signals{VerificationStatus: "verified"}}
	svc, _, audit := newTestService(src)
	pid := uuid.New()

	if _, err := svc.Compute(context.Background(), pid); err != nil {
		t.Fatalf("first Compute: %v", err)
	}
	before := len(audit.entries)

	res, err := svc.Compute(context.Background(), pid)
	if err != nil {
		t.Fatalf("second Compute: %v", err)
	}
	if len(res.Awarded) != 0 || len(res.Revoked) != 0 {
		t.Errorf("second run changed state: %+v", res)
	}
	if len(audit.entries) != before {
		t.Errorf("second run wrote %d audit entries", len(audit.entries)-before)
	}
}

func TestCompute_RevokesWhenPredicateFlips(t *testing.T) {
	src := &mockSignalSource{sig: Signals{RecentCareEvents: 5}}
	svc, badges, _ := newTestService(src)
	pid := uuid.New()

	if _, err := svc.Compute(context.Background(), pid); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	src.sig.RecentCareEvents = 2

	res, err := svc.Compute(context.Background(), pid)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(res.Revoked) != 1 || res.Revoked[0] != ContinuityOfCare {
		t.Fatalf("revoked = %v, want [continuity_of_care]", res.Revoked)
	}
	b, _ := badges.Get(context.Background(), pid, ContinuityOfCare)
	if b.IsActive || b.RevokedAt == nil {
		t.Errorf("badge still active after predicate flipped false: %+v", b)
	}
}

func TestCompute_ManualRevokeSticks(t *testing.T) {
	src := &mockSignalSource{sig: Signals{VerificationStatus: "verified"}}
	svc, badges, _ := newTestService(src)
	pid := uuid.New()

	if _, err := svc.Compute(context.Background(), pid); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if _, err := svc.ManuallyRevoke(context.Background(), pid, VerifiedIdentity, "admin-1", "identity document dispute"); err != nil {
		t.Fatalf("ManuallyRevoke: %v", err)
	}

	// Predicate is still true, so automation must not undo the revocation.
	res, err := svc.Compute(context.Background(), pid)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(res.Awarded) != 0 {
		t.Fatalf("automation re-awarded manually revoked badge: %v", res.Awarded)
	}
	b, _ := badges.Get(context.Background(), pid, VerifiedIdentity)
	if b.IsActive {
		t.Error("manually revoked badge reactivated while predicate unchanged")
	}
}

func TestCompute_ManualRevokeReleasedByPredicateCycle(t *testing.T) {
	src := &mockSignalSource{sig: Signals{VerificationStatus: "verified"}}
	svc, badges, _ := newTestService(src)
	pid := uuid.New()

	if _, err := svc.Compute(context.Background(), pid); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if _, err := svc.ManuallyRevoke(context.Background(), pid, VerifiedIdentity, "admin-1", "dispute"); err != nil {
		t.Fatalf("ManuallyRevoke: %v", err)
	}

	// Predicate goes false: state already matches, baseline updates quietly.
	src.sig.VerificationStatus = "rejected"
	if _, err := svc.Compute(context.Background(), pid); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	b, _ := badges.Get(context.Background(), pid, VerifiedIdentity)
	if b.IsActive {
		t.Fatal("badge active after predicate false")
	}

	// Predicate returns true: that is a fresh transition, automation re-awards.
	src.sig.VerificationStatus = "verified"
	res, err := svc.Compute(context.Background(), pid)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(res.Awarded) != 1 || res.Awarded[0] != VerifiedIdentity {
		t.Fatalf("awarded = %v, want [verified_identity]", res.Awarded)
	}
}

func TestCompute_ManualAwardBaselineAdopted(t *testing.T) {
	src := &mockSignalSource{sig: Signals{}}
	svc, badges, _ := newTestService(src)
	pid := uuid.New()

	if _, err := svc.ManuallyAward(context.Background(), pid, ContinuityOfCare, "admin-1", "grandfathered account"); err != nil {
		t.Fatalf("ManuallyAward: %v", err)
	}

	// First automated run after a manual award adopts the predicate as the
	// baseline without revoking.
	res, err := svc.Compute(context.Background(), pid)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(res.Revoked) != 0 {
		t.Fatalf("automation revoked manually awarded badge: %v", res.Revoked)
	}
	b, _ := badges.Get(context.Background(), pid, ContinuityOfCare)
	if !b.IsActive {
		t.Error("manually awarded badge deactivated by baseline adoption")
	}
	if b.Metadata.LastPredicate == nil || *b.Metadata.LastPredicate {
		t.Errorf("baseline not recorded: %+v", b.Metadata)
	}
}

func TestManuallyAward_DuplicateRejected(t *testing.T) {
	src := &mockSignalSource{sig: Signals{}}
	svc, _, _ := newTestService(src)
	pid := uuid.New()

	if _, err := svc.ManuallyAward(context.Background(), pid, VerifiedPractice, "admin-1", "site visit"); err != nil {
		t.Fatalf("first award: %v", err)
	}
	_, err := svc.ManuallyAward(context.Background(), pid, VerifiedPractice, "admin-1", "site visit again")
	var ise *apperr.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("duplicate award err = %v, want InvalidStateError", err)
	}
}

func TestManuallyAward_RequiresReason(t *testing.T) {
	src := &mockSignalSource{sig: Signals{}}
	svc, _, _ := newTestService(src)

	_, err := svc.ManuallyAward(context.Background(), uuid.New(), VerifiedIdentity, "admin-1", "   ")
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestManuallyRevoke_InactiveRejected(t *testing.T) {
	src := &mockSignalSource{sig: Signals{}}
	svc, _, _ := newTestService(src)
	pid := uuid.New()

	_, err := svc.ManuallyRevoke(context.Background(), pid, VerifiedIdentity, "admin-1", "no such badge")
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("missing badge err = %v, want NotFoundError", err)
	}

	if _, err := svc.ManuallyAward(context.Background(), pid, VerifiedIdentity, "admin-1", "grant"); err != nil {
		t.Fatalf("award: %v", err)
	}
	if _, err := svc.ManuallyRevoke(context.Background(), pid, VerifiedIdentity, "admin-1", "pull"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	_, err = svc.ManuallyRevoke(context.Background(), pid, VerifiedIdentity, "admin-1", "pull again")
	var ise *apperr.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("double revoke err = %v, want InvalidStateError", err)
	}
}

func TestEstablishedPractitioner_TenureBoundary(t *testing.T) {
	now := time.Now()
	base := Signals{
		VerificationStatus: "verified",
		TotalEvents:        EstablishedMinEvts,
	}

	tooRecent := base
	tooRecent.VerifiedAt = timePtr(now.Add(-179 * 24 * time.Hour))
	if Evaluate(EstablishedPractitioner, tooRecent, now) {
		t.Error("eligible at 179 days tenure")
	}

	exact := base
	exact.VerifiedAt = timePtr(now.Add(-EstablishedTenure))
	if !Evaluate(EstablishedPractitioner, exact, now) {
		t.Error("not eligible at exactly 180 days tenure")
	}

	fewEvents := exact
	fewEvents.TotalEvents = EstablishedMinEvts - 1
	if Evaluate(EstablishedPractitioner, fewEvents, now) {
		t.Error("eligible below event threshold")
	}
}

func TestCompute_SignalSourceError(t *testing.T) {
	src := &mockSignalSource{err: errors.New("db down")}
	svc, _, _ := newTestService(src)

	if _, err := svc.Compute(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error when signal source fails")
	}
}
