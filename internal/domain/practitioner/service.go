package practitioner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aesthetiq/aesthetiq/internal/platform/apperr"
)

type Service struct {
	practitioners Repository
	licenses      LicenseRepository
	subscriptions SubscriptionRepository
}

func NewService(practitioners Repository, licenses LicenseRepository, subscriptions SubscriptionRepository) *Service {
	return &Service{
		practitioners: practitioners,
		licenses:      licenses,
		subscriptions: subscriptions,
	}
}

// Register creates a new practitioner profile. Every practitioner starts
// unverified with a zero trust score.
func (s *Service) Register(ctx context.Context, p *Practitioner) error {
	if p.DisplayName == "" {
		return apperr.Validation("missing required fields", "display_name")
	}
	p.VerificationStatus = StatusUnverified
	p.TrustScore = 0
	p.IsActive = true
	return s.practitioners.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	return s.practitioners.GetByID(ctx, id)
}

// UpdateProfile updates editable profile attributes. Verification status,
// verified_at and trust_score are owned by the verification state machine
// and the trust scorer; the repository update deliberately skips them.
func (s *Service) UpdateProfile(ctx context.Context, p *Practitioner) error {
	if p.DisplayName == "" {
		return apperr.Validation("missing required fields", "display_name")
	}
	current, err := s.practitioners.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if !current.IsActive {
		return apperr.InvalidState("practitioner", "deactivated", "update profile")
	}
	return s.practitioners.UpdateProfile(ctx, p)
}

// Deactivate soft-deletes a practitioner. Profiles are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.practitioners.GetByID(ctx, id); err != nil {
		return err
	}
	return s.practitioners.Deactivate(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Practitioner, int, error) {
	return s.practitioners.List(ctx, limit, offset)
}

func (s *Service) AddLicense(ctx context.Context, l *License) error {
	var missing []string
	if l.LicenseNumber == "" {
		missing = append(missing, "license_number")
	}
	if l.IssuingAuthority == "" {
		missing = append(missing, "issuing_authority")
	}
	if len(missing) > 0 {
		return apperr.Validation("missing required fields", missing...)
	}
	if _, err := s.practitioners.GetByID(ctx, l.PractitionerID); err != nil {
		return err
	}
	l.IsActive = true
	return s.licenses.Create(ctx, l)
}

// ValidLicenses returns the practitioner's licenses that are active and not
// expired.
func (s *Service) ValidLicenses(ctx context.Context, practitionerID uuid.UUID) ([]*License, error) {
	all, err := s.licenses.ListByPractitioner(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var valid []*License
	for _, l := range all {
		if l.Valid(now) {
			valid = append(valid, l)
		}
	}
	return valid, nil
}

// ActivePlan resolves the practitioner's plan. A missing or inactive
// subscription means free.
func (s *Service) ActivePlan(ctx context.Context, practitionerID uuid.UUID) (string, error) {
	sub, err := s.subscriptions.GetActive(ctx, practitionerID)
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			return PlanFree, nil
		}
		return "", err
	}
	if sub == nil || !sub.IsActive {
		return PlanFree, nil
	}
	return sub.Plan, nil
}

// SetPlan upserts the practitioner's subscription. Billing is handled by an
// external system; this records the resulting plan only.
func (s *Service) SetPlan(ctx context.Context, practitionerID uuid.UUID, plan string) error {
	if !ValidPlans[plan] {
		return apperr.Validation("invalid plan", "plan")
	}
	if _, err := s.practitioners.GetByID(ctx, practitionerID); err != nil {
		return err
	}
	return s.subscriptions.Upsert(ctx, &Subscription{
		PractitionerID: practitionerID,
		Plan:           plan,
		IsActive:       true,
	})
}
