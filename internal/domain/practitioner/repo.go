package practitioner

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Practitioner) error
	GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	UpdateProfile(ctx context.Context, p *Practitioner) error
	SetVerificationStatus(ctx context.Context, id uuid.UUID, status string, verifiedAt *time.Time) error
	SetTrustScore(ctx context.Context, id uuid.UUID, score int) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Practitioner, int, error)
}

type LicenseRepository interface {
	Create(ctx context.Context, l *License) error
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*License, error)
}

type SubscriptionRepository interface {
	GetActive(ctx context.Context, practitionerID uuid.UUID) (*Subscription, error)
	Upsert(ctx context.Context, s *Subscription) error
}
