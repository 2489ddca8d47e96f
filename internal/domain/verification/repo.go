package verification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists queue items. Update enforces optimistic concurrency:
// the row is written only if its stored version equals expectedVersion, and
// the write bumps the version.
type Repository interface {
	Create(ctx context.Context, item *QueueItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*QueueItem, error)
	GetOpenByPractitioner(ctx context.Context, practitionerID uuid.UUID) (*QueueItem, error)
	Update(ctx context.Context, item *QueueItem, expectedVersion int) error
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*QueueItem, int, error)
}

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, e *AuditEntry) error
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error)
}

// Profile is the slice of a practitioner record the state machine needs.
type Profile struct {
	ID                 uuid.UUID
	VerificationStatus string
	ProfessionalTitle  *string
	ProfessionalType   *string
	YearsExperience    *int
	Bio                *string
}

// PractitionerDirectory decouples this package from the practitioner
// package; the concrete adapter lives in main.
type PractitionerDirectory interface {
	Profile(ctx context.Context, id uuid.UUID) (*Profile, error)
	ValidLicenseCount(ctx context.Context, id uuid.UUID) (int, error)
	SetVerificationStatus(ctx context.Context, id uuid.UUID, status string, verifiedAt *time.Time) error
}
