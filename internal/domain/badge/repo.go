package badge

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists badge rows, unique per (practitioner_id, badge_type).
type Repository interface {
	Get(ctx context.Context, practitionerID uuid.UUID, t BadgeType) (*Badge, error)
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, activeOnly bool) ([]*Badge, error)
	Upsert(ctx context.Context, b *Badge) error
}

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, e *AuditEntry) error
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error)
}

// SignalSource assembles the eligibility snapshot for a practitioner. The
// concrete adapter lives in main and reads from the practitioner and trust
// packages.
type SignalSource interface {
	Signals(ctx context.Context, practitionerID uuid.UUID) (*Signals, error)
}
