package trust

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventRepository is append-only: events are never updated or deleted, so
// every aggregate below is naturally idempotent.
type EventRepository interface {
	Append(ctx context.Context, e *TrustEvent) error
	SumWeights(ctx context.Context, practitionerID uuid.UUID) (int, error)
	CountByTypes(ctx context.Context, practitionerID uuid.UUID, types []string, since time.Time) (int, error)
	CountAll(ctx context.Context, practitionerID uuid.UUID) (int, error)
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*TrustEvent, int, error)
}

// ScoreStore persists the materialized trust score. Implemented by the
// practitioner repository via an adapter in cmd.
type ScoreStore interface {
	SetTrustScore(ctx context.Context, practitionerID uuid.UUID, score int) error
}
