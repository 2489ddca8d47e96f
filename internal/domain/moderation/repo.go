package moderation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *ContentReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*ContentReport, error)
	Update(ctx context.Context, r *ContentReport) error
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*ContentReport, int, error)
}

// EventRecorder feeds report submissions into the trust ledger. The
// adapter over the trust service lives in main; recording is best effort
// and never blocks the report itself.
type EventRecorder interface {
	ReportSubmitted(ctx context.Context, reportedUserID, reporterID uuid.UUID) error
}
