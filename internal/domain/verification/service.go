package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aesthetiq/aesthetiq/internal/platform/apperr"
	"github.com/aesthetiq/aesthetiq/internal/platform/db"
)

const (
	practitionerUnverified = "unverified"
	practitionerPending    = "pending"
)

type Service struct {
	items  Repository
	audit  AuditRepository
	dir    PractitionerDirectory
	pool   *pgxpool.Pool
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(items Repository, audit AuditRepository, dir PractitionerDirectory, pool *pgxpool.Pool, logger zerolog.Logger) *Service {
	return &Service{
		items:  items,
		audit:  audit,
		dir:    dir,
		pool:   pool,
		logger: logger.With().Str("component", "verification").Logger(),
		now:    time.Now,
	}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.InTx(ctx, s.pool, fn)
}

// Submit opens a verification request. Only practitioners in unverified
// status may submit, and only with a complete profile; the validation error
// names every missing field at once so the practitioner can fix them in one
// pass.
func (s *Service) Submit(ctx context.Context, practitionerID uuid.UUID) (*QueueItem, error) {
	prof, err := s.dir.Profile(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	if prof.VerificationStatus != practitionerUnverified {
		return nil, apperr.InvalidState("practitioner", prof.VerificationStatus, "submit_verification")
	}

	licenses, err := s.dir.ValidLicenseCount(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	var missing []string
	if prof.ProfessionalTitle == nil || strings.TrimSpace(*prof.ProfessionalTitle) == "" {
		missing = append(missing, "professional_title")
	}
	if prof.ProfessionalType == nil || strings.TrimSpace(*prof.ProfessionalType) == "" {
		missing = append(missing, "professional_type")
	}
	if prof.YearsExperience == nil || *prof.YearsExperience <= 0 {
		missing = append(missing, "years_experience")
	}
	if licenses == 0 {
		missing = append(missing, "license")
	}
	if prof.Bio == nil || len(strings.TrimSpace(*prof.Bio)) < MinBioLength {
		missing = append(missing, "bio")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("profile incomplete for verification", missing...)
	}

	// Status unverified should already imply no open item; the check guards
	// against drift between the cached status and the queue.
	if open, err := s.items.GetOpenByPractitioner(ctx, practitionerID); err == nil && open != nil {
		return nil, apperr.InvalidState("verification_item", open.Status, "submit_verification")
	} else if err != nil {
		var nf *apperr.NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	item := &QueueItem{
		ID:             uuid.New(),
		PractitionerID: practitionerID,
		Status:         StatusPending,
		SubmittedAt:    s.now(),
		Version:        1,
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.items.Create(ctx, item); err != nil {
			return err
		}
		if err := s.dir.SetVerificationStatus(ctx, practitionerID, practitionerPending, nil); err != nil {
			return err
		}
		return s.audit.Append(ctx, &AuditEntry{
			ID:             uuid.New(),
			QueueItemID:    item.ID,
			PractitionerID: practitionerID,
			PreviousStatus: practitionerUnverified,
			NewStatus:      practitionerPending,
			Actor:          practitionerID.String(),
			CreatedAt:      s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("practitioner_id", practitionerID.String()).Msg("verification submitted")
	return item, nil
}

// Decide applies an admin decision to an open item. The caller supplies the
// version it last read; a stale version means another admin decided first
// and the request is rejected rather than silently overwritten. Rejections
// and needs_review demand notes so the practitioner learns what to fix.
func (s *Service) Decide(ctx context.Context, itemID uuid.UUID, decision, adminID, notes string, version int) (*QueueItem, error) {
	if !validDecisions[decision] {
		return nil, apperr.Validation("unknown decision", "decision")
	}
	if (decision == DecisionRejected || decision == DecisionNeedsReview) && strings.TrimSpace(notes) == "" {
		return nil, apperr.Validation("notes are required for this decision", "notes")
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !IsOpen(item.Status) {
		return nil, apperr.InvalidState("verification_item", item.Status, decision)
	}
	if item.Version != version {
		return nil, apperr.InvalidState("verification_item",
			fmt.Sprintf("version %d", item.Version), "decide with stale version")
	}

	prev := item.Status
	now := s.now()
	item.Status = decision
	item.ReviewedAt = &now
	item.ReviewedBy = &adminID
	if strings.TrimSpace(notes) != "" {
		item.AdminNotes = &notes
	}

	var verifiedAt *time.Time
	if decision == DecisionVerified {
		verifiedAt = &now
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.items.Update(ctx, item, version); err != nil {
			return err
		}
		if err := s.dir.SetVerificationStatus(ctx, item.PractitionerID, decision, verifiedAt); err != nil {
			return err
		}
		entry := &AuditEntry{
			ID:             uuid.New(),
			QueueItemID:    item.ID,
			PractitionerID: item.PractitionerID,
			PreviousStatus: prev,
			NewStatus:      decision,
			Actor:          adminID,
			CreatedAt:      now,
		}
		if item.AdminNotes != nil {
			entry.Notes = item.AdminNotes
		}
		return s.audit.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("item_id", itemID.String()).
		Str("decision", decision).
		Str("admin_id", adminID).
		Msg("verification decided")
	return item, nil
}

// PendingQueue lists open items for admin review, oldest first.
func (s *Service) PendingQueue(ctx context.Context, status string, limit, offset int) ([]*QueueItem, int, error) {
	if status == "" {
		status = StatusPending
	}
	if status != StatusPending && status != StatusNeedsReview {
		return nil, 0, apperr.Validation("queue status must be pending or needs_review", "status")
	}
	return s.items.ListByStatus(ctx, status, limit, offset)
}

// Get returns one queue item.
func (s *Service) Get(ctx context.Context, itemID uuid.UUID) (*QueueItem, error) {
	return s.items.GetByID(ctx, itemID)
}

// AuditTrail pages through a practitioner's verification history.
func (s *Service) AuditTrail(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error) {
	return s.audit.ListByPractitioner(ctx, practitionerID, limit, offset)
}
