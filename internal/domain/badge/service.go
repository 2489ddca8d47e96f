package badge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aesthetiq/aesthetiq/internal/platform/apperr"
)

// ComputeResult summarizes one recomputation run.
type ComputeResult struct {
	Awarded   []BadgeType `json:"awarded"`
	Revoked   []BadgeType `json:"revoked"`
	Unchanged int         `json:"unchanged"`
}

type Service struct {
	badges  Repository
	audit   AuditRepository
	signals SignalSource
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(badges Repository, audit AuditRepository, signals SignalSource, logger zerolog.Logger) *Service {
	return &Service{
		badges:  badges,
		audit:   audit,
		signals: signals,
		logger:  logger.With().Str("component", "badge").Logger(),
		now:     time.Now,
	}
}

// Compute re-evaluates every badge predicate against a fresh signal snapshot.
// Automation acts only on predicate transitions it has not yet reflected:
// the fresh value is compared to metadata.last_predicate, not to is_active,
// so a manual award or revocation holds until the predicate itself flips.
// Running twice on unchanged signals changes nothing and writes no audit
// entries.
func (s *Service) Compute(ctx context.Context, practitionerID uuid.UUID) (*ComputeResult, error) {
	sig, err := s.signals.Signals(ctx, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("load badge signals: %w", err)
	}
	now := s.now()
	res := &ComputeResult{}

	for _, t := range AllBadgeTypes {
		pred := Evaluate(t, *sig, now)

		b, err := s.badges.Get(ctx, practitionerID, t)
		var nf *apperr.NotFoundError
		switch {
		case err == nil:
		case errors.As(err, &nf):
			b = nil
		default:
			return nil, err
		}

		if b == nil {
			if !pred {
				continue
			}
			nb := &Badge{
				ID:             uuid.New(),
				PractitionerID: practitionerID,
				BadgeType:      t,
				IsActive:       true,
				EarnedAt:       now,
				LastComputedAt: &now,
				Metadata:       Metadata{LastPredicate: &pred},
			}
			if err := s.badges.Upsert(ctx, nb); err != nil {
				return nil, err
			}
			if err := s.appendAudit(ctx, practitionerID, t, ActionAwarded, true, nil, nil, false, true, now); err != nil {
				return nil, err
			}
			res.Awarded = append(res.Awarded, t)
			continue
		}

		last := b.Metadata.LastPredicate
		b.LastComputedAt = &now

		// A row automation has never touched (manual award without prior
		// computation) adopts the current predicate as its baseline without
		// changing state.
		if last == nil || *last == pred {
			b.Metadata.LastPredicate = &pred
			if err := s.badges.Upsert(ctx, b); err != nil {
				return nil, err
			}
			res.Unchanged++
			continue
		}

		b.Metadata.LastPredicate = &pred
		prev := b.IsActive
		switch {
		case pred && !b.IsActive:
			b.IsActive = true
			b.EarnedAt = now
			b.RevokedAt = nil
			if err := s.badges.Upsert(ctx, b); err != nil {
				return nil, err
			}
			if err := s.appendAudit(ctx, practitionerID, t, ActionAwarded, true, nil, nil, prev, true, now); err != nil {
				return nil, err
			}
			res.Awarded = append(res.Awarded, t)
		case !pred && b.IsActive:
			b.IsActive = false
			b.RevokedAt = &now
			if err := s.badges.Upsert(ctx, b); err != nil {
				return nil, err
			}
			if err := s.appendAudit(ctx, practitionerID, t, ActionRevoked, true, nil, nil, prev, false, now); err != nil {
				return nil, err
			}
			res.Revoked = append(res.Revoked, t)
		default:
			// Predicate flipped but the state already matches (a manual
			// action got there first). Record the new baseline only.
			if err := s.badges.Upsert(ctx, b); err != nil {
				return nil, err
			}
			res.Unchanged++
		}
	}

	s.logger.Info().
		Str("practitioner_id", practitionerID.String()).
		Int("awarded", len(res.Awarded)).
		Int("revoked", len(res.Revoked)).
		Msg("badge computation complete")
	return res, nil
}

// ManuallyAward grants a badge by admin action. Re-awarding an already
// active badge is rejected; an inactive row is reactivated in place. The
// last_predicate baseline is left untouched so a later automated run does
// not immediately undo the override.
func (s *Service) ManuallyAward(ctx context.Context, practitionerID uuid.UUID, t BadgeType, adminUserID, reason string) (*Badge, error) {
	if !ValidBadgeType(t) {
		return nil, apperr.Validation("unknown badge type", "badge_type")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Validation("reason is required for manual badge actions", "reason")
	}
	now := s.now()

	b, err := s.badges.Get(ctx, practitionerID, t)
	var nf *apperr.NotFoundError
	switch {
	case err == nil:
		if b.IsActive {
			return nil, apperr.InvalidState("badge", "active", "award")
		}
		prev := b.IsActive
		b.IsActive = true
		b.EarnedAt = now
		b.RevokedAt = nil
		if err := s.badges.Upsert(ctx, b); err != nil {
			return nil, err
		}
		if err := s.appendAudit(ctx, practitionerID, t, ActionAwarded, false, &adminUserID, &reason, prev, true, now); err != nil {
			return nil, err
		}
		return b, nil
	case errors.As(err, &nf):
		b = &Badge{
			ID:             uuid.New(),
			PractitionerID: practitionerID,
			BadgeType:      t,
			IsActive:       true,
			EarnedAt:       now,
		}
		if err := s.badges.Upsert(ctx, b); err != nil {
			return nil, err
		}
		if err := s.appendAudit(ctx, practitionerID, t, ActionAwarded, false, &adminUserID, &reason, false, true, now); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, err
	}
}

// ManuallyRevoke deactivates an active badge by admin action.
func (s *Service) ManuallyRevoke(ctx context.Context, practitionerID uuid.UUID, t BadgeType, adminUserID, reason string) (*Badge, error) {
	if !ValidBadgeType(t) {
		return nil, apperr.Validation("unknown badge type", "badge_type")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Validation("reason is required for manual badge actions", "reason")
	}
	b, err := s.badges.Get(ctx, practitionerID, t)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, apperr.InvalidState("badge", "inactive", "revoke")
	}
	now := s.now()
	b.IsActive = false
	b.RevokedAt = &now
	if err := s.badges.Upsert(ctx, b); err != nil {
		return nil, err
	}
	if err := s.appendAudit(ctx, practitionerID, t, ActionRevoked, false, &adminUserID, &reason, true, false, now); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns a practitioner's badges, optionally active only.
func (s *Service) List(ctx context.Context, practitionerID uuid.UUID, activeOnly bool) ([]*Badge, error) {
	return s.badges.ListByPractitioner(ctx, practitionerID, activeOnly)
}

// AuditLog pages through a practitioner's badge audit trail.
func (s *Service) AuditLog(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error) {
	return s.audit.ListByPractitioner(ctx, practitionerID, limit, offset)
}

func (s *Service) appendAudit(ctx context.Context, practitionerID uuid.UUID, t BadgeType, action string, automated bool, adminUserID, reason *string, prev, next bool, now time.Time) error {
	return s.audit.Append(ctx, &AuditEntry{
		ID:             uuid.New(),
		PractitionerID: practitionerID,
		BadgeType:      t,
		Action:         action,
		Automated:      automated,
		AdminUserID:    adminUserID,
		Reason:         reason,
		PreviousActive: prev,
		NewActive:      next,
		CreatedAt:      now,
	})
}
