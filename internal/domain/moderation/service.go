package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aesthetiq/aesthetiq/internal/platform/apperr"
)

type Service struct {
	reports Repository
	events  EventRecorder
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService wires the moderation queue. events may be nil when trust
// ingestion is disabled.
func NewService(reports Repository, events EventRecorder, logger zerolog.Logger) *Service {
	return &Service{
		reports: reports,
		events:  events,
		logger:  logger.With().Str("component", "moderation").Logger(),
		now:     time.Now,
	}
}

// SubmitReport files a new report and feeds the trust ledger. A ledger
// failure is logged, not returned: the report must land regardless.
func (s *Service) SubmitReport(ctx context.Context, reporterID, reportedUserID uuid.UUID, reportType, description string) (*ContentReport, error) {
	if !ValidReportTypes[reportType] {
		return nil, apperr.Validation("unknown report type", "report_type")
	}
	if reporterID == reportedUserID {
		return nil, apperr.Validation("cannot report yourself", "reported_user_id")
	}
	now := s.now()
	r := &ContentReport{
		ID:             uuid.New(),
		ReporterID:     reporterID,
		ReportedUserID: reportedUserID,
		ReportType:     reportType,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if strings.TrimSpace(description) != "" {
		r.Description = &description
	}
	if err := s.reports.Create(ctx, r); err != nil {
		return nil, err
	}
	if s.events != nil {
		if err := s.events.ReportSubmitted(ctx, reportedUserID, reporterID); err != nil {
			s.logger.Warn().Err(err).
				Str("report_id", r.ID.String()).
				Msg("trust event for report not recorded")
		}
	}
	return r, nil
}

// StartReview moves a pending report into the reviewing hold. Optional:
// admins may also resolve or dismiss straight from pending.
func (s *Service) StartReview(ctx context.Context, reportID uuid.UUID, adminID string) (*ContentReport, error) {
	r, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusPending {
		return nil, apperr.InvalidState("content_report", r.Status, "start_review")
	}
	r.Status = StatusReviewing
	r.ReviewedBy = &adminID
	r.UpdatedAt = s.now()
	if err := s.reports.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Resolve closes a report with an action taken. Valid from pending or
// reviewing; notes are mandatory.
func (s *Service) Resolve(ctx context.Context, reportID uuid.UUID, adminID, notes, actionTaken string) (*ContentReport, error) {
	return s.close(ctx, reportID, StatusResolved, adminID, notes, actionTaken)
}

// Dismiss closes a report without action. Notes are mandatory here too so
// the dismissal is explainable later.
func (s *Service) Dismiss(ctx context.Context, reportID uuid.UUID, adminID, notes string) (*ContentReport, error) {
	return s.close(ctx, reportID, StatusDismissed, adminID, notes, "")
}

func (s *Service) close(ctx context.Context, reportID uuid.UUID, to, adminID, notes, actionTaken string) (*ContentReport, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, apperr.Validation("admin notes are required to close a report", "admin_notes")
	}
	r, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if Terminal(r.Status) {
		return nil, apperr.InvalidState("content_report", r.Status, to)
	}
	now := s.now()
	r.Status = to
	r.AdminNotes = &notes
	r.ReviewedBy = &adminID
	r.ResolvedAt = &now
	r.UpdatedAt = now
	if strings.TrimSpace(actionTaken) != "" {
		r.ActionTaken = &actionTaken
	}
	if err := s.reports.Update(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("report_id", reportID.String()).
		Str("status", to).
		Str("admin_id", adminID).
		Msg("report closed")
	return r, nil
}

// Get returns one report.
func (s *Service) Get(ctx context.Context, reportID uuid.UUID) (*ContentReport, error) {
	return s.reports.GetByID(ctx, reportID)
}

// Queue lists reports by status for the admin back office.
func (s *Service) Queue(ctx context.Context, status string, limit, offset int) ([]*ContentReport, int, error) {
	if status == "" {
		status = StatusPending
	}
	switch status {
	case StatusPending, StatusReviewing, StatusResolved, StatusDismissed:
	default:
		return nil, 0, apperr.Validation("unknown report status", "status")
	}
	return s.reports.ListByStatus(ctx, status, limit, offset)
}
