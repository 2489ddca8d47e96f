package messaging

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aesthetiq/aesthetiq/internal/platform/apperr"
	"github.com/aesthetiq/aesthetiq/internal/platform/db"
)

type Service struct {
	threads  ThreadRepository
	messages MessageRepository
	consults ConsultRepository
	plans    PlanResolver
	pool     *pgxpool.Pool
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(threads ThreadRepository, messages MessageRepository, consults ConsultRepository, plans PlanResolver, pool *pgxpool.Pool, logger zerolog.Logger) *Service {
	return &Service{
		threads:  threads,
		messages: messages,
		consults: consults,
		plans:    plans,
		pool:     pool,
		logger:   logger.With().Str("component", "messaging").Logger(),
		now:      time.Now,
	}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.InTx(ctx, s.pool, fn)
}

func decisionFor(plan string, count int) Decision {
	switch plan {
	case PlanFree:
		return Decision{Allowed: false, Reason: ReasonPlanForbidsMessaging, CurrentCount: count, Limit: 0, Plan: plan}
	case PlanProfessional:
		d := Decision{CurrentCount: count, Limit: ProfessionalMessageCap, Plan: plan}
		if count >= ProfessionalMessageCap {
			d.Reason = ReasonMessageLimitReached
		} else {
			d.Allowed = true
		}
		return d
	default:
		return Decision{Allowed: true, CurrentCount: count, Limit: UnlimitedLimit, Plan: plan}
	}
}

// CheckRateLimit is the advisory read used by clients before composing. It
// counts only persisted patient messages; the binding enforcement happens
// again under the thread row lock in SendMessage.
func (s *Service) CheckRateLimit(ctx context.Context, threadID uuid.UUID) (*Decision, error) {
	th, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.ActivePlan(ctx, th.PractitionerID)
	if err != nil {
		return nil, err
	}
	count, err := s.messages.CountBySender(ctx, threadID, SenderPatient)
	if err != nil {
		return nil, err
	}
	d := decisionFor(plan, count)
	return &d, nil
}

// SendMessage persists one message. Practitioner sends never count against
// the cap. Patient sends run inside a transaction that locks the thread
// row, recounts persisted patient messages and enforces the plan limit
// before inserting, so concurrent sends from multiple devices cannot slip
// past the cap.
func (s *Service) SendMessage(ctx context.Context, threadID, senderID uuid.UUID, senderType, content string) (*Message, error) {
	if senderType != SenderPatient && senderType != SenderPractitioner {
		return nil, apperr.Validation("unknown sender type", "sender_type")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("message content must not be empty", "content")
	}

	th, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if th.Status != ThreadActive {
		return nil, apperr.InvalidState("thread", th.Status, "send_message")
	}

	msg := &Message{
		ID:         uuid.New(),
		ThreadID:   threadID,
		SenderID:   senderID,
		SenderType: senderType,
		Content:    content,
		CreatedAt:  s.now(),
	}

	if senderType == SenderPractitioner {
		if err := s.messages.Insert(ctx, msg); err != nil {
			return nil, err
		}
		return msg, nil
	}

	plan, err := s.plans.ActivePlan(ctx, th.PractitionerID)
	if err != nil {
		return nil, err
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		locked, err := s.threads.GetForUpdate(ctx, threadID)
		if err != nil {
			return err
		}
		if locked.Status != ThreadActive {
			return apperr.InvalidState("thread", locked.Status, "send_message")
		}
		count, err := s.messages.CountBySender(ctx, threadID, SenderPatient)
		if err != nil {
			return err
		}
		if d := decisionFor(plan, count); !d.Allowed {
			return &apperr.RateLimitError{
				Reason:       d.Reason,
				CurrentCount: d.CurrentCount,
				Limit:        d.Limit,
				Plan:         d.Plan,
			}
		}
		if err := s.messages.Insert(ctx, msg); err != nil {
			return err
		}
		return s.threads.IncrementPatientCount(ctx, threadID)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// RequestConsult opens a pending consult request. This channel stays open
// regardless of the practitioner's plan.
func (s *Service) RequestConsult(ctx context.Context, patientID, practitionerID uuid.UUID, message string) (*ConsultRequest, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation("consult message must not be empty", "message")
	}
	now := s.now()
	cr := &ConsultRequest{
		ID:             uuid.New(),
		PatientID:      patientID,
		PractitionerID: practitionerID,
		Status:         ConsultPending,
		Message:        message,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.consults.Create(ctx, cr); err != nil {
		return nil, err
	}
	return cr, nil
}

// AcceptConsultRequest transitions a pending request to accepted, creates
// the consult thread and, when a response message is supplied, persists it
// as the thread's first message from the practitioner. All three writes
// share one transaction: a failure anywhere leaves the request pending and
// no thread behind.
func (s *Service) AcceptConsultRequest(ctx context.Context, requestID uuid.UUID, responseMessage string) (*ConsultRequest, *Thread, error) {
	cr, err := s.consults.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if cr.Status != ConsultPending {
		return nil, nil, apperr.InvalidState("consult_request", cr.Status, "accept")
	}

	now := s.now()
	th := &Thread{
		ID:             uuid.New(),
		ThreadType:     ThreadConsult,
		PatientID:      cr.PatientID,
		PractitionerID: cr.PractitionerID,
		Status:         ThreadActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	cr.Status = ConsultAccepted
	cr.ThreadID = &th.ID
	cr.UpdatedAt = now
	if strings.TrimSpace(responseMessage) != "" {
		cr.ResponseMessage = &responseMessage
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.consults.Update(ctx, cr); err != nil {
			return err
		}
		if err := s.threads.Create(ctx, th); err != nil {
			return err
		}
		if cr.ResponseMessage != nil {
			return s.messages.Insert(ctx, &Message{
				ID:         uuid.New(),
				ThreadID:   th.ID,
				SenderID:   cr.PractitionerID,
				SenderType: SenderPractitioner,
				Content:    *cr.ResponseMessage,
				CreatedAt:  now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info().
		Str("request_id", requestID.String()).
		Str("thread_id", th.ID.String()).
		Msg("consult request accepted")
	return cr, th, nil
}

// DeclineConsultRequest moves a pending request to declined.
func (s *Service) DeclineConsultRequest(ctx context.Context, requestID uuid.UUID, responseMessage string) (*ConsultRequest, error) {
	return s.transitionConsult(ctx, requestID, ConsultPending, ConsultDeclined, responseMessage)
}

// CancelConsultRequest lets the patient withdraw a pending request.
func (s *Service) CancelConsultRequest(ctx context.Context, requestID uuid.UUID) (*ConsultRequest, error) {
	return s.transitionConsult(ctx, requestID, ConsultPending, ConsultCancelled, "")
}

// CompleteConsultRequest closes out an accepted consult.
func (s *Service) CompleteConsultRequest(ctx context.Context, requestID uuid.UUID) (*ConsultRequest, error) {
	return s.transitionConsult(ctx, requestID, ConsultAccepted, ConsultCompleted, "")
}

func (s *Service) transitionConsult(ctx context.Context, requestID uuid.UUID, from, to, responseMessage string) (*ConsultRequest, error) {
	cr, err := s.consults.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cr.Status != from {
		return nil, apperr.InvalidState("consult_request", cr.Status, to)
	}
	cr.Status = to
	cr.UpdatedAt = s.now()
	if strings.TrimSpace(responseMessage) != "" {
		cr.ResponseMessage = &responseMessage
	}
	if err := s.consults.Update(ctx, cr); err != nil {
		return nil, err
	}
	return cr, nil
}

// CreateDirectThread is idempotent: an existing active direct thread for
// the pair is returned as-is. Free-plan practitioners cannot be contacted
// directly at all, so creation is refused up front rather than at the
// first send.
func (s *Service) CreateDirectThread(ctx context.Context, patientID, practitionerID uuid.UUID) (*Thread, error) {
	plan, err := s.plans.ActivePlan(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	if plan == PlanFree {
		return nil, &apperr.RateLimitError{Reason: ReasonPlanForbidsMessaging, Plan: plan}
	}

	existing, err := s.threads.GetActiveDirect(ctx, patientID, practitionerID)
	if err == nil {
		return existing, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	now := s.now()
	th := &Thread{
		ID:             uuid.New(),
		ThreadType:     ThreadDirect,
		PatientID:      patientID,
		PractitionerID: practitionerID,
		Status:         ThreadActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.threads.Create(ctx, th); err != nil {
		return nil, err
	}
	return th, nil
}

// ArchiveThread is a one-way exit from active.
func (s *Service) ArchiveThread(ctx context.Context, threadID uuid.UUID) error {
	return s.transitionThread(ctx, threadID, ThreadArchived)
}

// BlockThread is a one-way exit from active.
func (s *Service) BlockThread(ctx context.Context, threadID uuid.UUID) error {
	return s.transitionThread(ctx, threadID, ThreadBlocked)
}

func (s *Service) transitionThread(ctx context.Context, threadID uuid.UUID, to string) error {
	th, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return err
	}
	if th.Status != ThreadActive {
		return apperr.InvalidState("thread", th.Status, to)
	}
	return s.threads.SetStatus(ctx, threadID, to)
}

// ThreadsForUser lists threads where the user participates in the given role.
func (s *Service) ThreadsForUser(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]*Thread, int, error) {
	if role != SenderPatient && role != SenderPractitioner {
		return nil, 0, apperr.Validation("role must be patient or practitioner", "role")
	}
	return s.threads.ListForUser(ctx, userID, role, limit, offset)
}

// MessagesForThread pages messages oldest first.
func (s *Service) MessagesForThread(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	if _, err := s.threads.GetByID(ctx, threadID); err != nil {
		return nil, 0, err
	}
	return s.messages.ListByThread(ctx, threadID, limit, offset)
}

// MarkRead flags the counterparty's messages in a thread as read and
// returns how many flipped.
func (s *Service) MarkRead(ctx context.Context, threadID uuid.UUID, readerType string) (int, error) {
	if readerType != SenderPatient && readerType != SenderPractitioner {
		return 0, apperr.Validation("role must be patient or practitioner", "role")
	}
	if _, err := s.threads.GetByID(ctx, threadID); err != nil {
		return 0, err
	}
	return s.messages.MarkRead(ctx, threadID, readerType)
}

// ConsultsForUser lists consult requests for either side of the marketplace.
func (s *Service) ConsultsForUser(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]*ConsultRequest, int, error) {
	if role != SenderPatient && role != SenderPractitioner {
		return nil, 0, apperr.Validation("role must be patient or practitioner", "role")
	}
	return s.consults.ListForUser(ctx, userID, role, limit, offset)
}
