package messaging

import (
	"context"

	"github.com/google/uuid"
)

// ThreadRepository persists threads. GetForUpdate must be called inside a
// transaction; it locks the thread row so the patient-message count cannot
// move between the recount and the insert.
type ThreadRepository interface {
	Create(ctx context.Context, t *Thread) error
	GetByID(ctx context.Context, id uuid.UUID) (*Thread, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Thread, error)
	GetActiveDirect(ctx context.Context, patientID, practitionerID uuid.UUID) (*Thread, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	IncrementPatientCount(ctx context.Context, id uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]*Thread, int, error)
}

type MessageRepository interface {
	Insert(ctx context.Context, m *Message) error
	ListByThread(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]*Message, int, error)
	CountBySender(ctx context.Context, threadID uuid.UUID, senderType string) (int, error)
	MarkRead(ctx context.Context, threadID uuid.UUID, readerType string) (int, error)
}

type ConsultRepository interface {
	Create(ctx context.Context, cr *ConsultRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*ConsultRequest, error)
	Update(ctx context.Context, cr *ConsultRequest) error
	ListForUser(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]*ConsultRequest, int, error)
}

// PlanResolver reports a practitioner's active subscription plan. The
// concrete adapter over the practitioner package lives in main.
type PlanResolver interface {
	ActivePlan(ctx context.Context, practitionerID uuid.UUID) (string, error)
}
