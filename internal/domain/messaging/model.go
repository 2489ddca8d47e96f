package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Thread types.
const (
	ThreadConsult = "consult"
	ThreadDirect  = "direct"
)

// Thread statuses. active is the only state that accepts messages;
// archived and blocked are one-way exits.
const (
	ThreadActive   = "active"
	ThreadArchived = "archived"
	ThreadBlocked  = "blocked"
)

// Sender types.
const (
	SenderPatient      = "patient"
	SenderPractitioner = "practitioner"
)

// Subscription plans as resolved by the practitioner side.
const (
	PlanFree         = "free"
	PlanProfessional = "professional"
	PlanPremium      = "premium"
)

// ProfessionalMessageCap is the per-thread limit on patient-authored
// messages for practitioners on the professional plan.
const ProfessionalMessageCap = 3

// UnlimitedLimit marks a plan with no per-thread cap.
const UnlimitedLimit = -1

// Denial reasons carried on rate-limit decisions and errors.
const (
	ReasonPlanForbidsMessaging = "plan_forbids_messaging"
	ReasonMessageLimitReached  = "message_limit_reached"
)

// Thread is a conversation between one patient and one practitioner. At
// most one active direct thread exists per pair. MessageCountByPatient is
// a denormalized counter maintained transactionally with each patient
// insert; the authoritative count is always the messages table.
type Thread struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	ThreadType            string    `db:"thread_type" json:"thread_type"`
	PatientID             uuid.UUID `db:"patient_id" json:"patient_id"`
	PractitionerID        uuid.UUID `db:"practitioner_id" json:"practitioner_id"`
	Status                string    `db:"status" json:"status"`
	MessageCountByPatient int       `db:"message_count_by_patient" json:"message_count_by_patient"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// Message rows are immutable after insert except for the read flag.
type Message struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ThreadID   uuid.UUID `db:"thread_id" json:"thread_id"`
	SenderID   uuid.UUID `db:"sender_id" json:"sender_id"`
	SenderType string    `db:"sender_type" json:"sender_type"`
	Content    string    `db:"content" json:"content"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Consult request statuses. declined, cancelled and completed are terminal.
const (
	ConsultPending   = "pending"
	ConsultAccepted  = "accepted"
	ConsultDeclined  = "declined"
	ConsultCancelled = "cancelled"
	ConsultCompleted = "completed"
)

func ConsultTerminal(status string) bool {
	return status == ConsultDeclined || status == ConsultCancelled || status == ConsultCompleted
}

// ConsultRequest is the contact channel open to patients regardless of the
// practitioner's plan. Acceptance is the only transition that spawns a
// thread.
type ConsultRequest struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	PractitionerID  uuid.UUID  `db:"practitioner_id" json:"practitioner_id"`
	Status          string     `db:"status" json:"status"`
	Message         string     `db:"message" json:"message"`
	ResponseMessage *string    `db:"response_message" json:"response_message,omitempty"`
	ThreadID        *uuid.UUID `db:"thread_id" json:"thread_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Decision is the advisory rate-limit answer. Limit is UnlimitedLimit for
// premium plans. CurrentCount reflects persisted patient messages only;
// the binding check happens again inside the send transaction.
type Decision struct {
	Allowed      bool   `json:"allowed"`
	Reason       string `json:"reason,omitempty"`
	CurrentCount int    `json:"current_count"`
	Limit        int    `json:"limit"`
	Plan         string `json:"plan"`
}
