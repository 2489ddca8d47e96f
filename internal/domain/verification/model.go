package verification

import (
	"time"

	"github.com/google/uuid"
)

// Queue item statuses. pending and needs_review are open; verified and
// rejected are terminal.
const (
	StatusPending     = "pending"
	StatusNeedsReview = "needs_review"
	StatusVerified    = "verified"
	StatusRejected    = "rejected"
)

// Decisions an admin can take on an open item.
const (
	DecisionVerified    = "verified"
	DecisionRejected    = "rejected"
	DecisionNeedsReview = "needs_review"
)

var validDecisions = map[string]bool{
	DecisionVerified:    true,
	DecisionRejected:    true,
	DecisionNeedsReview: true,
}

func IsOpen(status string) bool {
	return status == StatusPending || status == StatusNeedsReview
}

// QueueItem is one verification request. At most one open item exists per
// practitioner; Version guards concurrent admin decisions.
type QueueItem struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PractitionerID uuid.UUID  `db:"practitioner_id" json:"practitioner_id"`
	Status         string     `db:"status" json:"status"`
	SubmittedAt    time.Time  `db:"submitted_at" json:"submitted_at"`
	ReviewedAt     *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy     *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	AdminNotes     *string    `db:"admin_notes" json:"admin_notes,omitempty"`
	Version        int        `db:"version" json:"version"`
}

// AuditEntry records one transition of a practitioner's verification status.
type AuditEntry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	QueueItemID    uuid.UUID `db:"queue_item_id" json:"queue_item_id"`
	PractitionerID uuid.UUID `db:"practitioner_id" json:"practitioner_id"`
	PreviousStatus string    `db:"previous_status" json:"previous_status"`
	NewStatus      string    `db:"new_status" json:"new_status"`
	Actor          string    `db:"actor" json:"actor"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// MinBioLength is the shortest bio accepted at submission time.
const MinBioLength = 50
