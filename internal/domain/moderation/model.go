package moderation

import (
	"time"

	"github.com/google/uuid"
)

// Report statuses. resolved and dismissed are terminal; reviewing is an
// optional intermediate hold.
const (
	StatusPending   = "pending"
	StatusReviewing = "reviewing"
	StatusResolved  = "resolved"
	StatusDismissed = "dismissed"
)

func Terminal(status string) bool {
	return status == StatusResolved || status == StatusDismissed
}

// Report types accepted at submission.
const (
	TypeInappropriateContent  = "inappropriate_content"
	TypeSpam                  = "spam"
	TypeMisrepresentation     = "misrepresentation"
	TypeUnprofessionalConduct = "unprofessional_conduct"
	TypeOther                 = "other"
)

var ValidReportTypes = map[string]bool{
	TypeInappropriateContent:  true,
	TypeSpam:                  true,
	TypeMisrepresentation:     true,
	TypeUnprofessionalConduct: true,
	TypeOther:                 true,
}

// ContentReport is one moderation queue entry. Terminal decisions carry
// non-empty admin notes; the service enforces this even though the admin
// UI checks it too.
type ContentReport struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ReporterID     uuid.UUID  `db:"reporter_id" json:"reporter_id"`
	ReportedUserID uuid.UUID  `db:"reported_user_id" json:"reported_user_id"`
	ReportType     string     `db:"report_type" json:"report_type"`
	Description    *string    `db:"description" json:"description,omitempty"`
	Status         string     `db:"status" json:"status"`
	AdminNotes     *string    `db:"admin_notes" json:"admin_notes,omitempty"`
	ActionTaken    *string    `db:"action_taken" json:"action_taken,omitempty"`
	ReviewedBy     *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ResolvedAt     *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
