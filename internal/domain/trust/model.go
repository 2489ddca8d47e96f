package trust

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types recorded in the trust ledger. The set is closed; ingestion
// rejects anything else.
const (
	EventProfileView       = "profile_view"
	EventConsultRequested  = "consult_requested"
	EventConsultCompleted  = "consult_completed"
	EventFollowupCompleted = "followup_marked_complete"
	EventMessageSent       = "message_sent"
	EventReportSubmitted   = "report_submitted"
)

// Weights are policy constants, not caller input. The stored event carries
// the weight in force at ingestion time; scoring sums stored weights so
// historical events keep the weight they were recorded with.
var Weights = map[string]int{
	EventProfileView:       1,
	EventConsultRequested:  10,
	EventConsultCompleted:  50,
	EventFollowupCompleted: 30,
	EventMessageSent:       2,
	EventReportSubmitted:   -100,
}

// Trust scores are clamped to this range.
const (
	ScoreMin = 0
	ScoreMax = 1000
)

// CareEventTypes are the event types that count toward continuity-of-care
// signals.
var CareEventTypes = []string{EventConsultCompleted, EventFollowupCompleted}

// TrustEvent is an immutable ledger row. PatientIDHash is an HMAC digest of
// the patient id, never the raw id: the ledger supports de-duplication and
// rate analysis without identifying patients.
type TrustEvent struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	EventType      string          `db:"event_type" json:"event_type"`
	PractitionerID uuid.UUID       `db:"practitioner_id" json:"practitioner_id"`
	PatientIDHash  *string         `db:"patient_id_hash" json:"patient_id_hash,omitempty"`
	EventWeight    int             `db:"event_weight" json:"event_weight"`
	Metadata       json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// ClampScore bounds a raw weight sum to the score range.
func ClampScore(sum int) int {
	if sum < ScoreMin {
		return ScoreMin
	}
	if sum > ScoreMax {
		return ScoreMax
	}
	return sum
}
