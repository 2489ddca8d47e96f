package badge

import (
	"time"

	"github.com/google/uuid"
)

// BadgeType is a closed enumeration. Every type is bound to a predicate in
// predicates.go; adding a type without a predicate fails the exhaustiveness
// test in this package.
type BadgeType string

const (
	VerifiedIdentity        BadgeType = "verified_identity"
	VerifiedPractice        BadgeType = "verified_practice"
	ContinuityOfCare        BadgeType = "continuity_of_care"
	EstablishedPractitioner BadgeType = "established_practitioner"
)

// AllBadgeTypes lists every badge type in evaluation order.
var AllBadgeTypes = []BadgeType{
	VerifiedIdentity,
	VerifiedPractice,
	ContinuityOfCare,
	EstablishedPractitioner,
}

func ValidBadgeType(t BadgeType) bool {
	for _, bt := range AllBadgeTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// Audit actions.
const (
	ActionAwarded = "awarded"
	ActionRevoked = "revoked"
)

// Metadata is the computation_metadata column. LastPredicate records the
// predicate value as of the last automated run; recomputation compares the
// fresh predicate against it rather than against is_active, which is what
// makes manual overrides stick until the predicate genuinely changes.
type Metadata struct {
	LastPredicate *bool `json:"last_predicate,omitempty"`
}

// Badge maps to the trust_badges table. Unique per (practitioner_id,
// badge_type): re-awarding an inactive badge reactivates the row, never
// duplicates it. Rows are soft-deactivated, never deleted.
type Badge struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PractitionerID uuid.UUID  `db:"practitioner_id" json:"practitioner_id"`
	BadgeType      BadgeType  `db:"badge_type" json:"badge_type"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	EarnedAt       time.Time  `db:"earned_at" json:"earned_at"`
	RevokedAt      *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	LastComputedAt *time.Time `db:"last_computed_at" json:"last_computed_at,omitempty"`
	Metadata       Metadata   `db:"computation_metadata" json:"computation_metadata"`
}

// AuditEntry is an append-only record of every badge state change,
// automated or manual. AdminUserID is nil for automated entries.
type AuditEntry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PractitionerID uuid.UUID `db:"practitioner_id" json:"practitioner_id"`
	BadgeType      BadgeType `db:"badge_type" json:"badge_type"`
	Action         string    `db:"action" json:"action"`
	Automated      bool      `db:"automated" json:"automated"`
	AdminUserID    *string   `db:"admin_user_id" json:"admin_user_id,omitempty"`
	Reason         *string   `db:"reason" json:"reason,omitempty"`
	PreviousActive bool      `db:"previous_active" json:"previous_active"`
	NewActive      bool      `db:"new_active" json:"new_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Signals is the snapshot a predicate evaluates against. Assembled once per
// recomputation by the SignalSource adapter.
type Signals struct {
	VerificationStatus string
	VerifiedAt         *time.Time
	ValidLicenseCount  int
	HasPracticeAddress bool
	RecentCareEvents   int // within ContinuityWindow
	TotalEvents        int
}
