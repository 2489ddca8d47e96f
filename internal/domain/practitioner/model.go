package practitioner

import (
	"time"

	"github.com/google/uuid"
)

// Verification statuses. Only the verification state machine mutates these;
// profile updates never touch them.
const (
	StatusUnverified  = "unverified"
	StatusPending     = "pending"
	StatusVerified    = "verified"
	StatusRejected    = "rejected"
	StatusNeedsReview = "needs_review"
)

// Subscription plans. A practitioner with no active subscription row is on
// the free plan.
const (
	PlanFree         = "free"
	PlanProfessional = "professional"
	PlanPremium      = "premium"
)

var ValidStatuses = map[string]bool{
	StatusUnverified:  true,
	StatusPending:     true,
	StatusVerified:    true,
	StatusRejected:    true,
	StatusNeedsReview: true,
}

var ValidPlans = map[string]bool{
	PlanFree:         true,
	PlanProfessional: true,
	PlanPremium:      true,
}

// Practitioner maps to the practitioners table. trust_score and
// verification_status are caches over the trust-event ledger and the
// verification audit log respectively; they are written only through
// SetTrustScore and SetVerificationStatus.
type Practitioner struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	DisplayName        string     `db:"display_name" json:"display_name"`
	ProfessionalTitle  *string    `db:"professional_title" json:"professional_title,omitempty"`
	ProfessionalType   *string    `db:"professional_type" json:"professional_type,omitempty"`
	YearsExperience    *int       `db:"years_experience" json:"years_experience,omitempty"`
	Bio                *string    `db:"bio" json:"bio,omitempty"`
	PracticeAddress    *string    `db:"practice_address" json:"practice_address,omitempty"`
	VerificationStatus string     `db:"verification_status" json:"verification_status"`
	VerifiedAt         *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	TrustScore         int        `db:"trust_score" json:"trust_score"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// License maps to the licenses table.
type License struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PractitionerID   uuid.UUID  `db:"practitioner_id" json:"practitioner_id"`
	LicenseNumber    string     `db:"license_number" json:"license_number"`
	IssuingAuthority string     `db:"issuing_authority" json:"issuing_authority"`
	Region           *string    `db:"region" json:"region,omitempty"`
	ExpiresAt        *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// Valid reports whether the license is active and not expired at the given
// instant.
func (l *License) Valid(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	if l.ExpiresAt != nil && !l.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Subscription maps to the subscriptions table. At most one active row per
// practitioner.
type Subscription struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PractitionerID uuid.UUID `db:"practitioner_id" json:"practitioner_id"`
	Plan           string    `db:"plan" json:"plan"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
