package badge

import "time"

// Eligibility thresholds.
const (
	ContinuityWindow   = 90 * 24 * time.Hour
	ContinuityMinCare  = 5
	EstablishedTenure  = 180 * 24 * time.Hour
	EstablishedMinEvts = 100
)

const statusVerified = "verified"

// predicates binds every badge type to its eligibility function. Keys must
// cover AllBadgeTypes exactly; TestPredicates_Exhaustive enforces it.
var predicates = map[BadgeType]func(s Signals, now time.Time) bool{
	VerifiedIdentity: func(s Signals, _ time.Time) bool {
		return s.VerificationStatus == statusVerified
	},
	VerifiedPractice: func(s Signals, _ time.Time) bool {
		return s.VerificationStatus == statusVerified &&
			s.ValidLicenseCount > 0 &&
			s.HasPracticeAddress
	},
	ContinuityOfCare: func(s Signals, _ time.Time) bool {
		return s.RecentCareEvents >= ContinuityMinCare
	},
	EstablishedPractitioner: func(s Signals, now time.Time) bool {
		if s.VerificationStatus != statusVerified || s.VerifiedAt == nil {
			return false
		}
		return now.Sub(*s.VerifiedAt) >= EstablishedTenure &&
			s.TotalEvents >= EstablishedMinEvts
	},
}

// Evaluate returns the predicate value for one badge type.
func Evaluate(t BadgeType, s Signals, now time.Time) bool {
	p, ok := predicates[t]
	if !ok {
		return false
	}
	return p(s, now)
}
