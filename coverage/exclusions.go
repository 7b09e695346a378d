/*
exclusions.go - Categorical and age-based exclusions

PURPOSE:
  Decides whether a claim's cause or the claimant's age removes coverage
  that would otherwise apply. Exclusions are independent of policy timing:
  a skydiving claim is excluded even on a perfectly active policy.

RULE ORDER:
  Activity exclusions are checked before the age exclusion. The order only
  picks which single reason is reported when both apply; the boolean result
  is the OR of all conditions either way.
*/
package coverage

// AgeExclusionThreshold is the claimant age at hospitalization at or above
// which coverage is excluded.
const AgeExclusionThreshold = 80

// Exclusion reports whether the claim is excluded and, if so, why. The
// claimant age is the age at the hospitalization date; no other instant is
// consulted.
func Exclusion(c Claim) (ReasonCode, bool) {
	switch c.Activity {
	case ActivitySkydiving, ActivityMilitaryService, ActivityFirefighterService, ActivityPoliceService:
		return ReasonExcludedActivity, true
	}
	if c.ClaimantAge >= AgeExclusionThreshold {
		return ReasonExcludedAge, true
	}
	return "", false
}
