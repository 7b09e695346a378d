/*
Package coverage implements the hospitalization coverage decision engine.

PURPOSE:
  Decides whether a hospitalization claim is covered under a fixed-term
  insurance policy. The decision combines three pure evaluations:

  1. Policy activity (activity.go): is the policy in effect on the
     hospitalization date, given the wellness-visit condition, the policy
     term, and any recorded cancellation events?
  2. Exclusions (exclusions.go): does the claim's cause or the claimant's
     age remove coverage that would otherwise apply?
  3. Claim-process timing (evaluate.go): was the claim submitted after the
     waiting period, and was a dispute arbitrated in time?

KEY CONCEPTS IN THIS FILE (types.go):
  - Policy: The contract terms (effective date, term, wellness deadlines)
  - WellnessVisitRecord: The optional visit fact ("not recorded" is a
    legitimate state, not an error)
  - CancellationEvent: A dated cancellation fact supplied by the caller
  - Claim: The hospitalization being evaluated
  - Verdict: The covered/not-covered outcome with a single reason code

DESIGN PRINCIPLES:
  1. Immutability: every record is a value; evaluation never mutates inputs
  2. Explicit facts: exclusion and cancellation triggers are tagged fields
     on the records, never engine-internal constants
  3. Purity: evaluation is a total function of its inputs with no I/O, so
     distinct claims can be evaluated in parallel without locking
  4. Precision: benefit amounts use decimal.Decimal, never float64

SEE ALSO:
  - activity.go: the policy activity state machine
  - exclusions.go: categorical and age exclusions
  - evaluate.go: the top-level coverage decision
  - errors.go: the InvalidClaim / InvalidPolicy taxonomy
*/
package coverage

import (
	"github.com/shopspring/decimal"

	"github.com/warp/coverage-engine/calendar"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PolicyID string
type ClaimID string

// =============================================================================
// POLICY - Contract terms
// =============================================================================

// Policy holds the terms that drive the activity state machine. The month
// fields satisfy WellnessVisitDeadlineMonths < WellnessConfirmationDeadlineMonths
// <= TermMonths; Validate enforces this.
type Policy struct {
	ID            PolicyID
	Name          string
	EffectiveDate calendar.Date

	// Term and wellness-condition deadlines, in months after EffectiveDate.
	TermMonths                         int
	WellnessVisitDeadlineMonths        int
	WellnessConfirmationDeadlineMonths int

	// DailyBenefit is paid per day of hospitalization on a covered claim.
	DailyBenefit decimal.Decimal
}

// VisitDeadline is the date by which the wellness visit must occur.
func (p Policy) VisitDeadline() calendar.Date {
	return calendar.Anniversary(p.EffectiveDate, p.WellnessVisitDeadlineMonths)
}

// ConfirmationDeadline is the date by which the visit must be confirmed;
// past it, a policy with no timely visit on record is cancelled.
func (p Policy) ConfirmationDeadline() calendar.Date {
	return calendar.Anniversary(p.EffectiveDate, p.WellnessConfirmationDeadlineMonths)
}

// TermEnd is the anniversary on which the policy term expires.
func (p Policy) TermEnd() calendar.Date {
	return calendar.Anniversary(p.EffectiveDate, p.TermMonths)
}

// Validate checks the structural invariants of the policy record.
func (p Policy) Validate() error {
	if p.EffectiveDate.IsZero() {
		return &InvalidPolicyError{Field: "effective_date", Reason: "required"}
	}
	if p.TermMonths <= 0 {
		return &InvalidPolicyError{Field: "term_months", Reason: "must be positive"}
	}
	if p.WellnessVisitDeadlineMonths <= 0 {
		return &InvalidPolicyError{Field: "wellness_visit_deadline_months", Reason: "must be positive"}
	}
	if p.WellnessVisitDeadlineMonths >= p.WellnessConfirmationDeadlineMonths {
		return &InvalidPolicyError{Field: "wellness_confirmation_deadline_months", Reason: "must exceed visit deadline"}
	}
	if p.WellnessConfirmationDeadlineMonths > p.TermMonths {
		return &InvalidPolicyError{Field: "wellness_confirmation_deadline_months", Reason: "must not exceed term"}
	}
	if p.DailyBenefit.IsNegative() {
		return &InvalidPolicyError{Field: "daily_benefit", Reason: "must not be negative"}
	}
	return nil
}

// =============================================================================
// WELLNESS VISIT RECORD
// =============================================================================

// WellnessVisitRecord carries the optional wellness-visit fact. A zero
// VisitDate means no visit has occurred as of the evaluation instant; once
// supplied, a visit is never retracted.
type WellnessVisitRecord struct {
	VisitDate calendar.Date
}

// Recorded reports whether a visit has occurred.
func (w WellnessVisitRecord) Recorded() bool { return !w.VisitDate.IsZero() }

// =============================================================================
// CANCELLATION EVENT
// =============================================================================

// CancellationKind tags the cause of a policy cancellation.
type CancellationKind string

const (
	CancelFraud                 CancellationKind = "fraud"
	CancelMisrepresentation     CancellationKind = "misrepresentation"
	CancelMaterialWithholding   CancellationKind = "material_withholding"
	CancelUntimelyWellnessVisit CancellationKind = "untimely_wellness_visit"
	CancelTermExpired           CancellationKind = "term_expired"
)

// priority orders kinds for reason reporting when several cancellations
// share the same effective date. Lower is reported first. The ordering is
// arbitrary but fixed; it never changes the boolean outcome.
func (k CancellationKind) priority() int {
	switch k {
	case CancelFraud:
		return 0
	case CancelMisrepresentation:
		return 1
	case CancelMaterialWithholding:
		return 2
	case CancelUntimelyWellnessVisit:
		return 3
	case CancelTermExpired:
		return 4
	default:
		return 5
	}
}

// ReasonCode maps the cancellation kind onto the verdict reason namespace.
func (k CancellationKind) ReasonCode() ReasonCode {
	switch k {
	case CancelFraud:
		return ReasonCancelledFraud
	case CancelMisrepresentation:
		return ReasonCancelledMisrepresentation
	case CancelMaterialWithholding:
		return ReasonCancelledMaterialWithholding
	case CancelUntimelyWellnessVisit:
		return ReasonCancelledUntimelyWellnessVisit
	case CancelTermExpired:
		return ReasonCancelledTermExpired
	default:
		return ""
	}
}

// CancellationEvent is a dated cancellation fact recorded against a policy.
// Cancellation is monotonic: once an event's effective date has passed, the
// policy is permanently not in effect from that date forward.
type CancellationEvent struct {
	Kind        CancellationKind
	EffectiveAt calendar.Date
}

// =============================================================================
// CLAIM
// =============================================================================

// CauseCategory is the broad cause of hospitalization.
type CauseCategory string

const (
	CauseSickness         CauseCategory = "sickness"
	CauseAccidentalInjury CauseCategory = "accidental_injury"
)

// ActivityTag marks hospitalizations arising from excluded activities.
// ActivityNone is the default for ordinary claims.
type ActivityTag string

const (
	ActivityNone               ActivityTag = "none"
	ActivitySkydiving          ActivityTag = "skydiving"
	ActivityMilitaryService    ActivityTag = "military_service"
	ActivityFirefighterService ActivityTag = "firefighter_service"
	ActivityPoliceService      ActivityTag = "police_service"
)

// Claim is a hospitalization claim to be evaluated against one policy.
// DisputeAroseDate and ArbitrationCommencedDate are optional (zero = absent);
// all other dates are required.
type Claim struct {
	ID ClaimID

	HospitalizationDate calendar.Date
	HospitalDays        int
	ClaimantAge         int // age at hospitalization

	Cause    CauseCategory
	Activity ActivityTag

	// ProofOfClaimDate is supplied by the claims-intake collaborator; the
	// waiting period for submission is measured from it.
	ProofOfClaimDate calendar.Date
	SubmissionDate   calendar.Date

	DisputeAroseDate         calendar.Date
	ArbitrationCommencedDate calendar.Date
}

// Validate rejects structurally incomplete claims before any rule runs.
func (c Claim) Validate() error {
	if c.HospitalizationDate.IsZero() {
		return &InvalidClaimError{Field: "hospitalization_date", Reason: "required"}
	}
	if c.ClaimantAge < 0 {
		return &InvalidClaimError{Field: "claimant_age", Reason: "must not be negative"}
	}
	if c.HospitalDays < 0 {
		return &InvalidClaimError{Field: "hospital_days", Reason: "must not be negative"}
	}
	switch c.Cause {
	case CauseSickness, CauseAccidentalInjury:
	default:
		return &InvalidClaimError{Field: "cause", Reason: "unknown cause category"}
	}
	switch c.Activity {
	case ActivityNone, ActivitySkydiving, ActivityMilitaryService, ActivityFirefighterService, ActivityPoliceService:
	default:
		return &InvalidClaimError{Field: "activity", Reason: "unknown activity tag"}
	}
	if c.ProofOfClaimDate.IsZero() {
		return &InvalidClaimError{Field: "proof_of_claim_date", Reason: "required"}
	}
	if c.SubmissionDate.IsZero() {
		return &InvalidClaimError{Field: "submission_date", Reason: "required"}
	}
	return nil
}

// =============================================================================
// VERDICT
// =============================================================================

// ReasonCode identifies the single rule that decided the verdict.
type ReasonCode string

const (
	ReasonCovered ReasonCode = "covered"

	ReasonPolicyNotYetEffective ReasonCode = "policy_not_yet_effective"

	ReasonCancelledFraud                 ReasonCode = "policy_cancelled_fraud"
	ReasonCancelledMisrepresentation     ReasonCode = "policy_cancelled_misrepresentation"
	ReasonCancelledMaterialWithholding   ReasonCode = "policy_cancelled_material_withholding"
	ReasonCancelledUntimelyWellnessVisit ReasonCode = "policy_cancelled_untimely_wellness_visit"
	ReasonCancelledTermExpired           ReasonCode = "policy_cancelled_term_expired"

	ReasonExcludedActivity ReasonCode = "excluded_activity"
	ReasonExcludedAge      ReasonCode = "excluded_age"

	ReasonClaimTimingTooEarly ReasonCode = "excluded_claim_timing_too_early"
	ReasonArbitrationLate     ReasonCode = "excluded_arbitration_late"
)

// Verdict is the derived outcome of one evaluation. Payable is zero unless
// the claim is covered.
type Verdict struct {
	Covered bool
	Reason  ReasonCode
	Payable decimal.Decimal
}
