/*
evaluate.go - Top-level coverage decision

PURPOSE:
  Combines the activity state machine, the exclusion rules, and the
  claim-process timing gates into a single verdict. Evaluation is a pure
  function of its inputs: no I/O, no retries, bounded work per claim.

DECISION ORDER:
  1. Hospitalization before the effective date  -> policy_not_yet_effective
  2. Policy not in effect on that date          -> the cancellation reason
  3. Cause/age exclusion                        -> excluded_activity / _age
  4. Submission inside the waiting period       -> claim timing too early
     Dispute arbitrated late or not at all      -> arbitration late
  5. Otherwise covered, with the payable benefit

  The timing gates in step 4 do not change whether the underlying event was
  covered; they gate the ability to recover, and this engine folds that
  into the final verdict.
*/
package coverage

import (
	"github.com/shopspring/decimal"

	"github.com/warp/coverage-engine/calendar"
)

// SubmissionWaitingDays is the minimum number of days between the
// proof-of-claim date and the claim submission.
const SubmissionWaitingDays = 60

// ArbitrationWindowMonths is how long after a dispute arises arbitration
// may be commenced.
const ArbitrationWindowMonths = 3

// Evaluate decides whether the claim is covered under the policy. Inputs
// are treated as immutable snapshots; the returned error is non-nil only
// for structurally invalid input, never for a legitimate not-covered
// outcome.
func Evaluate(p Policy, visit WellnessVisitRecord, events []CancellationEvent, c Claim) (Verdict, error) {
	if err := p.Validate(); err != nil {
		return Verdict{}, err
	}
	if err := c.Validate(); err != nil {
		return Verdict{}, err
	}

	if c.HospitalizationDate.Before(p.EffectiveDate) {
		return notCovered(ReasonPolicyNotYetEffective), nil
	}

	status := StatusAt(p, visit, events, c.HospitalizationDate)
	if !status.InEffect {
		return notCovered(status.CancelledBy.ReasonCode()), nil
	}

	if reason, excluded := Exclusion(c); excluded {
		return notCovered(reason), nil
	}

	earliestSubmission := c.ProofOfClaimDate.AddDays(SubmissionWaitingDays)
	if c.SubmissionDate.Before(earliestSubmission) {
		return notCovered(ReasonClaimTimingTooEarly), nil
	}

	if !c.DisputeAroseDate.IsZero() {
		deadline := calendar.Anniversary(c.DisputeAroseDate, ArbitrationWindowMonths)
		if c.ArbitrationCommencedDate.IsZero() || c.ArbitrationCommencedDate.After(deadline) {
			return notCovered(ReasonArbitrationLate), nil
		}
	}

	return Verdict{
		Covered: true,
		Reason:  ReasonCovered,
		Payable: p.DailyBenefit.Mul(decimal.NewFromInt(int64(c.HospitalDays))),
	}, nil
}

func notCovered(reason ReasonCode) Verdict {
	return Verdict{Covered: false, Reason: reason, Payable: decimal.Zero}
}
