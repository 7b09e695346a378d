/*
activity.go - Policy activity state machine

PURPOSE:
  Answers one question: is the policy in effect at a given instant? A policy
  is in effect iff the earliest cancellation trigger, if any, is strictly
  after that instant. Three trigger families are considered:

  1. Wellness condition: past the confirmation deadline with no timely
     visit on record, the policy is cancelled at the confirmation deadline.
     Before that deadline the condition is merely pending, which is still
     "in effect" - pending and satisfied are distinct states resolved by
     deadline comparison, not a distinct machine state.
  2. Term expiry: past the term-end anniversary, cancelled at term end.
  3. Recorded events: fraud, misrepresentation, and material withholding
     arrive as dated CancellationEvent facts from the caller.

  Cancellation is monotonic: triggers only ever move a policy from active
  to cancelled, so once not-in-effect, a policy is not-in-effect at every
  later instant.

TIE-BREAK:
  When several triggers share the earliest effective date, the reported
  kind follows the fixed priority fraud > misrepresentation > material
  withholding > untimely wellness visit > term expired. The boolean
  outcome is unaffected.
*/
package coverage

import (
	"github.com/warp/coverage-engine/calendar"
)

// ActivityStatus is the state machine's answer for one instant.
type ActivityStatus struct {
	InEffect bool

	// CancelledBy/CancelledAt identify the operative (earliest, highest
	// priority) cancellation when InEffect is false.
	CancelledBy CancellationKind
	CancelledAt calendar.Date
}

// cancellation is an internal trigger candidate.
type cancellation struct {
	kind CancellationKind
	at   calendar.Date
}

// StatusAt reports whether the policy is in effect as of the given instant.
// asOf is expected to be on or after the policy's effective date; callers
// handle pre-effective instants separately (see Evaluate).
//
// Only fraud-class kinds are read from events; untimely-wellness-visit and
// term-expired cancellations are always derived from the policy terms, so a
// caller cannot assert them earlier or later than the contract allows.
func StatusAt(p Policy, visit WellnessVisitRecord, events []CancellationEvent, asOf calendar.Date) ActivityStatus {
	var triggered []cancellation

	// Wellness condition: satisfied-or-pending unless the confirmation
	// window has closed with no timely visit on record.
	if !wellnessSatisfiedOrPending(p, visit, asOf) {
		triggered = append(triggered, cancellation{CancelUntimelyWellnessVisit, p.ConfirmationDeadline()})
	}

	if asOf.After(p.TermEnd()) {
		triggered = append(triggered, cancellation{CancelTermExpired, p.TermEnd()})
	}

	for _, ev := range events {
		switch ev.Kind {
		case CancelFraud, CancelMisrepresentation, CancelMaterialWithholding:
			if ev.EffectiveAt.BeforeOrEqual(asOf) {
				triggered = append(triggered, cancellation{ev.Kind, ev.EffectiveAt})
			}
		}
	}

	if len(triggered) == 0 {
		return ActivityStatus{InEffect: true}
	}

	operative := triggered[0]
	for _, c := range triggered[1:] {
		if c.at.Before(operative.at) ||
			(c.at.Equal(operative.at) && c.kind.priority() < operative.kind.priority()) {
			operative = c
		}
	}

	return ActivityStatus{
		CancelledBy: operative.kind,
		CancelledAt: operative.at,
	}
}

// wellnessSatisfiedOrPending reports whether the wellness condition does NOT
// cancel the policy as of the instant: either the confirmation window is
// still open, or a visit genuinely occurred by the visit deadline. A visit
// dated exactly on the deadline is timely; an evaluation exactly on the
// confirmation deadline is still pending.
func wellnessSatisfiedOrPending(p Policy, visit WellnessVisitRecord, asOf calendar.Date) bool {
	if asOf.BeforeOrEqual(p.ConfirmationDeadline()) {
		return true
	}
	return visit.Recorded() && visit.VisitDate.BeforeOrEqual(p.VisitDeadline())
}
