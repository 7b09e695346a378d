/*
Package factory provides JSON to Go record conversion.

PURPOSE:
  Converts JSON evaluation requests and policy definitions into coverage
  package records. The API and the store both speak JSON; the engine only
  ever sees validated Go values. Underwriting can define policy configs in
  JSON without code changes.

JSON SCHEMA (evaluation request):
  {
    "policy": {
      "id": "pol-2023-0042",
      "name": "Standard Hospitalization",
      "effective_date": "2023-01-01",
      "daily_benefit": "150"
    },
    "wellness_visit": {"visit_date": "2023-05-01"},
    "cancellation_events": [
      {"kind": "fraud", "effective_at": "2023-09-01"}
    ],
    "claim": {
      "hospitalization_date": "2023-10-01",
      "hospital_days": 4,
      "claimant_age": 55,
      "cause": "sickness",
      "activity": "none",
      "proof_of_claim_date": "2023-10-05",
      "submission_date": "2023-12-15"
    }
  }

KEY FEATURES:
  - Omitted policy months default to the standard 12/6/7 contract
  - Omitted wellness_visit means "no visit recorded" (a legitimate state)
  - Dates are ISO calendar days; malformed dates surface InvalidDate
  - Benefit amounts are decimal strings, never floats

SEE ALSO:
  - coverage/types.go: target record definitions
  - api/handlers.go: consumes ParseEvaluation for POST /api/evaluate
  - store/sqlite: stores policy configs produced by PolicyToJSON
*/
package factory

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a policy.
type PolicyJSON struct {
	ID                                 string `json:"id"`
	Name                               string `json:"name"`
	EffectiveDate                      string `json:"effective_date"`
	TermMonths                         int    `json:"term_months,omitempty"`
	WellnessVisitDeadlineMonths        int    `json:"wellness_visit_deadline_months,omitempty"`
	WellnessConfirmationDeadlineMonths int    `json:"wellness_confirmation_deadline_months,omitempty"`
	DailyBenefit                       string `json:"daily_benefit,omitempty"`
}

// WellnessVisitJSON is the optional visit record.
type WellnessVisitJSON struct {
	VisitDate string `json:"visit_date,omitempty"`
}

// CancellationEventJSON is a dated cancellation fact.
type CancellationEventJSON struct {
	Kind        string `json:"kind"`
	EffectiveAt string `json:"effective_at"`
}

// ClaimJSON is the JSON representation of a claim.
type ClaimJSON struct {
	ID                       string `json:"id,omitempty"`
	HospitalizationDate      string `json:"hospitalization_date"`
	HospitalDays             int    `json:"hospital_days,omitempty"`
	ClaimantAge              int    `json:"claimant_age"`
	Cause                    string `json:"cause"`
	Activity                 string `json:"activity,omitempty"`
	ProofOfClaimDate         string `json:"proof_of_claim_date"`
	SubmissionDate           string `json:"submission_date"`
	DisputeAroseDate         string `json:"dispute_arose_date,omitempty"`
	ArbitrationCommencedDate string `json:"arbitration_commenced_date,omitempty"`
}

// EvaluationJSON is a full evaluation request.
type EvaluationJSON struct {
	Policy             PolicyJSON              `json:"policy"`
	WellnessVisit      *WellnessVisitJSON      `json:"wellness_visit,omitempty"`
	CancellationEvents []CancellationEventJSON `json:"cancellation_events,omitempty"`
	Claim              ClaimJSON               `json:"claim"`
}

// EvaluationInput bundles the parsed records ready for coverage.Evaluate.
type EvaluationInput struct {
	Policy coverage.Policy
	Visit  coverage.WellnessVisitRecord
	Events []coverage.CancellationEvent
	Claim  coverage.Claim
}

// =============================================================================
// EVALUATION FACTORY
// =============================================================================

// EvaluationFactory converts JSON requests to coverage records.
type EvaluationFactory struct{}

// NewEvaluationFactory creates a new evaluation factory.
func NewEvaluationFactory() *EvaluationFactory {
	return &EvaluationFactory{}
}

// ParseEvaluation parses a full evaluation request.
func (f *EvaluationFactory) ParseEvaluation(jsonStr string) (*EvaluationInput, error) {
	var ej EvaluationJSON
	if err := json.Unmarshal([]byte(jsonStr), &ej); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation JSON: %w", err)
	}
	return f.FromJSON(ej)
}

// FromJSON converts EvaluationJSON to engine records.
func (f *EvaluationFactory) FromJSON(ej EvaluationJSON) (*EvaluationInput, error) {
	policy, err := f.policyFromJSON(ej.Policy)
	if err != nil {
		return nil, err
	}

	var visit coverage.WellnessVisitRecord
	if ej.WellnessVisit != nil && ej.WellnessVisit.VisitDate != "" {
		d, err := calendar.Parse(ej.WellnessVisit.VisitDate)
		if err != nil {
			return nil, fmt.Errorf("wellness visit date: %w", err)
		}
		visit.VisitDate = d
	}

	var events []coverage.CancellationEvent
	for i, evj := range ej.CancellationEvents {
		ev, err := eventFromJSON(evj)
		if err != nil {
			return nil, fmt.Errorf("cancellation event %d: %w", i, err)
		}
		events = append(events, ev)
	}

	claim, err := claimFromJSON(ej.Claim)
	if err != nil {
		return nil, err
	}

	return &EvaluationInput{
		Policy: *policy,
		Visit:  visit,
		Events: events,
		Claim:  *claim,
	}, nil
}

// ParsePolicy parses a standalone policy config. Omitted term and wellness
// months default to the standard contract.
func (f *EvaluationFactory) ParsePolicy(jsonStr string) (*coverage.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.policyFromJSON(pj)
}

func (f *EvaluationFactory) policyFromJSON(pj PolicyJSON) (*coverage.Policy, error) {
	effective, err := calendar.Parse(pj.EffectiveDate)
	if err != nil {
		return nil, fmt.Errorf("policy effective date: %w", err)
	}

	benefit := decimal.Zero
	if pj.DailyBenefit != "" {
		benefit, err = decimal.NewFromString(pj.DailyBenefit)
		if err != nil {
			return nil, &coverage.InvalidPolicyError{Field: "daily_benefit", Reason: "not a decimal"}
		}
	}

	policy := coverage.StandardHospitalizationPolicy(coverage.PolicyID(pj.ID), pj.Name, effective, benefit)
	if pj.TermMonths != 0 {
		policy.TermMonths = pj.TermMonths
	}
	if pj.WellnessVisitDeadlineMonths != 0 {
		policy.WellnessVisitDeadlineMonths = pj.WellnessVisitDeadlineMonths
	}
	if pj.WellnessConfirmationDeadlineMonths != 0 {
		policy.WellnessConfirmationDeadlineMonths = pj.WellnessConfirmationDeadlineMonths
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &policy, nil
}

// PolicyToJSON converts a policy record back to its JSON form for storage.
func (f *EvaluationFactory) PolicyToJSON(p coverage.Policy) PolicyJSON {
	return PolicyJSON{
		ID:                                 string(p.ID),
		Name:                               p.Name,
		EffectiveDate:                      p.EffectiveDate.String(),
		TermMonths:                         p.TermMonths,
		WellnessVisitDeadlineMonths:        p.WellnessVisitDeadlineMonths,
		WellnessConfirmationDeadlineMonths: p.WellnessConfirmationDeadlineMonths,
		DailyBenefit:                       p.DailyBenefit.String(),
	}
}

// ParseClaim converts a standalone claim record, validating it.
func (f *EvaluationFactory) ParseClaim(cj ClaimJSON) (*coverage.Claim, error) {
	return claimFromJSON(cj)
}

// ParseCancellationEvent converts a standalone cancellation event.
func (f *EvaluationFactory) ParseCancellationEvent(evj CancellationEventJSON) (coverage.CancellationEvent, error) {
	return eventFromJSON(evj)
}

// ClaimToJSON converts a claim record back to its JSON form.
func (f *EvaluationFactory) ClaimToJSON(c coverage.Claim) ClaimJSON {
	cj := ClaimJSON{
		ID:                  string(c.ID),
		HospitalizationDate: c.HospitalizationDate.String(),
		HospitalDays:        c.HospitalDays,
		ClaimantAge:         c.ClaimantAge,
		Cause:               string(c.Cause),
		Activity:            string(c.Activity),
		ProofOfClaimDate:    c.ProofOfClaimDate.String(),
		SubmissionDate:      c.SubmissionDate.String(),
	}
	if !c.DisputeAroseDate.IsZero() {
		cj.DisputeAroseDate = c.DisputeAroseDate.String()
	}
	if !c.ArbitrationCommencedDate.IsZero() {
		cj.ArbitrationCommencedDate = c.ArbitrationCommencedDate.String()
	}
	return cj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func eventFromJSON(evj CancellationEventJSON) (coverage.CancellationEvent, error) {
	kind, err := parseCancellationKind(evj.Kind)
	if err != nil {
		return coverage.CancellationEvent{}, err
	}
	at, err := calendar.Parse(evj.EffectiveAt)
	if err != nil {
		return coverage.CancellationEvent{}, err
	}
	return coverage.CancellationEvent{Kind: kind, EffectiveAt: at}, nil
}

func claimFromJSON(cj ClaimJSON) (*coverage.Claim, error) {
	claim := coverage.Claim{
		ID:           coverage.ClaimID(cj.ID),
		HospitalDays: cj.HospitalDays,
		ClaimantAge:  cj.ClaimantAge,
		Cause:        parseCause(cj.Cause),
		Activity:     parseActivity(cj.Activity),
	}

	var err error
	if claim.HospitalizationDate, err = calendar.Parse(cj.HospitalizationDate); err != nil {
		return nil, fmt.Errorf("hospitalization date: %w", err)
	}
	if claim.ProofOfClaimDate, err = calendar.Parse(cj.ProofOfClaimDate); err != nil {
		return nil, fmt.Errorf("proof of claim date: %w", err)
	}
	if claim.SubmissionDate, err = calendar.Parse(cj.SubmissionDate); err != nil {
		return nil, fmt.Errorf("submission date: %w", err)
	}
	if cj.DisputeAroseDate != "" {
		if claim.DisputeAroseDate, err = calendar.Parse(cj.DisputeAroseDate); err != nil {
			return nil, fmt.Errorf("dispute arose date: %w", err)
		}
	}
	if cj.ArbitrationCommencedDate != "" {
		if claim.ArbitrationCommencedDate, err = calendar.Parse(cj.ArbitrationCommencedDate); err != nil {
			return nil, fmt.Errorf("arbitration commenced date: %w", err)
		}
	}

	if err := claim.Validate(); err != nil {
		return nil, err
	}
	return &claim, nil
}

func parseCause(s string) coverage.CauseCategory {
	switch s {
	case "sickness":
		return coverage.CauseSickness
	case "accidental_injury":
		return coverage.CauseAccidentalInjury
	default:
		// Preserved as-is; Claim.Validate rejects unknown categories.
		return coverage.CauseCategory(s)
	}
}

func parseActivity(s string) coverage.ActivityTag {
	switch s {
	case "", "none":
		return coverage.ActivityNone
	case "skydiving":
		return coverage.ActivitySkydiving
	case "military_service":
		return coverage.ActivityMilitaryService
	case "firefighter_service":
		return coverage.ActivityFirefighterService
	case "police_service":
		return coverage.ActivityPoliceService
	default:
		return coverage.ActivityTag(s)
	}
}

func parseCancellationKind(s string) (coverage.CancellationKind, error) {
	switch s {
	case "fraud":
		return coverage.CancelFraud, nil
	case "misrepresentation":
		return coverage.CancelMisrepresentation, nil
	case "material_withholding":
		return coverage.CancelMaterialWithholding, nil
	case "untimely_wellness_visit":
		return coverage.CancelUntimelyWellnessVisit, nil
	case "term_expired":
		return coverage.CancelTermExpired, nil
	default:
		return "", fmt.Errorf("unknown cancellation kind %q", s)
	}
}

// =============================================================================
// PRESET JSON
// =============================================================================

// StandardPolicyJSON returns the JSON config for a standard hospitalization
// policy. Handy for scenarios and tests.
func StandardPolicyJSON(id, name, effectiveDate, dailyBenefit string) string {
	pj := PolicyJSON{
		ID:            id,
		Name:          name,
		EffectiveDate: effectiveDate,
		DailyBenefit:  dailyBenefit,
	}
	b, _ := json.Marshal(pj)
	return string(b)
}
