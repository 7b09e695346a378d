/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain records from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done by the factory and the coverage package, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/evaluation.go: JSON schema for the domain records themselves
*/
package api

import (
	"github.com/warp/coverage-engine/factory"
)

// =============================================================================
// EVALUATION
// =============================================================================

// EvaluateRequest is the body of POST /api/evaluate.
// When Record is true the verdict is appended to the audit log.
type EvaluateRequest struct {
	factory.EvaluationJSON
	Record bool `json:"record,omitempty"`
}

// VerdictDTO is the evaluation outcome returned to clients.
type VerdictDTO struct {
	ID          string `json:"id,omitempty"`
	PolicyID    string `json:"policy_id,omitempty"`
	ClaimID     string `json:"claim_id,omitempty"`
	Covered     bool   `json:"covered"`
	Reason      string `json:"reason"`
	Payable     string `json:"payable"`
	EvaluatedAt string `json:"evaluated_at,omitempty"`
}

// =============================================================================
// POLICIES & CLAIMS
// =============================================================================

// PolicyDTO represents a stored policy in API responses.
type PolicyDTO struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Config    factory.PolicyJSON `json:"config"`
	Version   int                `json:"version"`
	CreatedAt string             `json:"created_at,omitempty"`
}

// CreatePolicyRequest is the request to create a policy.
type CreatePolicyRequest struct {
	Config factory.PolicyJSON `json:"config"`
}

// CreateClaimRequest files a claim against a stored policy.
type CreateClaimRequest struct {
	PolicyID string            `json:"policy_id"`
	Claim    factory.ClaimJSON `json:"claim"`
}

// ClaimDTO represents a stored claim.
type ClaimDTO struct {
	PolicyID string            `json:"policy_id"`
	Claim    factory.ClaimJSON `json:"claim"`
}

// RecordVisitRequest records the wellness visit for a policy.
type RecordVisitRequest struct {
	VisitDate string `json:"visit_date"`
}

// RecordCancellationRequest records a cancellation event for a policy.
type RecordCancellationRequest struct {
	Kind        string `json:"kind"`
	EffectiveAt string `json:"effective_at"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
