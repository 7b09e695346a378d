/*
handlers.go - HTTP API handlers for the coverage decision engine

PURPOSE:
  Exposes the decision engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the coverage package.

ENDPOINTS:
  Evaluation:
    POST   /api/evaluate                                 Evaluate an inline request
    POST   /api/policies/{id}/claims/{claimID}/evaluate  Evaluate a stored claim

  Policies:
    GET    /api/policies                 List all policies
    POST   /api/policies                 Create policy from JSON config
    GET    /api/policies/{id}            Get policy details
    POST   /api/policies/{id}/wellness-visit  Record the wellness visit
    POST   /api/policies/{id}/cancellations   Record a cancellation event

  Claims:
    POST   /api/claims                   File a claim
    GET    /api/claims/{id}              Get a claim

  Audit:
    GET    /api/verdicts                 Verdict audit log (newest first)

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    POST   /api/scenarios/load           Load a demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Build domain records via the factory
  3. Call coverage.Evaluate
  4. Optionally append the verdict to the audit log
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid claims, policies, dates, malformed JSON
  - 404: Policy or claim not found
  - 409: Conflict (wellness visit already recorded)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/factory"
	"github.com/warp/coverage-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Factory *factory.EvaluationFactory

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:   store,
		Factory: factory.NewEvaluationFactory(),
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// EVALUATION
// =============================================================================

// Evaluate runs the decision engine on an inline evaluation request.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	input, err := h.Factory.FromJSON(req.EvaluationJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid evaluation request", err)
		return
	}

	verdict, err := coverage.Evaluate(input.Policy, input.Visit, input.Events, input.Claim)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := VerdictDTO{
		PolicyID: string(input.Policy.ID),
		ClaimID:  string(input.Claim.ID),
		Covered:  verdict.Covered,
		Reason:   string(verdict.Reason),
		Payable:  verdict.Payable.String(),
	}

	if req.Record {
		rec := sqlite.VerdictRecord{
			ID:          uuid.NewString(),
			PolicyID:    string(input.Policy.ID),
			ClaimID:     string(input.Claim.ID),
			Covered:     verdict.Covered,
			Reason:      verdict.Reason,
			Payable:     verdict.Payable,
			EvaluatedAt: time.Now().UTC(),
		}
		if err := h.Store.AppendVerdict(r.Context(), rec); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to record verdict", err)
			return
		}
		dto.ID = rec.ID
		dto.EvaluatedAt = rec.EvaluatedAt.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, dto)
}

// EvaluateStoredClaim evaluates a stored claim against a stored policy and
// its recorded wellness visit and cancellation events. The verdict is
// always appended to the audit log.
func (h *Handler) EvaluateStoredClaim(w http.ResponseWriter, r *http.Request) {
	policyID := chi.URLParam(r, "id")
	claimID := chi.URLParam(r, "claimID")
	ctx := r.Context()

	policyRec, err := h.Store.GetPolicy(ctx, policyID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	policy, err := h.Factory.ParsePolicy(policyRec.ConfigJSON)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stored policy config is invalid", err)
		return
	}

	claim, claimPolicyID, err := h.Store.GetClaim(ctx, claimID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if claimPolicyID != policyID {
		writeError(w, http.StatusNotFound, "claim not filed against this policy", coverage.ErrClaimNotFound)
		return
	}

	visit, err := h.Store.GetWellnessVisit(ctx, policyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load wellness visit", err)
		return
	}
	events, err := h.Store.ListCancellationEvents(ctx, policyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cancellation events", err)
		return
	}

	verdict, err := coverage.Evaluate(*policy, visit, events, *claim)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rec := sqlite.VerdictRecord{
		ID:          uuid.NewString(),
		PolicyID:    policyID,
		ClaimID:     claimID,
		Covered:     verdict.Covered,
		Reason:      verdict.Reason,
		Payable:     verdict.Payable,
		EvaluatedAt: time.Now().UTC(),
	}
	if err := h.Store.AppendVerdict(ctx, rec); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record verdict", err)
		return
	}

	writeJSON(w, http.StatusOK, VerdictDTO{
		ID:          rec.ID,
		PolicyID:    policyID,
		ClaimID:     claimID,
		Covered:     verdict.Covered,
		Reason:      string(verdict.Reason),
		Payable:     verdict.Payable.String(),
		EvaluatedAt: rec.EvaluatedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// POLICIES
// =============================================================================

// ListPolicies returns all stored policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list policies", err)
		return
	}

	dtos := make([]PolicyDTO, 0, len(records))
	for _, rec := range records {
		dto, err := h.policyDTO(rec)
		if err != nil {
			continue // Skip invalid configs
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePolicy stores a policy config after validating it.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	configJSON, err := json.Marshal(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid policy config", err)
		return
	}
	policy, err := h.Factory.ParsePolicy(string(configJSON))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rec := sqlite.PolicyRecord{
		ID:         string(policy.ID),
		Name:       policy.Name,
		ConfigJSON: string(configJSON),
		Version:    1,
	}
	if err := h.Store.SavePolicy(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save policy", err)
		return
	}

	writeJSON(w, http.StatusCreated, PolicyDTO{
		ID:      rec.ID,
		Name:    rec.Name,
		Config:  h.Factory.PolicyToJSON(*policy),
		Version: rec.Version,
	})
}

// GetPolicy returns one stored policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetPolicy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto, err := h.policyDTO(*rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stored policy config is invalid", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// RecordWellnessVisit records the visit fact for a policy.
func (h *Handler) RecordWellnessVisit(w http.ResponseWriter, r *http.Request) {
	policyID := chi.URLParam(r, "id")

	var req RecordVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if _, err := h.Store.GetPolicy(r.Context(), policyID); err != nil {
		writeDomainError(w, err)
		return
	}

	visitDate, err := parseDateField(w, "visit_date", req.VisitDate)
	if err != nil {
		return
	}

	if err := h.Store.RecordWellnessVisit(r.Context(), policyID, visitDate); err != nil {
		if err == sqlite.ErrVisitAlreadyRecorded {
			writeError(w, http.StatusConflict, "wellness visit already recorded", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record visit", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"policy_id":  policyID,
		"visit_date": visitDate.String(),
	})
}

// RecordCancellation records a cancellation event for a policy.
func (h *Handler) RecordCancellation(w http.ResponseWriter, r *http.Request) {
	policyID := chi.URLParam(r, "id")

	var req RecordCancellationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if _, err := h.Store.GetPolicy(r.Context(), policyID); err != nil {
		writeDomainError(w, err)
		return
	}

	ev, err := h.Factory.ParseCancellationEvent(factory.CancellationEventJSON{
		Kind:        req.Kind,
		EffectiveAt: req.EffectiveAt,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cancellation event", err)
		return
	}

	if err := h.Store.AddCancellationEvent(r.Context(), policyID, ev); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record cancellation", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"policy_id":    policyID,
		"kind":         string(ev.Kind),
		"effective_at": ev.EffectiveAt.String(),
	})
}

// =============================================================================
// CLAIMS
// =============================================================================

// CreateClaim files a claim against a stored policy.
func (h *Handler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	var req CreateClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if _, err := h.Store.GetPolicy(r.Context(), req.PolicyID); err != nil {
		writeDomainError(w, err)
		return
	}

	claim, err := h.Factory.ParseClaim(req.Claim)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if claim.ID == "" {
		claim.ID = coverage.ClaimID(uuid.NewString())
	}

	if err := h.Store.SaveClaim(r.Context(), req.PolicyID, *claim); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save claim", err)
		return
	}

	writeJSON(w, http.StatusCreated, ClaimDTO{
		PolicyID: req.PolicyID,
		Claim:    h.Factory.ClaimToJSON(*claim),
	})
}

// GetClaim returns one stored claim.
func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	claim, policyID, err := h.Store.GetClaim(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClaimDTO{
		PolicyID: policyID,
		Claim:    h.Factory.ClaimToJSON(*claim),
	})
}

// =============================================================================
// VERDICT AUDIT LOG
// =============================================================================

// ListVerdicts returns the most recent audit entries.
func (h *Handler) ListVerdicts(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.Store.ListVerdicts(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list verdicts", err)
		return
	}

	dtos := make([]VerdictDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, VerdictDTO{
			ID:          rec.ID,
			PolicyID:    rec.PolicyID,
			ClaimID:     rec.ClaimID,
			Covered:     rec.Covered,
			Reason:      string(rec.Reason),
			Payable:     rec.Payable.String(),
			EvaluatedAt: rec.EvaluatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResetDatabase clears all data. Dev/demo only.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) policyDTO(rec sqlite.PolicyRecord) (PolicyDTO, error) {
	policy, err := h.Factory.ParsePolicy(rec.ConfigJSON)
	if err != nil {
		return PolicyDTO{}, err
	}
	return PolicyDTO{
		ID:        rec.ID,
		Name:      rec.Name,
		Config:    h.Factory.PolicyToJSON(*policy),
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}, nil
}

// parseDateField parses a YYYY-MM-DD request field, writing a 400 response
// on failure. Callers return immediately when err is non-nil.
func parseDateField(w http.ResponseWriter, field, value string) (calendar.Date, error) {
	d, err := calendar.Parse(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+field, err)
		return calendar.Date{}, err
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps coverage errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case coverage.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case coverage.IsClientError(err):
		writeError(w, http.StatusBadRequest, "invalid input", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
