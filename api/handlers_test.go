/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Inline evaluation (POST /api/evaluate), with and without recording
- Policy lifecycle (create, get, wellness visit, cancellation)
- Stored claim evaluation and the verdict audit log
- Scenario loading
- Error status mapping (400/404/409)
*/
package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/warp/coverage-engine/store/sqlite"
)

// newTestRouter builds a handler over an in-memory store.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewRouter(NewHandler(store))
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// =============================================================================
// INLINE EVALUATION
// =============================================================================

func TestEvaluate_CoveredClaim(t *testing.T) {
	// GIVEN: A router and a fully eligible evaluation request
	router := newTestRouter(t)
	body := `{
		"policy": {"id": "pol-1", "name": "Standard", "effective_date": "2023-01-01", "daily_benefit": "150"},
		"wellness_visit": {"visit_date": "2023-05-01"},
		"claim": {
			"id": "claim-1",
			"hospitalization_date": "2023-10-01",
			"hospital_days": 4,
			"claimant_age": 55,
			"cause": "sickness",
			"proof_of_claim_date": "2023-10-05",
			"submission_date": "2023-12-15"
		}
	}`

	// WHEN: Posting to the evaluate endpoint
	rec := doJSON(t, router, http.MethodPost, "/api/evaluate", body)

	// THEN: The claim is covered with a 600 payable (150 x 4)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var verdict VerdictDTO
	decodeBody(t, rec, &verdict)
	if !verdict.Covered {
		t.Errorf("Expected covered verdict, got reason %s", verdict.Reason)
	}
	if verdict.Reason != "covered" {
		t.Errorf("Expected reason covered, got %s", verdict.Reason)
	}
	if verdict.Payable != "600" {
		t.Errorf("Expected payable 600, got %s", verdict.Payable)
	}
	if verdict.ID != "" {
		t.Errorf("Expected no audit ID without record flag, got %s", verdict.ID)
	}
}

func TestEvaluate_FraudCancellation(t *testing.T) {
	// GIVEN: A fraud cancellation effective before the hospitalization
	router := newTestRouter(t)
	body := `{
		"policy": {"id": "pol-1", "name": "Standard", "effective_date": "2023-01-01", "daily_benefit": "150"},
		"wellness_visit": {"visit_date": "2023-05-01"},
		"cancellation_events": [{"kind": "fraud", "effective_at": "2023-09-01"}],
		"claim": {
			"hospitalization_date": "2023-10-01",
			"hospital_days": 4,
			"claimant_age": 55,
			"cause": "sickness",
			"proof_of_claim_date": "2023-10-05",
			"submission_date": "2023-12-15"
		}
	}`

	// WHEN: Evaluating
	rec := doJSON(t, router, http.MethodPost, "/api/evaluate", body)

	// THEN: The claim is not covered, with zero payable
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var verdict VerdictDTO
	decodeBody(t, rec, &verdict)
	if verdict.Covered {
		t.Error("Expected not covered")
	}
	if verdict.Reason != "policy_cancelled_fraud" {
		t.Errorf("Expected fraud reason, got %s", verdict.Reason)
	}
	if verdict.Payable != "0" {
		t.Errorf("Expected payable 0, got %s", verdict.Payable)
	}
}

func TestEvaluate_RecordAppendsVerdict(t *testing.T) {
	// GIVEN: An evaluation request with the record flag set
	router := newTestRouter(t)
	body := `{
		"record": true,
		"policy": {"id": "pol-1", "name": "Standard", "effective_date": "2023-01-01", "daily_benefit": "150"},
		"wellness_visit": {"visit_date": "2023-05-01"},
		"claim": {
			"id": "claim-1",
			"hospitalization_date": "2023-10-01",
			"hospital_days": 4,
			"claimant_age": 55,
			"cause": "sickness",
			"proof_of_claim_date": "2023-10-05",
			"submission_date": "2023-12-15"
		}
	}`

	// WHEN: Evaluating and then listing verdicts
	rec := doJSON(t, router, http.MethodPost, "/api/evaluate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var verdict VerdictDTO
	decodeBody(t, rec, &verdict)
	if verdict.ID == "" {
		t.Fatal("Expected an audit ID when record is set")
	}

	listRec := doJSON(t, router, http.MethodGet, "/api/verdicts", "")

	// THEN: The verdict appears in the audit log
	if listRec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", listRec.Code)
	}
	var verdicts []VerdictDTO
	decodeBody(t, listRec, &verdicts)
	if len(verdicts) != 1 {
		t.Fatalf("Expected 1 verdict in log, got %d", len(verdicts))
	}
	if verdicts[0].ID != verdict.ID {
		t.Errorf("Expected logged verdict %s, got %s", verdict.ID, verdicts[0].ID)
	}
	if verdicts[0].ClaimID != "claim-1" {
		t.Errorf("Expected claim-1, got %s", verdicts[0].ClaimID)
	}
}

func TestEvaluate_BadRequestMapping(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{
			name: "malformed JSON",
			body: `{not json`,
		},
		{
			name: "invalid date",
			body: `{
				"policy": {"id": "p", "name": "P", "effective_date": "2023-02-30", "daily_benefit": "150"},
				"claim": {"hospitalization_date": "2023-10-01", "claimant_age": 55, "cause": "sickness",
					"proof_of_claim_date": "2023-10-05", "submission_date": "2023-12-15"}
			}`,
		},
		{
			name: "negative claimant age",
			body: `{
				"policy": {"id": "p", "name": "P", "effective_date": "2023-01-01", "daily_benefit": "150"},
				"claim": {"hospitalization_date": "2023-10-01", "claimant_age": -1, "cause": "sickness",
					"proof_of_claim_date": "2023-10-05", "submission_date": "2023-12-15"}
			}`,
		},
		{
			name: "unknown cancellation kind",
			body: `{
				"policy": {"id": "p", "name": "P", "effective_date": "2023-01-01", "daily_benefit": "150"},
				"cancellation_events": [{"kind": "act_of_god", "effective_at": "2023-06-01"}],
				"claim": {"hospitalization_date": "2023-10-01", "claimant_age": 55, "cause": "sickness",
					"proof_of_claim_date": "2023-10-05", "submission_date": "2023-12-15"}
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/evaluate", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

// =============================================================================
// POLICY LIFECYCLE
// =============================================================================

func TestPolicyLifecycle(t *testing.T) {
	// GIVEN: A router
	router := newTestRouter(t)

	// WHEN: Creating a policy
	createBody := `{"config": {"id": "pol-std", "name": "Standard Hospitalization", "effective_date": "2023-01-01", "daily_benefit": "150"}}`
	rec := doJSON(t, router, http.MethodPost, "/api/policies", createBody)

	// THEN: It is created with standard deadline defaults filled in
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created PolicyDTO
	decodeBody(t, rec, &created)
	if created.Config.TermMonths != 12 {
		t.Errorf("Expected default term 12, got %d", created.Config.TermMonths)
	}
	if created.Config.WellnessVisitDeadlineMonths != 6 {
		t.Errorf("Expected default visit deadline 6, got %d", created.Config.WellnessVisitDeadlineMonths)
	}

	// WHEN: Fetching it back
	getRec := doJSON(t, router, http.MethodGet, "/api/policies/pol-std", "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", getRec.Code)
	}
	var fetched PolicyDTO
	decodeBody(t, getRec, &fetched)
	if fetched.ID != "pol-std" || fetched.Name != "Standard Hospitalization" {
		t.Errorf("Unexpected policy: %+v", fetched)
	}

	// AND: Listing includes it
	listRec := doJSON(t, router, http.MethodGet, "/api/policies", "")
	var policies []PolicyDTO
	decodeBody(t, listRec, &policies)
	if len(policies) != 1 {
		t.Errorf("Expected 1 policy, got %d", len(policies))
	}
}

func TestGetPolicy_NotFound(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/policies/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestCreatePolicy_InvalidDeadlineOrdering(t *testing.T) {
	// GIVEN: A config whose confirmation deadline precedes the visit deadline
	router := newTestRouter(t)
	body := `{"config": {
		"id": "pol-bad", "name": "Bad", "effective_date": "2023-01-01",
		"wellness_visit_deadline_months": 6,
		"wellness_confirmation_deadline_months": 5,
		"daily_benefit": "150"
	}}`

	rec := doJSON(t, router, http.MethodPost, "/api/policies", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRecordWellnessVisit_OnlyOnce(t *testing.T) {
	// GIVEN: A stored policy
	router := newTestRouter(t)
	createBody := `{"config": {"id": "pol-1", "name": "P", "effective_date": "2023-01-01", "daily_benefit": "150"}}`
	if rec := doJSON(t, router, http.MethodPost, "/api/policies", createBody); rec.Code != http.StatusCreated {
		t.Fatalf("Policy create failed: %d", rec.Code)
	}

	// WHEN: Recording the visit twice
	visitBody := `{"visit_date": "2023-04-10"}`
	first := doJSON(t, router, http.MethodPost, "/api/policies/pol-1/wellness-visit", visitBody)
	second := doJSON(t, router, http.MethodPost, "/api/policies/pol-1/wellness-visit", visitBody)

	// THEN: First succeeds, second conflicts
	if first.Code != http.StatusCreated {
		t.Errorf("Expected 201 on first visit, got %d: %s", first.Code, first.Body.String())
	}
	if second.Code != http.StatusConflict {
		t.Errorf("Expected 409 on second visit, got %d: %s", second.Code, second.Body.String())
	}
}

func TestRecordCancellation_UnknownPolicy(t *testing.T) {
	router := newTestRouter(t)
	body := `{"kind": "fraud", "effective_at": "2023-06-01"}`
	rec := doJSON(t, router, http.MethodPost, "/api/policies/nope/cancellations", body)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

// =============================================================================
// STORED CLAIM EVALUATION
// =============================================================================

func TestEvaluateStoredClaim(t *testing.T) {
	// GIVEN: A policy with a timely visit and a filed claim
	router := newTestRouter(t)
	createBody := `{"config": {"id": "pol-1", "name": "P", "effective_date": "2023-01-01", "daily_benefit": "200"}}`
	if rec := doJSON(t, router, http.MethodPost, "/api/policies", createBody); rec.Code != http.StatusCreated {
		t.Fatalf("Policy create failed: %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/api/policies/pol-1/wellness-visit", `{"visit_date": "2023-04-10"}`); rec.Code != http.StatusCreated {
		t.Fatalf("Visit record failed: %d", rec.Code)
	}

	claimBody := `{"policy_id": "pol-1", "claim": {
		"id": "claim-1",
		"hospitalization_date": "2023-10-01",
		"hospital_days": 4,
		"claimant_age": 55,
		"cause": "sickness",
		"proof_of_claim_date": "2023-10-05",
		"submission_date": "2023-12-15"
	}}`
	if rec := doJSON(t, router, http.MethodPost, "/api/claims", claimBody); rec.Code != http.StatusCreated {
		t.Fatalf("Claim create failed: %d %s", rec.Code, rec.Body.String())
	}

	// WHEN: Evaluating the stored claim
	rec := doJSON(t, router, http.MethodPost, "/api/policies/pol-1/claims/claim-1/evaluate", "")

	// THEN: Covered, audited, 800 payable
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var verdict VerdictDTO
	decodeBody(t, rec, &verdict)
	if !verdict.Covered {
		t.Errorf("Expected covered, got %s", verdict.Reason)
	}
	if verdict.Payable != "800" {
		t.Errorf("Expected payable 800, got %s", verdict.Payable)
	}
	if verdict.ID == "" {
		t.Error("Expected stored evaluation to be audited")
	}

	listRec := doJSON(t, router, http.MethodGet, "/api/verdicts", "")
	var verdicts []VerdictDTO
	decodeBody(t, listRec, &verdicts)
	if len(verdicts) != 1 {
		t.Errorf("Expected 1 audit entry, got %d", len(verdicts))
	}
}

func TestEvaluateStoredClaim_WrongPolicy(t *testing.T) {
	// GIVEN: A claim filed against pol-1 and a second unrelated policy
	router := newTestRouter(t)
	for _, id := range []string{"pol-1", "pol-2"} {
		body := `{"config": {"id": "` + id + `", "name": "P", "effective_date": "2023-01-01", "daily_benefit": "150"}}`
		if rec := doJSON(t, router, http.MethodPost, "/api/policies", body); rec.Code != http.StatusCreated {
			t.Fatalf("Policy create failed: %d", rec.Code)
		}
	}
	claimBody := `{"policy_id": "pol-1", "claim": {
		"id": "claim-1",
		"hospitalization_date": "2023-10-01",
		"hospital_days": 4,
		"claimant_age": 55,
		"cause": "sickness",
		"proof_of_claim_date": "2023-10-05",
		"submission_date": "2023-12-15"
	}}`
	if rec := doJSON(t, router, http.MethodPost, "/api/claims", claimBody); rec.Code != http.StatusCreated {
		t.Fatalf("Claim create failed: %d", rec.Code)
	}

	// WHEN: Evaluating the claim under the wrong policy
	rec := doJSON(t, router, http.MethodPost, "/api/policies/pol-2/claims/claim-1/evaluate", "")

	// THEN: Not found
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateClaim_GeneratesID(t *testing.T) {
	// GIVEN: A claim filed without an ID
	router := newTestRouter(t)
	createBody := `{"config": {"id": "pol-1", "name": "P", "effective_date": "2023-01-01", "daily_benefit": "150"}}`
	if rec := doJSON(t, router, http.MethodPost, "/api/policies", createBody); rec.Code != http.StatusCreated {
		t.Fatalf("Policy create failed: %d", rec.Code)
	}
	claimBody := `{"policy_id": "pol-1", "claim": {
		"hospitalization_date": "2023-10-01",
		"hospital_days": 4,
		"claimant_age": 55,
		"cause": "sickness",
		"proof_of_claim_date": "2023-10-05",
		"submission_date": "2023-12-15"
	}}`

	rec := doJSON(t, router, http.MethodPost, "/api/claims", claimBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var dto ClaimDTO
	decodeBody(t, rec, &dto)
	if dto.Claim.ID == "" {
		t.Error("Expected a generated claim ID")
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_ListAndLoad(t *testing.T) {
	// GIVEN: A router
	router := newTestRouter(t)

	// WHEN: Listing scenarios
	listRec := doJSON(t, router, http.MethodGet, "/api/scenarios", "")
	if listRec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", listRec.Code)
	}
	var list []ScenarioDTO
	decodeBody(t, listRec, &list)
	if len(list) == 0 {
		t.Fatal("Expected at least one scenario")
	}

	// AND: Loading the covered claim scenario
	loadRec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "covered-claim"}`)
	if loadRec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", loadRec.Code, loadRec.Body.String())
	}

	// THEN: The seeded claim evaluates as covered
	rec := doJSON(t, router, http.MethodPost, "/api/policies/pol-covered/claims/claim-covered/evaluate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var verdict VerdictDTO
	decodeBody(t, rec, &verdict)
	if !verdict.Covered {
		t.Errorf("Expected covered, got %s", verdict.Reason)
	}
}

func TestScenarios_EachLoadsAndEvaluates(t *testing.T) {
	// Every scenario should load cleanly and its claim should evaluate
	// to the decision path it advertises.
	wantReasons := map[string]string{
		"pending-wellness":   "covered",
		"untimely-wellness":  "policy_cancelled_untimely_wellness_visit",
		"covered-claim":      "covered",
		"age-exclusion":      "excluded_age",
		"term-expiry":        "policy_cancelled_term_expired",
		"activity-exclusion": "excluded_activity",
	}
	claimFor := map[string]string{
		"pending-wellness":   "/api/policies/pol-pending/claims/claim-pending/evaluate",
		"untimely-wellness":  "/api/policies/pol-untimely/claims/claim-untimely/evaluate",
		"covered-claim":      "/api/policies/pol-covered/claims/claim-covered/evaluate",
		"age-exclusion":      "/api/policies/pol-age/claims/claim-age/evaluate",
		"term-expiry":        "/api/policies/pol-term/claims/claim-term/evaluate",
		"activity-exclusion": "/api/policies/pol-activity/claims/claim-activity/evaluate",
	}

	router := newTestRouter(t)
	for id, want := range wantReasons {
		t.Run(id, func(t *testing.T) {
			loadRec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "`+id+`"}`)
			if loadRec.Code != http.StatusOK {
				t.Fatalf("Load failed: %d %s", loadRec.Code, loadRec.Body.String())
			}
			rec := doJSON(t, router, http.MethodPost, claimFor[id], "")
			if rec.Code != http.StatusOK {
				t.Fatalf("Evaluate failed: %d %s", rec.Code, rec.Body.String())
			}
			var verdict VerdictDTO
			decodeBody(t, rec, &verdict)
			if verdict.Reason != want {
				t.Errorf("Expected reason %s, got %s", want, verdict.Reason)
			}
		})
	}
}

func TestLoadScenario_Unknown(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

// =============================================================================
// RESET & HEALTH
// =============================================================================

func TestReset_ClearsEverything(t *testing.T) {
	// GIVEN: A loaded scenario
	router := newTestRouter(t)
	if rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "covered-claim"}`); rec.Code != http.StatusOK {
		t.Fatalf("Load failed: %d", rec.Code)
	}

	// WHEN: Resetting
	rec := doJSON(t, router, http.MethodPost, "/api/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	// THEN: No policies remain
	listRec := doJSON(t, router, http.MethodGet, "/api/policies", "")
	var policies []PolicyDTO
	decodeBody(t, listRec, &policies)
	if len(policies) != 0 {
		t.Errorf("Expected no policies after reset, got %d", len(policies))
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("Expected ok status, got %s", rec.Body.String())
	}
}
