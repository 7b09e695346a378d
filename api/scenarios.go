/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the store with named demo data sets so the engine can be explored
  from a fresh database. Each scenario loads policies, wellness visits,
  cancellation events and claims that exercise a specific decision path.

SCENARIOS:
  pending-wellness:   Claim inside the confirmation window, no visit yet
  untimely-wellness:  Visit recorded after the six month deadline
  covered-claim:      Standard policy, timely visit, payable claim
  age-exclusion:      Claimant past the age threshold
  term-expiry:        Hospitalization after the policy term ended
  activity-exclusion: Skydiving hospitalization

LOADING:
  Loading a scenario resets the database first, so scenarios are mutually
  exclusive. The verdict log is cleared along with the rest.

SEE ALSO:
  - handlers.go: ListScenarios and LoadScenario endpoints
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/factory"
	"github.com/warp/coverage-engine/store/sqlite"
)

// =============================================================================
// SCENARIO REGISTRY
// =============================================================================

type scenario struct {
	ID          string
	Name        string
	Description string
	Load        func(ctx context.Context, h *Handler) error
}

var scenarios = []scenario{
	{
		ID:          "pending-wellness",
		Name:        "Pending Wellness Window",
		Description: "No wellness visit recorded yet, claim falls inside the seven month confirmation window so the policy is still in effect.",
		Load:        loadPendingWellness,
	},
	{
		ID:          "untimely-wellness",
		Name:        "Untimely Wellness Visit",
		Description: "Wellness visit recorded after the six month deadline, cancelling the policy at the confirmation deadline.",
		Load:        loadUntimelyWellness,
	},
	{
		ID:          "covered-claim",
		Name:        "Covered Claim",
		Description: "Timely wellness visit, no cancellations, claim submitted after the waiting period. Fully payable.",
		Load:        loadCoveredClaim,
	},
	{
		ID:          "age-exclusion",
		Name:        "Age Exclusion",
		Description: "Policy in effect but the claimant is past the age threshold, so the claim is excluded.",
		Load:        loadAgeExclusion,
	},
	{
		ID:          "term-expiry",
		Name:        "Term Expiry",
		Description: "Hospitalization dated after the twelve month term ended.",
		Load:        loadTermExpiry,
	},
	{
		ID:          "activity-exclusion",
		Name:        "Activity Exclusion",
		Description: "Hospitalization caused by skydiving, excluded regardless of policy status.",
		Load:        loadActivityExclusion,
	},
}

// ListScenarios returns available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		dtos = append(dtos, ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var selected *scenario
	for i := range scenarios {
		if scenarios[i].ID == req.ScenarioID {
			selected = &scenarios[i]
			break
		}
	}
	if selected == nil {
		writeError(w, http.StatusNotFound, "unknown scenario: "+req.ScenarioID, nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset before loading", err)
		return
	}
	if err := selected.Load(ctx, h); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load scenario", err)
		return
	}
	h.currentScenario = selected.ID

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": selected.ID,
	})
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

func (h *Handler) seedStandardPolicy(ctx context.Context, id, name, effective, dailyBenefit string) error {
	configJSON := factory.StandardPolicyJSON(id, name, effective, dailyBenefit)
	if _, err := h.Factory.ParsePolicy(configJSON); err != nil {
		return fmt.Errorf("scenario policy %s: %w", id, err)
	}
	return h.Store.SavePolicy(ctx, sqlite.PolicyRecord{
		ID:         id,
		Name:       name,
		ConfigJSON: configJSON,
		Version:    1,
	})
}

func (h *Handler) seedClaim(ctx context.Context, policyID string, cj factory.ClaimJSON) error {
	claim, err := h.Factory.ParseClaim(cj)
	if err != nil {
		return fmt.Errorf("scenario claim for %s: %w", policyID, err)
	}
	if claim.ID == "" {
		claim.ID = coverage.ClaimID(uuid.NewString())
	}
	return h.Store.SaveClaim(ctx, policyID, *claim)
}

func (h *Handler) seedVisit(ctx context.Context, policyID, visitDate string) error {
	d, err := calendar.Parse(visitDate)
	if err != nil {
		return err
	}
	return h.Store.RecordWellnessVisit(ctx, policyID, d)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadPendingWellness(ctx context.Context, h *Handler) error {
	if err := h.seedStandardPolicy(ctx, "pol-pending", "Pending Wellness Policy", "2023-01-01", "150"); err != nil {
		return err
	}
	// Hospitalization at month five: inside the confirmation window, no
	// visit on file. The policy is pending, not cancelled.
	return h.seedClaim(ctx, "pol-pending", factory.ClaimJSON{
		ID:                  "claim-pending",
		HospitalizationDate: "2023-06-01",
		HospitalDays:        3,
		ClaimantAge:         42,
		Cause:               "sickness",
		ProofOfClaimDate:    "2023-06-05",
		SubmissionDate:      "2023-08-15",
	})
}

func loadUntimelyWellness(ctx context.Context, h *Handler) error {
	if err := h.seedStandardPolicy(ctx, "pol-untimely", "Untimely Visit Policy", "2023-01-01", "150"); err != nil {
		return err
	}
	// Visit one day past the six month deadline.
	if err := h.seedVisit(ctx, "pol-untimely", "2023-07-15"); err != nil {
		return err
	}
	return h.seedClaim(ctx, "pol-untimely", factory.ClaimJSON{
		ID:                  "claim-untimely",
		HospitalizationDate: "2023-09-10",
		HospitalDays:        5,
		ClaimantAge:         55,
		Cause:               "accidental_injury",
		ProofOfClaimDate:    "2023-09-12",
		SubmissionDate:      "2023-11-20",
	})
}

func loadCoveredClaim(ctx context.Context, h *Handler) error {
	if err := h.seedStandardPolicy(ctx, "pol-covered", "Covered Claim Policy", "2023-01-01", "200"); err != nil {
		return err
	}
	if err := h.seedVisit(ctx, "pol-covered", "2023-04-10"); err != nil {
		return err
	}
	return h.seedClaim(ctx, "pol-covered", factory.ClaimJSON{
		ID:                  "claim-covered",
		HospitalizationDate: "2023-10-01",
		HospitalDays:        4,
		ClaimantAge:         55,
		Cause:               "sickness",
		ProofOfClaimDate:    "2023-10-05",
		SubmissionDate:      "2023-12-15",
	})
}

func loadAgeExclusion(ctx context.Context, h *Handler) error {
	if err := h.seedStandardPolicy(ctx, "pol-age", "Age Exclusion Policy", "2023-01-01", "150"); err != nil {
		return err
	}
	if err := h.seedVisit(ctx, "pol-age", "2023-03-01"); err != nil {
		return err
	}
	return h.seedClaim(ctx, "pol-age", factory.ClaimJSON{
		ID:                  "claim-age",
		HospitalizationDate: "2023-09-01",
		HospitalDays:        7,
		ClaimantAge:         82,
		Cause:               "sickness",
		ProofOfClaimDate:    "2023-09-03",
		SubmissionDate:      "2023-11-10",
	})
}

func loadTermExpiry(ctx context.Context, h *Handler) error {
	if err := h.seedStandardPolicy(ctx, "pol-term", "Term Expiry Policy", "2023-01-01", "150"); err != nil {
		return err
	}
	if err := h.seedVisit(ctx, "pol-term", "2023-02-15"); err != nil {
		return err
	}
	// Hospitalization a month past the twelve month term.
	return h.seedClaim(ctx, "pol-term", factory.ClaimJSON{
		ID:                  "claim-term",
		HospitalizationDate: "2024-02-01",
		HospitalDays:        2,
		ClaimantAge:         48,
		Cause:               "accidental_injury",
		ProofOfClaimDate:    "2024-02-02",
		SubmissionDate:      "2024-04-10",
	})
}

func loadActivityExclusion(ctx context.Context, h *Handler) error {
	if err := h.seedStandardPolicy(ctx, "pol-activity", "Activity Exclusion Policy", "2023-01-01", "150"); err != nil {
		return err
	}
	if err := h.seedVisit(ctx, "pol-activity", "2023-03-20"); err != nil {
		return err
	}
	return h.seedClaim(ctx, "pol-activity", factory.ClaimJSON{
		ID:                  "claim-activity",
		HospitalizationDate: "2023-08-12",
		HospitalDays:        10,
		ClaimantAge:         33,
		Cause:               "accidental_injury",
		Activity:            "skydiving",
		ProofOfClaimDate:    "2023-08-14",
		SubmissionDate:      "2023-10-20",
	})
}
