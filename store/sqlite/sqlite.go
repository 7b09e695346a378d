/*
Package sqlite provides SQLite-backed persistence for the coverage engine.

PURPOSE:
  Stores policy configs, wellness visits, cancellation events, claims, and
  the verdict audit log. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  policies:            Policy configs (JSON, versioned)
  wellness_visits:     At most one visit per policy; never retracted
  cancellation_events: Dated cancellation facts per policy
  claims:              Claim records
  verdicts:            Append-only audit log of evaluations

APPEND-ONLY ENFORCEMENT:
  The verdicts table is an audit log:
  - No UPDATE statements on verdicts
  - No DELETE statements on verdicts (Reset excepted, dev only)
  A re-evaluation appends a new verdict row; history is never rewritten.

WELLNESS VISIT SEMANTICS:
  A visit row is written once per policy. Recording a second visit is a
  conflict (ErrVisitAlreadyRecorded) - the domain treats visit facts as
  immutable once supplied. A policy with no row simply has no visit yet.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers
  don't block, single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/coverage.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - coverage/errors.go: not-found sentinels returned by the getters
  - api/handlers.go: the main consumer
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
)

// ErrVisitAlreadyRecorded is returned when a second wellness visit is
// recorded against the same policy.
var ErrVisitAlreadyRecorded = errors.New("wellness visit already recorded")

// Store implements persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Policies
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Wellness visits (at most one per policy, never retracted)
	CREATE TABLE IF NOT EXISTS wellness_visits (
		policy_id TEXT PRIMARY KEY,
		visit_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Cancellation events
	CREATE TABLE IF NOT EXISTS cancellation_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		policy_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		effective_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cancellation_events_policy
		ON cancellation_events(policy_id, effective_at);

	-- Claims
	CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL,
		hospitalization_date TEXT NOT NULL,
		hospital_days INTEGER NOT NULL DEFAULT 0,
		claimant_age INTEGER NOT NULL,
		cause TEXT NOT NULL,
		activity TEXT NOT NULL,
		proof_of_claim_date TEXT NOT NULL,
		submission_date TEXT NOT NULL,
		dispute_arose_date TEXT,
		arbitration_commenced_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_claims_policy
		ON claims(policy_id, hospitalization_date);

	-- Verdicts (append-only audit log)
	CREATE TABLE IF NOT EXISTS verdicts (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL,
		claim_id TEXT NOT NULL,
		covered BOOLEAN NOT NULL,
		reason TEXT NOT NULL,
		payable TEXT NOT NULL,
		evaluated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_verdicts_policy
		ON verdicts(policy_id, evaluated_at DESC);
	CREATE INDEX IF NOT EXISTS idx_verdicts_claim
		ON verdicts(claim_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// POLICIES
// =============================================================================

// PolicyRecord is the stored form of a policy: its JSON config plus
// bookkeeping fields.
type PolicyRecord struct {
	ID         string
	Name       string
	ConfigJSON string
	Version    int
	CreatedAt  time.Time
}

// SavePolicy inserts or updates a policy config.
func (s *Store) SavePolicy(ctx context.Context, p PolicyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO policies (id, name, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = policies.version + 1,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.ConfigJSON, p.Version, now, now)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

// GetPolicy returns one policy record.
func (s *Store) GetPolicy(ctx context.Context, id string) (*PolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p PolicyRecord
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, config_json, version, created_at
		FROM policies WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.ConfigJSON, &p.Version, &createdAt)
	if err == sql.ErrNoRows {
		return nil, coverage.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// ListPolicies returns all policy records.
func (s *Store) ListPolicies(ctx context.Context) ([]PolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, config_json, version, created_at
		FROM policies ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var records []PolicyRecord
	for rows.Next() {
		var p PolicyRecord
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.ConfigJSON, &p.Version, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, p)
	}
	return records, rows.Err()
}

// =============================================================================
// WELLNESS VISITS
// =============================================================================

// RecordWellnessVisit stores the visit fact for a policy. Recording a
// second visit for the same policy fails with ErrVisitAlreadyRecorded.
func (s *Store) RecordWellnessVisit(ctx context.Context, policyID string, visitDate calendar.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wellness_visits (policy_id, visit_date, created_at)
		VALUES (?, ?, ?)
	`, policyID, visitDate.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrVisitAlreadyRecorded
		}
		return fmt.Errorf("failed to record wellness visit: %w", err)
	}
	return nil
}

// GetWellnessVisit returns the visit record for a policy. A policy with no
// recorded visit yields the zero record, not an error.
func (s *Store) GetWellnessVisit(ctx context.Context, policyID string) (coverage.WellnessVisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var visitDate string
	err := s.db.QueryRowContext(ctx, `
		SELECT visit_date FROM wellness_visits WHERE policy_id = ?
	`, policyID).Scan(&visitDate)
	if err == sql.ErrNoRows {
		return coverage.WellnessVisitRecord{}, nil
	}
	if err != nil {
		return coverage.WellnessVisitRecord{}, fmt.Errorf("failed to get wellness visit: %w", err)
	}

	d, err := calendar.Parse(visitDate)
	if err != nil {
		return coverage.WellnessVisitRecord{}, err
	}
	return coverage.WellnessVisitRecord{VisitDate: d}, nil
}

// =============================================================================
// CANCELLATION EVENTS
// =============================================================================

// AddCancellationEvent records a dated cancellation fact against a policy.
func (s *Store) AddCancellationEvent(ctx context.Context, policyID string, ev coverage.CancellationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cancellation_events (policy_id, kind, effective_at, created_at)
		VALUES (?, ?, ?, ?)
	`, policyID, string(ev.Kind), ev.EffectiveAt.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to add cancellation event: %w", err)
	}
	return nil
}

// ListCancellationEvents returns the recorded events for a policy ordered
// by effective date.
func (s *Store) ListCancellationEvents(ctx context.Context, policyID string) ([]coverage.CancellationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, effective_at FROM cancellation_events
		WHERE policy_id = ? ORDER BY effective_at ASC
	`, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cancellation events: %w", err)
	}
	defer rows.Close()

	var events []coverage.CancellationEvent
	for rows.Next() {
		var kind, effectiveAt string
		if err := rows.Scan(&kind, &effectiveAt); err != nil {
			return nil, err
		}
		d, err := calendar.Parse(effectiveAt)
		if err != nil {
			return nil, err
		}
		events = append(events, coverage.CancellationEvent{
			Kind:        coverage.CancellationKind(kind),
			EffectiveAt: d,
		})
	}
	return events, rows.Err()
}

// =============================================================================
// CLAIMS
// =============================================================================

// SaveClaim stores a claim against a policy.
func (s *Store) SaveClaim(ctx context.Context, policyID string, c coverage.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claims
		(id, policy_id, hospitalization_date, hospital_days, claimant_age, cause, activity,
		 proof_of_claim_date, submission_date, dispute_arose_date, arbitration_commenced_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(c.ID), policyID,
		c.HospitalizationDate.String(), c.HospitalDays, c.ClaimantAge,
		string(c.Cause), string(c.Activity),
		c.ProofOfClaimDate.String(), c.SubmissionDate.String(),
		nullDate(c.DisputeAroseDate), nullDate(c.ArbitrationCommencedDate),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save claim: %w", err)
	}
	return nil
}

// GetClaim returns one claim and the policy it was filed against.
func (s *Store) GetClaim(ctx context.Context, id string) (*coverage.Claim, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c coverage.Claim
	var claimID, policyID, cause, activity string
	var hosp, proof, submission string
	var dispute, arbitration sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, policy_id, hospitalization_date, hospital_days, claimant_age, cause, activity,
		       proof_of_claim_date, submission_date, dispute_arose_date, arbitration_commenced_date
		FROM claims WHERE id = ?
	`, id).Scan(&claimID, &policyID, &hosp, &c.HospitalDays, &c.ClaimantAge, &cause, &activity,
		&proof, &submission, &dispute, &arbitration)
	if err == sql.ErrNoRows {
		return nil, "", coverage.ErrClaimNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get claim: %w", err)
	}

	c.ID = coverage.ClaimID(claimID)
	c.Cause = coverage.CauseCategory(cause)
	c.Activity = coverage.ActivityTag(activity)
	if c.HospitalizationDate, err = calendar.Parse(hosp); err != nil {
		return nil, "", err
	}
	if c.ProofOfClaimDate, err = calendar.Parse(proof); err != nil {
		return nil, "", err
	}
	if c.SubmissionDate, err = calendar.Parse(submission); err != nil {
		return nil, "", err
	}
	if dispute.Valid && dispute.String != "" {
		if c.DisputeAroseDate, err = calendar.Parse(dispute.String); err != nil {
			return nil, "", err
		}
	}
	if arbitration.Valid && arbitration.String != "" {
		if c.ArbitrationCommencedDate, err = calendar.Parse(arbitration.String); err != nil {
			return nil, "", err
		}
	}
	return &c, policyID, nil
}

// =============================================================================
// VERDICT AUDIT LOG (append-only)
// =============================================================================

// VerdictRecord is one entry in the verdict audit log.
type VerdictRecord struct {
	ID          string
	PolicyID    string
	ClaimID     string
	Covered     bool
	Reason      coverage.ReasonCode
	Payable     decimal.Decimal
	EvaluatedAt time.Time
}

// AppendVerdict adds an entry to the audit log. Entries are never updated
// or deleted; re-evaluations append new rows.
func (s *Store) AppendVerdict(ctx context.Context, v VerdictRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verdicts (id, policy_id, claim_id, covered, reason, payable, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.PolicyID, v.ClaimID, v.Covered, string(v.Reason), v.Payable.String(),
		v.EvaluatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append verdict: %w", err)
	}
	return nil
}

// ListVerdicts returns the most recent audit entries, newest first.
func (s *Store) ListVerdicts(ctx context.Context, limit int) ([]VerdictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, policy_id, claim_id, covered, reason, payable, evaluated_at
		FROM verdicts ORDER BY evaluated_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts: %w", err)
	}
	defer rows.Close()

	var records []VerdictRecord
	for rows.Next() {
		var v VerdictRecord
		var reason, payable, evaluatedAt string
		if err := rows.Scan(&v.ID, &v.PolicyID, &v.ClaimID, &v.Covered, &reason, &payable, &evaluatedAt); err != nil {
			return nil, err
		}
		v.Reason = coverage.ReasonCode(reason)
		if v.Payable, err = decimal.NewFromString(payable); err != nil {
			return nil, fmt.Errorf("corrupt payable on verdict %s: %w", v.ID, err)
		}
		v.EvaluatedAt, _ = time.Parse(time.RFC3339, evaluatedAt)
		records = append(records, v)
	}
	return records, rows.Err()
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears all data. Dev/demo only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"verdicts", "claims", "cancellation_events", "wellness_visits", "policies"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

func nullDate(d calendar.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
