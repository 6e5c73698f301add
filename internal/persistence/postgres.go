// Package persistence implements the Relational Writer: a
// transactional write sequence over the candidate schema with
// post-write verification, plus the query-side reads, the taxonomy
// alias source, and the schema migrations.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"cvintake/internal/core"
)

// purgeTables is the set of per-candidate child tables deleted before
// re-insert on every update.
var purgeTables = []string{
	"candidate_education",
	"candidate_experience",
	"candidate_skills",
	"candidate_languages",
	"candidate_certifications",
	"candidate_training",
	"candidate_driving_licenses",
	"candidate_software",
}

// DB wraps a *sql.DB. The writer forces a fresh connection per
// request: NewDB opens a brand-new *sql.DB (not a shared pool) for
// every write so a long-lived aborted-transaction connection can never
// silently poison a later write.
type DB struct {
	conn *sql.DB
}

// NewDB opens a fresh connection to connStr. Callers (the pipeline's
// write step) call this once per write request, never reusing a
// container-lifetime pool.
func NewDB(connStr string) (*DB, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	conn.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (d *DB) Close() error { return d.conn.Close() }

// WriteStep names the steps of the transactional write sequence, for
// the typed error returned on failure.
type WriteStep string

const (
	StepDuplicateSearch WriteStep = "duplicate_search"
	StepUpsertCandidate WriteStep = "upsert_candidate"
	StepPurgeChildren   WriteStep = "purge_children"
	StepInsertHistories WriteStep = "insert_histories"
	StepInsertConsent   WriteStep = "insert_consent"
	StepReplaceParsed   WriteStep = "replace_parsed_json"
	StepReplaceRawText  WriteStep = "replace_raw_text"
	StepInsertWarnings  WriteStep = "insert_warnings"
)

// WriteError carries the step at which a transactional write failed.
type WriteError struct {
	Step WriteStep
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write step %s failed: %v", e.Step, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// WriteResult is returned on a successful candidate write.
type WriteResult struct {
	CandidateID string
	Created     bool
}

// Write runs the full seven-step transactional sequence and returns
// the verification outcome alongside the result.
func (d *DB) Write(ctx context.Context, c *core.CandidateProfile, warnings []core.QualityWarning) (WriteResult, core.WriteVerification, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return WriteResult{}, core.WriteVerification{}, &WriteError{Step: StepDuplicateSearch, Err: err}
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	candidateID, created, err := d.upsertCandidate(ctx, tx, c)
	if err != nil {
		return WriteResult{}, core.WriteVerification{}, err
	}
	c.ID = candidateID

	if !created {
		if err := purgeChildren(ctx, tx, candidateID); err != nil {
			return WriteResult{}, core.WriteVerification{}, &WriteError{Step: StepPurgeChildren, Err: err}
		}
	}

	expected, unmatchedCount, err := insertHistoriesAndProficiencies(ctx, tx, candidateID, c)
	if err != nil {
		return WriteResult{}, core.WriteVerification{}, &WriteError{Step: StepInsertHistories, Err: err}
	}

	if err := insertConsent(ctx, tx, candidateID); err != nil {
		return WriteResult{}, core.WriteVerification{}, &WriteError{Step: StepInsertConsent, Err: err}
	}
	if err := replaceParsedJSON(ctx, tx, candidateID, c.StructurerJSON); err != nil {
		return WriteResult{}, core.WriteVerification{}, &WriteError{Step: StepReplaceParsed, Err: err}
	}
	if err := replaceRawText(ctx, tx, candidateID, c.RawText); err != nil {
		return WriteResult{}, core.WriteVerification{}, &WriteError{Step: StepReplaceRawText, Err: err}
	}
	if err := insertWarnings(ctx, tx, candidateID, warnings); err != nil {
		return WriteResult{}, core.WriteVerification{}, &WriteError{Step: StepInsertWarnings, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return WriteResult{}, core.WriteVerification{}, &WriteError{Step: StepInsertWarnings, Err: err}
	}

	verification := verifyWrite(ctx, d.conn, candidateID, expected, unmatchedCount)
	return WriteResult{CandidateID: candidateID, Created: created}, verification, nil
}

func purgeChildren(ctx context.Context, tx *sql.Tx, candidateID string) error {
	for _, table := range purgeTables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE candidate_id = $1", table), candidateID); err != nil {
			return fmt.Errorf("purging %s: %w", table, err)
		}
	}
	return nil
}

func insertConsent(ctx context.Context, tx *sql.Tx, candidateID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO consent_records (candidate_id, consent_type, granted, granted_at)
		VALUES ($1, 'data_processing', true, NOW())
		ON CONFLICT (candidate_id, consent_type) DO UPDATE SET granted = true, granted_at = NOW()
	`, candidateID)
	return err
}

func replaceParsedJSON(ctx context.Context, tx *sql.Tx, candidateID, parsedJSON string) error {
	_, err := tx.ExecContext(ctx, `UPDATE candidates SET structurer_json = $2 WHERE id = $1`, candidateID, parsedJSON)
	return err
}

func replaceRawText(ctx context.Context, tx *sql.Tx, candidateID, rawText string) error {
	_, err := tx.ExecContext(ctx, `UPDATE candidates SET raw_cv_text = $2 WHERE id = $1`, candidateID, rawText)
	return err
}

func insertWarnings(ctx context.Context, tx *sql.Tx, candidateID string, warnings []core.QualityWarning) error {
	for _, w := range warnings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cv_quality_warnings
				(candidate_id, category, severity, field, section, original_value, suggested_value, was_auto_fixed, llm_detected, message_en, message_el)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, candidateID, w.Category, w.Severity, w.Field, w.Section, w.Original, w.Suggested, w.WasAutoFixed, w.LLMDetected, w.MessageEN, w.MessageEL)
		if err != nil {
			return fmt.Errorf("inserting warning %s/%s: %w", w.Category, w.Field, err)
		}
	}
	return nil
}
