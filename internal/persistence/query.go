package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"cvintake/internal/core"
)

// Query executes a generated SQLQuery and scans the summary columns
// sqlgen.Generate's base SELECT projects into partial
// CandidateProfile values — enough for the router's result list; full
// detail is fetched separately by FetchEnriched for the HR analyzer.
func (d *DB) Query(ctx context.Context, q core.SQLQuery) ([]core.CandidateProfile, error) {
	// Slice-valued params come from the generator's = ANY(...) clauses
	// and need the driver's array wrapper.
	args := make([]any, len(q.Params))
	for i, p := range q.Params {
		switch p.(type) {
		case []any, []string, []int:
			args[i] = pq.Array(p)
		default:
			args[i] = p
		}
	}
	rows, err := d.conn.QueryContext(ctx, q.Text, args...)
	if err != nil {
		return nil, fmt.Errorf("executing generated query: %w", err)
	}
	defer rows.Close()

	var out []core.CandidateProfile
	for rows.Next() {
		var c core.CandidateProfile
		var email, phone, city, region, availability sql.NullString
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&c.ID, &c.Identity.FirstName, &c.Identity.LastName, &email, &phone,
			&city, &region, &availability, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning candidate row: %w", err)
		}
		c.Identity.Email = email.String
		c.Identity.Phone = phone.String
		c.Identity.AddressCity = city.String
		c.Identity.AddressRegion = region.String
		c.Identity.AvailabilityStatus = availability.String
		c.CreatedAt = createdAt
		c.UpdatedAt = updatedAt
		c.IsActive = true
		out = append(out, c)
	}
	return out, rows.Err()
}

// FetchEnriched loads the full JSON view the HR analyzer and
// relaxed matcher operate on — experience, skills, software,
// certifications, languages, education — fetched via a PostgreSQL
// function rather than assembled in Go.
func (d *DB) FetchEnriched(ctx context.Context, candidateIDs []string) ([]core.CandidateProfile, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}
	rows, err := d.conn.QueryContext(ctx, `SELECT get_candidate_full_profile(id) FROM unnest($1::uuid[]) AS id`, pq.Array(candidateIDs))
	if err != nil {
		return nil, fmt.Errorf("calling get_candidate_full_profile: %w", err)
	}
	defer rows.Close()

	var out []core.CandidateProfile
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning enriched profile: %w", err)
		}
		var c core.CandidateProfile
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decoding enriched profile: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CandidateScore is one row of the PostgreSQL relaxed-matching scoring
// function's output: how many of the requested criteria a
// candidate satisfies, without requiring all of them.
type CandidateScore struct {
	CandidateID     string
	SatisfiedCount  int
	TotalCriteria   int
	SatisfiedLabels []string
	MissingLabels   []string
}

// ScoreAgainstCriteria calls the PostgreSQL scoring function that
// ranks active candidates by the subset of requirements they satisfy,
// for use when the strict SQL path returns zero rows.
func (d *DB) ScoreAgainstCriteria(ctx context.Context, criteria []string, limit int) ([]CandidateScore, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT candidate_id, satisfied_count, total_criteria, satisfied_labels, missing_labels
		FROM score_candidates_against_criteria($1::text[])
		ORDER BY satisfied_count DESC
		LIMIT $2
	`, pq.Array(criteria), limit)
	if err != nil {
		return nil, fmt.Errorf("calling score_candidates_against_criteria: %w", err)
	}
	defer rows.Close()

	var out []CandidateScore
	for rows.Next() {
		var s CandidateScore
		var satisfied, missing []byte
		if err := rows.Scan(&s.CandidateID, &s.SatisfiedCount, &s.TotalCriteria, &satisfied, &missing); err != nil {
			return nil, fmt.Errorf("scanning candidate score: %w", err)
		}
		_ = json.Unmarshal(satisfied, &s.SatisfiedLabels)
		_ = json.Unmarshal(missing, &s.MissingLabels)
		out = append(out, s)
	}
	return out, rows.Err()
}
