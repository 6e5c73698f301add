package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"cvintake/internal/core"
	"cvintake/internal/taxonomy"
)

// upsertCandidate runs the duplicate search (by email, then phone,
// then trigram similarity of the normalized full name >= 0.8), then
// inserts or updates.
func (d *DB) upsertCandidate(ctx context.Context, tx *sql.Tx, c *core.CandidateProfile) (string, bool, error) {
	existingID, err := findDuplicate(ctx, tx, c.Identity)
	if err != nil {
		return "", false, &WriteError{Step: StepDuplicateSearch, Err: err}
	}

	if existingID != "" {
		if err := updateCandidate(ctx, tx, existingID, c); err != nil {
			return "", false, &WriteError{Step: StepUpsertCandidate, Err: err}
		}
		return existingID, false, nil
	}

	id, err := insertCandidate(ctx, tx, c)
	if err != nil {
		return "", false, &WriteError{Step: StepUpsertCandidate, Err: err}
	}
	return id, true, nil
}

func findDuplicate(ctx context.Context, tx *sql.Tx, id core.Identity) (string, error) {
	if id.Email != "" {
		var candidateID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM candidates WHERE email = $1 AND is_active = true`, id.Email).Scan(&candidateID)
		if err == nil {
			return candidateID, nil
		}
		if err != sql.ErrNoRows {
			return "", err
		}
	}
	if id.Phone != "" {
		var candidateID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM candidates WHERE phone = $1 AND is_active = true`, id.Phone).Scan(&candidateID)
		if err == nil {
			return candidateID, nil
		}
		if err != sql.ErrNoRows {
			return "", err
		}
	}
	if id.FirstNameFolded != "" && id.LastNameFolded != "" {
		normalizedName := id.FirstNameFolded + " " + id.LastNameFolded
		var candidateID string
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM candidates
			WHERE similarity(full_name_search, $1) >= 0.8 AND is_active = true
			ORDER BY similarity(full_name_search, $1) DESC
			LIMIT 1
		`, normalizedName).Scan(&candidateID)
		if err == nil {
			return candidateID, nil
		}
		if err != sql.ErrNoRows {
			return "", err
		}
	}
	return "", nil
}

func insertCandidate(ctx context.Context, tx *sql.Tx, c *core.CandidateProfile) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `
		INSERT INTO candidates (
			first_name, last_name, first_name_normalized, last_name_normalized,
			email, phone, date_of_birth, gender, nationality, military_status,
			willing_to_relocate, availability_status,
			address_city, address_region, address_country,
			quality_score, quality_level, raw_cv_text, is_active, full_name_search
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,true,$3 || ' ' || $4)
		RETURNING id
	`,
		c.Identity.FirstName, c.Identity.LastName, c.Identity.FirstNameFolded, c.Identity.LastNameFolded,
		nullable(c.Identity.Email), nullable(c.Identity.Phone), c.Identity.DateOfBirth, c.Identity.Gender, c.Identity.Nationality, c.Identity.MilitaryStatus,
		c.Identity.WillingToRelocate, c.Identity.AvailabilityStatus,
		c.Identity.AddressCity, c.Identity.AddressRegion, c.Identity.AddressCountry,
		c.CompletenessScore, c.QualityLevel, c.RawText,
	).Scan(&id)
	return id, err
}

func updateCandidate(ctx context.Context, tx *sql.Tx, candidateID string, c *core.CandidateProfile) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE candidates SET
			first_name = COALESCE(NULLIF($2, ''), first_name),
			last_name = COALESCE(NULLIF($3, ''), last_name),
			email = COALESCE(NULLIF($4, ''), email),
			phone = COALESCE(NULLIF($5, ''), phone),
			address_city = COALESCE(NULLIF($6, ''), address_city),
			address_region = COALESCE(NULLIF($7, ''), address_region),
			quality_score = GREATEST(quality_score, $8),
			quality_level = $9,
			updated_at = NOW()
		WHERE id = $1
	`, candidateID, c.Identity.FirstName, c.Identity.LastName, c.Identity.Email, c.Identity.Phone,
		c.Identity.AddressCity, c.Identity.AddressRegion, c.CompletenessScore, c.QualityLevel)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// expectedCounts is the per-table count the post-write verification
// compares against, split matched/unmatched for proficiencies.
type expectedCounts struct {
	Education       int
	Experience      int
	SkillsMatched   int
	Languages       int
	Certifications  int
	DrivingLicenses int
	Software        int
}

// insertHistoriesAndProficiencies writes the ordered histories,
// confident-match proficiencies, and unmatched items into their own
// table (idempotent on (candidate, type, normalized_value)).
func insertHistoriesAndProficiencies(ctx context.Context, tx *sql.Tx, candidateID string, c *core.CandidateProfile) (expectedCounts, int, error) {
	var expected expectedCounts
	unmatchedTotal := 0

	for i, e := range c.Education {
		if err := insertEducation(ctx, tx, candidateID, i, e); err != nil {
			return expected, 0, fmt.Errorf("education[%d]: %w", i, err)
		}
		expected.Education++
	}
	for i, e := range c.Experience {
		if err := insertExperience(ctx, tx, candidateID, i, e); err != nil {
			return expected, 0, fmt.Errorf("experience[%d]: %w", i, err)
		}
		expected.Experience++
	}
	for _, s := range c.Skills {
		matched, err := insertProficiency(ctx, tx, candidateID, "skill", "candidate_skills", s.Name, s.Level, s.Taxonomy)
		if err != nil {
			return expected, 0, fmt.Errorf("skill %q: %w", s.Name, err)
		}
		if matched {
			expected.SkillsMatched++
		} else {
			unmatchedTotal++
		}
	}
	for _, s := range c.Software {
		matched, err := insertProficiency(ctx, tx, candidateID, "software", "candidate_software", s.Name, "", s.Taxonomy)
		if err != nil {
			return expected, 0, fmt.Errorf("software %q: %w", s.Name, err)
		}
		if matched {
			expected.Software++
		} else {
			unmatchedTotal++
		}
	}
	for _, cert := range c.Certifications {
		matched, err := insertProficiency(ctx, tx, candidateID, "certification", "candidate_certifications", cert.Name, cert.Issuer, cert.Taxonomy)
		if err != nil {
			return expected, 0, fmt.Errorf("certification %q: %w", cert.Name, err)
		}
		if matched {
			expected.Certifications++
		} else {
			unmatchedTotal++
		}
	}
	for _, l := range c.Languages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO candidate_languages (candidate_id, name, code, level)
			VALUES ($1,$2,$3,$4)
		`, candidateID, l.Name, l.Code, l.Level); err != nil {
			return expected, 0, fmt.Errorf("language %q: %w", l.Name, err)
		}
		expected.Languages++
	}
	for _, dl := range c.DrivingLicenses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO candidate_driving_licenses (candidate_id, category) VALUES ($1,$2)
		`, candidateID, dl.Category); err != nil {
			return expected, 0, fmt.Errorf("driving license %q: %w", dl.Category, err)
		}
		expected.DrivingLicenses++
	}
	for _, t := range c.Training {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO candidate_training (candidate_id, name, event_date) VALUES ($1,$2,$3)
		`, candidateID, t.Name, t.Date); err != nil {
			return expected, 0, fmt.Errorf("training %q: %w", t.Name, err)
		}
	}

	return expected, unmatchedTotal, nil
}

func insertEducation(ctx context.Context, tx *sql.Tx, candidateID string, seq int, e core.EducationEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO candidate_education
			(candidate_id, sequence, institution, degree, field_of_study, level, start_date, end_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, candidateID, seq, e.Institution, e.Degree, e.FieldOfStudy, e.Level, e.DateRange.Start, e.DateRange.End)
	return err
}

func insertExperience(ctx context.Context, tx *sql.Tx, candidateID string, seq int, e core.ExperienceEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO candidate_experience
			(candidate_id, sequence, title, company, description, start_date, end_date, duration_months, is_current, role_taxonomy_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, candidateID, seq, e.Title, e.Company, e.Description, e.DateRange.Start, e.DateRange.End, e.DurationMonths, e.IsCurrent, e.Role.TaxonomyID)
	return err
}

// insertProficiency writes a confident match into its proficiency table,
// or (when unmatched) into the shared unmatched_taxonomy_items table,
// so an unknown term never blocks ingestion. Returns whether it was a
// confident match.
func insertProficiency(ctx context.Context, tx *sql.Tx, candidateID, itemType, table, name, extra string, link core.TaxonomyLink) (bool, error) {
	if !link.Unmatched() {
		var err error
		switch table {
		case "candidate_skills":
			_, err = tx.ExecContext(ctx, `
				INSERT INTO candidate_skills (candidate_id, name, level, taxonomy_id, match_method, similarity)
				VALUES ($1,$2,$3,$4,$5,$6)
			`, candidateID, name, extra, link.TaxonomyID, link.MatchMethod, link.Similarity)
		case "candidate_software":
			_, err = tx.ExecContext(ctx, `
				INSERT INTO candidate_software (candidate_id, name, taxonomy_id, match_method, similarity)
				VALUES ($1,$2,$3,$4,$5)
			`, candidateID, name, link.TaxonomyID, link.MatchMethod, link.Similarity)
		case "candidate_certifications":
			_, err = tx.ExecContext(ctx, `
				INSERT INTO candidate_certifications (candidate_id, name, issuer, taxonomy_id, match_method, similarity)
				VALUES ($1,$2,$3,$4,$5,$6)
			`, candidateID, name, extra, link.TaxonomyID, link.MatchMethod, link.Similarity)
		}
		return true, err
	}

	normalized := taxonomy.Normalize(name)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO unmatched_taxonomy_items (candidate_id, item_type, raw_value, normalized_value, suggested_taxonomy_id, similarity)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (candidate_id, item_type, normalized_value) DO NOTHING
	`, candidateID, itemType, name, normalized, link.SuggestedTaxonomyID, link.Similarity)
	return false, err
}
