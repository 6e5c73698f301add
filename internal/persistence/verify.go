package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"cvintake/internal/core"
)

// verifyWrite is the post-write verification: re-count each
// history/proficiency table for the candidate and compare against the
// counts expected from the write just committed. History/skill mismatches
// are errors; languages/certifications/licenses/software mismatches are
// warnings; unmatched-item counts are reported informationally (never an
// error or warning).
func verifyWrite(ctx context.Context, conn *sql.DB, candidateID string, expected expectedCounts, expectedUnmatched int) core.WriteVerification {
	var v core.WriteVerification

	checkErr := func(table, label string, want int) {
		got, err := countRows(ctx, conn, table, candidateID)
		if err != nil {
			v.Errors = append(v.Errors, fmt.Sprintf("%s: count query failed: %v", label, err))
			return
		}
		if got != want {
			v.Errors = append(v.Errors, fmt.Sprintf("%s: expected %d rows, found %d", label, want, got))
		}
	}
	checkWarn := func(table, label string, want int) {
		got, err := countRows(ctx, conn, table, candidateID)
		if err != nil {
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s: count query failed: %v", label, err))
			return
		}
		if got != want {
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s: expected %d rows, found %d", label, want, got))
		}
	}

	checkErr("candidate_education", "education", expected.Education)
	checkErr("candidate_experience", "experience", expected.Experience)
	checkErr("candidate_skills", "skills", expected.SkillsMatched)

	checkWarn("candidate_languages", "languages", expected.Languages)
	checkWarn("candidate_certifications", "certifications", expected.Certifications)
	checkWarn("candidate_driving_licenses", "driving_licenses", expected.DrivingLicenses)
	checkWarn("candidate_software", "software", expected.Software)

	unmatchedGot, err := countRows(ctx, conn, "unmatched_taxonomy_items", candidateID)
	if err != nil {
		v.Info = append(v.Info, fmt.Sprintf("unmatched_items: count query failed: %v", err))
	} else {
		v.Info = append(v.Info, fmt.Sprintf("unmatched_items: %d rows (expected at least %d this write)", unmatchedGot, expectedUnmatched))
	}

	return v
}

func countRows(ctx context.Context, conn *sql.DB, table, candidateID string) (int, error) {
	var n int
	err := conn.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE candidate_id = $1", table), candidateID).Scan(&n)
	return n, err
}
