package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"cvintake/internal/core"
	"cvintake/internal/taxonomy"
)

// taxonomyTables maps each taxonomy kind to its table. The four tables
// share the same shape: canonical_id, name_en, name_el, aliases,
// abbreviations.
var taxonomyTables = map[taxonomy.Kind]string{
	taxonomy.KindSkill:         "skill_taxonomy",
	taxonomy.KindRole:          "role_taxonomy",
	taxonomy.KindSoftware:      "software_taxonomy",
	taxonomy.KindCertification: "certification_taxonomy",
}

// LoadEntries implements taxonomy.AliasSource: it loads every canonical
// entry of a kind with both display names, aliases, and abbreviations,
// feeding the alias cache.
func (d *DB) LoadEntries(ctx context.Context, kind taxonomy.Kind) ([]taxonomy.CanonicalEntry, error) {
	table, ok := taxonomyTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown taxonomy kind %q", kind)
	}

	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT canonical_id, name_en, COALESCE(name_el, ''), COALESCE(aliases, '{}'), COALESCE(abbreviations, '{}')
		FROM %s
	`, table))
	if err != nil {
		return nil, fmt.Errorf("loading %s entries: %w", table, err)
	}
	defer rows.Close()

	var out []taxonomy.CanonicalEntry
	for rows.Next() {
		var e taxonomy.CanonicalEntry
		var aliases, abbreviations []string
		if err := rows.Scan(&e.ID, &e.NameEN, &e.NameEL, pq.Array(&aliases), pq.Array(&abbreviations)); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		e.Aliases = append(aliases, abbreviations...)
		out = append(out, e)
	}
	return out, rows.Err()
}

// BestMatch implements taxonomy.FuzzyMatcher: the tier-3 trigram lookup
// across both display names, top 1, filtered by the low-suggestion
// threshold so callers never see sub-0.60 noise.
func (d *DB) BestMatch(ctx context.Context, kind taxonomy.Kind, normalized string, threshold float64) (*taxonomy.FuzzyMatch, error) {
	table, ok := taxonomyTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown taxonomy kind %q", kind)
	}

	row := d.conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT canonical_id, name_en, COALESCE(name_el, ''),
		       GREATEST(similarity(lower(name_en), $1), similarity(lower(COALESCE(name_el, '')), $1)) AS sim
		FROM %s
		WHERE GREATEST(similarity(lower(name_en), $1), similarity(lower(COALESCE(name_el, '')), $1)) >= $2
		ORDER BY sim DESC
		LIMIT 1
	`, table), normalized, threshold)

	var m taxonomy.FuzzyMatch
	if err := row.Scan(&m.Entry.ID, &m.Entry.NameEN, &m.Entry.NameEL, &m.Similarity); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("trigram lookup in %s: %w", table, err)
	}
	return &m, nil
}

// ListActiveCandidateIDs returns every active candidate id, for the
// bulk reindex path.
func (d *DB) ListActiveCandidateIDs(ctx context.Context) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT id FROM candidates WHERE is_active = true ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing active candidates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListUnmatched returns a candidate's unmatched taxonomy items, for the
// status endpoint's unmatched-data view.
func (d *DB) ListUnmatched(ctx context.Context, candidateID string) ([]core.UnmatchedItem, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT candidate_id, item_type, raw_value, normalized_value, suggested_taxonomy_id, COALESCE(similarity, 0)
		FROM unmatched_taxonomy_items
		WHERE candidate_id = $1
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("listing unmatched items: %w", err)
	}
	defer rows.Close()

	var out []core.UnmatchedItem
	for rows.Next() {
		var item core.UnmatchedItem
		var suggestedID sql.NullString
		var sim float64
		if err := rows.Scan(&item.CandidateID, &item.ItemType, &item.RawValue, &item.NormalizedValue, &suggestedID, &sim); err != nil {
			return nil, err
		}
		if suggestedID.Valid {
			id := suggestedID.String
			item.Suggested = &core.TaxonomyLink{SuggestedTaxonomyID: &id, Similarity: sim, MatchMethod: core.MatchSuggested}
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
