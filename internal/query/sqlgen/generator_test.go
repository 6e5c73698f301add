package sqlgen

import (
	"strings"
	"testing"

	"cvintake/internal/core"
)

func TestGenerateDirectEquality(t *testing.T) {
	tree := core.FilterTree{
		Filters: []core.FilterCondition{
			{Field: "location", Operator: core.OpEq, Value: "Αθήνα"},
		},
		Limit: 20,
	}
	sql := Generate(tree)

	if !strings.Contains(sql.Text, "c.address_city = $1") {
		t.Fatalf("expected direct column equality clause, got: %s", sql.Text)
	}
	if len(sql.Params) != 2 { // value + limit
		t.Fatalf("expected 2 params, got %d: %v", len(sql.Params), sql.Params)
	}
	if sql.Params[0] != "Αθήνα" {
		t.Fatalf("unexpected first param: %v", sql.Params[0])
	}
}

func TestGenerateExperienceYearsSubquery(t *testing.T) {
	tree := core.FilterTree{
		Filters: []core.FilterCondition{
			{Field: "experience_years", Operator: core.OpGte, Value: 5},
		},
	}
	sql := Generate(tree)

	if !strings.Contains(sql.Text, "SUM(duration_months)") {
		t.Fatalf("expected experience_years subquery, got: %s", sql.Text)
	}
	if !strings.Contains(sql.Text, ">= $1") {
		t.Fatalf("expected >= comparison on first param, got: %s", sql.Text)
	}
}

func TestGenerateLimitClampedToMax(t *testing.T) {
	cases := []struct {
		limit int
		want  int
	}{
		{10000, core.MaxLLMSuggestedLimit},
		{101, core.MaxLLMSuggestedLimit},
		{100, 100},
		{20, 20},
		{0, core.MaxLLMSuggestedLimit},
	}
	for _, tc := range cases {
		sql := Generate(core.FilterTree{Limit: tc.limit})
		found := false
		for _, p := range sql.Params {
			if p == tc.want {
				found = true
			}
		}
		if !found {
			t.Errorf("limit %d: expected bound limit %d, params: %v", tc.limit, tc.want, sql.Params)
		}
	}
}

func TestGenerateDefaultOrderBy(t *testing.T) {
	sql := Generate(core.FilterTree{})
	if !strings.Contains(sql.Text, "ORDER BY c.updated_at DESC") {
		t.Fatalf("expected default sort, got: %s", sql.Text)
	}
}

func TestGenerateTaxonomyContains(t *testing.T) {
	tree := core.FilterTree{
		Filters: []core.FilterCondition{
			{Field: "skill_ids", Operator: core.OpContains, Value: "Excel"},
		},
	}
	sql := Generate(tree)

	if !strings.Contains(sql.Text, "skill_taxonomy") {
		t.Fatalf("expected skill_taxonomy join, got: %s", sql.Text)
	}
	found := false
	for _, p := range sql.Params {
		if p == "%Excel%" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected wrapped ILIKE value bound as a param, got: %v", sql.Params)
	}
}

func TestGenerateEducationLevelTranslatesToEnumSet(t *testing.T) {
	tree := core.FilterTree{
		Filters: []core.FilterCondition{
			{Field: "education_level", Operator: core.OpAny, Value: []any{"ΑΕΙ"}},
		},
	}
	sql := Generate(tree)
	if !strings.Contains(sql.Text, "degree_level::text") {
		t.Fatalf("expected enum cast to text, got: %s", sql.Text)
	}
	var values []any
	for _, p := range sql.Params {
		if vs, ok := p.([]any); ok {
			values = vs
		}
	}
	if len(values) == 0 {
		t.Fatalf("expected translated education level values, params: %v", sql.Params)
	}
}

func TestGenerateFilterSummary(t *testing.T) {
	tree := core.FilterTree{
		Filters: []core.FilterCondition{
			{Field: "location", Operator: core.OpEq, Value: "Αθήνα"},
		},
	}
	sql := Generate(tree)
	if !strings.Contains(sql.FilterSummary, "location = Αθήνα") {
		t.Fatalf("unexpected filter summary: %s", sql.FilterSummary)
	}
}

func TestGenerateNoFiltersSummary(t *testing.T) {
	sql := Generate(core.FilterTree{})
	if sql.FilterSummary != "No filters" {
		t.Fatalf("expected 'No filters', got %q", sql.FilterSummary)
	}
}
