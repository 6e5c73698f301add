package relaxed

import (
	"testing"

	"cvintake/internal/core"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		pct  float64
		want core.MatchLevel
	}{
		{100, core.MatchHigh},
		{70, core.MatchHigh},
		{69.9, core.MatchMedium},
		{40, core.MatchMedium},
		{39.9, core.MatchLow},
		{0, core.MatchLow},
	}
	for _, tc := range cases {
		if got := levelFor(tc.pct); got != tc.want {
			t.Errorf("levelFor(%v) = %s, want %s", tc.pct, got, tc.want)
		}
	}
}

func TestRecommendationFor(t *testing.T) {
	cases := []struct {
		level core.MatchLevel
		pct   float64
		want  core.Recommendation
	}{
		{core.MatchHigh, 80, core.RecommendInterview},
		{core.MatchMedium, 50, core.RecommendConsider},
		{core.MatchLow, 10, core.RecommendSkip},
	}
	for _, tc := range cases {
		if got := recommendationFor(tc.level, tc.pct); got != tc.want {
			t.Errorf("recommendationFor(%s, %v) = %s, want %s", tc.level, tc.pct, got, tc.want)
		}
	}
}

func TestCriteriaFromFilters(t *testing.T) {
	tree := core.FilterTree{Filters: []core.FilterCondition{
		{Field: "experience_years", Operator: core.OpGte, Value: 5},
		{Field: "software_ids", Operator: core.OpContains, Value: "softone"},
	}}

	criteria := criteriaFromFilters(tree)
	if len(criteria) != 2 {
		t.Fatalf("criteria = %v", criteria)
	}
	if criteria[0] != "experience_years gte 5" {
		t.Errorf("criteria[0] = %q", criteria[0])
	}

	if got := criteriaFromFilters(core.FilterTree{}); len(got) != 0 {
		t.Errorf("empty tree should yield no criteria, got %v", got)
	}
}

func TestExtractJSONObject(t *testing.T) {
	doc, ok := extractJSONObject("Here you go: {\"criteria\": [\"5+ years\"]} done")
	if !ok || doc != `{"criteria": ["5+ years"]}` {
		t.Errorf("extractJSONObject = %q, %v", doc, ok)
	}
}
