package hr

import (
	"strings"
	"testing"

	"cvintake/internal/core"
)

func TestIsGreekDominant(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"λογιστής με Softone στην Αθήνα", true},
		{"accountants with Softone in Athens", false},
		{"find λογιστής", true}, // 8 of 12 non-space chars are Greek
		{"", false},
		{"SAP FI/CO consultant", false},
	}
	for _, tc := range cases {
		if got := isGreekDominant(tc.query); got != tc.want {
			t.Errorf("isGreekDominant(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		rank        int
		suitability string
		pct         float64
		want        core.Recommendation
	}{
		{0, "Low", 20, core.RecommendInterview},   // top-5 rank wins
		{4, "Low", 10, core.RecommendInterview},   // still top-5
		{7, "High", 40, core.RecommendInterview},  // suitability wins
		{9, "Medium", 70, core.RecommendInterview}, // percentage boundary inclusive
		{9, "Medium", 69.9, core.RecommendConsider},
		{5, "low", 0, core.RecommendConsider},
	}
	for _, tc := range cases {
		if got := categorize(tc.rank, tc.suitability, tc.pct); got != tc.want {
			t.Errorf("categorize(%d, %q, %v) = %s, want %s", tc.rank, tc.suitability, tc.pct, got, tc.want)
		}
	}
}

func TestBuildReport_CategorizesRankedCandidates(t *testing.T) {
	raw := rawReport{Recommendation: "hire the first two"}
	raw.RequestAnalysis.Summary = "accountant search"
	for i := 0; i < 7; i++ {
		raw.RankedCandidates = append(raw.RankedCandidates, struct {
			CandidateID        string   `json:"candidate_id"`
			Evidence           []string `json:"evidence"`
			Gaps               []string `json:"gaps"`
			Risks              []string `json:"risks"`
			InterviewFocus     []string `json:"interview_focus"`
			OverallSuitability string   `json:"overall_suitability"`
			MatchPercentage    float64  `json:"match_percentage"`
		}{CandidateID: string(rune('a' + i)), OverallSuitability: "Medium", MatchPercentage: 40},
		)
	}

	report := buildReport(raw)
	if len(report.RankedCandidates) != 7 {
		t.Fatalf("ranked = %d", len(report.RankedCandidates))
	}
	for i, rc := range report.RankedCandidates {
		want := core.RecommendConsider
		if i < 5 {
			want = core.RecommendInterview
		}
		if rc.Category != want {
			t.Errorf("rank %d category = %s, want %s", i, rc.Category, want)
		}
	}
}

func TestNoCandidatesReport(t *testing.T) {
	report := noCandidatesReport()
	if len(report.RankedCandidates) != 0 {
		t.Errorf("no-candidates report should rank nobody: %+v", report.RankedCandidates)
	}
	if report.RequestAnalysis.Summary == "" || report.Recommendation == "" {
		t.Error("no-candidates report must still be a well-formed report")
	}
}

func TestFallbackReport(t *testing.T) {
	var candidates []core.CandidateProfile
	for i := 0; i < 8; i++ {
		candidates = append(candidates, core.CandidateProfile{ID: string(rune('a' + i))})
	}

	report := fallbackReport(candidates)
	if !report.FallbackUsed {
		t.Error("fallback flag not set")
	}
	if len(report.RankedCandidates) != 5 {
		t.Fatalf("fallback should rank the top 5, got %d", len(report.RankedCandidates))
	}
	for _, rc := range report.RankedCandidates {
		if rc.OverallSuitability != "Medium" || rc.MatchPercentage != 50 {
			t.Errorf("fallback defaults wrong: %+v", rc)
		}
	}
	if !strings.Contains(strings.ToLower(report.QueryOutcomeSummary), "fallback") {
		t.Errorf("summary should note the fallback: %q", report.QueryOutcomeSummary)
	}
}

func TestExtractJSON(t *testing.T) {
	doc, ok := extractJSON("Sure! Here is the analysis:\n{\"recommendation\": \"hire\"}\nLet me know.")
	if !ok || doc != `{"recommendation": "hire"}` {
		t.Errorf("extractJSON = %q, %v", doc, ok)
	}
	if _, ok := extractJSON("no json here"); ok {
		t.Error("expected extraction failure")
	}
}
