package core

import (
	"encoding/json"
	"reflect"
	"testing"
)

// The HR report must survive a JSON round trip without losing fields:
// the async job store and the HTTP surface both serialize it.
func TestHRReport_JSONRoundTrip(t *testing.T) {
	report := HRReport{
		RequestAnalysis: RequestAnalysis{
			Summary:          "accountant search",
			RequiredSkills:   []string{"softone", "accounting"},
			PreferredSkills:  []string{"english"},
			MinExperienceYrs: 5,
		},
		QueryOutcomeSummary:    "3 matched",
		CriteriaExpansionNotes: []string{"relaxed location to region"},
		RankedCandidates: []RankedCandidate{{
			CandidateID:        "c1",
			Evidence:           []string{"5 years at Acme"},
			Gaps:               []string{"no ERP certificate"},
			Risks:              []string{"commute"},
			InterviewFocus:     []string{"ledger closing"},
			OverallSuitability: "High",
			MatchPercentage:    88,
			Category:           RecommendInterview,
		}},
		Recommendation: "interview c1 first",
		FallbackUsed:   false,
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}
	var decoded HRReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(report, decoded) {
		t.Errorf("round trip lost fields:\n got %+v\nwant %+v", decoded, report)
	}
}

func TestQueryRequest_Decode(t *testing.T) {
	body := `{"query":"λογιστής","execute":true,"limit":50,"include_hr_analysis":true,
		"async_hr":false,"use_job_matching":true,"job_id":"j-1","context":{}}`
	var req QueryRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatal(err)
	}
	if req.Query != "λογιστής" || !req.Execute || req.Limit != 50 || !req.IncludeHRAnalysis || !req.UseJobMatching || req.JobID != "j-1" {
		t.Errorf("decoded = %+v", req)
	}
}
