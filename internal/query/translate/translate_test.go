package translate

import (
	"errors"
	"testing"

	"cvintake/internal/core"
)

func TestRegexFallbackExtractsExperienceYears(t *testing.T) {
	tree := regexFallback("λογιστής με 5 χρόνια εμπειρία", errors.New("llm down"))
	found := false
	for _, f := range tree.Filters {
		if f.Field == "experience_years" && f.Operator == core.OpGte && f.Value == 5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected experience_years >= 5, got %+v", tree.Filters)
	}
}

func TestRegexFallbackExtractsRoleAndSoftware(t *testing.T) {
	tree := regexFallback("λογιστης με sap", errors.New("llm down"))

	var roleFound, softwareFound bool
	for _, f := range tree.Filters {
		if f.Field == "role_ids" {
			roleFound = true
		}
		if f.Field == "software_ids" {
			softwareFound = true
		}
	}
	if !roleFound {
		t.Fatalf("expected role_ids filter, got %+v", tree.Filters)
	}
	if !softwareFound {
		t.Fatalf("expected software_ids filter, got %+v", tree.Filters)
	}
}

func TestRegexFallbackLocationUnaccented(t *testing.T) {
	tree := regexFallback("υποψηφιοι στην αθηνα", errors.New("llm down"))
	var location any
	for _, f := range tree.Filters {
		if f.Field == "location" {
			location = f.Value
		}
	}
	if location != "Αθήνα" {
		t.Fatalf("expected accented canonical location, got %v", location)
	}
}

func TestRegexFallbackConfidenceCappedAtPoint7(t *testing.T) {
	tree := regexFallback("sap softone pylon 10 χρόνια αθηνα", errors.New("llm down"))
	if tree.Confidence > 0.7 {
		t.Fatalf("expected confidence capped at 0.7, got %f", tree.Confidence)
	}
}

func TestRegexFallbackNoMatchesRequestsClarification(t *testing.T) {
	tree := regexFallback("asdkjasdkjasd", errors.New("llm down"))
	if tree.ClarificationQuestion == "" {
		t.Fatalf("expected a clarification question when nothing matched")
	}
}

func TestRouteClarifiesLowConfidence(t *testing.T) {
	tree := route(core.FilterTree{QueryType: core.QueryStructured, Confidence: 0.2})
	if tree.QueryType != core.QueryClarification {
		t.Fatalf("expected clarification routing, got %s", tree.QueryType)
	}
	if tree.ClarificationQuestion == "" {
		t.Fatalf("expected a generated clarification question")
	}
}

func TestRouteDefaultsToStructuredWithFilters(t *testing.T) {
	tree := route(core.FilterTree{
		Confidence: 0.9,
		Filters:    []core.FilterCondition{{Field: "location", Operator: core.OpEq, Value: "Αθήνα"}},
	})
	if tree.QueryType != core.QueryStructured {
		t.Fatalf("expected structured routing, got %s", tree.QueryType)
	}
}

func TestRouteDefaultsToSemanticWithoutFilters(t *testing.T) {
	tree := route(core.FilterTree{Confidence: 0.9})
	if tree.QueryType != core.QuerySemantic {
		t.Fatalf("expected semantic routing, got %s", tree.QueryType)
	}
}

func TestValidOperatorRejectsUnknown(t *testing.T) {
	if validOperator(core.FilterOperator("bogus")) {
		t.Fatalf("expected unknown operator to be rejected")
	}
	if !validOperator(core.OpContains) {
		t.Fatalf("expected contains to be a valid operator")
	}
}

func TestBuildFilterTreeClampsSuggestedLimit(t *testing.T) {
	cases := []struct {
		limit int
		want  int
	}{
		{250, core.MaxLLMSuggestedLimit},
		{101, core.MaxLLMSuggestedLimit},
		{100, 100},
		{0, 50},
	}
	for _, tc := range cases {
		raw := rawTranslation{QueryType: "structured", Confidence: 0.9, Limit: tc.limit}
		tree := buildFilterTree(raw, "q")
		if tree.Limit != tc.want {
			t.Errorf("limit %d: got %d, want %d", tc.limit, tree.Limit, tc.want)
		}
	}
}

func TestExtractJSONFencedBlock(t *testing.T) {
	text := "Sure, here you go:\n```json\n{\"query_type\": \"structured\", \"confidence\": 0.9, \"filters\": {}}\n```"
	doc, ok := extractJSON(text)
	if !ok {
		t.Fatalf("expected extraction to succeed")
	}
	if doc == "" {
		t.Fatalf("expected non-empty document")
	}
}
