package taxonomy

import (
	"context"
	"testing"
)

type fakeSource struct{ entries []CanonicalEntry }

func (f fakeSource) LoadEntries(ctx context.Context, kind Kind) ([]CanonicalEntry, error) {
	return f.entries, nil
}

type fakeFuzzy struct{ match *FuzzyMatch }

func (f fakeFuzzy) BestMatch(ctx context.Context, kind Kind, normalized string, threshold float64) (*FuzzyMatch, error) {
	return f.match, nil
}

func TestMapper_ExactMatch(t *testing.T) {
	src := fakeSource{entries: []CanonicalEntry{{ID: "skill-sap", NameEN: "SAP", NameEL: "ΣΑΠ"}}}
	cache := NewCache(src, 0)
	m := NewMapper(cache, nil, nil, 96)

	link, err := m.Map(context.Background(), KindSkill, "SAP")
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if link.MatchMethod != "exact" || link.TaxonomyID == nil || *link.TaxonomyID != "skill-sap" {
		t.Fatalf("expected exact match on skill-sap, got %+v", link)
	}
	if link.Similarity != 1.0 {
		t.Fatalf("expected similarity 1.0, got %f", link.Similarity)
	}
}

func TestMapper_SubstringMatch(t *testing.T) {
	src := fakeSource{entries: []CanonicalEntry{{ID: "skill-softone", NameEN: "Softone ERP"}}}
	cache := NewCache(src, 0)
	m := NewMapper(cache, nil, nil, 96)

	link, err := m.Map(context.Background(), KindSkill, "softone")
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if link.MatchMethod != "substring" || link.Similarity != 0.9 {
		t.Fatalf("expected substring match at 0.9, got %+v", link)
	}
}

func TestMapper_FuzzyConfidentVsSuggested(t *testing.T) {
	src := fakeSource{}
	cache := NewCache(src, 0)

	confident := fakeFuzzy{match: &FuzzyMatch{Entry: CanonicalEntry{ID: "skill-x"}, Similarity: 0.8}}
	m := NewMapper(cache, confident, nil, 96)
	link, _ := m.Map(context.Background(), KindSkill, "xskillzzz")
	if link.MatchMethod != "fuzzy" {
		t.Fatalf("expected confident fuzzy, got %+v", link)
	}

	suggested := fakeFuzzy{match: &FuzzyMatch{Entry: CanonicalEntry{ID: "skill-y"}, Similarity: 0.65}}
	m2 := NewMapper(cache, suggested, nil, 96)
	link2, _ := m2.Map(context.Background(), KindSkill, "yskillzzz")
	if link2.MatchMethod != "fuzzy_suggested" || link2.TaxonomyID != nil {
		t.Fatalf("expected fuzzy_suggested with no confident id, got %+v", link2)
	}
}

func TestMapper_NoMatch(t *testing.T) {
	cache := NewCache(fakeSource{}, 0)
	m := NewMapper(cache, fakeFuzzy{match: nil}, nil, 96)
	link, _ := m.Map(context.Background(), KindSkill, "totally-unknown-thing")
	if link.MatchMethod != "none" || !link.Unmatched() {
		t.Fatalf("expected unmatched none, got %+v", link)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0}
	if sim := cosineSimilarity(a, b); sim < 0.999 {
		t.Fatalf("expected ~1.0 for identical vectors, got %f", sim)
	}
	c := []float32{0, 1}
	if sim := cosineSimilarity(a, c); sim > 0.001 {
		t.Fatalf("expected ~0.0 for orthogonal vectors, got %f", sim)
	}
}
