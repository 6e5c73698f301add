package searchindex

import (
	"strings"
	"testing"

	"cvintake/internal/core"
)

func profileWith(skills, experience, education, languages, certs, training int) *core.CandidateProfile {
	c := &core.CandidateProfile{
		ID:       "cand-1",
		Identity: core.Identity{FirstName: "Μαρία", LastName: "Παπαδοπούλου", AddressCity: "Αθήνα"},
	}
	id := "SKILL_X"
	for i := 0; i < skills; i++ {
		c.Skills = append(c.Skills, core.Skill{Name: "skill", Taxonomy: core.TaxonomyLink{TaxonomyID: &id, MatchMethod: core.MatchExact, Similarity: 1}})
	}
	for i := 0; i < experience; i++ {
		c.Experience = append(c.Experience, core.ExperienceEntry{Title: "Engineer", Company: "Acme", DurationMonths: 12, Description: strings.Repeat("x", 300)})
	}
	for i := 0; i < education; i++ {
		c.Education = append(c.Education, core.EducationEntry{Institution: "EMP", Degree: "MSc"})
	}
	for i := 0; i < languages; i++ {
		c.Languages = append(c.Languages, core.Language{Name: "Greek", Code: "el", Level: "native"})
	}
	for i := 0; i < certs; i++ {
		c.Certifications = append(c.Certifications, core.Certification{Name: "cert"})
	}
	for i := 0; i < training; i++ {
		c.Training = append(c.Training, core.TrainingEvent{Name: "course"})
	}
	return c
}

func TestBuildDocument_AppliesFieldCaps(t *testing.T) {
	c := profileWith(25, 8, 5, 7, 9, 6)
	doc := BuildDocument(c, make([]float32, 4))

	if len(doc.SkillNames) != 20 {
		t.Errorf("skills = %d, want capped at 20", len(doc.SkillNames))
	}
	if len(doc.Experience) != 5 {
		t.Errorf("experience = %d, want capped at 5", len(doc.Experience))
	}
	if len(doc.Education) != 3 {
		t.Errorf("education = %d, want capped at 3", len(doc.Education))
	}
	if len(doc.Languages) != 5 {
		t.Errorf("languages = %d, want capped at 5", len(doc.Languages))
	}
	if len(doc.Certifications) != 5 {
		t.Errorf("certifications = %d, want capped at 5", len(doc.Certifications))
	}
	if len(doc.Training) != 5 {
		t.Errorf("training = %d, want capped at 5", len(doc.Training))
	}
	if doc.CandidateID != "cand-1" || doc.FullName != "Μαρία Παπαδοπούλου" {
		t.Errorf("identity fields: %+v", doc)
	}
}

func TestEmbeddingText_TruncatesDescriptions(t *testing.T) {
	c := profileWith(1, 1, 1, 1, 1, 1)
	text := EmbeddingText(c)

	if !strings.Contains(text, "Μαρία Παπαδοπούλου") {
		t.Error("embedding text must lead with the full name")
	}
	if strings.Contains(text, strings.Repeat("x", 201)) {
		t.Error("experience descriptions must be truncated to 200 chars")
	}
	if !strings.Contains(text, "Greek (native)") {
		t.Errorf("languages with levels missing: %q", text)
	}
}

func TestSortHitsDesc(t *testing.T) {
	hits := []core.SearchHit{
		{CandidateID: "a", Score: 0.1},
		{CandidateID: "b", Score: 0.9},
		{CandidateID: "c", Score: 0.5},
	}
	sortHitsDesc(hits)
	if hits[0].CandidateID != "b" || hits[1].CandidateID != "c" || hits[2].CandidateID != "a" {
		t.Errorf("sorted = %+v", hits)
	}
}

func TestRRFWeights(t *testing.T) {
	// A document ranked first in both lists outscores one ranked first
	// in only the text list; the weights are pinned at 0.6/0.4, k=60.
	both := vectorWeight/float64(rrfConstant+1) + textWeight/float64(rrfConstant+1)
	textOnly := textWeight / float64(rrfConstant+1)
	if both <= textOnly {
		t.Error("rrf fusion must reward presence in both lists")
	}
	if vectorWeight != 0.6 || textWeight != 0.4 || rrfConstant != 60 {
		t.Errorf("rrf constants changed: %v %v %v", vectorWeight, textWeight, rrfConstant)
	}
}
