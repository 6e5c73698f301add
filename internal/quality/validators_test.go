package quality

import (
	"testing"

	"cvintake/internal/core"
)

func TestValidateEmail(t *testing.T) {
	if w := ValidateEmail("maria@example.gr"); w != nil {
		t.Fatalf("expected clean email, got %+v", w)
	}
	if w := ValidateEmail("not-an-email"); w == nil || w.Severity != "error" {
		t.Fatalf("expected format error, got %+v", w)
	}
	if w := ValidateEmail("user@gmial.com"); w == nil || w.Suggested != "user@gmail.com" {
		t.Fatalf("expected typo suggestion to gmail.com, got %+v", w)
	}
	if w := ValidateEmail("aaaa@example.com"); w == nil || w.Category != "email" {
		t.Fatalf("expected repeated-char warning, got %+v", w)
	}
}

func TestValidatePhone(t *testing.T) {
	if w := ValidatePhone("6912345678"); w != nil {
		t.Fatalf("expected clean GR mobile, got %+v", w)
	}
	if w := ValidatePhone("+306912345678"); w != nil {
		t.Fatalf("expected clean +30-prefixed mobile, got %+v", w)
	}
	if w := ValidatePhone("2101234567"); w != nil {
		t.Fatalf("expected clean GR landline, got %+v", w)
	}
	if w := ValidatePhone("691234"); w == nil {
		t.Fatalf("expected truncation warning")
	}
}

func TestAudit_Completeness(t *testing.T) {
	c := &core.CandidateProfile{
		Identity: core.Identity{FirstName: "Maria", LastName: "P", Email: "maria@example.gr"},
		Experience: []core.ExperienceEntry{{Title: "Engineer"}},
		Skills:     []core.Skill{{Name: "Go"}},
	}
	audit, warnings := Audit(c)
	if audit.Score <= 0 {
		t.Fatalf("expected positive completeness score, got %f", audit.Score)
	}
	for _, w := range warnings {
		if w.Severity == "error" {
			t.Fatalf("did not expect an error-severity warning here: %+v", w)
		}
	}
}
