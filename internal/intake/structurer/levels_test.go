package structurer

import "testing"

func TestNormalizeSkillLevel(t *testing.T) {
	cases := map[string]string{
		"Προχωρημένο": "advanced",
		"άριστο":      "expert",
		"beginner":    "beginner",
		"good":        "advanced",
		"nonsense":    "",
	}
	for in, want := range cases {
		if got := NormalizeSkillLevel(in); got != want {
			t.Errorf("NormalizeSkillLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeLanguageLevel(t *testing.T) {
	cases := map[string]string{
		"Πολύ καλό": "C1",
		"μητρική":   "native",
		"b2":        "B2",
		"??":        "",
	}
	for in, want := range cases {
		if got := NormalizeLanguageLevel(in); got != want {
			t.Errorf("NormalizeLanguageLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFoldAccents(t *testing.T) {
	if got := FoldAccents("Μαρία Παπαδοπούλου"); got != "Μαρια Παπαδοπουλου" {
		t.Errorf("FoldAccents = %q", got)
	}
}
