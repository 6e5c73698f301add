package structurer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccentsPreserveCase runs the same NFD-decompose/strip-Mn/NFC
// pipeline taxonomy.normalize uses, without lowercasing.
func foldAccentsPreserveCase(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// greekSkillLevels maps Greek free-form level strings to the canonical
// enum.
var greekSkillLevels = map[string]string{
	"αρχαριος": "beginner", "βασικο": "beginner",
	"μετριο": "intermediate", "καλο": "intermediate",
	"πολυ καλο": "advanced", "προχωρημενο": "advanced",
	"αριστο": "expert", "αριστη": "expert", "εξαιρετικο": "expert",
}

// greekLanguageLevels maps Greek free-form language levels to CEFR.
var greekLanguageLevels = map[string]string{
	"βασικο": "A2",
	"μετριο": "B1", "καλο": "B2",
	"πολυ καλο": "C1", "πολυ καλη": "C1",
	"αριστο": "C2", "αριστη": "C2",
	"μητρικη": "native",
}

// languageCodes resolves bilingual language names to ISO 639-1 codes.
var languageCodes = map[string]string{
	"ελληνικα": "el", "greek": "el",
	"αγγλικα": "en", "english": "en",
	"γερμανικα": "de", "german": "de",
	"γαλλικα": "fr", "french": "fr",
	"ιταλικα": "it", "italian": "it",
	"ισπανικα": "es", "spanish": "es",
}

var validSkillLevels = map[string]bool{
	"beginner": true, "intermediate": true, "advanced": true, "expert": true, "master": true,
}

var validCEFR = map[string]bool{
	"A1": true, "A2": true, "B1": true, "B2": true, "C1": true, "C2": true, "native": true,
}

// foldGreek strips the subset of Greek diacritics the level tables key on
// (tonos on the seven lowercase vowels), lowercases, and trims — the cheap ASCII-adjacent
// fold the original's `.lower().strip()` relies on because its lookup
// tables are pre-accented.
func foldGreek(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer("ά", "α", "έ", "ε", "ή", "η", "ί", "ι", "ό", "ο", "ύ", "υ", "ώ", "ω")
	return replacer.Replace(s)
}

// NormalizeSkillLevel maps a free-form skill level (Greek or English)
// into the canonical enum (beginner|intermediate|advanced|expert|master),
// Returns "" when nothing matches.
func NormalizeSkillLevel(raw string) string {
	folded := foldGreek(raw)
	if v, ok := greekSkillLevels[folded]; ok {
		return v
	}
	if validSkillLevels[folded] {
		return folded
	}
	switch {
	case strings.Contains(folded, "begin"), strings.Contains(folded, "basic"):
		return "beginner"
	case strings.Contains(folded, "inter"), strings.Contains(folded, "medium"):
		return "intermediate"
	case strings.Contains(folded, "advanc"), strings.Contains(folded, "good"):
		return "advanced"
	case strings.Contains(folded, "expert"), strings.Contains(folded, "excell"):
		return "expert"
	case strings.Contains(folded, "master"), strings.Contains(folded, "native"):
		return "master"
	}
	return ""
}

// NormalizeLanguageLevel maps a free-form language proficiency (Greek or
// English/CEFR) to a CEFR level or "native".
func NormalizeLanguageLevel(raw string) string {
	folded := foldGreek(raw)
	if v, ok := greekLanguageLevels[folded]; ok {
		return v
	}
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if validCEFR[upper] {
		return upper
	}
	if validCEFR[folded] {
		return folded
	}
	return ""
}

// LanguageCode maps a free-form language name (Greek or English) to its
// ISO 639-1 code.
func LanguageCode(name string) string {
	folded := foldGreek(name)
	if code, ok := languageCodes[folded]; ok {
		return code
	}
	return ""
}

// FoldAccents strips combining marks (accents) while preserving case,
// producing the accent-stripped form stored alongside names
// — distinct from taxonomy.normalize, which also lowercases
// for alias lookups.
func FoldAccents(s string) string {
	return foldAccentsPreserveCase(s)
}
