// Package quality implements the Quality/Audit Gate: field-level
// validators for email, GR phone numbers, and date ranges, plus the
// completeness audit.
package quality

import (
	"regexp"
	"strings"

	"cvintake/internal/core"
)

// commonDomainTypos is the explicit allow-list of known-bad email
// domains mapped to their likely intended correction.
var commonDomainTypos = map[string]string{
	"gmial.com": "gmail.com", "gmai.com": "gmail.com", "gmal.com": "gmail.com",
	"yahooo.com": "yahoo.com", "hotmial.com": "hotmail.com", "outlok.com": "outlook.com",
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// hasRepeatedRun reports whether s contains n or more identical
// consecutive characters.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

// ValidateEmail runs the format, typo-domain, and repeated-character
// checks and returns a warning if anything looks off. A nil return
// means the email is clean.
func ValidateEmail(email string) *core.QualityWarning {
	if email == "" {
		return nil
	}
	if !emailRe.MatchString(email) {
		return &core.QualityWarning{
			Category: "email", Severity: "error", Field: "email", Section: "identity",
			Original: email, MessageEN: "email does not look like a valid address",
			MessageEL: "το email δεν φαίνεται έγκυρο",
		}
	}

	local, domain, _ := strings.Cut(email, "@")
	if hasRepeatedRun(local, 3) {
		return &core.QualityWarning{
			Category: "email", Severity: "warning", Field: "email", Section: "identity",
			Original: email, MessageEN: "email local part has 3+ repeated characters",
			MessageEL: "το τοπικό τμήμα του email έχει 3+ επαναλαμβανόμενους χαρακτήρες",
		}
	}

	domainLower := strings.ToLower(domain)
	if fix, ok := commonDomainTypos[domainLower]; ok {
		return &core.QualityWarning{
			Category: "email", Severity: "warning", Field: "email", Section: "identity",
			Original: email, Suggested: local + "@" + fix,
			MessageEN: "email domain looks like a common typo",
			MessageEL: "το domain του email μοιάζει με συνηθισμένο τυπογραφικό λάθος",
		}
	}

	if sim, best := bestDomainSimilarity(domainLower); sim > 0.75 && sim < 1.0 {
		return &core.QualityWarning{
			Category: "email", Severity: "info", Field: "email", Section: "identity",
			Original: email, Suggested: local + "@" + best,
			MessageEN: "email domain similar to a common provider; please confirm",
			MessageEL: "το domain του email μοιάζει με γνωστό πάροχο· παρακαλώ επιβεβαιώστε",
		}
	}

	return nil
}

var commonDomains = []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com"}

func bestDomainSimilarity(domain string) (float64, string) {
	best, bestDomain := 0.0, ""
	for _, d := range commonDomains {
		if sim := trigramSimilarity(domain, d); sim > best {
			best, bestDomain = sim, d
		}
	}
	return best, bestDomain
}

// trigramSimilarity is a pure-Go Jaccard similarity over character
// trigrams, approximating the PostgreSQL pg_trgm `similarity()` function
// this validator would otherwise issue as a query — used here for an
// in-process suggestion, not the taxonomy mapper's DB-backed tier.
func trigramSimilarity(a, b string) float64 {
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if tb[t] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func trigrams(s string) map[string]bool {
	s = "  " + s + "  "
	out := make(map[string]bool)
	for i := 0; i+3 <= len(s); i++ {
		out[s[i:i+3]] = true
	}
	return out
}

// GR phone patterns: mobile 69XXXXXXXX, landline 2XXXXXXXXX, optional
// +30/0030 prefix. The patterns run on the digits-only form, where a
// +30 prefix reads as 30.
var (
	grMobileRe   = regexp.MustCompile(`^(?:30|0030)?(69\d{8})$`)
	grLandlineRe = regexp.MustCompile(`^(?:30|0030)?(2\d{9})$`)
	digitsOnlyRe = regexp.MustCompile(`\D`)
)

// ValidatePhone checks a phone number against the GR mobile/landline
// shapes, flagging likely truncation or overflow.
func ValidatePhone(phone string) *core.QualityWarning {
	if phone == "" {
		return nil
	}
	digits := digitsOnlyRe.ReplaceAllString(phone, "")
	if grMobileRe.MatchString(digits) || grLandlineRe.MatchString(digits) {
		return nil
	}

	national := digits
	national = strings.TrimPrefix(national, "0030")
	national = strings.TrimPrefix(national, "30")
	switch {
	case len(national) < 10:
		return &core.QualityWarning{
			Category: "phone", Severity: "warning", Field: "phone", Section: "identity",
			Original: phone, MessageEN: "phone number looks truncated",
			MessageEL: "ο αριθμός τηλεφώνου φαίνεται ελλιπής",
		}
	case len(national) > 10:
		return &core.QualityWarning{
			Category: "phone", Severity: "warning", Field: "phone", Section: "identity",
			Original: phone, MessageEN: "phone number has extra digits",
			MessageEL: "ο αριθμός τηλεφώνου έχει επιπλέον ψηφία",
		}
	default:
		return &core.QualityWarning{
			Category: "phone", Severity: "info", Field: "phone", Section: "identity",
			Original: phone, MessageEN: "phone number does not match a recognized GR mobile/landline pattern",
			MessageEL: "ο αριθμός τηλεφώνου δεν ταιριάζει με γνωστό ελληνικό πρότυπο",
		}
	}
}

// Audit runs every field validator plus the completeness formula over a
// candidate profile, returning the accumulated warnings (none of which
// are fatal).
func Audit(c *core.CandidateProfile) (core.CompletenessAudit, []core.QualityWarning) {
	var warnings []core.QualityWarning
	if w := ValidateEmail(c.Identity.Email); w != nil {
		warnings = append(warnings, *w)
	}
	if w := ValidatePhone(c.Identity.Phone); w != nil {
		warnings = append(warnings, *w)
	}
	for _, e := range c.Education {
		if e.DateRange.Swapped() {
			warnings = append(warnings, core.QualityWarning{
				Category: "date_error", Severity: "warning", Field: "date_range", Section: "education",
				WasAutoFixed: true, MessageEN: "date range was inverted and auto-corrected",
				MessageEL: "το εύρος ημερομηνιών ήταν ανεστραμμένο και διορθώθηκε αυτόματα",
			})
		}
	}
	for _, e := range c.Experience {
		if e.DateRange.Swapped() {
			warnings = append(warnings, core.QualityWarning{
				Category: "date_error", Severity: "warning", Field: "date_range", Section: "experience",
				WasAutoFixed: true, MessageEN: "date range was inverted and auto-corrected",
				MessageEL: "το εύρος ημερομηνιών ήταν ανεστραμμένο και διορθώθηκε αυτόματα",
			})
		}
	}

	audit := core.ComputeCompleteness(c)
	return audit, warnings
}
