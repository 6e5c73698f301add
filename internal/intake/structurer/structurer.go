// Package structurer implements the CV Structurer: an LLM call
// against a versioned prompt that maps raw extracted text onto the
// candidate data model, with JSON-extraction fallbacks, retries, and the
// date/level normalization rules.
package structurer

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cvintake/internal/core"
	"cvintake/internal/llm"
)

//go:embed prompts/default.tmpl
var defaultPromptTemplate string

const maxRetries = 2

// Structurer wraps a completion client with the prompt/JSON-repair/retry
// policy for turning raw CV text into a candidate profile.
type Structurer struct {
	llm         *llm.Client
	model       llm.Model
	promptDir   string
	promptVersion string
}

func New(client *llm.Client, model llm.Model, promptDir, promptVersion string) *Structurer {
	return &Structurer{llm: client, model: model, promptDir: promptDir, promptVersion: promptVersion}
}

// rawDoc is the on-the-wire shape the LLM is asked to emit; parsed into
// core.CandidateProfile fields with normalization applied field-by-field.
type rawDoc struct {
	Identity struct {
		FirstName         string `json:"first_name"`
		LastName          string `json:"last_name"`
		Email             string `json:"email"`
		Phone             string `json:"phone"`
		DateOfBirth       string `json:"date_of_birth"`
		Gender            string `json:"gender"`
		Nationality       string `json:"nationality"`
		MilitaryStatus    string `json:"military_status"`
		WillingToRelocate bool   `json:"willing_to_relocate"`
		AvailabilityStatus string `json:"availability_status"`
		AddressCity       string `json:"address_city"`
		AddressRegion     string `json:"address_region"`
		AddressCountry    string `json:"address_country"`
	} `json:"identity"`
	Education []struct {
		Institution  string `json:"institution"`
		Degree       string `json:"degree"`
		FieldOfStudy string `json:"field_of_study"`
		Level        string `json:"level"`
		StartDate    string `json:"start_date"`
		EndDate      string `json:"end_date"`
	} `json:"education"`
	Experience []struct {
		Title       string `json:"title"`
		Company     string `json:"company"`
		Description string `json:"description"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		IsCurrent   bool   `json:"is_current"`
	} `json:"experience"`
	Skills []struct {
		Name  string `json:"name"`
		Level string `json:"level"`
	} `json:"skills"`
	Languages []struct {
		Name  string `json:"name"`
		Level string `json:"level"`
	} `json:"languages"`
	Software []struct {
		Name string `json:"name"`
	} `json:"software"`
	Certifications []struct {
		Name       string `json:"name"`
		Issuer     string `json:"issuer"`
		IssuedDate string `json:"issued_date"`
	} `json:"certifications"`
	Training []struct {
		Name string `json:"name"`
		Date string `json:"date"`
	} `json:"training"`
	DrivingLicenses []struct {
		Category string `json:"category"`
	} `json:"driving_licenses"`
}

// Result is the structurer's outcome: a partially-filled candidate
// profile (taxonomy linkage is added later by the mapper) and its
// confidence. Diagnostics (date-swap warnings etc) are returned beside it
// by Structure.
type Result struct {
	Profile    core.CandidateProfile
	Confidence float64
}

// Structure runs the LLM call (with retries on empty/invalid output),
// extracts the JSON, and maps it onto a CandidateProfile.
func (s *Structurer) Structure(ctx context.Context, rawText string) (Result, core.Diagnostics, error) {
	diag := core.Diagnostics{Stage: "structure"}
	prompt := s.renderPrompt(rawText)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
			Model:       s.model,
			System:      "You convert CV text into strict JSON. Output JSON only.",
			Prompt:      prompt,
			MaxTokens:   4096,
			Temperature: 0.0,
		})
		if err != nil {
			lastErr = err
			continue
		}
		doc, ok := extractJSON(resp.Text)
		if !ok {
			lastErr = fmt.Errorf("attempt %d: could not extract JSON from LLM output", attempt)
			continue
		}
		var parsed rawDoc
		if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
			lastErr = fmt.Errorf("attempt %d: invalid structurer JSON: %w", attempt, err)
			continue
		}
		profile := s.toProfile(parsed, &diag)
		profile.StructurerJSON = doc
		return Result{Profile: profile, Confidence: 0.9}, diag, nil
	}

	return Result{}, diag, fmt.Errorf("structurer exhausted %d retries: %w", maxRetries, lastErr)
}

func (s *Structurer) renderPrompt(rawText string) string {
	tmpl := defaultPromptTemplate
	if s.promptDir != "" && s.promptVersion != "" {
		path := filepath.Join(s.promptDir, s.promptVersion+".tmpl")
		if b, err := os.ReadFile(path); err == nil {
			tmpl = string(b)
		}
	}
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, rawText)
	}
	return tmpl + "\n\nCV TEXT:\n" + rawText
}

// extractJSON implements a three-step fallback:
// direct parse -> fenced-block scan -> first '{'..last '}' window, with
// light repair (trailing commas, control characters) before giving up.
func extractJSON(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		return trimmed, true
	}

	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		candidate := repairJSON(m[1])
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}

	first := strings.Index(trimmed, "{")
	last := strings.LastIndex(trimmed, "}")
	if first >= 0 && last > first {
		candidate := repairJSON(trimmed[first : last+1])
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}

	return "", false
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
var controlCharRe = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)

func repairJSON(s string) string {
	s = controlCharRe.ReplaceAllString(s, "")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return s
}

// toProfile maps the raw LLM document onto the domain type, applying the
// year-only-date substitution and inverted-range auto-swap.
func (s *Structurer) toProfile(raw rawDoc, diag *core.Diagnostics) core.CandidateProfile {
	var p core.CandidateProfile

	p.Identity = core.Identity{
		FirstName:          raw.Identity.FirstName,
		LastName:           raw.Identity.LastName,
		FirstNameFolded:    FoldAccents(raw.Identity.FirstName),
		LastNameFolded:     FoldAccents(raw.Identity.LastName),
		Email:              raw.Identity.Email,
		Phone:              raw.Identity.Phone,
		Gender:             raw.Identity.Gender,
		Nationality:        raw.Identity.Nationality,
		MilitaryStatus:     raw.Identity.MilitaryStatus,
		WillingToRelocate:  raw.Identity.WillingToRelocate,
		AvailabilityStatus: raw.Identity.AvailabilityStatus,
		AddressCity:        raw.Identity.AddressCity,
		AddressRegion:      raw.Identity.AddressRegion,
		AddressCountry:     raw.Identity.AddressCountry,
	}
	if dob, ok := parseDate(raw.Identity.DateOfBirth); ok {
		p.Identity.DateOfBirth = &dob
	}

	for _, e := range raw.Education {
		dr, swapped := buildDateRange(e.StartDate, e.EndDate)
		if swapped {
			diag.Warn(core.QualityWarning{
				Category: "date_error", Severity: "warning", Field: "date_range",
				Section: "education", WasAutoFixed: true,
				MessageEN: fmt.Sprintf("education entry %q had start after end; swapped", e.Institution),
				MessageEL: fmt.Sprintf("η εκπαιδευτική εγγραφή %q είχε ανεστραμμένο εύρος ημερομηνιών· διορθώθηκε", e.Institution),
			})
		}
		p.Education = append(p.Education, core.EducationEntry{
			Institution: e.Institution, Degree: e.Degree, FieldOfStudy: e.FieldOfStudy,
			Level: e.Level, DateRange: dr,
		})
	}

	for _, e := range raw.Experience {
		dr, swapped := buildDateRange(e.StartDate, e.EndDate)
		if swapped {
			diag.Warn(core.QualityWarning{
				Category: "date_error", Severity: "warning", Field: "date_range",
				Section: "experience", WasAutoFixed: true,
				MessageEN: fmt.Sprintf("experience entry %q had start after end; swapped", e.Title),
				MessageEL: fmt.Sprintf("η εργασιακή εγγραφή %q είχε ανεστραμμένο εύρος ημερομηνιών· διορθώθηκε", e.Title),
			})
		}
		p.Experience = append(p.Experience, core.ExperienceEntry{
			Title: e.Title, Company: e.Company, Description: e.Description,
			DateRange: dr, DurationMonths: monthsBetween(dr), IsCurrent: e.IsCurrent,
		})
	}

	for _, sk := range raw.Skills {
		p.Skills = append(p.Skills, core.Skill{Name: sk.Name, Level: NormalizeSkillLevel(sk.Level)})
	}
	for _, l := range raw.Languages {
		p.Languages = append(p.Languages, core.Language{
			Name: l.Name, Code: LanguageCode(l.Name), Level: NormalizeLanguageLevel(l.Level),
		})
	}
	for _, sw := range raw.Software {
		p.Software = append(p.Software, core.Software{Name: sw.Name})
	}
	for _, c := range raw.Certifications {
		cert := core.Certification{Name: c.Name, Issuer: c.Issuer}
		if d, ok := parseDate(c.IssuedDate); ok {
			cert.IssuedDate = &d
		}
		p.Certifications = append(p.Certifications, cert)
	}
	for _, t := range raw.Training {
		te := core.TrainingEvent{Name: t.Name}
		if d, ok := parseDate(t.Date); ok {
			te.Date = d
		}
		p.Training = append(p.Training, te)
	}
	for _, dl := range raw.DrivingLicenses {
		p.DrivingLicenses = append(p.DrivingLicenses, core.DrivingLicense{Category: dl.Category})
	}

	audit := core.ComputeCompleteness(&p)
	p.CompletenessScore = audit.Score
	p.QualityLevel = audit.QualityLevel

	return p
}

// yearOnlyRe matches a bare 4-digit year with nothing else, the case
// substitutes YYYY-01-01.
var yearOnlyRe = regexp.MustCompile(`^\d{4}$`)

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return time.Time{}, false
	}
	if yearOnlyRe.MatchString(raw) {
		year, _ := strconv.Atoi(raw)
		return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), true
	}
	for _, layout := range []string{"2006-01-02", "2006-01", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// buildDateRange parses start/end and auto-swaps an inverted range,
// reporting whether a swap occurred.
func buildDateRange(startRaw, endRaw string) (core.DateRange, bool) {
	start, _ := parseDate(startRaw)
	end, endOK := parseDate(endRaw)
	dr := core.DateRange{Start: start}
	if endOK {
		dr.End = &end
	}
	if dr.Swapped() {
		dr.Start, *dr.End = *dr.End, dr.Start
		return dr, true
	}
	return dr, false
}

func monthsBetween(dr core.DateRange) int {
	end := time.Now()
	if dr.End != nil {
		end = *dr.End
	}
	months := (end.Year()-dr.Start.Year())*12 + int(end.Month()) - int(dr.Start.Month())
	if months < 0 {
		return 0
	}
	return months
}
