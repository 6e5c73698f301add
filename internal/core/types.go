// Package core holds the domain types shared across the intake pipeline,
// the taxonomy mapper, the relational writer, and the query/HR router.
package core

import (
	"fmt"
	"time"
)

// MatchMethod records how a raw taxonomy term was linked to a canonical id.
type MatchMethod string

const (
	MatchExact           MatchMethod = "exact"
	MatchSubstring        MatchMethod = "substring"
	MatchFuzzy            MatchMethod = "fuzzy"
	MatchFuzzySuggested   MatchMethod = "fuzzy_suggested"
	MatchSemantic         MatchMethod = "semantic"
	MatchSuggested        MatchMethod = "suggested"
	MatchNone             MatchMethod = "none"
)

// ConfidentThreshold returns the minimum similarity a method must clear to
// count as a confident match.
func (m MatchMethod) ConfidentThreshold() float64 {
	switch m {
	case MatchExact:
		return 1.0
	case MatchSubstring:
		return 0.9
	case MatchFuzzy:
		return 0.75
	case MatchSemantic:
		return 0.85
	default:
		return 1.1 // unreachable similarity: suggested/none are never confident
	}
}

// Confident reports whether a given similarity clears this method's tier.
func (m MatchMethod) Confident(similarity float64) bool {
	switch m {
	case MatchExact, MatchSubstring, MatchFuzzy, MatchSemantic:
		return similarity >= m.ConfidentThreshold()
	default:
		return false
	}
}

// TaxonomyLink is embedded by every proficiency/role reference that
// participates in the taxonomy cascade.
type TaxonomyLink struct {
	TaxonomyID          *string     `json:"taxonomy_id,omitempty"`
	SuggestedTaxonomyID *string     `json:"suggested_taxonomy_id,omitempty"`
	Similarity          float64     `json:"similarity"`
	MatchMethod         MatchMethod `json:"match_method"`
}

// Unmatched reports whether this item must be written to the unmatched
// items table.
func (t TaxonomyLink) Unmatched() bool {
	return t.TaxonomyID == nil
}

// Identity holds a candidate's names and contact/demographic fields.
// Names are always stored in both original and accent-stripped form.
type Identity struct {
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	FirstNameFolded   string `json:"first_name_folded"`
	LastNameFolded    string `json:"last_name_folded"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	Gender            string `json:"gender,omitempty"`
	Nationality       string `json:"nationality,omitempty"`
	MilitaryStatus    string `json:"military_status,omitempty"`
	WillingToRelocate bool   `json:"willing_to_relocate"`
	AvailabilityStatus string `json:"availability_status,omitempty"`
	AddressCity       string `json:"address_city,omitempty"`
	AddressRegion     string `json:"address_region,omitempty"`
	AddressCountry    string `json:"address_country,omitempty"`
}

// DateRange is start/end for histories. Invariant I1: Start <= End after
// the writer's auto-swap.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   *time.Time `json:"end_date,omitempty"` // nil = ongoing
}

// Swapped reports whether Start is strictly after a non-nil End, the
// condition the writer auto-corrects (and warns about).
func (d DateRange) Swapped() bool {
	return d.End != nil && d.Start.After(*d.End)
}

// EducationEntry is one item in a candidate's education history.
type EducationEntry struct {
	Institution   string    `json:"institution"`
	Degree        string    `json:"degree"`
	FieldOfStudy  string    `json:"field_of_study,omitempty"`
	Level         string    `json:"level"` // bachelor|master|doctorate|tei|lyceum|iek|vocational
	DateRange     DateRange `json:"date_range"`
	GraduationYear int      `json:"graduation_year,omitempty"`
}

// ExperienceEntry is one item in a candidate's work history.
type ExperienceEntry struct {
	Title          string       `json:"title"`
	Company        string       `json:"company"`
	Description    string       `json:"description,omitempty"`
	DateRange      DateRange    `json:"date_range"`
	DurationMonths int          `json:"duration_months"`
	IsCurrent      bool         `json:"is_current"`
	Role           TaxonomyLink `json:"role"`
}

// Certification is a training/professional certification.
type Certification struct {
	Name       string       `json:"name"`
	Issuer     string       `json:"issuer,omitempty"`
	IssuedDate *time.Time   `json:"issued_date,omitempty"`
	Taxonomy   TaxonomyLink `json:"taxonomy"`
}

// TrainingEvent is a short course/workshop, distinct from Certification.
type TrainingEvent struct {
	Name string    `json:"name"`
	Date time.Time `json:"date,omitempty"`
}

// DrivingLicense is a category of driving license the candidate holds.
type DrivingLicense struct {
	Category string `json:"category"` // A|B|C|D|...
}

// Skill is a proficiency with taxonomy linkage and a self-reported level.
type Skill struct {
	Name     string       `json:"name"`
	Level    string       `json:"level,omitempty"` // beginner|intermediate|advanced|expert|master
	Taxonomy TaxonomyLink `json:"taxonomy"`
}

// Software is a tool/platform proficiency.
type Software struct {
	Name     string       `json:"name"`
	Taxonomy TaxonomyLink `json:"taxonomy"`
}

// Language is a spoken/written language proficiency with a CEFR level.
type Language struct {
	Name  string `json:"name"`
	Code  string `json:"code"` // ISO 639-1
	Level string `json:"level"` // A1..C2 or "native"
}

// CandidateProfile is the canonical aggregate for a person.
type CandidateProfile struct {
	ID        string   `json:"id"`
	Identity  Identity `json:"identity"`
	IsActive  bool     `json:"is_active"`

	Education    []EducationEntry  `json:"education"`
	Experience   []ExperienceEntry `json:"experience"`
	Certifications []Certification `json:"certifications"`
	Training     []TrainingEvent   `json:"training"`
	DrivingLicenses []DrivingLicense `json:"driving_licenses"`

	Skills    []Skill    `json:"skills"`
	Languages []Language `json:"languages"`
	Software  []Software `json:"software"`

	RawText         string `json:"raw_text"`
	StructurerJSON  string `json:"structurer_json"`
	AuditJSON       string `json:"audit_json"`

	CompletenessScore float64 `json:"completeness_score"`
	QualityLevel      string  `json:"quality_level"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExperienceYears sums duration_months/12 across all experience entries,
// matching the SQL generator's computed "experience_years" field.
func (c *CandidateProfile) ExperienceYears() float64 {
	total := 0
	for _, e := range c.Experience {
		total += e.DurationMonths
	}
	return float64(total) / 12.0
}

// UnmatchedItem is a proficiency that no taxonomy tier confidently
// matched; it is the feedback loop that grows the taxonomy.
type UnmatchedItem struct {
	CandidateID     string      `json:"candidate_id"`
	ItemType        string      `json:"item_type"` // skill|software|certification
	RawValue        string      `json:"raw_value"`
	NormalizedValue string      `json:"normalized_value"`
	Suggested       *TaxonomyLink `json:"suggested,omitempty"`
}

// QualityWarning is a field-level audit finding.
type QualityWarning struct {
	Category     string `json:"category"` // date_error|email|phone|completeness|...
	Severity     string `json:"severity"` // info|warning|error
	Field        string `json:"field"`
	Section      string `json:"section"`
	Original     string `json:"original,omitempty"`
	Suggested    string `json:"suggested,omitempty"`
	WasAutoFixed bool   `json:"was_auto_fixed"`
	LLMDetected  bool   `json:"llm_detected"`
	MessageEN    string `json:"message_en"`
	MessageEL    string `json:"message_el"`
}

// Diagnostics accumulates non-fatal findings for a pipeline stage.
// The CV structurer returns one alongside its result and error; the
// intake pipeline hands its warnings, with the quality audit's, to the
// relational writer and carries on. The other stages do not return
// Diagnostics, Notes are not persisted, and the intake record does not
// carry diagnostics.
type Diagnostics struct {
	Stage    string           `json:"stage"`
	Warnings []QualityWarning `json:"warnings,omitempty"`
	Notes    []string         `json:"notes,omitempty"`
}

func (d *Diagnostics) Warn(w QualityWarning) {
	d.Warnings = append(d.Warnings, w)
}

func (d *Diagnostics) Note(format string, args ...any) {
	d.Notes = append(d.Notes, fmt.Sprintf(format, args...))
}
