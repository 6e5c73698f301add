// Package sqlgen implements the SQL Generator: a template-based,
// no-LLM translation of a FilterTree into a parameterized PostgreSQL
// query driven by a fixed field dictionary.
package sqlgen

import (
	"strings"

	"cvintake/internal/core"
)

// joinKind classifies how a field's clause is built, mirroring the
// field dictionary's "join" discriminator.
type joinKind string

const (
	joinNone     joinKind = ""
	joinSubquery joinKind = "subquery"
	joinComputed joinKind = "computed"
	joinExists   joinKind = "exists"
	joinSkill    joinKind = "skill_taxonomy"
	joinSoftware joinKind = "software_taxonomy"
	joinRole     joinKind = "role_taxonomy"
	joinCert     joinKind = "certification_taxonomy"
)

// fieldMapping is one entry of the field dictionary.
type fieldMapping struct {
	column string
	table  string
	typ    string // PostgreSQL param type, used for array casts
	join   joinKind
}

// fieldDictionary maps every filterable field to its clause builder.
var fieldDictionary = map[string]fieldMapping{
	"location":           {column: "address_city", typ: "text"},
	"region":             {column: "address_region", typ: "text"},
	"country":            {column: "address_country", typ: "text"},
	"nationality":        {column: "nationality", typ: "text"},
	"gender":             {column: "gender", typ: "gender_type"},
	"availability":       {column: "availability_status", typ: "availability_status_type"},
	"willing_to_relocate": {column: "willing_to_relocate", typ: "boolean"},
	"military_status":    {column: "military_status", typ: "military_status_type"},

	"experience_years": {table: "candidate_experience", typ: "numeric", join: joinSubquery},
	"age":              {column: "date_of_birth", typ: "date", join: joinComputed},

	"skill_ids":         {table: "candidate_skills", typ: "text[]", join: joinSkill},
	"software_ids":      {table: "candidate_software", typ: "text[]", join: joinSoftware},
	"role_ids":          {table: "candidate_experience", typ: "text[]", join: joinRole},
	"certification_ids": {table: "candidate_certifications", typ: "text[]", join: joinCert},

	"education_level":  {column: "degree_level", table: "candidate_education", typ: "education_level_type", join: joinExists},
	"education_field":  {column: "field_of_study", table: "candidate_education", typ: "education_field_type", join: joinExists},
	"language_codes":   {column: "language_code", table: "candidate_languages", typ: "text[]", join: joinExists},
	"language_level":   {column: "proficiency_level", table: "candidate_languages", typ: "language_proficiency_type", join: joinExists},
	"driving_licenses": {column: "license_category", table: "candidate_driving_licenses", typ: "driving_license_type[]", join: joinExists},
}

// educationLevelTranslation expands loose Greek/English level names to
// the set of degree_level enum values that satisfy them.
var educationLevelTranslation = map[string][]string{
	"university":     {"bachelor", "master", "doctorate", "phd"},
	"aei":            {"bachelor", "master", "doctorate", "phd"},
	"αει":            {"bachelor", "master", "doctorate", "phd"},
	"πανεπιστήμιο":   {"bachelor", "master", "doctorate", "phd"},
	"πτυχίο αει":     {"bachelor", "master", "doctorate", "phd"},
	"πτυχιο αει":     {"bachelor", "master", "doctorate", "phd"},
	"tei":            {"tei", "bachelor"},
	"τει":            {"tei", "bachelor"},
	"τεχνολογικό":    {"tei", "bachelor"},
	"bachelor":       {"bachelor"},
	"πτυχίο":         {"bachelor", "tei"},
	"master":         {"master"},
	"μεταπτυχιακό":   {"master"},
	"msc":            {"master"},
	"mba":            {"master"},
	"phd":            {"doctorate", "phd"},
	"διδακτορικό":    {"doctorate", "phd"},
	"doctorate":      {"doctorate", "phd"},
	"lyceum":         {"lyceum"},
	"λύκειο":         {"lyceum"},
	"high school":    {"lyceum"},
	"vocational":     {"vocational", "iek"},
	"iek":            {"iek", "vocational"},
	"ιεκ":            {"iek", "vocational"},
	"επαγγελματική":  {"vocational", "iek"},
}

// languageCodeTranslation resolves language names in
// either language resolve to their ISO 639-1 code.
var languageCodeTranslation = map[string]string{
	"english": "en", "αγγλικά": "en", "αγγλικα": "en", "en": "en",
	"greek": "el", "ελληνικά": "el", "ελληνικα": "el", "el": "el",
	"german": "de", "γερμανικά": "de", "γερμανικα": "de", "de": "de",
	"french": "fr", "γαλλικά": "fr", "γαλλικα": "fr", "fr": "fr",
	"italian": "it", "ιταλικά": "it", "ιταλικα": "it", "it": "it",
	"spanish": "es", "ισπανικά": "es", "ισπανικα": "es", "es": "es",
	"bulgarian": "bg", "βουλγαρικά": "bg", "βουλγαρικα": "bg", "bg": "bg",
	"albanian": "sq", "αλβανικά": "sq", "αλβανικα": "sq", "sq": "sq",
	"russian": "ru", "ρωσικά": "ru", "ρωσικα": "ru", "ru": "ru",
	"turkish": "tr", "τουρκικά": "tr", "τουρκικα": "tr", "tr": "tr",
}

func translateEducationLevel(value string) []string {
	if v, ok := educationLevelTranslation[strings.ToLower(value)]; ok {
		return v
	}
	return []string{strings.ToLower(value)}
}

func translateLanguageCode(value string) string {
	if v, ok := languageCodeTranslation[strings.ToLower(value)]; ok {
		return v
	}
	return strings.ToLower(value)
}

// taxonomyAlias names the table aliases used for each *_taxonomy join.
type taxonomyAlias struct {
	tableAlias    string
	taxonomyTable string
	taxonomyAlias string
	joinColumn    string
}

var taxonomyAliases = map[string]taxonomyAlias{
	"skill_ids":         {tableAlias: "cs", taxonomyTable: "skill_taxonomy", taxonomyAlias: "st", joinColumn: "skill_id"},
	"software_ids":      {tableAlias: "csw", taxonomyTable: "software_taxonomy", taxonomyAlias: "swt", joinColumn: "software_id"},
	"role_ids":          {tableAlias: "ce", taxonomyTable: "role_taxonomy", taxonomyAlias: "rt", joinColumn: "role_id"},
	"certification_ids": {tableAlias: "cc", taxonomyTable: "certification_taxonomy", taxonomyAlias: "ct", joinColumn: "certification_id_taxonomy"},
}

// opDescription holds the human-readable operator words
// used to build FilterSummary.
var opDescription = map[core.FilterOperator]string{
	core.OpEq: "=", core.OpNe: "!=", core.OpGt: ">", core.OpGte: ">=",
	core.OpLt: "<", core.OpLte: "<=", core.OpContains: "contains",
	core.OpAny: "has any of", core.OpAll: "has all of",
	core.OpIn: "in", core.OpNotIn: "not in",
}
