package core

// SearchDocument is the denormalized per-candidate view indexed for
// search, rebuilt fully on each write.
type SearchDocument struct {
	CandidateID string   `json:"candidate_id"`
	FullName    string   `json:"full_name"`

	SkillNames []string `json:"skill_names"`
	SkillTaxonomyIDs []string `json:"skill_taxonomy_ids"`

	Experience []SearchExperienceItem `json:"experience"`
	Education  []SearchEducationItem  `json:"education"`
	Languages  []SearchLanguageItem   `json:"languages"`
	Certifications []string           `json:"certifications"`
	Training       []string           `json:"training"`
	DrivingLicenses []string          `json:"driving_licenses"`

	Location string `json:"location"`

	Embedding []float32 `json:"embedding"` // fixed 1024-dim dense vector
}

type SearchExperienceItem struct {
	Title          string `json:"title"`
	Company        string `json:"company"`
	DurationMonths int    `json:"duration_months"`
}

type SearchEducationItem struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
}

type SearchLanguageItem struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// EmbeddingDimensions is the fixed dense-vector width the index mapping
// must match.
const EmbeddingDimensions = 1024

// SearchHit is one ranked result from a vector/text/hybrid search.
type SearchHit struct {
	CandidateID string  `json:"candidate_id"`
	Score       float64 `json:"score"`
}
