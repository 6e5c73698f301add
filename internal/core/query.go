package core

// FilterOperator is a SQL filter operator the translator may emit and the
// SQL generator must know how to render.
type FilterOperator string

const (
	OpEq        FilterOperator = "eq"
	OpNe        FilterOperator = "ne"
	OpGt        FilterOperator = "gt"
	OpGte       FilterOperator = "gte"
	OpLt        FilterOperator = "lt"
	OpLte       FilterOperator = "lte"
	OpBetween   FilterOperator = "between"
	OpIn        FilterOperator = "in"
	OpNotIn     FilterOperator = "not_in"
	OpContains  FilterOperator = "contains"
	OpAny       FilterOperator = "any"
	OpAll       FilterOperator = "all"
	OpIsNull    FilterOperator = "is_null"
	OpIsNotNull FilterOperator = "is_not_null"
)

// FilterCondition is a single field -> {operator, value} entry in the
// filter tree (GLOSSARY).
type FilterCondition struct {
	Field    string         `json:"field"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value"`
}

// SortDirection orders the SQL generator's ORDER BY clause.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortOrder is the translator's requested sort, defaulted by the SQL
// generator to updated_at DESC when absent.
type SortOrder struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// QueryType classifies how the router should satisfy a translated query.
type QueryType string

const (
	QueryStructured    QueryType = "structured"
	QuerySemantic      QueryType = "semantic"
	QueryHybrid        QueryType = "hybrid"
	QueryClarification QueryType = "clarification"
)

// FilterTree is the translator's structured output, consumed by
// the SQL generator and relaxed matcher.
type FilterTree struct {
	QueryType             QueryType          `json:"query_type"`
	Confidence            float64            `json:"confidence"`
	Filters               []FilterCondition  `json:"filters"`
	Sort                  *SortOrder         `json:"sort,omitempty"`
	Limit                 int                `json:"limit"`
	Offset                int                `json:"offset"`
	SemanticQuery         string             `json:"semantic_query,omitempty"`
	ClarificationQuestion string             `json:"clarification_question,omitempty"`
	UnknownTerms          []string           `json:"unknown_terms,omitempty"`
}

// SQLQuery is the SQL generator's deterministic output: parameterized
// text plus its ordered, positional parameter list.
type SQLQuery struct {
	Text          string `json:"text"`
	Params        []any  `json:"params"`
	FilterSummary string `json:"filter_summary"`
}

// MatchLevel is the relaxed matcher's coarse bucket.
type MatchLevel string

const (
	MatchHigh   MatchLevel = "High"
	MatchMedium MatchLevel = "Medium"
	MatchLow    MatchLevel = "Low"
)

// Recommendation is the relaxed matcher / HR analyzer's action bucket.
type Recommendation string

const (
	RecommendInterview Recommendation = "interview"
	RecommendConsider  Recommendation = "consider"
	RecommendSkip      Recommendation = "skip"
)

// CandidateMatch is one candidate's scored outcome from the relaxed
// matcher.
type CandidateMatch struct {
	CandidateID      string         `json:"candidate_id"`
	MatchLevel       MatchLevel     `json:"match_level"`
	MatchPercentage  float64        `json:"match_percentage"`
	Matched          []string       `json:"matched"`
	Missing          []string       `json:"missing"`
	Comment          string         `json:"comment"`
	Recommendation   Recommendation `json:"recommendation"`
}

// MatchResult is the unified relaxed-matching output.
type MatchResult struct {
	Candidates   []CandidateMatch `json:"candidates"`
	FallbackUsed bool             `json:"fallback_used"`
}

// RankedCandidate is one entry in an HR report's ranked-candidates list
//.
type RankedCandidate struct {
	CandidateID        string         `json:"candidate_id"`
	Evidence           []string       `json:"evidence"`
	Gaps               []string       `json:"gaps"`
	Risks              []string       `json:"risks"`
	InterviewFocus     []string       `json:"interview_focus"`
	OverallSuitability string         `json:"overall_suitability"` // High|Medium|Low
	MatchPercentage    float64        `json:"match_percentage"`
	Category           Recommendation `json:"category"`
}

// RequestAnalysis summarizes the HR analyzer's understanding of the
// incoming request.
type RequestAnalysis struct {
	Summary          string   `json:"summary"`
	RequiredSkills   []string `json:"required_skills"`
	PreferredSkills  []string `json:"preferred_skills"`
	MinExperienceYrs float64  `json:"min_experience_years"`
}

// HRReport is the HR-intelligence analyzer's nested report.
type HRReport struct {
	RequestAnalysis     RequestAnalysis   `json:"request_analysis"`
	QueryOutcomeSummary string            `json:"query_outcome_summary"`
	CriteriaExpansionNotes []string       `json:"criteria_expansion_notes,omitempty"`
	RankedCandidates    []RankedCandidate `json:"ranked_candidates"`
	Recommendation      string            `json:"recommendation"`
	FallbackUsed        bool              `json:"fallback_used"`
}

// HRJobStatus is the async HR job's lifecycle state.
type HRJobStatus string

const (
	HRJobProcessing HRJobStatus = "processing"
	HRJobCompleted  HRJobStatus = "completed"
	HRJobFailed     HRJobStatus = "failed"
)

// HRJob is the record stored under hr_job_id for async analysis polling.
type HRJob struct {
	JobID    string      `json:"job_id"`
	Status   HRJobStatus `json:"status"`
	Report   *HRReport   `json:"hr_analysis,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// QueryRequest is the execute-mode request body.
type QueryRequest struct {
	Query             string         `json:"query"`
	Execute           bool           `json:"execute"`
	Limit             int            `json:"limit"`
	IncludeHRAnalysis bool           `json:"include_hr_analysis"`
	AsyncHR           bool           `json:"async_hr"`
	UseJobMatching    bool           `json:"use_job_matching"`
	JobID             string         `json:"job_id,omitempty"`
	Context           map[string]any `json:"context,omitempty"`
}

// QueryResponse is the condensed execute-mode response.
type QueryResponse struct {
	RequestID    string        `json:"request_id"`
	Cached       bool          `json:"cached"`
	QueryType    QueryType     `json:"query_type"`
	Translation  FilterTree    `json:"translation"`
	SQL          *SQLQuery     `json:"sql,omitempty"`
	Results      []CandidateProfile `json:"results,omitempty"`
	ResultCount  int           `json:"result_count,omitempty"`
	JobMatching  *MatchResult  `json:"job_matching,omitempty"`
	FallbackUsed bool          `json:"fallback_used,omitempty"`
	HRAnalysis   *HRReport     `json:"hr_analysis,omitempty"`
	HRJobID      string        `json:"hr_job_id,omitempty"`
	LatencyMS    int64         `json:"latency_ms"`
}

// MaxQueryLimit caps limits arriving on the request surface;
// MaxLLMSuggestedLimit is the hard row cap the translator and the SQL
// generator both enforce, whatever limit reaches them.
const (
	MaxQueryLimit       = 500
	MaxLLMSuggestedLimit = 100
)
