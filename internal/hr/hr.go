// Package hr implements the HR Intelligence Analyzer: an LLM
// ranking/evaluation stage over a bounded set of enriched candidate
// profiles, run either synchronously or as a separately invoked async
// job polled by id: bilingual prompt composition, a fallback report on
// parse failure, and the frontend categorization rule.
package hr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"cvintake/internal/core"
	"cvintake/internal/llm"
)

// greekCharThreshold is the fraction of Greek-Unicode-block characters
// above which the bilingual prompt is composed with Greek as the
// primary language.
const greekCharThreshold = 0.30

// maxSyncCandidates bounds the synchronous path's candidate count.
const maxSyncCandidates = 10

// Analyzer wraps an LLM client with the HR analyzer's prompt composition, JSON
// parsing, and fallback-report policy.
type Analyzer struct {
	llmClient *llm.Client
	model     llm.Model
}

func New(client *llm.Client, model llm.Model) *Analyzer {
	return &Analyzer{llmClient: client, model: model}
}

// Requirements is the job-requirement input to the HR analyzer, sourced
// either from the query translator's filters or an upstream parsed job posting.
type Requirements struct {
	Text     string
	Filters  []core.FilterCondition
}

// Analyze runs the synchronous HR analysis path over up to
// maxSyncCandidates enriched profiles.
func (a *Analyzer) Analyze(ctx context.Context, originalQuery string, req Requirements, candidates []core.CandidateProfile) core.HRReport {
	if len(candidates) > maxSyncCandidates {
		candidates = candidates[:maxSyncCandidates]
	}
	if len(candidates) == 0 {
		return noCandidatesReport()
	}

	prompt := composePrompt(originalQuery, req, candidates)
	resp, err := a.llmClient.Complete(ctx, llm.CompletionRequest{
		Model:       a.model,
		System:      hrSystemPrompt(originalQuery),
		Prompt:      prompt,
		MaxTokens:   4096,
		Temperature: 0.2,
	})
	if err != nil {
		return fallbackReport(candidates)
	}

	doc, ok := extractJSON(resp.Text)
	if !ok {
		return fallbackReport(candidates)
	}
	var raw rawReport
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return fallbackReport(candidates)
	}

	return buildReport(raw)
}

func hrSystemPrompt(originalQuery string) string {
	if isGreekDominant(originalQuery) {
		return "Είσαι ειδικός ανθρώπινου δυναμικού. Αξιολόγησε τους υποψηφίους και απάντησε ΜΟΝΟ σε JSON."
	}
	return "You are an HR intelligence analyst. Evaluate the candidates and respond with JSON only."
}

// isGreekDominant counts characters in the Greek Unicode blocks; the
// query is Greek-dominant at 30% or more.
func isGreekDominant(s string) bool {
	total, greek := 0, 0
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			continue
		}
		total++
		if (r >= 0x0370 && r <= 0x03FF) || (r >= 0x1F00 && r <= 0x1FFF) {
			greek++
		}
	}
	if total == 0 {
		return false
	}
	return float64(greek)/float64(total) >= greekCharThreshold
}

func composePrompt(query string, req Requirements, candidates []core.CandidateProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original request: %s\n", query)
	if req.Text != "" {
		fmt.Fprintf(&b, "Job requirements: %s\n", req.Text)
	}
	for _, f := range req.Filters {
		fmt.Fprintf(&b, "Criterion: %s %s %v\n", f.Field, f.Operator, f.Value)
	}
	b.WriteString("\nCandidates:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. id=%s name=%s %s, experience_years=%.1f, skills=%s\n",
			i+1, c.ID, c.Identity.FirstName, c.Identity.LastName, c.ExperienceYears(), skillNames(c))
	}
	b.WriteString("\nRespond with strict JSON matching the HR report schema: " +
		"{request_analysis:{summary,required_skills,preferred_skills,min_experience_years}, " +
		"query_outcome_summary, criteria_expansion_notes, " +
		"ranked_candidates:[{candidate_id,evidence,gaps,risks,interview_focus,overall_suitability,match_percentage}], " +
		"recommendation}.")
	return b.String()
}

func skillNames(c core.CandidateProfile) string {
	names := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}

type rawReport struct {
	RequestAnalysis struct {
		Summary          string   `json:"summary"`
		RequiredSkills   []string `json:"required_skills"`
		PreferredSkills  []string `json:"preferred_skills"`
		MinExperienceYrs float64  `json:"min_experience_years"`
	} `json:"request_analysis"`
	QueryOutcomeSummary    string   `json:"query_outcome_summary"`
	CriteriaExpansionNotes []string `json:"criteria_expansion_notes"`
	RankedCandidates       []struct {
		CandidateID        string   `json:"candidate_id"`
		Evidence           []string `json:"evidence"`
		Gaps               []string `json:"gaps"`
		Risks              []string `json:"risks"`
		InterviewFocus     []string `json:"interview_focus"`
		OverallSuitability string   `json:"overall_suitability"`
		MatchPercentage    float64  `json:"match_percentage"`
	} `json:"ranked_candidates"`
	Recommendation string `json:"recommendation"`
}

func buildReport(raw rawReport) core.HRReport {
	report := core.HRReport{
		RequestAnalysis: core.RequestAnalysis{
			Summary:          raw.RequestAnalysis.Summary,
			RequiredSkills:   raw.RequestAnalysis.RequiredSkills,
			PreferredSkills:  raw.RequestAnalysis.PreferredSkills,
			MinExperienceYrs: raw.RequestAnalysis.MinExperienceYrs,
		},
		QueryOutcomeSummary:    raw.QueryOutcomeSummary,
		CriteriaExpansionNotes: raw.CriteriaExpansionNotes,
		Recommendation:         raw.Recommendation,
	}
	for i, rc := range raw.RankedCandidates {
		report.RankedCandidates = append(report.RankedCandidates, core.RankedCandidate{
			CandidateID:        rc.CandidateID,
			Evidence:           rc.Evidence,
			Gaps:               rc.Gaps,
			Risks:              rc.Risks,
			InterviewFocus:     rc.InterviewFocus,
			OverallSuitability: rc.OverallSuitability,
			MatchPercentage:    rc.MatchPercentage,
			Category:           categorize(i, rc.OverallSuitability, rc.MatchPercentage),
		})
	}
	return report
}

// categorize tags top-5 ranks, overall_suitability=High, or
// match_percentage>=70 as interview; everyone else as consider.
func categorize(rank int, suitability string, pct float64) core.Recommendation {
	if rank < 5 || strings.EqualFold(suitability, "high") || pct >= 70 {
		return core.RecommendInterview
	}
	return core.RecommendConsider
}

// noCandidatesReport is returned for an empty candidate list: a
// well-formed report, not an error.
func noCandidatesReport() core.HRReport {
	return core.HRReport{
		RequestAnalysis: core.RequestAnalysis{Summary: "No candidates were available to analyze."},
		QueryOutcomeSummary: "no candidates matched the query",
		Recommendation:      "Broaden the search criteria; no candidates were found to evaluate.",
	}
}

// fallbackReport is produced when the LLM output cannot be parsed: a
// minimal RequestAnalysis summary, the top-5 candidates with default
// medium suitability, and a note that detailed analysis was
// unavailable.
func fallbackReport(candidates []core.CandidateProfile) core.HRReport {
	report := core.HRReport{
		RequestAnalysis: core.RequestAnalysis{
			Summary: "Detailed analysis was unavailable; showing the first candidates in the order they were retrieved.",
		},
		QueryOutcomeSummary: "fallback ranking used — LLM response could not be parsed",
		Recommendation:      "Review candidates manually; automated analysis failed.",
		FallbackUsed:        true,
	}
	top := candidates
	if len(top) > 5 {
		top = top[:5]
	}
	for i, c := range top {
		report.RankedCandidates = append(report.RankedCandidates, core.RankedCandidate{
			CandidateID:        c.ID,
			OverallSuitability: "Medium",
			MatchPercentage:    50,
			Category:           categorize(i, "Medium", 50),
		})
	}
	return report
}

func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// --- Async job store (the HR analyzer's polling contract) ---

// JobStore persists HRJob records under a generated job id, backed by
// DynamoDB like the intake state store; the final report is stored
// back under the job id for polling.
type JobStore struct {
	client *dynamodb.Client
	table  string
}

func NewJobStore(client *dynamodb.Client, table string) *JobStore {
	return &JobStore{client: client, table: table}
}

// NewJobID mints an id for an async analysis request.
func NewJobID() string { return uuid.NewString() }

func (s *JobStore) Put(ctx context.Context, job core.HRJob) error {
	item, err := attributevalue.MarshalMap(job)
	if err != nil {
		return fmt.Errorf("marshaling hr job: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: item})
	return err
}

func (s *JobStore) Get(ctx context.Context, jobID string) (*core.HRJob, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       map[string]types.AttributeValue{"job_id": &types.AttributeValueMemberS{Value: jobID}},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	var job core.HRJob
	if err := attributevalue.UnmarshalMap(out.Item, &job); err != nil {
		return nil, fmt.Errorf("unmarshaling hr job: %w", err)
	}
	return &job, nil
}

// JobSink is the write-side of the job store RunAsync needs; *JobStore
// satisfies it, and tests may substitute an in-memory sink.
type JobSink interface {
	Put(ctx context.Context, job core.HRJob) error
}

// RunAsync starts the analyzer in a separately invoked goroutine and
// writes the final report back into the job store under jobID, per the
// async mode's contract. The caller has already returned hr_job_id to
// the client before this runs.
func (a *Analyzer) RunAsync(ctx context.Context, store JobSink, jobID, originalQuery string, req Requirements, candidates []core.CandidateProfile) {
	go func() {
		report := a.Analyze(ctx, originalQuery, req, candidates)
		status := core.HRJobCompleted
		_ = store.Put(context.Background(), core.HRJob{JobID: jobID, Status: status, Report: &report})
	}()
}
