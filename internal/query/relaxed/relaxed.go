// Package relaxed implements the Relaxed Matcher: invoked when the
// strict SQL path returns zero rows (or errors) and the caller opted in
// with use_job_matching. It extracts a compact requirements structure via
// the LLM, scores active candidates against the satisfied subset of
// those requirements with a PostgreSQL function, then asks a cheaper
// model for short per-candidate evaluations over the top N scored
// candidates.
package relaxed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cvintake/internal/core"
	"cvintake/internal/llm"
)

// Scorer is the subset of persistence.DB this package needs: the
// PostgreSQL scoring function call and the enriched-profile fetch for
// the top candidates' LLM evaluation.
type Scorer interface {
	ScoreAgainstCriteria(ctx context.Context, criteria []string, limit int) ([]ScoredCandidate, error)
	FetchEnriched(ctx context.Context, candidateIDs []string) ([]core.CandidateProfile, error)
}

// ScoredCandidate mirrors persistence.CandidateScore without importing
// the persistence package directly (keeps this package DB-agnostic and
// testable against a fake).
type ScoredCandidate struct {
	CandidateID     string
	SatisfiedCount  int
	TotalCriteria   int
	SatisfiedLabels []string
	MissingLabels   []string
}

// Matcher wraps an LLM client and a Scorer with the relaxed matcher's relaxed-matching
// policy.
type Matcher struct {
	llmClient        *llm.Client
	extractionModel  llm.Model // same model as the translator
	evaluationModel  llm.Model // cheaper model for the per-candidate one-liners
	scorer           Scorer
	topN             int
}

func New(client *llm.Client, extractionModel, evaluationModel llm.Model, scorer Scorer, topN int) *Matcher {
	if topN <= 0 {
		topN = 5
	}
	return &Matcher{llmClient: client, extractionModel: extractionModel, evaluationModel: evaluationModel, scorer: scorer, topN: topN}
}

type requirementsDoc struct {
	Criteria []string `json:"criteria"` // short human-readable requirement labels, e.g. "5+ years experience"
}

// Match runs the full relaxed-matching flow over a free-text query and the original
// FilterTree the strict path could not satisfy.
func (m *Matcher) Match(ctx context.Context, query string, tree core.FilterTree) (core.MatchResult, error) {
	criteria, err := m.extractRequirements(ctx, query, tree)
	if err != nil {
		return core.MatchResult{}, fmt.Errorf("extracting requirements: %w", err)
	}
	if len(criteria) == 0 {
		return core.MatchResult{FallbackUsed: true}, nil
	}

	scored, err := m.scorer.ScoreAgainstCriteria(ctx, criteria, 50)
	if err != nil {
		return core.MatchResult{}, fmt.Errorf("scoring candidates: %w", err)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].SatisfiedCount > scored[j].SatisfiedCount })

	top := scored
	if len(top) > m.topN {
		top = top[:m.topN]
	}

	var topIDs []string
	for _, s := range top {
		topIDs = append(topIDs, s.CandidateID)
	}
	enriched, err := m.scorer.FetchEnriched(ctx, topIDs)
	if err != nil {
		return core.MatchResult{}, fmt.Errorf("fetching enriched profiles for evaluation: %w", err)
	}
	byID := make(map[string]core.CandidateProfile, len(enriched))
	for _, c := range enriched {
		byID[c.ID] = c
	}

	var matches []core.CandidateMatch
	for _, s := range scored {
		pct := 0.0
		if s.TotalCriteria > 0 {
			pct = 100.0 * float64(s.SatisfiedCount) / float64(s.TotalCriteria)
		}
		level := levelFor(pct)
		recommendation := recommendationFor(level, pct)

		comment := fmt.Sprintf("matched %d/%d criteria", s.SatisfiedCount, s.TotalCriteria)
		if profile, ok := byID[s.CandidateID]; ok {
			if evaluated, err := m.evaluate(ctx, query, profile, s); err == nil && evaluated != "" {
				comment = evaluated
			}
		}

		matches = append(matches, core.CandidateMatch{
			CandidateID:     s.CandidateID,
			MatchLevel:      level,
			MatchPercentage: pct,
			Matched:         s.SatisfiedLabels,
			Missing:         s.MissingLabels,
			Comment:         comment,
			Recommendation:  recommendation,
		})
	}

	return core.MatchResult{Candidates: matches, FallbackUsed: true}, nil
}

func levelFor(pct float64) core.MatchLevel {
	switch {
	case pct >= 70:
		return core.MatchHigh
	case pct >= 40:
		return core.MatchMedium
	default:
		return core.MatchLow
	}
}

func recommendationFor(level core.MatchLevel, pct float64) core.Recommendation {
	switch {
	case level == core.MatchHigh:
		return core.RecommendInterview
	case pct >= 40:
		return core.RecommendConsider
	default:
		return core.RecommendSkip
	}
}

func (m *Matcher) extractRequirements(ctx context.Context, query string, tree core.FilterTree) ([]string, error) {
	if criteria := criteriaFromFilters(tree); len(criteria) > 0 {
		return criteria, nil
	}

	prompt := fmt.Sprintf("Extract a short JSON list of job requirement criteria from this HR search query. "+
		"Respond as {\"criteria\": [\"...\"]} with concise human-readable labels, no more than 8 items.\n\nQuery: %s", query)
	resp, err := m.llmClient.Complete(ctx, llm.CompletionRequest{
		Model:       m.extractionModel,
		System:      "You extract structured hiring criteria from natural-language queries. Output JSON only.",
		Prompt:      prompt,
		MaxTokens:   512,
		Temperature: 0.0,
	})
	if err != nil {
		return nil, err
	}
	doc, ok := extractJSONObject(resp.Text)
	if !ok {
		return nil, fmt.Errorf("could not extract JSON from requirements extraction output")
	}
	var parsed requirementsDoc
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil, fmt.Errorf("invalid requirements JSON: %w", err)
	}
	return parsed.Criteria, nil
}

// criteriaFromFilters derives one "field operator value" requirement
// label per FilterTree filter when there are any, avoiding a second
// LLM round-trip for the common case where the query translator already parsed the query.
func criteriaFromFilters(tree core.FilterTree) []string {
	var criteria []string
	for _, f := range tree.Filters {
		criteria = append(criteria, fmt.Sprintf("%s %s %v", f.Field, f.Operator, f.Value))
	}
	return criteria
}

// evaluate asks the cheaper evaluation model for a one-line assessment
// of a single top-N candidate against the query.
func (m *Matcher) evaluate(ctx context.Context, query string, profile core.CandidateProfile, score ScoredCandidate) (string, error) {
	prompt := fmt.Sprintf("Query: %s\nCandidate satisfies %d/%d criteria: %s\nWrite one short sentence (in English) evaluating fit for a recruiter.",
		query, score.SatisfiedCount, score.TotalCriteria, strings.Join(score.SatisfiedLabels, ", "))
	resp, err := m.llmClient.Complete(ctx, llm.CompletionRequest{
		Model:       m.evaluationModel,
		System:      "You write terse one-sentence recruiter evaluations.",
		Prompt:      prompt,
		MaxTokens:   120,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}
