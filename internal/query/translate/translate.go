// Package translate implements the Query Translator and Router: an
// LLM call against a versioned prompt that turns a natural-language HR
// query into a FilterTree, a regex-based degraded-mode fallback when the
// LLM is unavailable, and the confidence-gated routing decision that
// picks structured/semantic/hybrid/clarification handling,
// in the retry/JSON-extraction idiom of internal/intake/structurer.
package translate

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cvintake/internal/core"
	"cvintake/internal/llm"
)

//go:embed prompts/default.tmpl
var defaultPromptTemplate string

const maxRetries = 2

// Routing confidence gates: proceed above 0.8, warn in between, ask
// for clarification below 0.5.
const (
	highConfidence     = 0.8
	moderateConfidence = 0.5
)

// Translator wraps a completion client with the query translator's prompt/retry/fallback
// policy.
type Translator struct {
	llm           *llm.Client
	model         llm.Model
	promptDir     string
	promptVersion string
}

func New(client *llm.Client, model llm.Model, promptDir, promptVersion string) *Translator {
	return &Translator{llm: client, model: model, promptDir: promptDir, promptVersion: promptVersion}
}

// rawTranslation is the LLM's expected strict JSON output shape.
type rawTranslation struct {
	QueryType              string   `json:"query_type"`
	Confidence             float64  `json:"confidence"`
	Filters                map[string]struct {
		Operator string `json:"operator"`
		Value    any    `json:"value"`
	} `json:"filters"`
	UnknownTerms          []string `json:"unknown_terms"`
	ClarificationNeeded   bool     `json:"clarification_needed"`
	ClarificationQuestion string   `json:"clarification_question"`
	SemanticQuery         string   `json:"semantic_query"`
	Sort                  *struct {
		Field     string `json:"field"`
		Direction string `json:"direction"`
	} `json:"sort"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Translate converts a natural-language query into a routed FilterTree.
// On LLM failure across all retries it degrades to the regex fallback
// rather than surfacing an error, since a query endpoint must always
// answer with something routable.
func (t *Translator) Translate(ctx context.Context, query string) core.FilterTree {
	query = strings.TrimSpace(query)
	prompt := t.renderPrompt(query)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := t.llm.Complete(ctx, llm.CompletionRequest{
			Model:       t.model,
			System:      "You translate HR search queries into strict JSON filters. Output JSON only.",
			Prompt:      prompt,
			MaxTokens:   1024,
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
		var raw rawTranslation
		if err := json.Unmarshal([]byte(doc), &raw); err != nil {
			lastErr = fmt.Errorf("attempt %d: invalid translation JSON: %w", attempt, err)
			continue
		}
		tree := buildFilterTree(raw, query)
		return route(tree)
	}

	tree := regexFallback(query, lastErr)
	return route(tree)
}

func (t *Translator) renderPrompt(query string) string {
	tmpl := defaultPromptTemplate
	if t.promptDir != "" && t.promptVersion != "" {
		path := filepath.Join(t.promptDir, t.promptVersion+".tmpl")
		if b, err := os.ReadFile(path); err == nil {
			tmpl = string(b)
		}
	}
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, query)
	}
	return tmpl + "\n\nQUERY:\n" + query
}

func buildFilterTree(raw rawTranslation, originalQuery string) core.FilterTree {
	queryType := core.QueryType(raw.QueryType)
	switch queryType {
	case core.QueryStructured, core.QuerySemantic, core.QueryHybrid, core.QueryClarification:
	default:
		queryType = core.QueryStructured
	}

	var sortOrder *core.SortOrder
	if raw.Sort != nil {
		direction := core.SortDesc
		if raw.Sort.Direction == string(core.SortAsc) {
			direction = core.SortAsc
		}
		sortOrder = &core.SortOrder{Field: raw.Sort.Field, Direction: direction}
	}

	limit := raw.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > core.MaxLLMSuggestedLimit {
		limit = core.MaxLLMSuggestedLimit
	}

	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	filters := validateFilters(raw.Filters)

	return core.FilterTree{
		QueryType:             queryType,
		Confidence:            confidence,
		Filters:               filters,
		Sort:                  sortOrder,
		Limit:                 limit,
		Offset:                raw.Offset,
		SemanticQuery:         raw.SemanticQuery,
		ClarificationQuestion: raw.ClarificationQuestion,
		UnknownTerms:          raw.UnknownTerms,
	}
}

func validateFilters(raw map[string]struct {
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}) []core.FilterCondition {
	fields := make([]string, 0, len(raw))
	for field := range raw {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	conditions := make([]core.FilterCondition, 0, len(fields))
	for _, field := range fields {
		entry := raw[field]
		if entry.Value == nil {
			continue
		}
		op := core.FilterOperator(entry.Operator)
		if !validOperator(op) {
			op = core.OpEq
		}
		conditions = append(conditions, core.FilterCondition{Field: field, Operator: op, Value: entry.Value})
	}
	return conditions
}

func validOperator(op core.FilterOperator) bool {
	switch op {
	case core.OpEq, core.OpNe, core.OpGt, core.OpGte, core.OpLt, core.OpLte,
		core.OpBetween, core.OpIn, core.OpNotIn, core.OpContains, core.OpAny,
		core.OpAll, core.OpIsNull, core.OpIsNotNull:
		return true
	}
	return false
}

// route applies the confidence gating on top of the
// translated (or fallback) tree, overriding query_type when confidence
// is too low or no concrete type was set.
func route(tree core.FilterTree) core.FilterTree {
	if tree.ClarificationQuestion != "" || tree.Confidence < moderateConfidence {
		return routeClarification(tree)
	}

	switch tree.QueryType {
	case core.QueryStructured, core.QuerySemantic, core.QueryHybrid, core.QueryClarification:
		if tree.QueryType == core.QueryClarification {
			return routeClarification(tree)
		}
		return tree
	}

	if len(tree.Filters) > 0 {
		tree.QueryType = core.QueryStructured
		return tree
	}
	tree.QueryType = core.QuerySemantic
	return tree
}

func routeClarification(tree core.FilterTree) core.FilterTree {
	tree.QueryType = core.QueryClarification
	if tree.ClarificationQuestion == "" {
		switch {
		case len(tree.Filters) == 0:
			tree.ClarificationQuestion = "Δεν κατάλαβα την αναζήτηση. Μπορείτε να δώσετε περισσότερες λεπτομέρειες;"
		case len(tree.UnknownTerms) > 0:
			terms := tree.UnknownTerms
			if len(terms) > 3 {
				terms = terms[:3]
			}
			tree.ClarificationQuestion = fmt.Sprintf("Δεν αναγνώρισα: %s. Μπορείτε να διευκρινίσετε;", strings.Join(terms, ", "))
		default:
			tree.ClarificationQuestion = "Μπορείτε να διευκρινίσετε την αναζήτησή σας;"
		}
	}
	return tree
}

// extractJSON mirrors internal/intake/structurer's three-step fallback:
// direct parse, fenced code block, first '{'..last '}' window.
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

var experienceYearsRe = regexp.MustCompile(`(\d+)\+?\s*(?:χρόνια|years?|ετ[ωη])`)
var licenseRe = regexp.MustCompile(`(?:δίπλωμα|άδεια|license).*?([ABCD]'?|forklift|κλαρκ|γερανός)`)

// regexFallback is the degraded-mode translator: a
// best-effort extraction over the alias tables when the LLM path is
// unavailable, capped at 0.7 confidence.
func regexFallback(query string, cause error) core.FilterTree {
	lower := strings.ToLower(query)
	normalized := normalizeGreek(lower)

	var conditions []core.FilterCondition

	if m := experienceYearsRe.FindStringSubmatch(lower); m != nil {
		years, _ := strconv.Atoi(m[1])
		conditions = append(conditions, core.FilterCondition{Field: "experience_years", Operator: core.OpGte, Value: years})
	}

	for alias, canonical := range locationAliases {
		if strings.Contains(normalized, alias) {
			conditions = append(conditions, core.FilterCondition{Field: "location", Operator: core.OpContains, Value: canonical})
			break
		}
	}

	conditions = appendAliasFilter(conditions, normalized, "ROLE_", "role_ids")
	conditions = appendAliasFilter(conditions, normalized, "SW_", "software_ids")
	conditions = appendAliasFilter(conditions, normalized, "SKILL_", "skill_ids")
	conditions = appendAliasFilter(conditions, normalized, "CERT_", "certification_ids")

	var languages []any
	for alias, canonical := range greekAliases {
		if strings.HasPrefix(canonical, "LANG_") && strings.Contains(normalized, alias) {
			languages = append(languages, strings.ToLower(strings.TrimPrefix(canonical, "LANG_")))
		}
	}
	if len(languages) > 0 {
		conditions = append(conditions, core.FilterCondition{Field: "language_codes", Operator: core.OpAny, Value: languages})
	}

	if m := licenseRe.FindStringSubmatch(lower); m != nil {
		license := strings.Trim(strings.ToUpper(m[1]), "'")
		switch {
		case strings.Contains(strings.ToLower(license), "κλαρκ"), strings.Contains(strings.ToLower(license), "forklift"):
			license = "forklift"
		case strings.Contains(strings.ToLower(license), "γερανός"):
			license = "crane"
		}
		conditions = append(conditions, core.FilterCondition{Field: "driving_licenses", Operator: core.OpAny, Value: []any{license}})
	}

	confidence := 0.3 + 0.1*float64(len(conditions))
	if confidence > 0.7 {
		confidence = 0.7
	}

	tree := core.FilterTree{
		QueryType:   core.QuerySemantic,
		Confidence:  confidence,
		Filters:     conditions,
		Offset:      0,
		SemanticQuery: query,
	}
	if len(conditions) > 0 {
		tree.QueryType = core.QueryStructured
		tree.SemanticQuery = ""
	} else {
		tree.ClarificationQuestion = "Δεν κατάλαβα την αναζήτηση. Μπορείτε να διευκρινίσετε;"
	}
	_ = cause
	return tree
}

func appendAliasFilter(conditions []core.FilterCondition, normalized, prefix, field string) []core.FilterCondition {
	var ids []any
	for alias, canonical := range greekAliases {
		if strings.HasPrefix(canonical, prefix) && strings.Contains(normalized, alias) {
			ids = append(ids, canonical)
		}
	}
	if len(ids) == 0 {
		return conditions
	}
	return append(conditions, core.FilterCondition{Field: field, Operator: core.OpAny, Value: ids})
}
