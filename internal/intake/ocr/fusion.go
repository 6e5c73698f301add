package ocr

import (
	"context"
	"fmt"
	"strings"

	"cvintake/internal/llm"
)

const arbitrationPromptTemplate = `Three OCR engines produced different results for the same document.
Analyze all three outputs and produce the most accurate combined text.
Focus on:
1. Correcting obvious OCR errors
2. Preserving Greek characters correctly
3. Maintaining document structure

Claude Vision result:
%s

Tesseract result:
%s

AWS Textract result:
%s

Produce the most accurate final text. Return ONLY the corrected text, no explanations.`

func (e *Engine) fuse(ctx context.Context, results []EngineResult, correlationID string) FusionResult {
	var valid []EngineResult
	for _, r := range results {
		if r.Err == nil && r.Text != "" {
			valid = append(valid, r)
		}
	}

	if len(valid) == 0 {
		return FusionResult{IndividualResults: results}
	}

	if len(valid) == 1 {
		only := valid[0]
		return FusionResult{
			FinalText:         only.Text,
			FinalConfidence:   only.Confidence * singleSourcePenalty,
			SourceAttribution: map[string]float64{only.Engine: 1.0},
			IndividualResults: results,
		}
	}

	agreement := calculateAgreement(valid)

	switch {
	case agreement >= highAgreementThreshold:
		final := highestConfidence(valid)
		return FusionResult{
			FinalText:         final.Text,
			FinalConfidence:   highConfidence,
			AgreementRate:     agreement,
			SourceAttribution: calculateAttribution(valid, final.Text),
			IndividualResults: results,
		}
	case agreement >= mediumAgreementThreshold:
		final := highestConfidence(valid)
		return FusionResult{
			FinalText:         final.Text,
			FinalConfidence:   mediumConfidence,
			AgreementRate:     agreement,
			SourceAttribution: calculateAttribution(valid, final.Text),
			IndividualResults: results,
		}
	default:
		finalText := e.arbitrate(ctx, valid, correlationID)
		return FusionResult{
			FinalText:         finalText,
			FinalConfidence:   arbitrationConfidence,
			AgreementRate:     agreement,
			ArbitrationNeeded: true,
			SourceAttribution: map[string]float64{"claude_arbitration": 1.0},
			IndividualResults: results,
		}
	}
}

// calculateAgreement averages pairwise lowercase similarity across
// every pair of valid results.
func calculateAgreement(results []EngineResult) float64 {
	if len(results) < 2 {
		return 1.0
	}
	var sum float64
	var pairs int
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			sum += lcsRatio(strings.ToLower(results[i].Text), strings.ToLower(results[j].Text))
			pairs++
		}
	}
	return sum / float64(pairs)
}

func highestConfidence(results []EngineResult) EngineResult {
	best := results[0]
	for _, r := range results[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}
	return best
}

func calculateAttribution(results []EngineResult, finalText string) map[string]float64 {
	attribution := make(map[string]float64, len(results))
	lowerFinal := strings.ToLower(finalText)
	var total float64
	for _, r := range results {
		if r.Text == "" {
			continue
		}
		sim := lcsRatio(strings.ToLower(r.Text), lowerFinal)
		attribution[r.Engine] = sim
		total += sim
	}
	if total > 0 {
		for k, v := range attribution {
			attribution[k] = v / total
		}
	}
	return attribution
}

func (e *Engine) arbitrate(ctx context.Context, results []EngineResult, correlationID string) string {
	textFor := func(engine string) string {
		for _, r := range results {
			if r.Engine == engine {
				return truncate(r.Text, 3000)
			}
		}
		return "N/A"
	}

	prompt := fmt.Sprintf(arbitrationPromptTemplate,
		textFor("claude_vision"), textFor("tesseract"), textFor("textract"))

	resp, err := e.LLM.Complete(ctx, llm.CompletionRequest{
		Model:     e.ArbitrationModel,
		Prompt:    prompt,
		MaxTokens: 8000,
	})
	if err != nil {
		return highestConfidence(results).Text
	}
	return resp.Text
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// lcsRatio scores two strings as twice the number of matching
// characters (via longest-common-subsequence) divided by their
// combined length.
func lcsRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	matches := longestCommonSubsequenceLen(a, b)
	return 2.0 * float64(matches) / float64(len(a)+len(b))
}

func longestCommonSubsequenceLen(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
