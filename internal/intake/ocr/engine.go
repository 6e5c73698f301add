// Package ocr implements the triple-OCR fusion engine: three
// independent OCR providers run in parallel via errgroup, and their
// outputs are fused by pairwise text-similarity agreement.
package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cvintake/internal/llm"
)

const (
	// claudeVisionPrompt is sent to the LLM vision provider verbatim.
	claudeVisionPrompt = "Extract ALL text from this CV/resume document. " +
		"Preserve the original formatting and structure. " +
		"Include both Greek (Ελληνικά) and English text. " +
		"Return only the extracted text, nothing else."

	// tesseractLang selects the Greek and English language models.
	tesseractLang = "ell+eng"

	// textractSyncLimitBytes is the AWS Textract synchronous API's
	// document size ceiling.
	textractSyncLimitBytes = 5 * 1024 * 1024

	highAgreementThreshold   = 0.90
	mediumAgreementThreshold = 0.70
	highConfidence           = 0.95
	mediumConfidence         = 0.80
	arbitrationConfidence    = 0.70
	singleSourcePenalty      = 0.7
)

// EngineResult is one OCR provider's raw output.
type EngineResult struct {
	Engine   string
	Text     string
	Confidence float64
	Duration time.Duration
	Err      error
}

// FusionResult is the triple-OCR engine's combined output.
type FusionResult struct {
	FinalText          string
	FinalConfidence    float64
	AgreementRate      float64
	ArbitrationNeeded  bool
	SourceAttribution  map[string]float64
	IndividualResults  []EngineResult
}

// TextractClient is the narrow Textract surface the engine needs,
// satisfied by *textract.Client from aws-sdk-go-v2.
type TextractClient interface {
	DetectDocumentText(ctx context.Context, documentBytes []byte) (lines []string, confidences []float64, err error)
}

// TesseractClient is the narrow local-OCR surface, satisfied by a thin
// gosseract/v2 wrapper (see tesseract.go).
type TesseractClient interface {
	Extract(ctx context.Context, path string, lang string) (text string, confidence float64, err error)
}

// Engine runs the three OCR providers and fuses their output.
type Engine struct {
	LLM              *llm.Client
	CompletionModel  llm.Model
	ArbitrationModel llm.Model
	Textract         TextractClient
	Tesseract        TesseractClient
	ProviderTimeout  time.Duration
}

// Extract runs all three providers in parallel and fuses their
// outputs. path must point to an image file or a scanned PDF.
func (e *Engine) Extract(ctx context.Context, path string, correlationID string) (FusionResult, error) {
	documentBytes, err := os.ReadFile(path)
	if err != nil {
		return FusionResult{}, fmt.Errorf("reading document %s: %w", path, err)
	}

	results := make([]EngineResult, 3)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		results[0] = e.extractClaudeVision(gctx, path, documentBytes)
		return nil
	})
	g.Go(func() error {
		results[1] = e.extractTesseract(gctx, path)
		return nil
	})
	g.Go(func() error {
		results[2] = e.extractTextract(gctx, documentBytes)
		return nil
	})

	// Errors are captured per-result, not propagated, so one provider's
	// failure never blocks the other two.
	_ = g.Wait()

	return e.fuse(ctx, results, correlationID), nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.ProviderTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.ProviderTimeout)
}

func (e *Engine) extractClaudeVision(ctx context.Context, path string, documentBytes []byte) EngineResult {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	mediaType := mediaTypeForPath(path)

	resp, err := e.LLM.Complete(ctx, llm.CompletionRequest{
		Model:               e.CompletionModel,
		Prompt:              claudeVisionPrompt,
		Attachment:          documentBytes,
		AttachmentMediaType: mediaType,
		MaxTokens:           8000,
	})
	if err != nil {
		return EngineResult{Engine: "claude_vision", Duration: time.Since(start), Err: err}
	}

	return EngineResult{
		Engine:     "claude_vision",
		Text:       resp.Text,
		Confidence: highConfidence,
		Duration:   time.Since(start),
	}
}

func (e *Engine) extractTesseract(ctx context.Context, path string) EngineResult {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	text, confidence, err := e.Tesseract.Extract(ctx, path, tesseractLang)
	if err != nil {
		return EngineResult{Engine: "tesseract", Duration: time.Since(start), Err: err}
	}
	return EngineResult{Engine: "tesseract", Text: text, Confidence: confidence, Duration: time.Since(start)}
}

func (e *Engine) extractTextract(ctx context.Context, documentBytes []byte) EngineResult {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	if len(documentBytes) > textractSyncLimitBytes {
		return EngineResult{Engine: "textract", Duration: time.Since(start), Err: fmt.Errorf("document too large for Textract sync API (>5MB)")}
	}

	lines, confidences, err := e.Textract.DetectDocumentText(ctx, documentBytes)
	if err != nil {
		return EngineResult{Engine: "textract", Duration: time.Since(start), Err: err}
	}

	avg := averageOrDefault(confidences, 0.5)
	return EngineResult{
		Engine:     "textract",
		Text:       strings.Join(lines, "\n"),
		Confidence: avg,
		Duration:   time.Since(start),
	}
}

func mediaTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}

func averageOrDefault(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
