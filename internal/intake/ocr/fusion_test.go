package ocr

import (
	"context"
	"errors"
	"math"
	"testing"
)

func result(engine, text string, confidence float64) EngineResult {
	return EngineResult{Engine: engine, Text: text, Confidence: confidence}
}

func TestFuse_AllProvidersFailed(t *testing.T) {
	e := &Engine{}
	out := e.fuse(context.Background(), []EngineResult{
		{Engine: "claude_vision", Err: errors.New("timeout")},
		{Engine: "tesseract", Err: errors.New("no tessdata")},
		{Engine: "textract", Err: errors.New("throttled")},
	}, "corr")

	if out.FinalText != "" || out.FinalConfidence != 0 {
		t.Errorf("fuse = %+v, want empty text and zero confidence", out)
	}
}

func TestFuse_SingleSurvivorPenalized(t *testing.T) {
	e := &Engine{}
	out := e.fuse(context.Background(), []EngineResult{
		result("claude_vision", "Μαρία Παπαδοπούλου", 0.95),
		{Engine: "tesseract", Err: errors.New("failed")},
		{Engine: "textract", Err: errors.New("failed")},
	}, "corr")

	if out.FinalText != "Μαρία Παπαδοπούλου" {
		t.Errorf("final text = %q", out.FinalText)
	}
	want := 0.95 * 0.7
	if math.Abs(out.FinalConfidence-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", out.FinalConfidence, want)
	}
	if out.SourceAttribution["claude_vision"] != 1.0 {
		t.Errorf("attribution = %v", out.SourceAttribution)
	}
}

func TestFuse_HighAgreementPicksHighestConfidence(t *testing.T) {
	e := &Engine{}
	text := "Georgios Ioannou, SAP 5 years"
	out := e.fuse(context.Background(), []EngineResult{
		result("claude_vision", text, 0.95),
		result("tesseract", text, 0.82),
		result("textract", text, 0.90),
	}, "corr")

	if out.AgreementRate < 0.90 {
		t.Fatalf("identical texts should agree fully, got %v", out.AgreementRate)
	}
	if out.FinalConfidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", out.FinalConfidence)
	}
	if out.FinalText != text {
		t.Errorf("final text = %q", out.FinalText)
	}
	if out.ArbitrationNeeded {
		t.Error("no arbitration expected at high agreement")
	}
}

func TestFuse_MediumAgreementBucket(t *testing.T) {
	e := &Engine{}
	// 16 shared characters plus 4 unique per provider: every pairwise
	// ratio is exactly 2*16/40 = 0.80, squarely in the medium bucket.
	shared := "0123456789012345"
	out := e.fuse(context.Background(), []EngineResult{
		result("claude_vision", shared+"abcd", 0.95),
		result("tesseract", shared+"efgh", 0.70),
		result("textract", shared+"ijkl", 0.80),
	}, "corr")

	if math.Abs(out.AgreementRate-0.80) > 1e-9 {
		t.Fatalf("agreement = %v, want 0.80", out.AgreementRate)
	}
	if out.FinalConfidence != 0.80 {
		t.Errorf("confidence = %v, want 0.80", out.FinalConfidence)
	}
	if out.FinalText != shared+"abcd" {
		t.Errorf("final text should come from the highest-confidence provider, got %q", out.FinalText)
	}
}

func TestFuse_AttributionSumsToOne(t *testing.T) {
	e := &Engine{}
	out := e.fuse(context.Background(), []EngineResult{
		result("claude_vision", "accountant softone athens", 0.95),
		result("tesseract", "accountant softone athens!", 0.75),
		result("textract", "accountant softone athina", 0.80),
	}, "corr")

	var sum float64
	for _, v := range out.SourceAttribution {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("attribution sums to %v: %v", sum, out.SourceAttribution)
	}
}

func TestCalculateAgreement_BoundaryInclusive(t *testing.T) {
	// The tie-break is inclusive at the low end: agreement exactly at a
	// threshold lands in the higher-confidence bucket.
	if highAgreementThreshold != 0.90 || mediumAgreementThreshold != 0.70 {
		t.Fatal("bucket thresholds changed")
	}
	e := &Engine{}

	// Identical pair: agreement exactly 1.0 >= 0.90.
	out := e.fuse(context.Background(), []EngineResult{
		result("a", "same text", 0.9),
		result("b", "same text", 0.8),
	}, "corr")
	if out.FinalConfidence != highConfidence {
		t.Errorf("confidence = %v, want %v at agreement 1.0", out.FinalConfidence, highConfidence)
	}

	// One differing character in ten: agreement 2*9/20 = exactly 0.90.
	out = e.fuse(context.Background(), []EngineResult{
		result("a", "0123456789", 0.9),
		result("b", "012345678x", 0.8),
	}, "corr")
	if out.FinalConfidence != highConfidence {
		t.Errorf("confidence = %v, want %v at agreement exactly 0.90", out.FinalConfidence, highConfidence)
	}

	// Three differing characters in ten: agreement 2*7/20 = exactly 0.70.
	out = e.fuse(context.Background(), []EngineResult{
		result("a", "0123456789", 0.9),
		result("b", "0123456xyz", 0.8),
	}, "corr")
	if out.FinalConfidence != mediumConfidence || out.ArbitrationNeeded {
		t.Errorf("confidence = %v (arbitration %v), want %v without arbitration at agreement exactly 0.70", out.FinalConfidence, out.ArbitrationNeeded, mediumConfidence)
	}
}

func TestLCSRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"abc", "abc", 1.0},
		{"abc", "xyz", 0.0},
		{"abcd", "abxd", 0.75}, // lcs=3, 2*3/8
	}
	for _, tc := range cases {
		if got := lcsRatio(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("lcsRatio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMediaTypeForPath(t *testing.T) {
	cases := map[string]string{
		"cv.pdf":  "application/pdf",
		"cv.JPG":  "image/jpeg",
		"scan.png": "image/png",
		"scan.bmp": "image/bmp",
	}
	for path, want := range cases {
		if got := mediaTypeForPath(path); got != want {
			t.Errorf("mediaTypeForPath(%q) = %q, want %q", path, got, want)
		}
	}
}
