package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// LocalTesseract is the default TesseractClient, backed by the
// gosseract/v2 bindings.
type LocalTesseract struct{}

// Extract runs Tesseract against a single image file.
func (LocalTesseract) Extract(ctx context.Context, path string, lang string) (string, float64, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(lang); err != nil {
		return "", 0, fmt.Errorf("setting tesseract language %q: %w", lang, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", 0, fmt.Errorf("setting tesseract page segmentation mode: %w", err)
	}
	if err := client.SetImage(path); err != nil {
		return "", 0, fmt.Errorf("loading image %s into tesseract: %w", path, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("tesseract extraction failed: %w", err)
	}

	confidence := 0.5
	if meanConf, err := client.GetMeanConfidence(); err == nil && meanConf > 0 {
		confidence = float64(meanConf) / 100.0
	}

	return text, confidence, nil
}
