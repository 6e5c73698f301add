// Package router classifies an uploaded CV document so the pipeline
// can pick the right extraction path.
package router

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"cvintake/internal/intake/extract"
)

// DocumentType is the router's classification output.
type DocumentType string

const (
	TypeDOCX       DocumentType = "docx"
	TypePDFText    DocumentType = "pdf_text"
	TypePDFScanned DocumentType = "pdf_scanned"
	TypeImage      DocumentType = "image"
	TypeUnsupported DocumentType = "unsupported"
)

// minDirectTextChars is the threshold below which a PDF's first pages
// are considered scanned rather than text-native.
const minDirectTextChars = 100

// samplePages is how many leading pages the router samples through
// the direct extractor before falling back to OCR classification.
const samplePages = 3

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tiff": true, ".bmp": true,
}

// Classify inspects a document's extension and, for PDFs, its leading
// pages' extractable text to decide which extraction path to use.
func Classify(ctx context.Context, path string, declaredMediaType string) (DocumentType, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".docx":
		return TypeDOCX, nil
	case ".pdf":
		return classifyPDF(path)
	default:
		if imageExtensions[ext] {
			return TypeImage, nil
		}
		return TypeUnsupported, fmt.Errorf("unsupported document extension %q (declared media type %q)", ext, declaredMediaType)
	}
}

func classifyPDF(path string) (DocumentType, error) {
	text, pageCount, err := extract.SamplePDFText(path, samplePages)
	if err != nil {
		return TypeUnsupported, fmt.Errorf("sampling pdf pages: %w", err)
	}
	if pageCount == 0 {
		return TypeUnsupported, fmt.Errorf("pdf has no pages")
	}
	if len(strings.TrimSpace(text)) >= minDirectTextChars {
		return TypePDFText, nil
	}
	return TypePDFScanned, nil
}
