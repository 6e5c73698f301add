// Package extract implements the direct-extraction path: DOCX via
// github.com/nguyenthenguyen/docx and text-native PDFs via
// github.com/ledongthuc/pdf. Both paths are local-only, no network
// calls, and report a fixed confidence of 1.0 since no fusion is
// needed when a document carries its own text layer.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Result is the direct extractor's output, handed to the CV
// structurer the same way a triple-OCR fusion result is.
type Result struct {
	Text       string
	PageCount  int
	HasImages  bool
	Confidence float64
}

// DOCX parses a .docx file into ordered plain text: paragraphs, then
// pipe-joined table rows, in document order, as they appear in the
// package's word/document.xml part.
func DOCX(path string) (Result, error) {
	reader, err := docx.ReadDocxFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening docx %s: %w", path, err)
	}
	defer reader.Close()

	doc := reader.Editable()
	raw := doc.GetContent()

	text, hasImages := renderDocxXML(raw)
	return Result{
		Text:       text,
		PageCount:  1,
		HasImages:  hasImages,
		Confidence: 1.0,
	}, nil
}

var (
	docxTableRow = regexp.MustCompile(`<w:tr\b.*?</w:tr>`)
	docxCell     = regexp.MustCompile(`<w:tc\b.*?</w:tc>`)
	docxTextRun  = regexp.MustCompile(`<w:t[^>]*>(.*?)</w:t>`)
	docxParaEnd  = regexp.MustCompile(`</w:p>`)
	docxImage    = regexp.MustCompile(`<w:drawing\b|<pic:pic\b`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

// renderDocxXML turns the raw word/document.xml body into paragraph
// text, joining each table row's cells with " | ".
func renderDocxXML(raw string) (string, bool) {
	hasImages := docxImage.MatchString(raw)

	var out strings.Builder
	remaining := raw
	for {
		rowLoc := docxTableRow.FindStringIndex(remaining)
		paraLoc := docxParaEnd.FindStringIndex(remaining)

		if rowLoc == nil && paraLoc == nil {
			out.WriteString(plainTextRuns(remaining))
			break
		}
		if rowLoc != nil && (paraLoc == nil || rowLoc[0] < paraLoc[0]) {
			out.WriteString(plainTextRuns(remaining[:rowLoc[0]]))
			out.WriteString(renderDocxRow(remaining[rowLoc[0]:rowLoc[1]]))
			out.WriteString("\n")
			remaining = remaining[rowLoc[1]:]
			continue
		}

		out.WriteString(plainTextRuns(remaining[:paraLoc[1]]))
		out.WriteString("\n")
		remaining = remaining[paraLoc[1]:]
	}

	return strings.TrimSpace(out.String()), hasImages
}

func renderDocxRow(rowXML string) string {
	cells := docxCell.FindAllString(rowXML, -1)
	parts := make([]string, 0, len(cells))
	for _, cell := range cells {
		text := strings.TrimSpace(plainTextRuns(cell))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " | ")
}

func plainTextRuns(xml string) string {
	var out strings.Builder
	for _, m := range docxTextRun.FindAllStringSubmatch(xml, -1) {
		out.WriteString(xmlUnescape(m[1]))
	}
	return out.String()
}

func xmlUnescape(s string) string {
	s = xmlTag.ReplaceAllString(s, "")
	replacer := strings.NewReplacer(
		"&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", "\"", "&apos;", "'",
	)
	return replacer.Replace(s)
}

// TextPDF extracts plain text from every page of a text-native PDF,
// ending each page's text with a newline.
func TextPDF(path string) (Result, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer file.Close()

	var out strings.Builder
	pageCount := reader.NumPage()
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		out.WriteString(text)
		out.WriteString("\n")
	}

	return Result{
		Text:       strings.TrimSpace(out.String()),
		PageCount:  pageCount,
		Confidence: 1.0,
	}, nil
}

// SamplePDFText extracts plain text from the leading N pages only,
// used by the router to decide text-native vs. scanned.
func SamplePDFText(path string, maxPages int) (string, int, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer file.Close()

	pageCount := reader.NumPage()
	limit := pageCount
	if maxPages < limit {
		limit = maxPages
	}

	var out strings.Builder
	for i := 1; i <= limit; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		out.WriteString(text)
	}

	return out.String(), pageCount, nil
}
