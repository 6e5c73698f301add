package pipeline

import (
	"context"

	"cvintake/internal/intake/extract"
	"cvintake/internal/intake/router"
	"cvintake/internal/persistence"
)

// defaultClassifier wraps the router package's classification function.
type defaultClassifier struct{}

func (defaultClassifier) Classify(ctx context.Context, path, declaredMediaType string) (router.DocumentType, error) {
	return router.Classify(ctx, path, declaredMediaType)
}

// defaultExtractor wraps the extract package's direct extraction.
type defaultExtractor struct{}

func (defaultExtractor) DOCX(path string) (extract.Result, error)    { return extract.DOCX(path) }
func (defaultExtractor) TextPDF(path string) (extract.Result, error) { return extract.TextPDF(path) }

// PostgresWriterFactory returns a WriterFactory that opens a fresh
// connection per write request against connStr.
func PostgresWriterFactory(connStr string) WriterFactory {
	return func() (CandidateWriter, error) {
		return persistence.NewDB(connStr)
	}
}
