package pipeline

import (
	"context"

	"cvintake/internal/core"
	"cvintake/internal/intake/extract"
	"cvintake/internal/intake/ocr"
	"cvintake/internal/intake/router"
	"cvintake/internal/intake/structurer"
	"cvintake/internal/persistence"
	"cvintake/internal/taxonomy"
)

// StateStore is the state machine surface the pipeline drives, satisfied by
// *state.Store.
type StateStore interface {
	Create(ctx context.Context, rec core.IntakeRecord) error
	Get(ctx context.Context, correlationID string) (*core.IntakeRecord, error)
	Advance(ctx context.Context, correlationID string, next core.IntakeStatus, mutate func(*core.IntakeRecord)) error
}

// ArtifactStore is the content-addressed object-store surface, satisfied
// by *objectstore.Store.
type ArtifactStore interface {
	DownloadOriginal(ctx context.Context, sourceKey string) ([]byte, error)
	PutExtractedText(ctx context.Context, correlationID, text string) (string, error)
	PutExtractionMetadata(ctx context.Context, meta core.ExtractionMetadata) (string, error)
	PutParsed(ctx context.Context, correlationID, structurerJSON string) (string, error)
	PutUnmatched(ctx context.Context, correlationID string, items []core.UnmatchedItem) (string, error)
}

// Classifier is the document router surface; the default adapter wraps
// router.Classify.
type Classifier interface {
	Classify(ctx context.Context, path, declaredMediaType string) (router.DocumentType, error)
}

// DirectExtractor is the direct extractor surface; the default adapter wraps the
// extract package's DOCX and TextPDF functions.
type DirectExtractor interface {
	DOCX(path string) (extract.Result, error)
	TextPDF(path string) (extract.Result, error)
}

// OCREngine is the triple-OCR engine surface, satisfied by *ocr.Engine.
type OCREngine interface {
	Extract(ctx context.Context, path, correlationID string) (ocr.FusionResult, error)
}

// CVStructurer is the CV structurer surface, satisfied by *structurer.Structurer.
type CVStructurer interface {
	Structure(ctx context.Context, rawText string) (structurer.Result, core.Diagnostics, error)
}

// TaxonomyMapper is the taxonomy mapper surface, satisfied by *taxonomy.Mapper.
type TaxonomyMapper interface {
	Map(ctx context.Context, kind taxonomy.Kind, raw string) (core.TaxonomyLink, error)
	MapSemanticBatch(ctx context.Context, items []taxonomy.SemanticCandidate) (map[int]core.TaxonomyLink, error)
}

// CandidateWriter is the relational writer surface, satisfied by *persistence.DB.
type CandidateWriter interface {
	Write(ctx context.Context, c *core.CandidateProfile, warnings []core.QualityWarning) (persistence.WriteResult, core.WriteVerification, error)
	Close() error
}

// WriterFactory opens a fresh CandidateWriter for one write request —
// never a shared pool, so an aborted-transaction connection cannot
// poison a later write.
type WriterFactory func() (CandidateWriter, error)

// Embedder is the embedding half of the LLM capability set.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// SearchIndexer is the search indexer write surface, satisfied by *searchindex.Index.
type SearchIndexer interface {
	IndexDocument(ctx context.Context, doc core.SearchDocument) error
}
