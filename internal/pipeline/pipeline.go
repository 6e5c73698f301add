// Package pipeline orchestrates the Extraction-Parse-Index intake flow:
// state initialization, document routing, extraction (direct or
// triple-OCR), structuring, taxonomy mapping, quality audit, relational
// write, and search indexing, advancing the per-correlation-id state
// record at every stage boundary.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cvintake/internal/core"
	"cvintake/internal/intake/extract"
	"cvintake/internal/intake/router"
	"cvintake/internal/logger"
	"cvintake/internal/objectstore"
	"cvintake/internal/quality"
	"cvintake/internal/searchindex"
	"cvintake/internal/taxonomy"
)

// Pipeline wires the intake stages together. Distinct correlation ids
// may run Process concurrently; a single correlation id runs its stages
// strictly in order.
type Pipeline struct {
	state      StateStore
	artifacts  ArtifactStore
	classifier Classifier
	extractor  DirectExtractor
	ocr        OCREngine
	structurer CVStructurer
	mapper     TaxonomyMapper
	writers    WriterFactory
	embedder   Embedder
	indexer    SearchIndexer
}

// New builds a pipeline from its stage dependencies. The classifier and
// direct extractor are not parameters: New always sets them to the real
// router/extract implementations.
func New(
	state StateStore,
	artifacts ArtifactStore,
	ocrEngine OCREngine,
	cvStructurer CVStructurer,
	mapper TaxonomyMapper,
	writers WriterFactory,
	embedder Embedder,
	indexer SearchIndexer,
) *Pipeline {
	return &Pipeline{
		state:      state,
		artifacts:  artifacts,
		classifier: defaultClassifier{},
		extractor:  defaultExtractor{},
		ocr:        ocrEngine,
		structurer: cvStructurer,
		mapper:     mapper,
		writers:    writers,
		embedder:   embedder,
		indexer:    indexer,
	}
}

// Result is the terminal outcome of one intake run.
type Result struct {
	CorrelationID string
	CandidateID   string
	Status        core.IntakeStatus
}

// ProcessUpload consumes an upload event: it validates the contract,
// creates the intake record, downloads the original next to a temp
// path, and runs the staged flow.
func (p *Pipeline) ProcessUpload(ctx context.Context, event objectstore.UploadEvent) (Result, error) {
	if err := event.Validate(); err != nil {
		if event.CorrelationID != "" {
			rec := core.IntakeRecord{
				CorrelationID: event.CorrelationID,
				Status:        core.StatusUploading,
				S3Key:         event.ObjectKey,
				Filename:      event.Filename,
			}
			_ = p.state.Create(ctx, rec)
			_ = p.state.Advance(ctx, event.CorrelationID, core.StatusFailed, func(r *core.IntakeRecord) {
				r.Error = err.Error()
			})
		}
		return Result{CorrelationID: event.CorrelationID, Status: core.StatusFailed}, err
	}

	rec := core.IntakeRecord{
		CorrelationID: event.CorrelationID,
		Status:        core.StatusUploading,
		S3Key:         event.ObjectKey,
		Filename:      event.Filename,
	}
	if err := p.state.Create(ctx, rec); err != nil {
		return Result{CorrelationID: event.CorrelationID, Status: core.StatusFailed}, fmt.Errorf("creating intake record: %w", err)
	}
	if err := p.state.Advance(ctx, event.CorrelationID, core.StatusPending, nil); err != nil {
		return p.fail(ctx, event.CorrelationID, err)
	}

	data, err := p.artifacts.DownloadOriginal(ctx, event.ObjectKey)
	if err != nil {
		return p.fail(ctx, event.CorrelationID, fmt.Errorf("downloading original: %w", err))
	}
	tmp, err := writeTemp(event.Filename, data)
	if err != nil {
		return p.fail(ctx, event.CorrelationID, err)
	}
	defer os.Remove(tmp)

	return p.run(ctx, event.CorrelationID, tmp, event.ObjectKey, event.MediaType)
}

// ProcessLocal ingests a file already on local disk (the CLI intake
// path), creating the intake record itself.
func (p *Pipeline) ProcessLocal(ctx context.Context, correlationID, path, mediaType string) (Result, error) {
	rec := core.IntakeRecord{
		CorrelationID: correlationID,
		Status:        core.StatusUploading,
		Filename:      filepath.Base(path),
	}
	if err := p.state.Create(ctx, rec); err != nil {
		return Result{CorrelationID: correlationID, Status: core.StatusFailed}, fmt.Errorf("creating intake record: %w", err)
	}
	if err := p.state.Advance(ctx, correlationID, core.StatusPending, nil); err != nil {
		return p.fail(ctx, correlationID, err)
	}
	return p.run(ctx, correlationID, path, "uploads/"+filepath.Base(path), mediaType)
}

func (p *Pipeline) run(ctx context.Context, correlationID, path, sourceKey, mediaType string) (Result, error) {
	log := logger.ForCorrelation(correlationID)

	// Stage: extracting.
	if err := p.state.Advance(ctx, correlationID, core.StatusExtracting, nil); err != nil {
		return p.fail(ctx, correlationID, err)
	}

	docType, err := p.classifier.Classify(ctx, path, mediaType)
	if err != nil || docType == router.TypeUnsupported {
		if err == nil {
			err = errors.New("unsupported document type")
		}
		return p.fail(ctx, correlationID, fmt.Errorf("%w: %v", objectstore.ErrInput, err))
	}

	text, meta, err := p.extractText(ctx, correlationID, path, sourceKey, docType)
	if err != nil {
		return p.fail(ctx, correlationID, err)
	}
	log.Info().Str("method", string(meta.Method)).Float64("confidence", meta.Confidence).
		Int("text_length", meta.TextLength).Msg("extraction complete")

	textKey, err := p.artifacts.PutExtractedText(ctx, correlationID, text)
	if err != nil {
		return p.fail(ctx, correlationID, fmt.Errorf("writing text artifact: %w", err))
	}
	if _, err := p.artifacts.PutExtractionMetadata(ctx, meta); err != nil {
		return p.fail(ctx, correlationID, fmt.Errorf("writing metadata artifact: %w", err))
	}

	// Stage: parsing. No text is a hard prerequisite failure.
	if text == "" {
		return p.fail(ctx, correlationID, errors.New("no text extracted, cannot parse"))
	}
	if err := p.state.Advance(ctx, correlationID, core.StatusParsing, func(r *core.IntakeRecord) {
		r.ExtractionMethod = meta.Method
		r.ExtractionConfidence = meta.Confidence
		r.TextArtifactKey = textKey
	}); err != nil {
		return p.fail(ctx, correlationID, err)
	}

	structured, diag, err := p.structurer.Structure(ctx, text)
	if err != nil {
		return p.fail(ctx, correlationID, fmt.Errorf("structuring CV text: %w", err))
	}
	profile := structured.Profile
	profile.RawText = text

	parsedKey, err := p.artifacts.PutParsed(ctx, correlationID, profile.StructurerJSON)
	if err != nil {
		return p.fail(ctx, correlationID, fmt.Errorf("writing parsed artifact: %w", err))
	}

	// Stage: mapping.
	if err := p.state.Advance(ctx, correlationID, core.StatusMapping, func(r *core.IntakeRecord) {
		r.ParsedArtifactKey = parsedKey
	}); err != nil {
		return p.fail(ctx, correlationID, err)
	}

	unmatched := p.mapTaxonomy(ctx, &profile)
	if len(unmatched) > 0 {
		if _, err := p.artifacts.PutUnmatched(ctx, correlationID, unmatched); err != nil {
			log.Warn().Err(err).Msg("writing unmatched artifact failed")
		}
	}

	// Stage: storing.
	if err := p.state.Advance(ctx, correlationID, core.StatusStoring, nil); err != nil {
		return p.fail(ctx, correlationID, err)
	}

	audit, auditWarnings := quality.Audit(&profile)
	profile.CompletenessScore = audit.Score
	profile.QualityLevel = audit.QualityLevel
	warnings := append(diag.Warnings, auditWarnings...)
	if auditJSON, err := json.Marshal(audit); err == nil {
		profile.AuditJSON = string(auditJSON)
	}

	writer, err := p.writers()
	if err != nil {
		return p.fail(ctx, correlationID, fmt.Errorf("opening write connection: %w", err))
	}
	writeResult, verification, err := writer.Write(ctx, &profile, warnings)
	closeErr := writer.Close()
	if err != nil {
		return p.fail(ctx, correlationID, fmt.Errorf("writing candidate: %w", err))
	}
	if closeErr != nil {
		log.Warn().Err(closeErr).Msg("closing write connection failed")
	}
	profile.ID = writeResult.CandidateID

	counts := sectionCounts(&profile)

	// Stage: indexing. A search-index failure is non-fatal: data is
	// committed relationally; the record just carries the error.
	if err := p.state.Advance(ctx, correlationID, core.StatusIndexing, func(r *core.IntakeRecord) {
		id := writeResult.CandidateID
		r.CandidateID = &id
		r.WriteVerification = &verification
		r.CompletenessAudit = &audit
		r.QualityLevel = audit.QualityLevel
		r.SectionCounts = counts
	}); err != nil {
		return p.fail(ctx, correlationID, err)
	}

	indexErr := p.index(ctx, &profile)
	if indexErr != nil {
		log.Warn().Err(indexErr).Msg("search indexing failed, continuing")
	}

	if err := p.state.Advance(ctx, correlationID, core.StatusCompleted, func(r *core.IntakeRecord) {
		if indexErr != nil {
			r.Error = "search indexing failed: " + indexErr.Error()
		}
	}); err != nil {
		return p.fail(ctx, correlationID, err)
	}

	log.Info().Str("candidate_id", writeResult.CandidateID).Bool("created", writeResult.Created).
		Float64("completeness", audit.Score).Msg("intake completed")
	return Result{CorrelationID: correlationID, CandidateID: writeResult.CandidateID, Status: core.StatusCompleted}, nil
}

// extractText dispatches on the routed document type and assembles the
// metadata artifact.
func (p *Pipeline) extractText(ctx context.Context, correlationID, path, sourceKey string, docType router.DocumentType) (string, core.ExtractionMetadata, error) {
	meta := core.ExtractionMetadata{
		CorrelationID: correlationID,
		SourceKey:     sourceKey,
		DocumentType:  string(docType),
		ExtractedAt:   time.Now().UTC(),
	}

	switch docType {
	case router.TypeDOCX:
		res, err := p.extractor.DOCX(path)
		if err != nil {
			return "", meta, fmt.Errorf("docx extraction: %w", err)
		}
		fillDirectMeta(&meta, core.MethodDOCX, res)
		return res.Text, meta, nil

	case router.TypePDFText:
		res, err := p.extractor.TextPDF(path)
		if err != nil {
			return "", meta, fmt.Errorf("pdf extraction: %w", err)
		}
		fillDirectMeta(&meta, core.MethodDirectPDF, res)
		return res.Text, meta, nil

	case router.TypePDFScanned, router.TypeImage:
		fusion, err := p.ocr.Extract(ctx, path, correlationID)
		if err != nil {
			return "", meta, fmt.Errorf("triple-ocr extraction: %w", err)
		}
		meta.Method = core.MethodTripleOCR
		meta.Confidence = fusion.FinalConfidence
		meta.TextLength = len(fusion.FinalText)
		meta.PageCount = 1
		perEngine := make(map[string]float64, len(fusion.IndividualResults))
		for _, r := range fusion.IndividualResults {
			perEngine[r.Engine] = r.Confidence
		}
		meta.OCRDetails = &core.OCRDetails{
			AgreementRate:       fusion.AgreementRate,
			ArbitrationUsed:     fusion.ArbitrationNeeded,
			PerEngineConfidence: perEngine,
			Attribution:         fusion.SourceAttribution,
		}
		return fusion.FinalText, meta, nil
	}

	return "", meta, fmt.Errorf("%w: unsupported document type %s", objectstore.ErrInput, docType)
}

func fillDirectMeta(meta *core.ExtractionMetadata, method core.ExtractionMethod, res extract.Result) {
	meta.Method = method
	meta.Confidence = res.Confidence
	meta.PageCount = res.PageCount
	meta.HasImages = res.HasImages
	meta.TextLength = len(res.Text)
}

// mapTaxonomy runs the mapping cascade per item: tiers 1-3 inline, then one
// batched semantic pass over everything still unresolved. Skills,
// software, and certifications that end unmatched are returned for the
// unmatched-items artifact; role links stay on the experience entries
// either way.
func (p *Pipeline) mapTaxonomy(ctx context.Context, profile *core.CandidateProfile) []core.UnmatchedItem {
	var assigns []func(core.TaxonomyLink)
	var sems []taxonomy.SemanticCandidate

	resolve := func(kind taxonomy.Kind, raw string, assign func(core.TaxonomyLink)) {
		if raw == "" {
			assign(core.TaxonomyLink{MatchMethod: core.MatchNone})
			return
		}
		link, err := p.mapper.Map(ctx, kind, raw)
		if err != nil {
			link = core.TaxonomyLink{MatchMethod: core.MatchNone}
		}
		if link.MatchMethod == core.MatchNone {
			idx := len(assigns)
			assigns = append(assigns, assign)
			sems = append(sems, taxonomy.SemanticCandidate{Index: idx, Raw: raw, Kind: kind})
			return
		}
		assign(link)
	}

	for i := range profile.Skills {
		i := i
		resolve(taxonomy.KindSkill, profile.Skills[i].Name, func(l core.TaxonomyLink) { profile.Skills[i].Taxonomy = l })
	}
	for i := range profile.Software {
		i := i
		resolve(taxonomy.KindSoftware, profile.Software[i].Name, func(l core.TaxonomyLink) { profile.Software[i].Taxonomy = l })
	}
	for i := range profile.Certifications {
		i := i
		resolve(taxonomy.KindCertification, profile.Certifications[i].Name, func(l core.TaxonomyLink) { profile.Certifications[i].Taxonomy = l })
	}
	for i := range profile.Experience {
		i := i
		resolve(taxonomy.KindRole, profile.Experience[i].Title, func(l core.TaxonomyLink) { profile.Experience[i].Role = l })
	}

	if len(sems) > 0 {
		// A semantic-tier failure downgrades to the fuzzy outcome rather
		// than failing the pipeline.
		results, err := p.mapper.MapSemanticBatch(ctx, sems)
		if err != nil {
			results = map[int]core.TaxonomyLink{}
		}
		for _, sc := range sems {
			link, ok := results[sc.Index]
			if !ok || link.MatchMethod == "" {
				link = core.TaxonomyLink{MatchMethod: core.MatchNone}
			}
			assigns[sc.Index](link)
		}
	}

	var unmatched []core.UnmatchedItem
	collect := func(itemType, raw string, link core.TaxonomyLink) {
		if raw == "" || !link.Unmatched() {
			return
		}
		item := core.UnmatchedItem{
			ItemType:        itemType,
			RawValue:        raw,
			NormalizedValue: taxonomy.Normalize(raw),
		}
		if link.SuggestedTaxonomyID != nil {
			l := link
			item.Suggested = &l
		}
		unmatched = append(unmatched, item)
	}
	for _, s := range profile.Skills {
		collect("skill", s.Name, s.Taxonomy)
	}
	for _, s := range profile.Software {
		collect("software", s.Name, s.Taxonomy)
	}
	for _, c := range profile.Certifications {
		collect("certification", c.Name, c.Taxonomy)
	}
	return unmatched
}

// index embeds the candidate's salient-field payload and replaces the
// search document.
func (p *Pipeline) index(ctx context.Context, profile *core.CandidateProfile) error {
	vectors, err := p.embedder.Embed(ctx, []string{searchindex.EmbeddingText(profile)})
	if err != nil {
		return fmt.Errorf("embedding candidate: %w", err)
	}
	var embedding []float32
	if len(vectors) > 0 {
		embedding = vectors[0]
	}
	doc := searchindex.BuildDocument(profile, embedding)
	if err := p.indexer.IndexDocument(ctx, doc); err != nil {
		return fmt.Errorf("indexing candidate %s: %w", profile.ID, err)
	}
	return nil
}

// fail moves the record to the terminal failed state with a sanitized
// message and returns the original error.
func (p *Pipeline) fail(ctx context.Context, correlationID string, cause error) (Result, error) {
	log := logger.ForCorrelation(correlationID)
	log.Error().Err(cause).Msg("intake failed")
	_ = p.state.Advance(ctx, correlationID, core.StatusFailed, func(r *core.IntakeRecord) {
		r.Error = cause.Error()
	})
	return Result{CorrelationID: correlationID, Status: core.StatusFailed}, cause
}

func sectionCounts(c *core.CandidateProfile) map[string]int {
	return map[string]int{
		"education":        len(c.Education),
		"experience":       len(c.Experience),
		"skills":           len(c.Skills),
		"languages":        len(c.Languages),
		"certifications":   len(c.Certifications),
		"software":         len(c.Software),
		"training":         len(c.Training),
		"driving_licenses": len(c.DrivingLicenses),
	}
}

func writeTemp(filename string, data []byte) (string, error) {
	ext := filepath.Ext(filename)
	f, err := os.CreateTemp("", "cvintake-*"+ext)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
