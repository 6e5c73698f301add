package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"cvintake/internal/core"
	"cvintake/internal/intake/extract"
	"cvintake/internal/intake/ocr"
	"cvintake/internal/intake/router"
	"cvintake/internal/intake/structurer"
	"cvintake/internal/objectstore"
	"cvintake/internal/persistence"
	"cvintake/internal/taxonomy"
)

type fakeState struct {
	records map[string]*core.IntakeRecord
	history []core.IntakeStatus
}

func newFakeState() *fakeState {
	return &fakeState{records: map[string]*core.IntakeRecord{}}
}

func (f *fakeState) Create(ctx context.Context, rec core.IntakeRecord) error {
	r := rec
	f.records[rec.CorrelationID] = &r
	f.history = append(f.history, rec.Status)
	return nil
}

func (f *fakeState) Get(ctx context.Context, id string) (*core.IntakeRecord, error) {
	return f.records[id], nil
}

func (f *fakeState) Advance(ctx context.Context, id string, next core.IntakeStatus, mutate func(*core.IntakeRecord)) error {
	rec := f.records[id]
	if rec == nil {
		return errors.New("no record")
	}
	if !rec.Status.CanTransitionTo(next) {
		return errors.New("regressed")
	}
	rec.Status = next
	if mutate != nil {
		mutate(rec)
	}
	f.history = append(f.history, next)
	return nil
}

type fakeArtifacts struct {
	texts     map[string]string
	parsed    map[string]string
	unmatched map[string][]core.UnmatchedItem
	metadata  []core.ExtractionMetadata
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{texts: map[string]string{}, parsed: map[string]string{}, unmatched: map[string][]core.UnmatchedItem{}}
}

func (f *fakeArtifacts) DownloadOriginal(ctx context.Context, key string) ([]byte, error) {
	return []byte("file-bytes"), nil
}

func (f *fakeArtifacts) PutExtractedText(ctx context.Context, id, text string) (string, error) {
	f.texts[id] = text
	return "extracted/" + id + ".txt", nil
}

func (f *fakeArtifacts) PutExtractionMetadata(ctx context.Context, meta core.ExtractionMetadata) (string, error) {
	f.metadata = append(f.metadata, meta)
	return "metadata/" + meta.CorrelationID + ".json", nil
}

func (f *fakeArtifacts) PutParsed(ctx context.Context, id, doc string) (string, error) {
	f.parsed[id] = doc
	return "parsed/" + id + ".json", nil
}

func (f *fakeArtifacts) PutUnmatched(ctx context.Context, id string, items []core.UnmatchedItem) (string, error) {
	f.unmatched[id] = items
	return "unmatched/" + id + ".json", nil
}

type fakeClassifier struct{ docType router.DocumentType }

func (f fakeClassifier) Classify(ctx context.Context, path, mediaType string) (router.DocumentType, error) {
	return f.docType, nil
}

type fakeExtractor struct{ text string }

func (f fakeExtractor) DOCX(path string) (extract.Result, error) {
	return extract.Result{Text: f.text, PageCount: 1, Confidence: 1.0}, nil
}

func (f fakeExtractor) TextPDF(path string) (extract.Result, error) {
	return extract.Result{Text: f.text, PageCount: 2, Confidence: 1.0}, nil
}

type fakeOCR struct{ result ocr.FusionResult }

func (f fakeOCR) Extract(ctx context.Context, path, id string) (ocr.FusionResult, error) {
	return f.result, nil
}

type fakeStructurer struct {
	profile core.CandidateProfile
	err     error
}

func (f fakeStructurer) Structure(ctx context.Context, text string) (structurer.Result, core.Diagnostics, error) {
	if f.err != nil {
		return structurer.Result{}, core.Diagnostics{Stage: "structure"}, f.err
	}
	return structurer.Result{Profile: f.profile, Confidence: 0.9}, core.Diagnostics{Stage: "structure"}, nil
}

type fakeMapper struct{ known map[string]string }

func (f fakeMapper) Map(ctx context.Context, kind taxonomy.Kind, raw string) (core.TaxonomyLink, error) {
	if id, ok := f.known[strings.ToLower(raw)]; ok {
		return core.TaxonomyLink{TaxonomyID: &id, Similarity: 1.0, MatchMethod: core.MatchExact}, nil
	}
	return core.TaxonomyLink{MatchMethod: core.MatchNone}, nil
}

func (f fakeMapper) MapSemanticBatch(ctx context.Context, items []taxonomy.SemanticCandidate) (map[int]core.TaxonomyLink, error) {
	out := make(map[int]core.TaxonomyLink, len(items))
	for _, it := range items {
		out[it.Index] = core.TaxonomyLink{MatchMethod: core.MatchNone}
	}
	return out, nil
}

type fakeWriter struct {
	written *core.CandidateProfile
	err     error
}

func (f *fakeWriter) Write(ctx context.Context, c *core.CandidateProfile, warnings []core.QualityWarning) (persistence.WriteResult, core.WriteVerification, error) {
	if f.err != nil {
		return persistence.WriteResult{}, core.WriteVerification{}, f.err
	}
	f.written = c
	return persistence.WriteResult{CandidateID: "cand-1", Created: true}, core.WriteVerification{}, nil
}

func (f *fakeWriter) Close() error { return nil }

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, 4)
	}
	return out, nil
}

type fakeIndexer struct {
	docs []core.SearchDocument
	err  error
}

func (f *fakeIndexer) IndexDocument(ctx context.Context, doc core.SearchDocument) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func sampleProfile() core.CandidateProfile {
	return core.CandidateProfile{
		Identity: core.Identity{
			FirstName: "Μαρία", LastName: "Παπαδοπούλου",
			FirstNameFolded: "μαρια", LastNameFolded: "παπαδοπουλου",
			Email: "maria@example.gr",
		},
		Skills:   []core.Skill{{Name: "SAP"}, {Name: "obscure-thing"}},
		Software: []core.Software{{Name: "Softone"}},
		Experience: []core.ExperienceEntry{{
			Title: "Software Engineer", Company: "Acme", DurationMonths: 48, IsCurrent: true,
		}},
		Education: []core.EducationEntry{{
			Institution: "Εθνικό Μετσόβιο Πολυτεχνείο", Degree: "Μηχανικός Η/Υ", Level: "master",
		}},
		StructurerJSON: `{"first_name":"Μαρία"}`,
	}
}

func buildTestPipeline(state *fakeState, artifacts *fakeArtifacts, docType router.DocumentType, writer *fakeWriter, indexer *fakeIndexer, s fakeStructurer) *Pipeline {
	p := New(state, artifacts, fakeOCR{}, s, fakeMapper{known: map[string]string{"sap": "SKILL_SAP", "softone": "SW_SOFTONE"}},
		func() (CandidateWriter, error) { return writer, nil }, fakeEmbedder{}, indexer)
	p.classifier = fakeClassifier{docType: docType}
	p.extractor = fakeExtractor{text: "Μαρία Παπαδοπούλου\nmaria@example.gr\nSoftware Engineer at Acme since 2020"}
	return p
}

func TestProcessLocal_TextPDFHappyPath(t *testing.T) {
	state := newFakeState()
	artifacts := newFakeArtifacts()
	writer := &fakeWriter{}
	indexer := &fakeIndexer{}
	p := buildTestPipeline(state, artifacts, router.TypePDFText, writer, indexer, fakeStructurer{profile: sampleProfile()})

	res, err := p.ProcessLocal(context.Background(), "corr-1", filepath.Join(t.TempDir(), "cv.pdf"), "application/pdf")
	if err != nil {
		t.Fatalf("ProcessLocal: %v", err)
	}
	if res.Status != core.StatusCompleted {
		t.Fatalf("status = %s, want completed", res.Status)
	}
	if res.CandidateID != "cand-1" {
		t.Fatalf("candidate id = %q", res.CandidateID)
	}

	rec := state.records["corr-1"]
	if rec.ExtractionMethod != core.MethodDirectPDF {
		t.Errorf("extraction method = %s, want direct_pdf", rec.ExtractionMethod)
	}
	if rec.ExtractionConfidence != 1.0 {
		t.Errorf("extraction confidence = %v, want 1.0", rec.ExtractionConfidence)
	}
	if rec.CandidateID == nil || *rec.CandidateID != "cand-1" {
		t.Errorf("record candidate id not set")
	}
	if rec.CompletenessAudit == nil || rec.CompletenessAudit.Score < 0.7 {
		t.Errorf("completeness audit missing or below 0.7: %+v", rec.CompletenessAudit)
	}

	// SAP matched exactly; obscure-thing landed in the unmatched artifact.
	if writer.written == nil {
		t.Fatal("nothing written")
	}
	if writer.written.Skills[0].Taxonomy.MatchMethod != core.MatchExact {
		t.Errorf("SAP match method = %s", writer.written.Skills[0].Taxonomy.MatchMethod)
	}
	items := artifacts.unmatched["corr-1"]
	if len(items) != 1 || items[0].RawValue != "obscure-thing" {
		t.Errorf("unmatched artifact = %+v", items)
	}

	if len(indexer.docs) != 1 || indexer.docs[0].CandidateID != "cand-1" {
		t.Errorf("search document not indexed: %+v", indexer.docs)
	}

	// Stage order is the monotone DAG prefix.
	want := []core.IntakeStatus{
		core.StatusUploading, core.StatusPending, core.StatusExtracting, core.StatusParsing,
		core.StatusMapping, core.StatusStoring, core.StatusIndexing, core.StatusCompleted,
	}
	if len(state.history) != len(want) {
		t.Fatalf("history = %v", state.history)
	}
	for i, s := range want {
		if state.history[i] != s {
			t.Errorf("history[%d] = %s, want %s", i, state.history[i], s)
		}
	}
}

func TestProcessLocal_IndexFailureIsNonFatal(t *testing.T) {
	state := newFakeState()
	writer := &fakeWriter{}
	indexer := &fakeIndexer{err: errors.New("cluster down")}
	p := buildTestPipeline(state, newFakeArtifacts(), router.TypeDOCX, writer, indexer, fakeStructurer{profile: sampleProfile()})

	res, err := p.ProcessLocal(context.Background(), "corr-2", "cv.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	if err != nil {
		t.Fatalf("ProcessLocal: %v", err)
	}
	if res.Status != core.StatusCompleted {
		t.Fatalf("status = %s, want completed despite index failure", res.Status)
	}
	rec := state.records["corr-2"]
	if !strings.Contains(rec.Error, "search indexing failed") {
		t.Errorf("record should flag the indexing error, got %q", rec.Error)
	}
}

func TestProcessLocal_StructurerFailureFails(t *testing.T) {
	state := newFakeState()
	p := buildTestPipeline(state, newFakeArtifacts(), router.TypePDFText, &fakeWriter{}, &fakeIndexer{},
		fakeStructurer{err: errors.New("llm exhausted retries")})

	res, err := p.ProcessLocal(context.Background(), "corr-3", "cv.pdf", "application/pdf")
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Status != core.StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if state.records["corr-3"].Error == "" {
		t.Error("record error not set")
	}
}

func TestProcessUpload_RejectsOversizeAndBadType(t *testing.T) {
	cases := []struct {
		name  string
		event func() (string, string, int64)
	}{
		{"oversize", func() (string, string, int64) { return "cv.pdf", "application/pdf", 11 * 1024 * 1024 }},
		{"bad media type", func() (string, string, int64) { return "cv.exe", "application/octet-stream", 100 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := newFakeState()
			p := buildTestPipeline(state, newFakeArtifacts(), router.TypePDFText, &fakeWriter{}, &fakeIndexer{}, fakeStructurer{profile: sampleProfile()})
			name, mediaType, size := tc.event()
			res, err := p.ProcessUpload(context.Background(), uploadEvent(name, mediaType, size))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if res.Status != core.StatusFailed {
				t.Errorf("status = %s, want failed", res.Status)
			}
			if rec := state.records["corr-up"]; rec == nil || rec.Status != core.StatusFailed {
				t.Errorf("intake record should be terminal failed, got %+v", rec)
			}
		})
	}
}

func TestProcessLocal_OCRPathRecordsFusionDetails(t *testing.T) {
	state := newFakeState()
	artifacts := newFakeArtifacts()
	p := buildTestPipeline(state, artifacts, router.TypePDFScanned, &fakeWriter{}, &fakeIndexer{}, fakeStructurer{profile: sampleProfile()})
	p.ocr = fakeOCR{result: ocr.FusionResult{
		FinalText:         "Γεώργιος Ιωάννου, SAP 5 χρόνια",
		FinalConfidence:   0.70,
		AgreementRate:     0.55,
		ArbitrationNeeded: true,
		SourceAttribution: map[string]float64{"claude_arbitration": 1.0},
		IndividualResults: []ocr.EngineResult{
			{Engine: "claude_vision", Confidence: 0.95},
			{Engine: "tesseract", Confidence: 0.61},
			{Engine: "textract", Confidence: 0.58},
		},
	}}

	if _, err := p.ProcessLocal(context.Background(), "corr-4", "scan.pdf", "application/pdf"); err != nil {
		t.Fatalf("ProcessLocal: %v", err)
	}

	if len(artifacts.metadata) != 1 {
		t.Fatalf("metadata artifacts = %d", len(artifacts.metadata))
	}
	meta := artifacts.metadata[0]
	if meta.Method != core.MethodTripleOCR || meta.Confidence != 0.70 {
		t.Errorf("meta = %+v", meta)
	}
	if meta.OCRDetails == nil || !meta.OCRDetails.ArbitrationUsed {
		t.Errorf("ocr details missing arbitration flag: %+v", meta.OCRDetails)
	}
}

func uploadEvent(name, mediaType string, size int64) objectstore.UploadEvent {
	return objectstore.UploadEvent{
		Bucket:        "cvintake-uploads",
		ObjectKey:     "uploads/" + name,
		CorrelationID: "corr-up",
		Filename:      name,
		MediaType:     mediaType,
		SizeBytes:     size,
	}
}
