package core

import "time"

// IntakeStatus is a node in the state machine's DAG.
type IntakeStatus string

const (
	StatusUploading  IntakeStatus = "uploading"
	StatusPending    IntakeStatus = "pending"
	StatusExtracting IntakeStatus = "extracting"
	StatusParsing    IntakeStatus = "parsing"
	StatusMapping    IntakeStatus = "mapping"
	StatusStoring    IntakeStatus = "storing"
	StatusIndexing   IntakeStatus = "indexing"
	StatusCompleted  IntakeStatus = "completed"
	StatusFailed     IntakeStatus = "failed"
)

// statusOrder is the linear status DAG. failed is reachable from any
// non-terminal state and is handled separately from the linear index.
var statusOrder = []IntakeStatus{
	StatusUploading, StatusPending, StatusExtracting, StatusParsing,
	StatusMapping, StatusStoring, StatusIndexing, StatusCompleted,
}

// StatusDAG returns the linear status order, for callers (the status
// endpoint) that derive per-step progress reports.
func StatusDAG() []IntakeStatus {
	out := make([]IntakeStatus, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Index returns this status's position in the DAG, or -1 for "failed"
// (which is not part of the monotone linear order).
func (s IntakeStatus) Index() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether no further transitions are allowed.
func (s IntakeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo enforces monotonicity: a later status index, or a
// transition into the terminal "failed" state from any non-terminal
// status. Replaying the same status is a no-op, not an error.
func (s IntakeStatus) CanTransitionTo(next IntakeStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	if s == next {
		return true
	}
	return next.Index() > s.Index()
}

// Progress returns the fraction of the DAG completed: the index of the
// current state divided by the DAG length, all-completed on terminal
// success, zero on failure.
func (s IntakeStatus) Progress() float64 {
	switch s {
	case StatusCompleted:
		return 1.0
	case StatusFailed:
		return 0.0
	}
	idx := s.Index()
	if idx < 0 {
		return 0.0
	}
	return float64(idx) / float64(len(statusOrder))
}

// ExtractionMethod is the document-router's classification output.
type ExtractionMethod string

const (
	MethodDOCX        ExtractionMethod = "docx"
	MethodDirectPDF    ExtractionMethod = "direct_pdf"
	MethodTripleOCR    ExtractionMethod = "triple_ocr"
	MethodUnsupported  ExtractionMethod = "unsupported"
)

// ExtractionMetadata is written to object storage at
// metadata/<correlation_id>.json.
type ExtractionMetadata struct {
	CorrelationID string           `json:"correlation_id"`
	SourceKey     string           `json:"source_key"`
	Method        ExtractionMethod `json:"method"`
	DocumentType  string           `json:"document_type"`
	Confidence    float64          `json:"confidence"`
	PageCount     int              `json:"page_count"`
	HasImages     bool             `json:"has_images"`
	TextLength    int              `json:"text_length"`
	ExtractedAt   time.Time        `json:"extracted_at"`
	OCRDetails    *OCRDetails      `json:"ocr_details,omitempty"`
}

// OCRDetails records the triple-OCR fusion outcome for the metadata
// artifact.
type OCRDetails struct {
	AgreementRate      float64            `json:"agreement_rate"`
	ArbitrationUsed    bool               `json:"arbitration_used"`
	PerEngineConfidence map[string]float64 `json:"per_engine_confidence"`
	Attribution         map[string]float64 `json:"attribution"`
}

// WriteVerification is the post-write count-verification outcome,
// persisted back onto the intake record.
type WriteVerification struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Info     []string `json:"info,omitempty"`
}

// CompletenessAudit is the completeness-audit outcome.
type CompletenessAudit struct {
	Score        float64 `json:"score"`
	QualityLevel string  `json:"quality_level"`
	SectionCounts map[string]int `json:"section_counts"`
}

// IntakeRecord is the single source of truth for an in-flight or
// completed intake job, keyed by CorrelationID. Lives in the key-value
// store.
type IntakeRecord struct {
	CorrelationID string       `json:"cv_id"`
	Status        IntakeStatus `json:"status"`
	UpdatedAt     time.Time    `json:"updated_at"`
	CreatedAt     time.Time    `json:"created_at"`

	S3Key    string `json:"s3_key"`
	Filename string `json:"filename"`

	ExtractionMethod     ExtractionMethod `json:"extraction_method,omitempty"`
	ExtractionConfidence float64          `json:"extraction_confidence,omitempty"`
	TextArtifactKey      string           `json:"text_artifact_key,omitempty"`
	ParsedArtifactKey    string           `json:"parsed_artifact_key,omitempty"`

	CandidateID       *string            `json:"candidate_id,omitempty"`
	CompletenessAudit *CompletenessAudit `json:"completeness_audit,omitempty"`
	WriteVerification *WriteVerification `json:"write_verification,omitempty"`
	QualityLevel      string             `json:"quality_level,omitempty"`

	SectionCounts map[string]int `json:"section_counts,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// StepReport is one row in the status endpoint's steps[] array.
type StepReport struct {
	Step    string  `json:"step"`
	Status  string  `json:"status"` // pending|running|done|failed|skipped
	Detail  string  `json:"detail,omitempty"`
}

// StatusResponse is the payload for GET /status/<correlation_id>.
type StatusResponse struct {
	CorrelationID string           `json:"correlation_id"`
	Status        IntakeStatus     `json:"status"`
	Progress      float64          `json:"progress"`
	Steps         []StepReport     `json:"steps"`
	Error         string           `json:"error,omitempty"`
	Candidate     *CandidateProfile `json:"candidate,omitempty"`
	Unmatched     []UnmatchedItem   `json:"unmatched,omitempty"`
}
