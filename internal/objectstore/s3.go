// Package objectstore implements the content-addressed object-store
// layout: originals under uploads/, and per-stage artifacts keyed by
// correlation id under extracted/, metadata/, parsed/, and unmatched/.
// Backed by S3, in the same single-client-wrapper shape as
// internal/llm and internal/state.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"cvintake/internal/core"
)

// Store wraps one S3 bucket with the key layout the pipeline shares
// across the intake stages.
type Store struct {
	client *s3.Client
	bucket string
}

// New builds an object store client for the given region/bucket.
func New(ctx context.Context, region, bucket string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &Store{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// NewFromClient is the test/DI seam: wrap an already-configured client
// (e.g. pointed at LocalStack via config.AWS.Endpoint).
func NewFromClient(client *s3.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

func (s *Store) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting object %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting object %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// DownloadOriginal fetches the bytes of the uploaded source object
// (uploads/<filename>); the caller writes them to a local path for the
// router/extractors/OCR engine to operate on.
func (s *Store) DownloadOriginal(ctx context.Context, sourceKey string) ([]byte, error) {
	return s.get(ctx, sourceKey)
}

// PutExtractedText writes extracted/<correlation_id>.txt (UTF-8).
func (s *Store) PutExtractedText(ctx context.Context, correlationID, text string) (string, error) {
	key := "extracted/" + correlationID + ".txt"
	return key, s.put(ctx, key, []byte(text), "text/plain; charset=utf-8")
}

// PutExtractionMetadata writes metadata/<correlation_id>.json.
func (s *Store) PutExtractionMetadata(ctx context.Context, meta core.ExtractionMetadata) (string, error) {
	key := "metadata/" + meta.CorrelationID + ".json"
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshaling extraction metadata: %w", err)
	}
	return key, s.put(ctx, key, b, "application/json")
}

// PutParsed writes parsed/<correlation_id>.json — the full structurer
// output.
func (s *Store) PutParsed(ctx context.Context, correlationID, structurerJSON string) (string, error) {
	key := "parsed/" + correlationID + ".json"
	return key, s.put(ctx, key, []byte(structurerJSON), "application/json")
}

// PutUnmatched writes the optional unmatched/<correlation_id>.json
// artifact.
func (s *Store) PutUnmatched(ctx context.Context, correlationID string, items []core.UnmatchedItem) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	key := "unmatched/" + correlationID + ".json"
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshaling unmatched items: %w", err)
	}
	return key, s.put(ctx, key, b, "application/json")
}

// GetExtractedText reads back extracted/<correlation_id>.txt, used by
// the status endpoint and by reprocessing tools.
func (s *Store) GetExtractedText(ctx context.Context, correlationID string) (string, error) {
	b, err := s.get(ctx, "extracted/"+correlationID+".txt")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UploadEvent is the essential shape of the upload event the core
// consumes: bucket/object_key plus the correlation id
// bound to the object's metadata at presign time.
type UploadEvent struct {
	Bucket        string
	ObjectKey     string
	CorrelationID string
	Filename      string
	MediaType     string
	SizeBytes     int64
}

// AcceptedMediaTypes is the hard allow-list for the upload path.
var AcceptedMediaTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/jpeg": true,
	"image/png":  true,
}

// MaxUploadSizeBytes is the hard size bound for uploads.
const MaxUploadSizeBytes = 10 * 1024 * 1024

// Validate enforces the upload-path contract: accepted media type,
// size bound, and a bound correlation id. Returns a well-typed input
// error the pipeline surfaces as 400.
func (e UploadEvent) Validate() error {
	if e.CorrelationID == "" {
		return fmt.Errorf("%w: missing correlation_id in object metadata", ErrInput)
	}
	if !AcceptedMediaTypes[e.MediaType] {
		return fmt.Errorf("%w: unsupported media type %q", ErrInput, e.MediaType)
	}
	if e.SizeBytes > MaxUploadSizeBytes {
		return fmt.Errorf("%w: object exceeds %d byte limit", ErrInput, MaxUploadSizeBytes)
	}
	return nil
}

// ErrInput tags the input-error category, surfaced as
// HTTP 400 by the status/upload-handling surfaces.
var ErrInput = fmt.Errorf("input error")
