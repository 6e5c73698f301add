// Package llm wraps AWS Bedrock behind the two capabilities every
// pipeline stage actually needs: text/vision completion and text
// embedding — a single Client struct with thin request/response types.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Model identifies a Bedrock model id. The capability client never
// hardcodes these; callers pass the id resolved from configuration
// (config.LLM.CompletionModel, config.LLM.ArbitrationModel,
// config.LLM.EmbeddingModel).
type Model string

// Client is a thin wrapper around bedrockruntime.Client offering the
// completion and embedding primitives the intake and query pipelines
// need.
type Client struct {
	rt *bedrockruntime.Client
}

// NewClient builds a Bedrock Runtime client for the given region. AWS
// credentials are resolved the standard SDK way (environment,
// shared config, IAM role).
func NewClient(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &Client{rt: bedrockruntime.NewFromConfig(cfg)}, nil
}

// CompletionRequest is a single completion call against an
// Anthropic-family model on Bedrock.
type CompletionRequest struct {
	Model       Model
	System      string
	Prompt      string

	// Attachment optionally carries inline document bytes for the
	// vision-capable OCR path: an image (png/jpeg) or, for scanned
	// PDFs, the PDF itself, which Claude's Messages API accepts as a
	// "document" content block without any page-to-image conversion.
	Attachment          []byte
	AttachmentMediaType string

	MaxTokens   int
	Temperature float64
}

// CompletionResponse carries back the generated text plus the usage
// and latency figures the caller needs for cost/quality logging.
type CompletionResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}

// anthropicMessage mirrors the subset of the Anthropic Messages API
// that bedrockruntime.InvokeModel expects in its request body.
type anthropicMessage struct {
	Role    string               `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type   string              `json:"type"`
	Text   string              `json:"text,omitempty"`
	Source *anthropicImageSrc  `json:"source,omitempty"`
}

type anthropicImageSrc struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicRequest struct {
	AnthropicVersion string              `json:"anthropic_version"`
	System           string              `json:"system,omitempty"`
	MaxTokens        int                 `json:"max_tokens"`
	Temperature      float64             `json:"temperature"`
	Messages         []anthropicMessage  `json:"messages"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Usage   anthropicUsage          `json:"usage"`
}

// Complete sends a single-turn completion request, optionally with an
// inline image or document for the vision OCR provider and the
// low-agreement arbitration path.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	blocks := []anthropicContentBlock{{Type: "text", Text: req.Prompt}}
	if len(req.Attachment) > 0 {
		blockType := "image"
		if req.AttachmentMediaType == "application/pdf" {
			blockType = "document"
		}
		blocks = append([]anthropicContentBlock{{
			Type: blockType,
			Source: &anthropicImageSrc{
				Type:      "base64",
				MediaType: req.AttachmentMediaType,
				Data:      base64.StdEncoding.EncodeToString(req.Attachment),
			},
		}}, blocks...)
	}

	body := anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		System:           req.System,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: blocks},
		},
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = 4096
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("marshaling bedrock request: %w", err)
	}

	start := time.Now()
	out, err := c.rt.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(string(req.Model)),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	latency := time.Since(start)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("invoking model %s: %w", req.Model, err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return CompletionResponse{}, fmt.Errorf("decoding bedrock response: %w", err)
	}

	var text bytes.Buffer
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return CompletionResponse{}, fmt.Errorf("empty completion from model %s", req.Model)
	}

	return CompletionResponse{
		Text:         text.String(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Latency:      latency,
	}, nil
}

type cohereEmbedRequest struct {
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates dense embeddings for a batch of texts using Cohere
// Embed v3 on Bedrock, returning one EmbeddingDimensions-wide vector
// per input text, in order.
func (c *Client) Embed(ctx context.Context, model Model, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(cohereEmbedRequest{Texts: texts, InputType: "search_document"})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	out, err := c.rt.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(string(model)),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("invoking embedding model %s: %w", model, err)
	}

	var resp cohereEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d inputs", len(resp.Embeddings), len(texts))
	}

	return resp.Embeddings, nil
}

// Embedder binds a Client to a fixed embedding model, exposing the
// model-free Embed(ctx, texts) surface the taxonomy mapper and search
// indexer consume.
type Embedder struct {
	client *Client
	model  Model
}

func (c *Client) EmbedderFor(model Model) *Embedder {
	return &Embedder{client: c, model: model}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.client.Embed(ctx, e.model, texts)
}
