package ocr

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// CloudTextract is the default TextractClient, backed by
// aws-sdk-go-v2/service/textract's synchronous detect-document-text
// API.
type CloudTextract struct {
	client *textract.Client
}

// NewCloudTextract builds a Textract client for the given region.
func NewCloudTextract(ctx context.Context, region string) (*CloudTextract, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &CloudTextract{client: textract.NewFromConfig(cfg)}, nil
}

// DetectDocumentText returns every LINE block's text and confidence,
// in the order Textract reports them.
func (t *CloudTextract) DetectDocumentText(ctx context.Context, documentBytes []byte) ([]string, []float64, error) {
	out, err := t.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: documentBytes},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("textract detect_document_text: %w", err)
	}

	var lines []string
	var confidences []float64
	for _, block := range out.Blocks {
		if block.BlockType != types.BlockTypeLine {
			continue
		}
		lines = append(lines, aws.ToString(block.Text))
		if block.Confidence != nil {
			confidences = append(confidences, float64(*block.Confidence)/100.0)
		}
	}

	return lines, confidences, nil
}
