package handlers

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewIntakeCmd creates the intake command: process one CV from local
// disk through the full pipeline.
func NewIntakeCmd() *cobra.Command {
	var correlationID string
	var mediaType string

	cmd := &cobra.Command{
		Use:   "intake <file>",
		Short: "Process a CV document through the intake pipeline",
		Long: `Run a local CV document (PDF, DOCX, JPEG, PNG) through the full
extraction, structuring, taxonomy-mapping, storage, and indexing flow.

Examples:
  cvintake intake cv.pdf
  cvintake intake scan.png --correlation-id 7f3a...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot read %s: %w", path, err)
			}
			if correlationID == "" {
				correlationID = uuid.NewString()
			}
			if mediaType == "" {
				mediaType = mime.TypeByExtension(filepath.Ext(path))
			}

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.pipe.ProcessLocal(cmd.Context(), correlationID, path, mediaType)
			if err != nil {
				return fmt.Errorf("intake %s failed: %w", correlationID, err)
			}

			rec, err := a.state.Get(cmd.Context(), result.CorrelationID)
			if err == nil && rec != nil {
				out, _ := json.MarshalIndent(rec, "", "  ")
				fmt.Println(string(out))
			} else {
				fmt.Printf("completed: correlation_id=%s candidate_id=%s\n", result.CorrelationID, result.CandidateID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&correlationID, "correlation-id", "", "correlation id to track the intake under (generated if empty)")
	cmd.Flags().StringVar(&mediaType, "media-type", "", "declared media type (inferred from the extension if empty)")
	return cmd
}
