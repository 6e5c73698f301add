package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cvintake/internal/core"
	"cvintake/internal/llm"
	"cvintake/internal/logger"
	"cvintake/internal/persistence"
	"cvintake/internal/searchindex"
)

// fetchBatchSize bounds how many enriched profiles are loaded per
// round trip during a full reindex.
const fetchBatchSize = 50

// NewReindexCmd creates the reindex command: rebuild the search index
// into a new versioned index and swap the alias atomically.
func NewReindexCmd() *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the candidate search index behind its alias",
		Long: `Create a new versioned search index, bulk-index every active
candidate into it, and atomically repoint the alias.

Examples:
  cvintake reindex --version v2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return runReindex(cmd.Context(), a, version)
		},
	}

	cmd.Flags().StringVar(&version, "version", "v1", "versioned index suffix to build and swap to")
	return cmd
}

func runReindex(ctx context.Context, a *app, version string) error {
	log := logger.Get()

	db, err := persistence.NewDB(a.cfg.Database.ConnectionString)
	if err != nil {
		return fmt.Errorf("opening read connection: %w", err)
	}
	defer db.Close()

	ids, err := db.ListActiveCandidateIDs(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("candidates", len(ids)).Str("version", version).Msg("starting reindex")

	versioned, err := a.search.CreateIndexVersion(ctx, version)
	if err != nil {
		return err
	}

	indexed := 0
	for start := 0; start < len(ids); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		profiles, err := db.FetchEnriched(ctx, ids[start:end])
		if err != nil {
			return fmt.Errorf("fetching batch at %d: %w", start, err)
		}

		texts := make([]string, len(profiles))
		for i := range profiles {
			texts[i] = searchindex.EmbeddingText(&profiles[i])
		}
		vectors, err := a.llm.EmbedderFor(llm.Model(a.cfg.LLM.EmbeddingModel)).Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch at %d: %w", start, err)
		}

		docs := make([]core.SearchDocument, len(profiles))
		for i := range profiles {
			docs[i] = searchindex.BuildDocument(&profiles[i], vectors[i])
		}
		if err := a.search.BulkIndexInto(ctx, versioned, docs); err != nil {
			return fmt.Errorf("bulk indexing batch at %d: %w", start, err)
		}
		indexed += len(docs)
		log.Info().Int("indexed", indexed).Int("total", len(ids)).Msg("reindex progress")
	}

	if err := a.search.SwapAlias(ctx, versioned); err != nil {
		return fmt.Errorf("swapping alias to %s: %w", versioned, err)
	}
	fmt.Printf("reindexed %d candidates into %s\n", indexed, versioned)
	return nil
}
