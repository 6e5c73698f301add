package router

import (
	"context"

	"cvintake/internal/core"
	"cvintake/internal/persistence"
	"cvintake/internal/query/relaxed"
)

// PostgresStoreFactory opens a fresh read connection per query request,
// matching the writer's connection-hygiene policy.
func PostgresStoreFactory(connStr string) StoreFactory {
	return func() (Store, error) {
		return persistence.NewDB(connStr)
	}
}

// PostgresScorer adapts persistence's scoring function to the relaxed
// matcher's Scorer interface, opening a fresh connection per call.
type PostgresScorer struct {
	ConnStr string
}

func (s PostgresScorer) ScoreAgainstCriteria(ctx context.Context, criteria []string, limit int) ([]relaxed.ScoredCandidate, error) {
	db, err := persistence.NewDB(s.ConnStr)
	if err != nil {
		return nil, err
	}
	defer db.Close() //nolint:errcheck

	scores, err := db.ScoreAgainstCriteria(ctx, criteria, limit)
	if err != nil {
		return nil, err
	}
	out := make([]relaxed.ScoredCandidate, len(scores))
	for i, sc := range scores {
		out[i] = relaxed.ScoredCandidate{
			CandidateID:     sc.CandidateID,
			SatisfiedCount:  sc.SatisfiedCount,
			TotalCriteria:   sc.TotalCriteria,
			SatisfiedLabels: sc.SatisfiedLabels,
			MissingLabels:   sc.MissingLabels,
		}
	}
	return out, nil
}

func (s PostgresScorer) FetchEnriched(ctx context.Context, candidateIDs []string) ([]core.CandidateProfile, error) {
	db, err := persistence.NewDB(s.ConnStr)
	if err != nil {
		return nil, err
	}
	defer db.Close() //nolint:errcheck
	return db.FetchEnriched(ctx, candidateIDs)
}
