// Package router implements the query-side flow: cache lookup, NL
// translation, SQL generation and execution, relaxed matching on empty
// strict results, semantic/hybrid search, and the sync/async HR
// analysis hand-off. It is the query counterpart of internal/pipeline.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cvintake/internal/core"
	"cvintake/internal/hr"
	"cvintake/internal/logger"
	"cvintake/internal/query/sqlgen"
)

// Translator is the query translator surface, satisfied by *translate.Translator.
type Translator interface {
	Translate(ctx context.Context, query string) core.FilterTree
}

// TranslationCache is the query cache surface, satisfied by *cache.Cache.
type TranslationCache interface {
	Get(query string) (core.FilterTree, bool)
	Put(query string, tree core.FilterTree)
}

// Store is the per-request relational read surface, satisfied by
// *persistence.DB. A fresh Store is opened per request via StoreFactory
// and closed when the request finishes.
type Store interface {
	Query(ctx context.Context, q core.SQLQuery) ([]core.CandidateProfile, error)
	FetchEnriched(ctx context.Context, candidateIDs []string) ([]core.CandidateProfile, error)
	Close() error
}

// StoreFactory opens a fresh Store for one request.
type StoreFactory func() (Store, error)

// RelaxedMatcher is the relaxed matcher surface, satisfied by *relaxed.Matcher.
type RelaxedMatcher interface {
	Match(ctx context.Context, query string, tree core.FilterTree) (core.MatchResult, error)
}

// Analyzer is the HR analyzer surface, satisfied by *hr.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, originalQuery string, req hr.Requirements, candidates []core.CandidateProfile) core.HRReport
	RunAsync(ctx context.Context, store hr.JobSink, jobID, originalQuery string, req hr.Requirements, candidates []core.CandidateProfile)
}

// JobStore is the async HR job surface, satisfied by *hr.JobStore.
type JobStore interface {
	Put(ctx context.Context, job core.HRJob) error
	Get(ctx context.Context, jobID string) (*core.HRJob, error)
}

// Searcher is the search indexer query surface, satisfied by *searchindex.Index,
// used for semantic and hybrid query types.
type Searcher interface {
	VectorSearch(ctx context.Context, vector []float32, k int, filter map[string]any) ([]core.SearchHit, error)
	HybridSearch(ctx context.Context, queryText string, queryVector []float32, k int, filter map[string]any) ([]core.SearchHit, error)
}

// Embedder is the embedding half of the LLM capability set.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Router ties the query components together.
type Router struct {
	translator Translator
	cache      TranslationCache
	stores     StoreFactory
	relaxed    RelaxedMatcher
	analyzer   Analyzer
	jobs       JobStore
	searcher   Searcher
	embedder   Embedder
	hrCap      int
}

// New builds a query router. relaxed, analyzer, jobs, searcher, and
// embedder may be nil; the corresponding request options are then
// ignored.
func New(translator Translator, cache TranslationCache, stores StoreFactory, relaxed RelaxedMatcher, analyzer Analyzer, jobs JobStore, searcher Searcher, embedder Embedder, hrCandidateCap int) *Router {
	if hrCandidateCap <= 0 {
		hrCandidateCap = 10
	}
	return &Router{
		translator: translator,
		cache:      cache,
		stores:     stores,
		relaxed:    relaxed,
		analyzer:   analyzer,
		jobs:       jobs,
		searcher:   searcher,
		embedder:   embedder,
		hrCap:      hrCandidateCap,
	}
}

// Execute runs one query request end to end.
func (r *Router) Execute(ctx context.Context, req core.QueryRequest) (core.QueryResponse, error) {
	start := time.Now()
	resp := core.QueryResponse{RequestID: uuid.NewString()}
	log := logger.Get().With().Str("request_id", resp.RequestID).Logger()

	if req.Query == "" {
		return resp, fmt.Errorf("%w: empty query", ErrBadRequest)
	}
	if req.Limit > core.MaxQueryLimit {
		req.Limit = core.MaxQueryLimit
	}

	// Translation-only requests are the cache's only hit path.
	if !req.Execute {
		tree, hit := r.cache.Get(req.Query)
		if !hit {
			tree = r.translator.Translate(ctx, req.Query)
			r.cache.Put(req.Query, tree)
		}
		resp.Cached = hit
		resp.QueryType = tree.QueryType
		resp.Translation = tree
		if tree.QueryType == core.QueryStructured || tree.QueryType == core.QueryHybrid {
			q := sqlgen.Generate(tree)
			resp.SQL = &q
		}
		resp.LatencyMS = time.Since(start).Milliseconds()
		return resp, nil
	}

	tree := r.translator.Translate(ctx, req.Query)
	if req.Limit > 0 {
		tree.Limit = req.Limit
	}
	resp.QueryType = tree.QueryType
	resp.Translation = tree

	if tree.QueryType == core.QueryClarification {
		resp.LatencyMS = time.Since(start).Milliseconds()
		return resp, nil
	}
	if tree.Confidence < 0.8 {
		log.Warn().Float64("confidence", tree.Confidence).Msg("translation confidence below 0.8, proceeding with warning")
	}

	store, err := r.stores()
	if err != nil {
		return resp, fmt.Errorf("opening store: %w", err)
	}
	defer store.Close() //nolint:errcheck

	results, sqlQuery, queryErr := r.runSearch(ctx, store, req.Query, tree)
	if queryErr != nil {
		log.Error().Err(queryErr).Msg("strict query path failed")
	}
	resp.SQL = sqlQuery
	resp.Results = results
	resp.ResultCount = len(results)

	// Relaxed matching on empty or failed strict results, opt-in.
	if (len(results) == 0 || queryErr != nil) && req.UseJobMatching && r.relaxed != nil {
		match, err := r.relaxed.Match(ctx, req.Query, tree)
		if err != nil {
			log.Error().Err(err).Msg("relaxed matching failed")
		} else {
			resp.JobMatching = &match
			resp.FallbackUsed = match.FallbackUsed
		}
	} else if queryErr != nil {
		return resp, queryErr
	}

	if req.IncludeHRAnalysis && r.analyzer != nil {
		candidates, err := r.hrCandidates(ctx, store, resp)
		if err != nil {
			log.Error().Err(err).Msg("fetching enriched candidates for HR analysis failed")
		}
		hrReq := hr.Requirements{Text: req.Query, Filters: tree.Filters}

		if req.AsyncHR && r.jobs != nil {
			jobID := hr.NewJobID()
			if err := r.jobs.Put(ctx, core.HRJob{JobID: jobID, Status: core.HRJobProcessing}); err != nil {
				return resp, fmt.Errorf("creating hr job: %w", err)
			}
			r.analyzer.RunAsync(ctx, r.jobs, jobID, req.Query, hrReq, candidates)
			resp.HRJobID = jobID
		} else {
			report := r.analyzer.Analyze(ctx, req.Query, hrReq, candidates)
			resp.HRAnalysis = &report
		}
	}

	resp.LatencyMS = time.Since(start).Milliseconds()
	return resp, nil
}

// runSearch dispatches on the translated query type: structured goes
// through the SQL generator, semantic through k-NN, hybrid through RRF
// fusion (falling back to structured SQL when no search cluster is
// wired).
func (r *Router) runSearch(ctx context.Context, store Store, query string, tree core.FilterTree) ([]core.CandidateProfile, *core.SQLQuery, error) {
	switch tree.QueryType {
	case core.QuerySemantic, core.QueryHybrid:
		if r.searcher != nil && r.embedder != nil {
			results, err := r.searchCandidates(ctx, store, query, tree)
			return results, nil, err
		}
		fallthrough
	default:
		q := sqlgen.Generate(tree)
		results, err := store.Query(ctx, q)
		if err != nil {
			return nil, &q, err
		}
		return results, &q, nil
	}
}

func (r *Router) searchCandidates(ctx context.Context, store Store, query string, tree core.FilterTree) ([]core.CandidateProfile, error) {
	text := tree.SemanticQuery
	if text == "" {
		text = query
	}
	vectors, err := r.embedder.Embed(ctx, []string{text})
	if err != nil || len(vectors) == 0 {
		return nil, fmt.Errorf("embedding semantic query: %w", err)
	}

	// Same cap the SQL generator applies: never fetch more than 100.
	k := tree.Limit
	if k <= 0 || k > core.MaxLLMSuggestedLimit {
		k = core.MaxLLMSuggestedLimit
	}

	var hits []core.SearchHit
	if tree.QueryType == core.QueryHybrid {
		hits, err = r.searcher.HybridSearch(ctx, text, vectors[0], k, nil)
	} else {
		hits, err = r.searcher.VectorSearch(ctx, vectors[0], k, nil)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.CandidateID)
	}
	return store.FetchEnriched(ctx, ids)
}

// hrCandidates picks the enriched profiles the analyzer sees: strict
// results when present, otherwise the relaxed matcher's candidates.
func (r *Router) hrCandidates(ctx context.Context, store Store, resp core.QueryResponse) ([]core.CandidateProfile, error) {
	var ids []string
	for _, c := range resp.Results {
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 && resp.JobMatching != nil {
		for _, m := range resp.JobMatching.Candidates {
			ids = append(ids, m.CandidateID)
		}
	}
	if len(ids) > r.hrCap {
		ids = ids[:r.hrCap]
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return store.FetchEnriched(ctx, ids)
}

// PollHRJob returns the async job's current state, or nil when unknown.
func (r *Router) PollHRJob(ctx context.Context, jobID string) (*core.HRJob, error) {
	if r.jobs == nil {
		return nil, nil
	}
	return r.jobs.Get(ctx, jobID)
}

// ErrBadRequest tags request-shape errors the HTTP surface maps to 400.
var ErrBadRequest = fmt.Errorf("bad request")
