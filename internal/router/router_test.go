package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cvintake/internal/core"
	"cvintake/internal/hr"
	"cvintake/internal/query/cache"
)

type fakeTranslator struct {
	tree  core.FilterTree
	calls int
}

func (f *fakeTranslator) Translate(ctx context.Context, query string) core.FilterTree {
	f.calls++
	return f.tree
}

type fakeStore struct {
	results  []core.CandidateProfile
	queryErr error
	enriched []core.CandidateProfile
	closed   bool
}

func (f *fakeStore) Query(ctx context.Context, q core.SQLQuery) ([]core.CandidateProfile, error) {
	return f.results, f.queryErr
}

func (f *fakeStore) FetchEnriched(ctx context.Context, ids []string) ([]core.CandidateProfile, error) {
	if f.enriched != nil {
		return f.enriched, nil
	}
	var out []core.CandidateProfile
	for _, id := range ids {
		out = append(out, core.CandidateProfile{ID: id})
	}
	return out, nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

type fakeRelaxed struct {
	result core.MatchResult
	called bool
}

func (f *fakeRelaxed) Match(ctx context.Context, query string, tree core.FilterTree) (core.MatchResult, error) {
	f.called = true
	return f.result, nil
}

type fakeAnalyzer struct {
	report core.HRReport
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, q string, req hr.Requirements, cands []core.CandidateProfile) core.HRReport {
	return f.report
}

func (f *fakeAnalyzer) RunAsync(ctx context.Context, store hr.JobSink, jobID, q string, req hr.Requirements, cands []core.CandidateProfile) {
	go func() {
		report := f.Analyze(ctx, q, req, cands)
		_ = store.Put(context.Background(), core.HRJob{JobID: jobID, Status: core.HRJobCompleted, Report: &report})
	}()
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]core.HRJob
}

func newMemJobs() *memJobs { return &memJobs{jobs: map[string]core.HRJob{}} }

func (m *memJobs) Put(ctx context.Context, job core.HRJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.JobID] = job
	return nil
}

func (m *memJobs) Get(ctx context.Context, id string) (*core.HRJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

func structuredTree() core.FilterTree {
	return core.FilterTree{
		QueryType:  core.QueryStructured,
		Confidence: 0.92,
		Filters: []core.FilterCondition{
			{Field: "role_ids", Operator: core.OpContains, Value: []any{"accountant"}},
			{Field: "software_ids", Operator: core.OpContains, Value: []any{"softone"}},
			{Field: "experience_years", Operator: core.OpGte, Value: 5},
			{Field: "location", Operator: core.OpContains, Value: "Αθήνα"},
		},
		Limit: 50,
	}
}

func newTestRouter(tr Translator, store *fakeStore, relaxed RelaxedMatcher, analyzer Analyzer, jobs JobStore) *Router {
	c := cache.New(24 * time.Hour)
	return New(tr, c, func() (Store, error) { return store, nil }, relaxed, analyzer, jobs, nil, nil, 10)
}

func TestExecute_StructuredQueryReturnsRows(t *testing.T) {
	store := &fakeStore{results: []core.CandidateProfile{{ID: "c1"}}}
	r := newTestRouter(&fakeTranslator{tree: structuredTree()}, store, nil, nil, nil)

	resp, err := r.Execute(context.Background(), core.QueryRequest{Query: "λογιστής με Softone, 5+ χρόνια, Αθήνα", Execute: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.ResultCount != 1 || resp.Results[0].ID != "c1" {
		t.Errorf("results = %+v", resp.Results)
	}
	if resp.SQL == nil || len(resp.SQL.Params) == 0 {
		t.Errorf("execute-mode response should echo the generated SQL, got %+v", resp.SQL)
	}
	if !store.closed {
		t.Error("store not closed after request")
	}
	if resp.Cached {
		t.Error("execute-mode request must not be served from cache")
	}
}

func TestExecute_TranslationOnlyUsesCache(t *testing.T) {
	tr := &fakeTranslator{tree: structuredTree()}
	r := newTestRouter(tr, &fakeStore{}, nil, nil, nil)

	first, err := r.Execute(context.Background(), core.QueryRequest{Query: "λογιστής με Softone", Execute: false})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.Cached {
		t.Error("first translation should be a cache miss")
	}
	if first.SQL == nil || !strings.Contains(first.SQL.Text, "$1") {
		t.Errorf("translation-only response should carry the generated SQL preview, got %+v", first.SQL)
	}

	second, err := r.Execute(context.Background(), core.QueryRequest{Query: "λογιστής με Softone", Execute: false})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.Cached {
		t.Error("repeat translation-only request should hit the cache")
	}
	if tr.calls != 1 {
		t.Errorf("translator called %d times, want 1", tr.calls)
	}
}

func TestExecute_LimitClamping(t *testing.T) {
	tr := &fakeTranslator{tree: structuredTree()}
	store := &fakeStore{}
	r := newTestRouter(tr, store, nil, nil, nil)

	resp, err := r.Execute(context.Background(), core.QueryRequest{Query: "q", Execute: true, Limit: 1200})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Translation.Limit != core.MaxQueryLimit {
		t.Errorf("limit = %d, want clamped to %d", resp.Translation.Limit, core.MaxQueryLimit)
	}
	// The generator applies its own harder cap regardless of what the
	// request asked for.
	bound := false
	for _, p := range resp.SQL.Params {
		if p == core.MaxLLMSuggestedLimit {
			bound = true
		}
	}
	if !bound {
		t.Errorf("generated SQL should bind at most %d rows, params: %v", core.MaxLLMSuggestedLimit, resp.SQL.Params)
	}
}

func TestExecute_ZeroResultsTriggersRelaxedMatching(t *testing.T) {
	relaxed := &fakeRelaxed{result: core.MatchResult{
		FallbackUsed: true,
		Candidates: []core.CandidateMatch{{
			CandidateID: "c9", MatchLevel: core.MatchHigh, MatchPercentage: 75,
			Recommendation: core.RecommendInterview,
		}},
	}}
	r := newTestRouter(&fakeTranslator{tree: structuredTree()}, &fakeStore{}, relaxed, nil, nil)

	resp, err := r.Execute(context.Background(), core.QueryRequest{Query: "q", Execute: true, UseJobMatching: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !relaxed.called {
		t.Fatal("relaxed matcher not invoked on zero strict results")
	}
	if !resp.FallbackUsed || resp.JobMatching == nil {
		t.Errorf("fallback flags: used=%v matching=%+v", resp.FallbackUsed, resp.JobMatching)
	}
	if m := resp.JobMatching.Candidates[0]; m.MatchPercentage < 50 || (m.Recommendation != core.RecommendInterview && m.Recommendation != core.RecommendConsider) {
		t.Errorf("candidate match = %+v", m)
	}
}

func TestExecute_RelaxedNotInvokedWithoutOptIn(t *testing.T) {
	relaxed := &fakeRelaxed{}
	r := newTestRouter(&fakeTranslator{tree: structuredTree()}, &fakeStore{}, relaxed, nil, nil)

	if _, err := r.Execute(context.Background(), core.QueryRequest{Query: "q", Execute: true}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if relaxed.called {
		t.Error("relaxed matcher must only run when use_job_matching is set")
	}
}

func TestExecute_ClarificationSkipsSQL(t *testing.T) {
	tree := core.FilterTree{QueryType: core.QueryClarification, Confidence: 0.3, ClarificationQuestion: "Which city?"}
	store := &fakeStore{queryErr: errors.New("must not run")}
	r := newTestRouter(&fakeTranslator{tree: tree}, store, nil, nil, nil)

	resp, err := r.Execute(context.Background(), core.QueryRequest{Query: "vague", Execute: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.QueryType != core.QueryClarification {
		t.Errorf("query type = %s", resp.QueryType)
	}
	if resp.ResultCount != 0 || resp.SQL != nil {
		t.Errorf("clarification response must not execute SQL: %+v", resp)
	}
}

func TestExecute_AsyncHRReturnsJobIDAndCompletes(t *testing.T) {
	jobs := newMemJobs()
	analyzer := &fakeAnalyzer{report: core.HRReport{
		RankedCandidates: []core.RankedCandidate{{CandidateID: "c1", OverallSuitability: "High", MatchPercentage: 88, Category: core.RecommendInterview}},
	}}
	store := &fakeStore{results: []core.CandidateProfile{{ID: "c1"}}}
	r := newTestRouter(&fakeTranslator{tree: structuredTree()}, store, nil, analyzer, jobs)

	resp, err := r.Execute(context.Background(), core.QueryRequest{
		Query: "q", Execute: true, IncludeHRAnalysis: true, AsyncHR: true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.HRJobID == "" {
		t.Fatal("async HR request must return hr_job_id")
	}
	if resp.HRAnalysis != nil {
		t.Error("async HR request must not return an inline report")
	}

	job, _ := jobs.Get(context.Background(), resp.HRJobID)
	if job == nil {
		t.Fatal("job record missing")
	}

	deadline := time.After(2 * time.Second)
	for job.Status != core.HRJobCompleted {
		select {
		case <-deadline:
			t.Fatalf("job never completed: %+v", job)
		case <-time.After(10 * time.Millisecond):
			job, _ = jobs.Get(context.Background(), resp.HRJobID)
		}
	}
	if job.Report == nil || len(job.Report.RankedCandidates) != 1 {
		t.Errorf("completed job report = %+v", job.Report)
	}

	polled, err := r.PollHRJob(context.Background(), resp.HRJobID)
	if err != nil || polled == nil || polled.Status != core.HRJobCompleted {
		t.Errorf("PollHRJob = %+v, %v", polled, err)
	}
}

func TestExecute_SyncHRInlineReport(t *testing.T) {
	analyzer := &fakeAnalyzer{report: core.HRReport{QueryOutcomeSummary: "2 matched"}}
	store := &fakeStore{results: []core.CandidateProfile{{ID: "c1"}, {ID: "c2"}}}
	r := newTestRouter(&fakeTranslator{tree: structuredTree()}, store, nil, analyzer, newMemJobs())

	resp, err := r.Execute(context.Background(), core.QueryRequest{Query: "q", Execute: true, IncludeHRAnalysis: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.HRAnalysis == nil || resp.HRAnalysis.QueryOutcomeSummary != "2 matched" {
		t.Errorf("hr analysis = %+v", resp.HRAnalysis)
	}
	if resp.HRJobID != "" {
		t.Error("sync request must not mint a job id")
	}
}

func TestExecute_EmptyQueryIsBadRequest(t *testing.T) {
	r := newTestRouter(&fakeTranslator{}, &fakeStore{}, nil, nil, nil)
	_, err := r.Execute(context.Background(), core.QueryRequest{Execute: true})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}
