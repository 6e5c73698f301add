package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cvintake/internal/config"
	"cvintake/internal/core"
)

type fakeExecutor struct {
	resp core.QueryResponse
	jobs map[string]*core.HRJob
}

func (f *fakeExecutor) Execute(ctx context.Context, req core.QueryRequest) (core.QueryResponse, error) {
	return f.resp, nil
}

func (f *fakeExecutor) PollHRJob(ctx context.Context, jobID string) (*core.HRJob, error) {
	return f.jobs[jobID], nil
}

type fakeStatusStore struct {
	records map[string]*core.IntakeRecord
}

func (f *fakeStatusStore) Get(ctx context.Context, id string) (*core.IntakeRecord, error) {
	return f.records[id], nil
}

func newTestServer(exec *fakeExecutor, state *fakeStatusStore) *Server {
	return New(exec, state, nil, config.Server{Host: "127.0.0.1", Port: 0})
}

func TestHandleStatus_UnknownCorrelationIs404(t *testing.T) {
	s := newTestServer(&fakeExecutor{}, &fakeStatusStore{records: map[string]*core.IntakeRecord{}})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rr.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body["correlation_id"] != "nope" {
		t.Errorf("error must echo the correlation id, got %v", body)
	}
}

func TestHandleStatus_ProgressAndSteps(t *testing.T) {
	state := &fakeStatusStore{records: map[string]*core.IntakeRecord{
		"c1": {CorrelationID: "c1", Status: core.StatusMapping},
		"c2": {CorrelationID: "c2", Status: core.StatusFailed, Error: "no text extracted"},
	}}
	s := newTestServer(&fakeExecutor{}, state)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status/c1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
	var resp core.StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Progress <= 0 || resp.Progress >= 1 {
		t.Errorf("mid-flight progress = %v", resp.Progress)
	}
	seenRunning := false
	for _, step := range resp.Steps {
		if step.Status == "running" {
			if step.Step != string(core.StatusMapping) {
				t.Errorf("running step = %s", step.Step)
			}
			seenRunning = true
		}
	}
	if !seenRunning {
		t.Error("no running step reported")
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status/c2", nil))
	var failed core.StatusResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &failed)
	if failed.Progress != 0 {
		t.Errorf("failed progress = %v, want 0", failed.Progress)
	}
	if failed.Error == "" {
		t.Error("failed status must carry the sanitized reason")
	}
	last := failed.Steps[len(failed.Steps)-1]
	if last.Status != "failed" || !strings.Contains(last.Detail, "no text") {
		t.Errorf("last step = %+v", last)
	}
}

func TestHandleQuery_BadBodyIs400(t *testing.T) {
	s := newTestServer(&fakeExecutor{}, &fakeStatusStore{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("{"))
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"execute":true}`))
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing query: code = %d, want 400", rr.Code)
	}
}

func TestHandleQuery_OK(t *testing.T) {
	exec := &fakeExecutor{resp: core.QueryResponse{RequestID: "req-1", QueryType: core.QueryStructured, ResultCount: 2}}
	s := newTestServer(exec, &fakeStatusStore{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"accountants in Athens","execute":true}`))
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
	var resp core.QueryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RequestID != "req-1" || resp.ResultCount != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleHRJob(t *testing.T) {
	exec := &fakeExecutor{jobs: map[string]*core.HRJob{
		"j1": {JobID: "j1", Status: core.HRJobCompleted, Report: &core.HRReport{}},
	}}
	s := newTestServer(exec, &fakeStatusStore{})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/hr/jobs/j1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
	var job core.HRJob
	_ = json.Unmarshal(rr.Body.Bytes(), &job)
	if job.Status != core.HRJobCompleted {
		t.Errorf("job = %+v", job)
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/hr/jobs/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing job code = %d, want 404", rr.Code)
	}
}
