package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cvintake/internal/core"
	"cvintake/internal/logger"
	qrouter "cvintake/internal/router"
)

// errorResponse is the uniform error body; the correlation id is echoed
// on every error surface.
type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, correlationID, message string) {
	writeJSON(w, status, errorResponse{Error: message, CorrelationID: correlationID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req core.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid JSON body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "", "query is required")
		return
	}

	resp, err := s.queries.Execute(r.Context(), req)
	if err != nil {
		if errors.Is(err, qrouter.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, resp.RequestID, err.Error())
			return
		}
		log := logger.Get()
		log.Error().Err(err).Str("request_id", resp.RequestID).Msg("query execution failed")
		writeError(w, http.StatusInternalServerError, resp.RequestID, "query execution failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationID")
	if correlationID == "" {
		writeError(w, http.StatusBadRequest, "", "correlation id is required")
		return
	}

	rec, err := s.state.Get(r.Context(), correlationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, correlationID, "reading intake state failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, correlationID, "unknown correlation id")
		return
	}

	resp := core.StatusResponse{
		CorrelationID: correlationID,
		Status:        rec.Status,
		Progress:      rec.Status.Progress(),
		Steps:         buildSteps(rec),
		Error:         rec.Error,
	}

	if rec.Status == core.StatusCompleted && rec.CandidateID != nil && s.candidates != nil {
		if src, err := s.candidates(); err == nil {
			defer src.Close() //nolint:errcheck
			if profiles, err := src.FetchEnriched(r.Context(), []string{*rec.CandidateID}); err == nil && len(profiles) > 0 {
				resp.Candidate = &profiles[0]
			}
			if items, err := src.ListUnmatched(r.Context(), *rec.CandidateID); err == nil {
				resp.Unmatched = items
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// buildSteps derives the steps[] view from the record's position in the
// status DAG.
func buildSteps(rec *core.IntakeRecord) []core.StepReport {
	dag := core.StatusDAG()
	steps := make([]core.StepReport, 0, len(dag))
	for _, stage := range dag {
		step := core.StepReport{Step: string(stage)}
		switch {
		case rec.Status == core.StatusFailed:
			// A failed record keeps no linear position, so the linear
			// steps are reported skipped and the failure is appended as
			// its own terminal step below.
			step.Status = "skipped"
		case rec.Status == core.StatusCompleted || stage.Index() < rec.Status.Index():
			step.Status = "done"
		case stage.Index() == rec.Status.Index():
			step.Status = "running"
		default:
			step.Status = "pending"
		}
		steps = append(steps, step)
	}
	if rec.Status == core.StatusFailed {
		steps = append(steps, core.StepReport{Step: string(core.StatusFailed), Status: "failed", Detail: rec.Error})
	}
	return steps
}

func (s *Server) handleHRJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.queries.PollHRJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, jobID, "reading hr job failed")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, jobID, "unknown hr job id")
		return
	}
	writeJSON(w, http.StatusOK, job)
}
