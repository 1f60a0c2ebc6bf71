package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/orchestrator"
	"github.com/kilianp07/microgrid/core/runlog"
	"github.com/kilianp07/microgrid/pkg/export"
)

type runSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Windows    int       `json:"windows"`
	Completed  int       `json:"completed"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
}

func summarize(rec runlog.RunRecord) runSummary {
	return runSummary{
		RunID:      rec.RunID,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		Windows:    len(rec.Windows),
		Completed:  rec.Completed,
		Status:     rec.Status(),
		ErrorKind:  rec.ErrorKind,
		Error:      rec.Error,
	}
}

func parseRunQuery(r *http.Request) (runlog.RunQuery, error) {
	var q runlog.RunQuery
	v := r.URL.Query()
	if s := v.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errors.New("invalid start")
		}
		q.Start = t
	}
	if s := v.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errors.New("invalid end")
		}
		q.End = t
	}
	switch st := v.Get("status"); st {
	case "", runlog.StatusDone, runlog.StatusFailed:
		q.Status = st
	default:
		return q, errors.New("invalid status")
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, errors.New("invalid limit")
		}
		q.Limit = n
	}
	return q, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q, err := parseRunQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := s.store.Query(r.Context(), q)
	if err != nil {
		s.log.Errorf("query runs: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]runSummary, len(recs))
	for i, rec := range recs {
		out[i] = summarize(rec)
	}
	respondJSON(w, http.StatusOK, out)
}

// loadRun writes the error response itself and reports whether rec is usable.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (runlog.RunRecord, bool) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, runlog.ErrNotFound):
		respondError(w, http.StatusNotFound, "run not found")
		return rec, false
	case err != nil:
		s.log.Errorf("get run: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return rec, false
	}
	return rec, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAllTraces(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	s.writeTraces(w, r, orchestrator.AllTraces(rec.Run()))
}

func (s *Server) handleTraces(w http.ResponseWriter, r *http.Request) {
	kind := model.TraceKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "unknown trace kind "+strconv.Quote(string(kind)))
		return
	}
	rec, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	s.writeTraces(w, r, orchestrator.TracesByKind(rec.Run(), kind))
}

func (s *Server) writeTraces(w http.ResponseWriter, r *http.Request, traces []orchestrator.WindowTrace) {
	if traces == nil {
		traces = []orchestrator.WindowTrace{}
	}
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := export.WriteCSV(w, traces); err != nil {
			s.log.Errorf("write csv: %v", err)
		}
		return
	}
	respondJSON(w, http.StatusOK, traces)
}

func (s *Server) handleOpenings(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	openings := orchestrator.OpeningSamples(rec.Run())
	if openings == nil {
		openings = []orchestrator.OpeningSample{}
	}
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := export.WriteOpeningsCSV(w, openings); err != nil {
			s.log.Errorf("write csv: %v", err)
		}
		return
	}
	respondJSON(w, http.StatusOK, openings)
}
