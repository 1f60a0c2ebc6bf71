package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/microgrid/core/model"
)

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var p model.DispatchProblem
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sol, err := s.solver.Solve(p)
	switch {
	case errors.Is(err, model.ErrConfiguration):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Errorf("solve dispatch: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sol)
}
