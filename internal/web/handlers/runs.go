package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gss-opera-matcher/internal/db"
	"github.com/gss-opera-matcher/internal/match"
)

// RunsHandler serves stored runs
type RunsHandler struct {
	Deps
}

// ResultsResponse is a page of stored result rows
type ResultsResponse struct {
	RunID   string            `json:"run_id"`
	Results []db.StoredResult `json:"results"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

// GetRun returns the summary of a stored run
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	run, err := h.Store.GetRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetResults returns result rows of a stored run, optionally filtered by
// confidence
func (h *RunsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	query := r.URL.Query()
	filter := db.ResultFilter{
		Limit:  parseIntParam(query.Get("limit"), db.DefaultResultLimit),
		Offset: max(0, parseIntParam(query.Get("offset"), 0)),
	}
	if c := query.Get("confidence"); c != "" {
		conf, ok := parseConfidence(c)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown confidence "+c)
			return
		}
		filter.Confidence = conf
	}

	id := mux.Vars(r)["id"]
	results, err := h.Store.GetResults(r.Context(), id, filter)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{
		RunID:   id,
		Results: results,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

func parseConfidence(s string) (match.Confidence, bool) {
	for _, c := range match.Confidences() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}
