package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/gss-opera-matcher/internal/config"
	"github.com/gss-opera-matcher/internal/db"
	"github.com/gss-opera-matcher/internal/debug"
	"github.com/gss-opera-matcher/internal/embeddings"
	"github.com/gss-opera-matcher/internal/match"
	"github.com/gss-opera-matcher/internal/similarity"
)

// Config represents the handler configuration
type Config struct {
	Features struct {
		PersistEnabled bool `json:"persist_enabled"`
	} `json:"features"`
	MaxBodyBytes int64 `json:"max_body_bytes"`
}

// RunStore stores completed runs. *db.Store satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, cfg match.Config, primaryRows, secondaryRows int, rs *match.ResultSet) (*db.Run, error)
	GetRun(ctx context.Context, id string) (*db.Run, error)
	GetResults(ctx context.Context, id string, filter db.ResultFilter) ([]db.StoredResult, error)
	Ping(ctx context.Context) error
}

// Deps are the collaborators shared by every handler.
type Deps struct {
	Config       *Config
	Store        RunStore
	Capabilities config.Capabilities
	Semantic     *embeddings.Handle
}

// APIHandler handles general API endpoints
type APIHandler struct {
	Deps
}

// HealthResponse reports service status
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Semantic  bool   `json:"semantic"`
	Metaphone bool   `json:"double_metaphone"`
}

// AlgorithmInfo describes one selectable algorithm
type AlgorithmInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Health reports process and database status
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Database:  "disabled",
		Semantic:  h.Capabilities.Semantic,
		Metaphone: h.Capabilities.DoubleMetaphone,
	}

	status := http.StatusOK
	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	writeJSON(w, status, resp)
}

// ListAlgorithms returns the algorithm catalogue
func (h *APIHandler) ListAlgorithms(w http.ResponseWriter, r *http.Request) {
	algs := similarity.Algorithms()
	out := make([]AlgorithmInfo, 0, len(algs))
	for _, a := range algs {
		out = append(out, AlgorithmInfo{ID: int(a), Name: a.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Logger().Warn("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, match.ErrInvalidConfig), errors.Is(err, match.ErrMissingColumn), errors.Is(err, db.ErrInvalidRunID):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// parseIntParam parses integer parameter with default value
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultVal
}
