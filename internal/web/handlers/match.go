package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/gss-opera-matcher/internal/debug"
	"github.com/gss-opera-matcher/internal/match"
	"github.com/gss-opera-matcher/internal/pipeline"
)

// MatchHandler runs matches submitted over HTTP
type MatchHandler struct {
	Deps
}

// MatchRequest carries both tables and an optional configuration. Fields
// omitted from Config keep their defaults.
type MatchRequest struct {
	Primary   *match.Table    `json:"primary"`
	Secondary *match.Table    `json:"secondary"`
	Config    json.RawMessage `json:"config,omitempty"`
	Persist   bool            `json:"persist"`
}

// MatchResponse is the result of a run
type MatchResponse struct {
	RunID   string        `json:"run_id,omitempty"`
	Summary match.Summary `json:"summary"`
	Header  []string      `json:"header"`
	Rows    [][]string    `json:"rows"`
}

// RunMatch matches the submitted tables and returns every result row
func (h *MatchHandler) RunMatch(w http.ResponseWriter, r *http.Request) {
	req, cfg, err := h.decode(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Persist && !h.persistAvailable() {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	rs, err := pipeline.Run(r.Context(), h.engineConfig(cfg), req.Primary, req.Secondary, nil)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp, err := h.respond(r, cfg, req, rs)
	if err != nil {
		debug.Logger().Error("failed to store run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store run")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MatchHandler) decode(w http.ResponseWriter, r *http.Request) (*MatchRequest, match.Config, error) {
	if h.Config != nil && h.Config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes)
	}

	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, match.Config{}, fmt.Errorf("invalid JSON request: %w", err)
	}
	if req.Primary == nil || req.Secondary == nil {
		return nil, match.Config{}, errors.New("primary and secondary tables are required")
	}

	cfg := match.DefaultConfig()
	if len(bytes.TrimSpace(req.Config)) > 0 {
		// A partial tuning object overlays the default constants
		cfg.Tuning = match.DefaultTuning()
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return nil, match.Config{}, fmt.Errorf("invalid config: %w", err)
		}
		if cfg.Tuning != nil && *cfg.Tuning == *match.DefaultTuning() {
			cfg.Tuning = nil
		}
	}
	return &req, cfg, nil
}

func (h *MatchHandler) engineConfig(cfg match.Config) match.EngineConfig {
	return match.EngineConfig{
		Match:        cfg,
		Capabilities: h.Capabilities,
		Semantic:     h.Semantic,
	}
}

func (h *MatchHandler) persistAvailable() bool {
	return h.Store != nil && h.Config != nil && h.Config.Features.PersistEnabled
}

func (h *MatchHandler) respond(r *http.Request, cfg match.Config, req *MatchRequest, rs *match.ResultSet) (*MatchResponse, error) {
	resp := &MatchResponse{
		Summary: rs.Summarize(),
		Header:  rs.Header(),
		Rows:    make([][]string, 0, rs.Len()),
	}
	for i := range rs.Rows {
		resp.Rows = append(resp.Rows, rs.Values(i))
	}

	if req.Persist {
		run, err := h.Store.SaveRun(r.Context(), cfg, req.Primary.Len(), req.Secondary.Len(), rs)
		if err != nil {
			return nil, err
		}
		resp.RunID = run.ID
	}
	return resp, nil
}
