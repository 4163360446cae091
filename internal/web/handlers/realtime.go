package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gss-opera-matcher/internal/debug"
	"github.com/gss-opera-matcher/internal/pipeline"
)

// RealtimeHandler streams match progress via Server-Sent Events
type RealtimeHandler struct {
	MatchHandler
}

// UpdateNotification represents a real-time update
type UpdateNotification struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ProgressUpdate reports the share of primary rows processed
type ProgressUpdate struct {
	Percent int `json:"percent"`
}

// StreamMatch runs a match and streams progress events followed by a
// single result or error event
func (h *RealtimeHandler) StreamMatch(w http.ResponseWriter, r *http.Request) {
	req, cfg, err := h.decode(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Persist && !h.persistAvailable() {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	// Create flusher for immediate response sending
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Progress of a long run may outlast the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.sendSSEEvent(w, flusher, "connected", map[string]interface{}{
		"primary_rows":   req.Primary.Len(),
		"secondary_rows": req.Secondary.Len(),
		"algorithm":      cfg.Algorithm.String(),
	})

	progress := func(percent int) {
		h.sendSSEEvent(w, flusher, "progress", ProgressUpdate{Percent: percent})
	}

	rs, err := pipeline.Run(r.Context(), h.engineConfig(cfg), req.Primary, req.Secondary, progress)
	if err != nil {
		h.sendSSEEvent(w, flusher, "error", ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.respond(r, cfg, req, rs)
	if err != nil {
		debug.Logger().Error("failed to store run", zap.Error(err))
		h.sendSSEEvent(w, flusher, "error", ErrorResponse{Error: "failed to store run"})
		return
	}
	h.sendSSEEvent(w, flusher, "result", resp)
}

// sendSSEEvent sends a Server-Sent Event
func (h *RealtimeHandler) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	notification := UpdateNotification{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	jsonData, err := json.Marshal(notification)
	if err != nil {
		debug.Logger().Warn("failed to encode event", zap.String("event", eventType), zap.Error(err))
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
