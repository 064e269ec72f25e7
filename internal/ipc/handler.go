// Package ipc provides the HTTP API for phasebook.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rogers-f/phasebook/internal/bridge"
	"github.com/rogers-f/phasebook/internal/document"
	"github.com/rogers-f/phasebook/internal/domain"
	"github.com/rogers-f/phasebook/internal/workflow"
)

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Bridge *bridge.Bridge
	Logger *slog.Logger

	// PollInterval is how often the event stream checks for new events.
	PollInterval time.Duration
}

// ContentRequest is the body for POST /api/v1/phases/{phaseID}/content.
type ContentRequest struct {
	UserInput       string `json:"user_input"`
	GeneratedOutput string `json:"generated_output"`
	MarkCompleted   bool   `json:"mark_completed"`
}

// GenerateRequest is the body for POST /api/v1/phases/{phaseID}/generate.
type GenerateRequest struct {
	Instruction string `json:"instruction"`
}

// GenerateResponse carries the generated text and the updated workflow.
type GenerateResponse struct {
	Output   string            `json:"output"`
	Workflow workflow.Snapshot `json:"workflow"`
}

// PhaseResponse is the response for GET /api/v1/phases/{phaseID}.
type PhaseResponse struct {
	Phase   domain.Phase `json:"phase"`
	Current bool         `json:"current"`
}

// APIError is a structured error response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetWorkflow handles GET /api/v1/workflow.
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Bridge.Snapshot()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetPhase handles GET /api/v1/phases/{phaseID}.
func (h *Handler) GetPhase(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("phaseID")
	snap, err := h.Bridge.Snapshot()
	if err != nil {
		h.writeError(w, err)
		return
	}
	p, ok := snap.Phase(id)
	if !ok {
		h.writeError(w, domain.ErrPhaseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, PhaseResponse{Phase: p, Current: snap.CurrentPhaseID == id})
}

// SelectPhase handles POST /api/v1/phases/{phaseID}/select.
func (h *Handler) SelectPhase(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Bridge.SelectPhase(r.Context(), r.PathValue("phaseID"))
	h.writeSnapshot(w, snap, err)
}

// BeginInteraction handles POST /api/v1/phases/{phaseID}/begin.
func (h *Handler) BeginInteraction(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Bridge.BeginInteraction(r.Context(), r.PathValue("phaseID"))
	h.writeSnapshot(w, snap, err)
}

// RecordContent handles POST /api/v1/phases/{phaseID}/content.
func (h *Handler) RecordContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	snap, err := h.Bridge.RecordContent(r.Context(), r.PathValue("phaseID"), req.UserInput, req.GeneratedOutput, req.MarkCompleted)
	h.writeSnapshot(w, snap, err)
}

// CompletePhase handles POST /api/v1/phases/{phaseID}/complete.
func (h *Handler) CompletePhase(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Bridge.Complete(r.Context(), r.PathValue("phaseID"))
	h.writeSnapshot(w, snap, err)
}

// Generate handles POST /api/v1/phases/{phaseID}/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	snap, out, err := h.Bridge.Generate(r.Context(), r.PathValue("phaseID"), req.Instruction)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Output: out, Workflow: snap})
}

// GetDocument handles GET /api/v1/document as a file download.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Bridge.Document()
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", document.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}

// ExportDocument handles POST /api/v1/document/export.
func (h *Handler) ExportDocument(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Bridge.Export(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListExports handles GET /api/v1/exports?limit=N.
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	exports, err := h.Bridge.ExportHistory(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exports)
}

// ListEvents handles GET /api/v1/events?since_seq=N&limit=M.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	sinceSeq := int64(queryInt(r, "since_seq", 0))
	events, err := h.Bridge.EventsSince(r.Context(), sinceSeq, queryInt(r, "limit", 0))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// StreamEvents handles GET /api/v1/events/stream (SSE).
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, APIError{Code: 500, Message: "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastSeq := int64(queryInt(r, "since_seq", 0))
	events, err := h.Bridge.EventsSince(r.Context(), lastSeq, 0)
	if err != nil {
		writeSSEError(w, flusher, err)
		return
	}
	for _, ev := range events {
		writeSSEEvent(w, flusher, ev)
		lastSeq = ev.Seq
	}
	flusher.Flush()

	interval := h.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ctx := r.Context()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			newEvents, err := h.Bridge.EventsSince(ctx, lastSeq, 0)
			if err != nil {
				return
			}
			for _, ev := range newEvents {
				writeSSEEvent(w, flusher, ev)
				lastSeq = ev.Seq
			}
		}
	}
}

func (h *Handler) writeSnapshot(w http.ResponseWriter, snap workflow.Snapshot, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an engine error code to an HTTP status.
func statusFor(code int) int {
	switch code {
	case domain.ErrPhaseNotFound.Code:
		return http.StatusNotFound
	case domain.ErrCompletionGateFailed.Code:
		return http.StatusUnprocessableEntity
	case domain.ErrEmptyInstruction.Code:
		return http.StatusBadRequest
	case domain.ErrGenerationInFlight.Code:
		return http.StatusConflict
	case domain.ErrRateLimitExceeded.Code:
		return http.StatusTooManyRequests
	case domain.ErrServiceUnavailable.Code:
		return http.StatusBadGateway
	case domain.ErrMissingCredential.Code, domain.ErrUnknownProvider.Code:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var engErr *domain.EngineError
	if errors.As(err, &engErr) {
		status := statusFor(engErr.Code)
		if status >= 500 && h.Logger != nil {
			h.Logger.Error("request failed", "code", engErr.Code, "error", err)
		}
		writeJSON(w, status, APIError{Code: engErr.Code, Message: engErr.Message})
		return
	}
	if h.Logger != nil {
		h.Logger.Error("request failed", "error", err)
	}
	writeJSON(w, http.StatusInternalServerError, APIError{Code: -1, Message: err.Error()})
}

func writeSSEEvent(w http.ResponseWriter, f http.Flusher, ev domain.WorkflowEvent) {
	data, _ := json.Marshal(ev)
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.EventType, data)
	f.Flush()
}

func writeSSEError(w http.ResponseWriter, f http.Flusher, err error) {
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
	f.Flush()
}
