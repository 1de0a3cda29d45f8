package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fenwick/draftpilot/internal/apperr"
	"github.com/fenwick/draftpilot/internal/genclient"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetDraft handles GET /api/draft.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Draft(r.Context()))
}

// SetDraft handles PUT /api/draft: direct replacement, no preview.
func (h *Handler) SetDraft(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.SetDraft(r.Context(), req.Text))
}

// AppendDraft handles POST /api/draft/append.
func (h *Handler) AppendDraft(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("text is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.AppendDraft(r.Context(), req.Text))
}

// RequestEdit handles POST /api/edits: starts (or supersedes) a preview.
func (h *Handler) RequestEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Operation string `json:"operation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Operation == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("operation is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.RequestEdit(r.Context(), req.Operation))
}

// ConfirmEdit handles POST /api/edits/confirm.
func (h *Handler) ConfirmEdit(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Confirm(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrNoPendingEdit) {
			writeJSON(w, http.StatusConflict, errorBody("no pending edit"))
			return
		}
		slog.Error("confirm failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DiscardEdit handles POST /api/edits/discard.
func (h *Handler) DiscardEdit(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Discard(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrNoPendingEdit) {
			writeJSON(w, http.StatusConflict, errorBody("no pending edit"))
			return
		}
		slog.Error("discard failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Generate handles POST /api/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req genclient.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	content, err := h.svc.Generate(r.Context(), req)
	if err != nil {
		slog.Error("generation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("generation failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

// GetHistory handles GET /api/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.History(r.Context())
	if err != nil {
		slog.Error("load history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// AppendMessage handles POST /api/history: records a user chat turn.
func (h *Handler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	if err := h.svc.AppendUserMessage(r.Context(), req.Content); err != nil {
		// Best-effort persistence: report success anyway, history loss
		// must never block the chat flow.
		slog.Warn("append message failed", slog.String("error", err.Error()))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearHistory handles DELETE /api/history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context()); err != nil {
		slog.Error("clear history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSummary handles GET /api/history/summary.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	maxChars, _ := strconv.Atoi(r.URL.Query().Get("max"))
	if maxChars <= 0 {
		maxChars = 2000
	}
	out, err := h.svc.Summary(r.Context(), maxChars)
	if err != nil {
		slog.Error("summarize failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": out})
}

// GetPreferences handles GET /api/preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.svc.Preferences(r.Context())
	if err != nil {
		slog.Error("read preferences failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
