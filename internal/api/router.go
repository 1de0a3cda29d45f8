package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Draft.
	r.Get("/draft", h.GetDraft)
	r.Put("/draft", h.SetDraft)
	r.Post("/draft/append", h.AppendDraft)

	// Pending-edit lifecycle.
	r.Post("/edits", h.RequestEdit)
	r.Post("/edits/confirm", h.ConfirmEdit)
	r.Post("/edits/discard", h.DiscardEdit)

	// Generation.
	r.Post("/generate", h.Generate)

	// Chat history & preferences.
	r.Get("/history", h.GetHistory)
	r.Post("/history", h.AppendMessage)
	r.Delete("/history", h.ClearHistory)
	r.Get("/history/summary", h.GetSummary)
	r.Get("/preferences", h.GetPreferences)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
