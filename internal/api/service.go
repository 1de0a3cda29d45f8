package api

import (
	"context"
	"fmt"

	"github.com/fenwick/draftpilot/internal/apperr"
	"github.com/fenwick/draftpilot/internal/bus"
	"github.com/fenwick/draftpilot/internal/draft"
	"github.com/fenwick/draftpilot/internal/editop"
	"github.com/fenwick/draftpilot/internal/genclient"
	"github.com/fenwick/draftpilot/internal/history"
)

// Service coordinates the editing session, history store, and generation
// backend for the API layer.
type Service struct {
	sess  *draft.Session
	store history.Store
	gen   genclient.Client
	b     *bus.Bus
}

// NewService creates a new API service.
func NewService(sess *draft.Session, store history.Store, gen genclient.Client, b *bus.Bus) *Service {
	return &Service{sess: sess, store: store, gen: gen, b: b}
}

// Draft returns the current document and pending edit.
func (s *Service) Draft(_ context.Context) draft.Snapshot {
	return s.sess.Snapshot()
}

// SetDraft replaces the document immediately, bypassing preview.
func (s *Service) SetDraft(_ context.Context, text string) draft.Snapshot {
	return s.sess.SetDocument(text)
}

// AppendDraft appends to the document immediately, bypassing preview.
func (s *Service) AppendDraft(_ context.Context, text string) draft.Snapshot {
	return s.sess.AppendDocument(text)
}

// RequestEdit normalizes a free-text operation name and starts a preview.
// Unknown names still preview (showing no changes); tolerance for assistant
// phrasing is part of the contract.
func (s *Service) RequestEdit(_ context.Context, name string) draft.Snapshot {
	return s.sess.RequestEdit(editop.Normalize(name))
}

// Confirm commits the pending edit. ErrNoPendingEdit when idle.
func (s *Service) Confirm(_ context.Context) (draft.Snapshot, error) {
	snap, committed := s.sess.Confirm()
	if !committed {
		return snap, apperr.ErrNoPendingEdit
	}
	return snap, nil
}

// Discard drops the pending edit. ErrNoPendingEdit when idle.
func (s *Service) Discard(_ context.Context) (draft.Snapshot, error) {
	snap, dropped := s.sess.Discard()
	if !dropped {
		return snap, apperr.ErrNoPendingEdit
	}
	return snap, nil
}

// Generate requests a draft from the generation backend. The user turn is
// recorded as attempted even when the backend fails; on success the content
// replaces the draft, preferences are overwritten with the request
// parameters, and the assistant turn is recorded.
func (s *Service) Generate(ctx context.Context, req genclient.Request) (string, error) {
	// Best-effort history: losing a turn never blocks generation.
	_ = s.store.Append(history.RoleUser, "Generate: "+req.Goal)

	if summary, err := s.store.Summarize(2000); err == nil {
		req.Context = summary
	}

	content, err := s.gen.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	_ = s.store.WritePreferences(req.Preferences())
	_ = s.store.Append(history.RoleAssistant, content)
	s.b.Publish(bus.DraftUpdate, content)
	s.b.Publish(bus.AssistantMessage, map[string]string{"content": content})
	return content, nil
}

// History returns all stored turns, oldest first.
func (s *Service) History(_ context.Context) ([]history.ChatMessage, error) {
	return s.store.LoadAll()
}

// AppendUserMessage records a user chat turn.
func (s *Service) AppendUserMessage(_ context.Context, content string) error {
	return s.store.Append(history.RoleUser, content)
}

// ClearHistory removes all stored turns.
func (s *Service) ClearHistory(_ context.Context) error {
	return s.store.Clear()
}

// Summary renders the recent conversation for context seeding.
func (s *Service) Summary(_ context.Context, maxChars int) (string, error) {
	return s.store.Summarize(maxChars)
}

// Preferences returns the last-used generation parameters.
func (s *Service) Preferences(_ context.Context) (map[string]string, error) {
	return s.store.ReadPreferences()
}
