package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fenwick/draftpilot/internal/bus"
	"github.com/fenwick/draftpilot/internal/draft"
	"github.com/fenwick/draftpilot/internal/genclient"
	"github.com/fenwick/draftpilot/internal/history"
)

// testEnv sets up a bus, session, in-memory store, service, and router.
// An empty authToken means auth disabled.
func testEnv(t *testing.T, initial, authToken string) (*Service, http.Handler) {
	t.Helper()

	b := bus.New()
	sess := draft.NewSession(b, initial, time.Millisecond)
	store := history.NewMemory()
	t.Cleanup(func() {
		sess.Close()
		b.Close()
	})

	svc := NewService(sess, store, genclient.Mock{}, b)
	router := NewRouter(svc, authToken != "", authToken, b)
	return svc, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) draft.Snapshot {
	t.Helper()
	var snap draft.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v (%s)", err, w.Body.String())
	}
	return snap
}

func TestGetAndSetDraft(t *testing.T) {
	_, router := testEnv(t, "initial", "")

	w := doJSON(t, router, http.MethodGet, "/draft", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if snap := decodeSnapshot(t, w); snap.Document != "initial" {
		t.Errorf("document = %q", snap.Document)
	}

	w = doJSON(t, router, http.MethodPut, "/draft", map[string]string{"text": "replaced"})
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}
	if snap := decodeSnapshot(t, w); snap.Document != "replaced" {
		t.Errorf("document = %q", snap.Document)
	}
}

func TestAppendDraft(t *testing.T) {
	_, router := testEnv(t, "part one", "")

	w := doJSON(t, router, http.MethodPost, "/draft/append", map[string]string{"text": "part two"})
	if w.Code != http.StatusOK {
		t.Fatalf("append status = %d", w.Code)
	}
	if snap := decodeSnapshot(t, w); snap.Document != "part one\n\npart two" {
		t.Errorf("document = %q", snap.Document)
	}

	w = doJSON(t, router, http.MethodPost, "/draft/append", map[string]string{"text": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty append status = %d", w.Code)
	}
}

func TestEditPreviewConfirmFlow(t *testing.T) {
	_, router := testEnv(t, "Hello world", "")

	w := doJSON(t, router, http.MethodPost, "/edits", map[string]string{"operation": "lengthen"})
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body = %s", w.Code, w.Body.String())
	}
	snap := decodeSnapshot(t, w)
	if snap.Pending == nil {
		t.Fatal("no pending edit in response")
	}
	want := "Hello world\n\nLearn more at our page!"
	if snap.Pending.Target != want {
		t.Errorf("target = %q", snap.Pending.Target)
	}
	if snap.Document != "Hello world" {
		t.Errorf("document mutated before confirm: %q", snap.Document)
	}

	w = doJSON(t, router, http.MethodPost, "/edits/confirm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm status = %d", w.Code)
	}
	snap = decodeSnapshot(t, w)
	if snap.Document != want {
		t.Errorf("confirmed document = %q, want %q", snap.Document, want)
	}
	if snap.Pending != nil {
		t.Error("pending edit survived confirm")
	}
}

func TestEditDiscardFlow(t *testing.T) {
	_, router := testEnv(t, "untouched", "")

	doJSON(t, router, http.MethodPost, "/edits", map[string]string{"operation": "add_cta"})
	w := doJSON(t, router, http.MethodPost, "/edits/discard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("discard status = %d", w.Code)
	}
	if snap := decodeSnapshot(t, w); snap.Document != "untouched" {
		t.Errorf("document = %q", snap.Document)
	}
}

func TestConfirmWithoutPending(t *testing.T) {
	_, router := testEnv(t, "doc", "")

	w := doJSON(t, router, http.MethodPost, "/edits/confirm", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("confirm status = %d, want 409", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/edits/discard", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("discard status = %d, want 409", w.Code)
	}
}

func TestGenerateReplacesDraft(t *testing.T) {
	svc, router := testEnv(t, "old", "")

	w := doJSON(t, router, http.MethodPost, "/generate", map[string]string{
		"business_type": "coffee shop",
		"tone":          "casual",
		"goal":          "announce new menu",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["content"] == "" {
		t.Fatal("empty generated content")
	}

	// The bus event replaces the draft without a preview.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if svc.Draft(nil).Document == resp["content"] {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if got := svc.Draft(nil).Document; got != resp["content"] {
		t.Errorf("draft = %q, want generated content", got)
	}

	// Preferences persisted from the request parameters.
	prefs, _ := svc.Preferences(nil)
	if prefs["business_type"] != "coffee shop" {
		t.Errorf("preferences = %v", prefs)
	}

	// Both turns recorded.
	msgs, _ := svc.History(nil)
	if len(msgs) != 2 || msgs[0].Role != history.RoleUser || msgs[1].Role != history.RoleAssistant {
		t.Errorf("history = %+v", msgs)
	}
}

func TestGenerateFailureLeavesDraft(t *testing.T) {
	b := bus.New()
	sess := draft.NewSession(b, "keep me", time.Millisecond)
	store := history.NewMemory()
	t.Cleanup(func() {
		sess.Close()
		b.Close()
	})
	svc := NewService(sess, store, genclient.Mock{Err: http.ErrHandlerTimeout}, b)
	router := NewRouter(svc, false, "", nil)

	w := doJSON(t, router, http.MethodPost, "/generate", map[string]string{"goal": "x"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("generate status = %d", w.Code)
	}

	time.Sleep(20 * time.Millisecond)
	if got := sess.Snapshot().Document; got != "keep me" {
		t.Errorf("document = %q", got)
	}

	// The user turn is still recorded as attempted.
	msgs, _ := store.LoadAll()
	if len(msgs) != 1 || msgs[0].Role != history.RoleUser {
		t.Errorf("history = %+v", msgs)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	_, router := testEnv(t, "", "")

	w := doJSON(t, router, http.MethodPost, "/history", map[string]string{"content": "hi assistant"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("append status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp struct {
		Messages []history.ChatMessage `json:"messages"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Messages) != 1 || resp.Messages[0].Content != "hi assistant" {
		t.Errorf("messages = %+v", resp.Messages)
	}

	w = doJSON(t, router, http.MethodGet, "/history/summary?max=50", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/history", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/history", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Messages) != 0 {
		t.Errorf("messages after clear = %+v", resp.Messages)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "", "secret")

	req := httptest.NewRequest(http.MethodGet, "/draft", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/draft", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/draft", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d", w.Code)
	}
}

func TestBadJSONBodies(t *testing.T) {
	_, router := testEnv(t, "", "")

	req := httptest.NewRequest(http.MethodPost, "/edits", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad edits body status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/edits", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing operation status = %d", w.Code)
	}
}
