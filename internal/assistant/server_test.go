package assistant

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fenwick/draftpilot/internal/bus"
	"github.com/fenwick/draftpilot/internal/draft"
	"github.com/fenwick/draftpilot/internal/genclient"
	"github.com/fenwick/draftpilot/internal/history"
)

func testServer(t *testing.T, initial string) (*Server, *bus.Bus, *draft.Session, history.Store) {
	t.Helper()

	b := bus.New()
	sess := draft.NewSession(b, initial, time.Millisecond)
	store := history.NewMemory()
	t.Cleanup(func() {
		sess.Close()
		b.Close()
	})

	srv := New(b, sess, store, genclient.Mock{})
	return srv, b, sess, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "read_draft":
		result, err = srv.readDraft(ctx, req)
	case "update_draft":
		result, err = srv.updateDraft(ctx, req)
	case "append_draft":
		result, err = srv.appendDraft(ctx, req)
	case "apply_edit":
		result, err = srv.applyEdit(ctx, req)
	case "assistant_message":
		result, err = srv.assistantMessage(ctx, req)
	case "generate_post":
		result, err = srv.generatePost(ctx, req)
	case "get_edit_catalog":
		result, err = srv.getEditCatalog(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func waitForDoc(t *testing.T, sess *draft.Session, want string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sess.Snapshot().Document == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("document never became %q (got %q)", want, sess.Snapshot().Document)
}

func TestUpdateAndReadDraft(t *testing.T) {
	srv, _, sess, _ := testServer(t, "")

	r := callTool(t, srv, "update_draft", map[string]interface{}{"text": "fresh draft"})
	if resultText(r) != "draft updated" {
		t.Errorf("update result = %q", resultText(r))
	}
	waitForDoc(t, sess, "fresh draft")

	r = callTool(t, srv, "read_draft", map[string]interface{}{})
	if !strings.Contains(resultText(r), "fresh draft") {
		t.Errorf("read result = %q", resultText(r))
	}
}

func TestAppendDraftTool(t *testing.T) {
	srv, _, sess, _ := testServer(t, "start")
	callTool(t, srv, "append_draft", map[string]interface{}{"text": "more"})
	waitForDoc(t, sess, "start\n\nmore")
}

func TestApplyEditStartsPreview(t *testing.T) {
	srv, _, sess, _ := testServer(t, "Hello world")

	r := callTool(t, srv, "apply_edit", map[string]interface{}{"operation": "lengthen"})
	if !strings.Contains(resultText(r), "previewing lengthen") {
		t.Errorf("apply result = %q", resultText(r))
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if snap := sess.Snapshot(); snap.State == draft.Previewing {
			if snap.Pending.Target != "Hello world\n\nLearn more at our page!" {
				t.Errorf("target = %q", snap.Pending.Target)
			}
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("preview never started")
}

func TestApplyEditUnknownOperation(t *testing.T) {
	srv, _, _, _ := testServer(t, "doc")
	r := callTool(t, srv, "apply_edit", map[string]interface{}{"operation": "sparkle"})
	if !strings.Contains(resultText(r), "not in the catalog") {
		t.Errorf("result = %q", resultText(r))
	}
	if r.IsError {
		t.Error("unknown operation must not be a tool error")
	}
}

func TestApplyEditMissingArg(t *testing.T) {
	srv, _, _, _ := testServer(t, "doc")
	r := callTool(t, srv, "apply_edit", map[string]interface{}{})
	if !r.IsError {
		t.Error("missing operation should be a tool error")
	}
}

func TestAssistantMessageRecordsHistory(t *testing.T) {
	srv, b, _, store := testServer(t, "")

	sub := b.Subscribe(bus.AssistantMessage)
	defer b.Unsubscribe(sub)

	callTool(t, srv, "assistant_message", map[string]interface{}{"content": "here's an idea"})

	select {
	case ev := <-sub.C:
		m := ev.Payload.(map[string]string)
		if m["content"] != "here's an idea" {
			t.Errorf("payload = %v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("no assistant.message event")
	}

	msgs, _ := store.LoadAll()
	if len(msgs) != 1 || msgs[0].Role != history.RoleAssistant {
		t.Errorf("history = %+v", msgs)
	}
}

func TestGeneratePost(t *testing.T) {
	srv, _, sess, store := testServer(t, "old draft")

	r := callTool(t, srv, "generate_post", map[string]interface{}{
		"business_type": "bakery",
		"tone":          "upbeat",
	})
	content := resultText(r)
	if !strings.Contains(content, "bakery") {
		t.Fatalf("generated content = %q", content)
	}

	waitForDoc(t, sess, content)

	prefs, _ := store.ReadPreferences()
	if prefs["business_type"] != "bakery" || prefs["tone"] != "upbeat" {
		t.Errorf("preferences = %v", prefs)
	}
}

func TestGeneratePostBackendFailure(t *testing.T) {
	b := bus.New()
	sess := draft.NewSession(b, "untouched", time.Millisecond)
	store := history.NewMemory()
	t.Cleanup(func() {
		sess.Close()
		b.Close()
	})
	srv := New(b, sess, store, genclient.Mock{Err: context.DeadlineExceeded})

	r := callTool(t, srv, "generate_post", map[string]interface{}{"business_type": "x"})
	if !r.IsError {
		t.Fatal("expected tool error")
	}

	// Failure must not mutate the draft or preferences.
	time.Sleep(20 * time.Millisecond)
	if got := sess.Snapshot().Document; got != "untouched" {
		t.Errorf("document = %q", got)
	}
	prefs, _ := store.ReadPreferences()
	if len(prefs) != 0 {
		t.Errorf("preferences written on failure: %v", prefs)
	}
}

func TestGetEditCatalog(t *testing.T) {
	srv, _, _, _ := testServer(t, "")
	r := callTool(t, srv, "get_edit_catalog", map[string]interface{}{})
	if !strings.Contains(resultText(r), "tighten_hook") {
		t.Error("catalog missing operations")
	}
}
