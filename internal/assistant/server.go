// Package assistant provides the MCP (Model Context Protocol) server that
// exposes draft-editing tools to the LLM assistant via stdio transport. Tool
// handlers never mutate document state directly; they publish events on the
// dispatch bus and the editing session picks them up.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fenwick/draftpilot/internal/bus"
	"github.com/fenwick/draftpilot/internal/draft"
	"github.com/fenwick/draftpilot/internal/editop"
	"github.com/fenwick/draftpilot/internal/genclient"
	"github.com/fenwick/draftpilot/internal/history"
)

// Server wraps the MCP server with draftpilot tools.
type Server struct {
	mcp   *server.MCPServer
	b     *bus.Bus
	sess  *draft.Session
	store history.Store
	gen   genclient.Client
}

// New creates an MCP server with all draftpilot tools registered.
func New(b *bus.Bus, sess *draft.Session, store history.Store, gen genclient.Client) *Server {
	s := &Server{b: b, sess: sess, store: store, gen: gen}

	s.mcp = server.NewMCPServer(
		"Draftpilot",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_draft",
		mcp.WithDescription("Read the current committed draft and any pending edit preview."),
	), s.readDraft)

	s.mcp.AddTool(mcp.NewTool("update_draft",
		mcp.WithDescription("Replace the entire draft immediately, without a diff preview. "+
			"Use for freshly generated content; for incremental edits prefer apply_edit."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The full replacement draft text")),
	), s.updateDraft)

	s.mcp.AddTool(mcp.NewTool("append_draft",
		mcp.WithDescription("Append a paragraph to the draft immediately, without a diff preview."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to append")),
	), s.appendDraft)

	s.mcp.AddTool(mcp.NewTool("apply_edit",
		mcp.WithDescription("Request a named edit operation on the draft. The user sees an "+
			"animated diff preview and confirms or discards it. Read the catalog first via "+
			"the get_edit_catalog tool or the draftpilot://edit-operations resource."),
		mcp.WithString("operation", mcp.Required(), mcp.Description("Operation name (e.g. shorten, add_cta, casual)")),
	), s.applyEdit)

	s.mcp.AddTool(mcp.NewTool("assistant_message",
		mcp.WithDescription("Send a chat message to the user alongside (or instead of) a draft change."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Message text shown in the chat panel")),
	), s.assistantMessage)

	s.mcp.AddTool(mcp.NewTool("generate_post",
		mcp.WithDescription("Generate a fresh draft from structured parameters and replace the "+
			"current draft with it."),
		mcp.WithString("business_type", mcp.Description("What the business is")),
		mcp.WithString("audience", mcp.Description("Who the post targets")),
		mcp.WithString("tone", mcp.Description("Desired tone")),
		mcp.WithString("goal", mcp.Description("What the post should achieve")),
		mcp.WithString("include", mcp.Description("Terms that must appear")),
		mcp.WithString("avoid", mcp.Description("Terms to avoid")),
	), s.generatePost)

	s.mcp.AddTool(mcp.NewTool("get_edit_catalog",
		mcp.WithDescription("Returns the catalog of named edit operations. "+
			"Call this before apply_edit to pick a supported name."),
	), s.getEditCatalog)

	// Resource: edit operation catalog.
	s.mcp.AddResource(
		mcp.NewResource("draftpilot://edit-operations", "Edit Operation Catalog",
			mcp.WithResourceDescription("Named edit operations accepted by apply_edit."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEditCatalogResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) readDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.sess.Snapshot()
	out, _ := json.MarshalIndent(snap, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.b.Publish(bus.DraftUpdate, text)
	return mcp.NewToolResultText("draft updated"), nil
}

func (s *Server) appendDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.b.Publish(bus.DraftAppend, text)
	return mcp.NewToolResultText("draft appended"), nil
}

func (s *Server) applyEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("operation")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	op := editop.Normalize(name)
	s.b.Publish(bus.EditApply, name)
	if op == editop.Unknown {
		return mcp.NewToolResultText(fmt.Sprintf(
			"operation %q is not in the catalog; the preview will show no changes", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("previewing %s; awaiting user confirmation", op)), nil
}

func (s *Server) assistantMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Best-effort history: losing a turn never blocks the message.
	_ = s.store.Append(history.RoleAssistant, content)
	s.b.Publish(bus.AssistantMessage, map[string]string{"content": content})
	return mcp.NewToolResultText("message delivered"), nil
}

func (s *Server) generatePost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	get := func(key string) string {
		v, _ := req.RequireString(key)
		return v
	}
	gr := genclient.Request{
		BusinessType: get("business_type"),
		Audience:     get("audience"),
		Tone:         get("tone"),
		Goal:         get("goal"),
		Include:      get("include"),
		Avoid:        get("avoid"),
	}
	if summary, err := s.store.Summarize(2000); err == nil {
		gr.Context = summary
	}

	content, err := s.gen.Generate(ctx, gr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}

	_ = s.store.WritePreferences(gr.Preferences())
	_ = s.store.Append(history.RoleAssistant, content)
	s.b.Publish(bus.DraftUpdate, content)
	s.b.Publish(bus.AssistantMessage, map[string]string{"content": content})
	return mcp.NewToolResultText(content), nil
}

func (s *Server) getEditCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EditCatalog), nil
}

func (s *Server) readEditCatalogResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "draftpilot://edit-operations",
			MIMEType: "text/markdown",
			Text:     EditCatalog,
		},
	}, nil
}
