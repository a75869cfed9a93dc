package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"pocketpages/internal/domain"
	"pocketpages/internal/editor"
	"pocketpages/internal/event"
	"pocketpages/internal/service"
)

const (
	serverName    = "pocketpages-mcp"
	serverVersion = "1.0.0"

	resourceActive = "pages://active"
	resourceTrash  = "pages://trash"
	pageURIPrefix  = "pages://page/"
)

// Server is the MCP server for pocketpages.
// It drives a single open page through the editor and exposes the page
// library, so an agent edits with the same debounce, history and autosave
// rules as a person typing.
type Server struct {
	mcp *server.MCPServer
	log zerolog.Logger

	editor   *editor.Editor
	pages    *service.PageService
	settings *service.SettingsService
}

// Deps holds everything the MCP server needs from the composition root.
type Deps struct {
	Editor   *editor.Editor
	Pages    *service.PageService
	Settings *service.SettingsService
	// Bus, when set, is subscribed to so editor and library events reach
	// clients as resource notifications.
	Bus *event.Bus
	Log zerolog.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{
		log:      deps.Log.With().Str("component", "mcp").Logger(),
		editor:   deps.Editor,
		pages:    deps.Pages,
		settings: deps.Settings,
	}

	s.mcp = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
	)

	s.registerEditorTools()
	s.registerLibraryTools()
	s.registerResources()
	s.registerPrompts()

	if deps.Bus != nil {
		deps.Bus.Subscribe(s.forward)
	}
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info().Msg("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// forward turns editor and library events into MCP notifications.
func (s *Server) forward(_ context.Context, name string, data any) {
	switch name {
	case editor.EventPageSaved:
		if id, ok := data.(string); ok {
			s.mcp.SendNotificationToAllClients("notifications/resources/updated",
				map[string]any{"uri": pageURIPrefix + id})
		}
	case service.EventExternalChange:
		if p, ok := data.(*domain.Page); ok && p != nil {
			s.log.Info().Str("page", p.ID).Msg("open page changed by another process")
			s.mcp.SendNotificationToAllClients("notifications/resources/updated",
				map[string]any{"uri": pageURIPrefix + p.ID})
		}
	case service.EventPagesChanged:
		s.mcp.SendNotificationToAllClients("notifications/resources/list_changed", nil)
	case editor.EventPageSaveFailed:
		if f, ok := data.(editor.SaveFailure); ok {
			s.log.Warn().Err(f.Err).Str("page", f.PageID).Msg("autosave failed")
		}
	}
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := marshalIndent(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
