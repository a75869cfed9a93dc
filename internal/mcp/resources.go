package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── pages://active ─────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		resourceActive,
		"Active Pages",
		mcp.WithResourceDescription("Pages outside the trash, most recently updated first"),
		mcp.WithMIMEType("application/json"),
	), s.handleActiveResource)

	// ── pages://trash ──────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		resourceTrash,
		"Trash",
		mcp.WithMIMEType("application/json"),
	), s.handleTrashResource)

	// ── pages://page/{pageId} ──────────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageURIPrefix+"{pageId}",
			"Page with Blocks",
		),
		s.handlePageResource,
	)
}

func (s *Server) handleActiveResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pages, err := s.pages.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(resourceActive, summarizePages(pages))
}

func (s *Server) handleTrashResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pages, err := s.pages.ListTrash(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(resourceTrash, summarizePages(pages))
}

// handlePageResource serves the open page from the editor, so unsaved edits
// are visible, and any other page from storage.
func (s *Server) handlePageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := pageIDFromURI(uri)
	if pageID == "" {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}

	if cur := s.editor.Current(); cur != nil && cur.ID == pageID {
		return jsonContents(uri, viewPage(cur))
	}
	p, err := s.pages.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return jsonContents(uri, viewPage(p))
}

// pageIDFromURI extracts the id from "pages://page/{id}".
func pageIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, pageURIPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := marshalIndent(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
