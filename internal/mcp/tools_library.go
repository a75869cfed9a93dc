package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerLibraryTools() {
	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List pages outside the trash, most recently updated first"),
		mcp.WithString("query", mcp.Description("Only pages whose title or text contains this (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListPages)

	// ── list_trash ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_trash",
		mcp.WithDescription("List trashed pages, most recently deleted first"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListTrash)

	// ── trash_page ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("trash_page",
		mcp.WithDescription("Move a page to the trash. Omit pageId to trash the open page."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to the open page)")),
	), s.handleTrashPage)

	// ── restore_page ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("restore_page",
		mcp.WithDescription("Bring a page back from the trash"),
		mcp.WithString("pageId", mcp.Description("Page ID"), mcp.Required()),
	), s.handleRestorePage)

	// ── purge_page (destructive) ───────────────────────
	s.mcp.AddTool(mcp.NewTool("purge_page",
		mcp.WithDescription("🛑 DESTRUCTIVE: Permanently delete a page. Cannot be undone."),
		mcp.WithString("pageId", mcp.Description("Page ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handlePurgePage)

	// ── empty_trash (destructive) ──────────────────────
	s.mcp.AddTool(mcp.NewTool("empty_trash",
		mcp.WithDescription("🛑 DESTRUCTIVE: Permanently delete every trashed page"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleEmptyTrash)

	// ── settings ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_setting",
		mcp.WithDescription("Read an app setting (theme)"),
		mcp.WithString("key", mcp.Description("Setting key"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetSetting)
	s.mcp.AddTool(mcp.NewTool("set_setting",
		mcp.WithDescription("Change an app setting. theme: light, dark or system."),
		mcp.WithString("key", mcp.Description("Setting key"), mcp.Required()),
		mcp.WithString("value", mcp.Description("New value"), mcp.Required()),
	), s.handleSetSetting)
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.pages.Search(ctx, req.GetString("query", ""))
	if err != nil {
		return nil, err
	}
	return jsonResult(summarizePages(pages))
}

func (s *Server) handleListTrash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.pages.ListTrash(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(summarizePages(pages))
}

func (s *Server) handleTrashPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if s.isOpen(pageID) || pageID == "" {
		cur := s.editor.Current()
		if cur == nil {
			return nil, errNoOpenPage
		}
		// The editor flushes and closes the page before deleting it.
		if err := s.editor.SoftDeleteCurrent(ctx); err != nil {
			return nil, err
		}
		return textResult(fmt.Sprintf("Page %s moved to trash", cur.ID)), nil
	}
	if err := s.pages.MoveToTrash(ctx, pageID); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Page %s moved to trash", pageID)), nil
}

func (s *Server) handleRestorePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	if err := s.pages.Restore(ctx, pageID); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Page %s restored", pageID)), nil
}

func (s *Server) handlePurgePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	if s.isOpen(pageID) {
		return nil, fmt.Errorf("page %s is open; trash it before purging", pageID)
	}
	if err := s.pages.Purge(ctx, pageID); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Page %s permanently deleted", pageID)), nil
}

func (s *Server) handleEmptyTrash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.pages.EmptyTrash(ctx)
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("%d pages permanently deleted", n)), nil
}

func (s *Server) handleGetSetting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := s.settings.Get(ctx, req.GetString("key", ""))
	if err != nil {
		return nil, err
	}
	return textResult(v), nil
}

func (s *Server) handleSetSetting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("key", "")
	if err := s.settings.Set(ctx, key, req.GetString("value", "")); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("%s updated", key)), nil
}

func (s *Server) isOpen(pageID string) bool {
	cur := s.editor.Current()
	return cur != nil && pageID != "" && cur.ID == pageID
}
