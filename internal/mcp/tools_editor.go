package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pocketpages/internal/domain"
)

var errNoOpenPage = errors.New("no page is open (use open_page or create_page first)")

func (s *Server) registerEditorTools() {
	// ── open_page ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_page",
		mcp.WithDescription("Open a page for editing. Unsaved edits on the previous page are saved first and history starts empty."),
		mcp.WithString("pageId", mcp.Description("ID of the page to open"), mcp.Required()),
	), s.handleOpenPage)

	// ── create_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a page with one empty text block and open it"),
		mcp.WithString("title", mcp.Description("Title of the new page (optional)")),
	), s.handleCreatePage)

	// ── current_page ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("current_page",
		mcp.WithDescription("Show the open page, its blocks with positions, and undo/redo state"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleCurrentPage)

	// ── update_title ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_title",
		mcp.WithDescription("Replace the title of the open page"),
		mcp.WithString("title", mcp.Description("New title"), mcp.Required()),
	), s.handleUpdateTitle)

	// ── update_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Replace the text of a block on the open page. Identify the block by blockId or position."),
		mcp.WithString("blockId", mcp.Description("Block ID")),
		mcp.WithNumber("position", mcp.Description("Zero-based block position")),
		mcp.WithString("content", mcp.Description("New text"), mcp.Required()),
	), s.handleUpdateBlock)

	// ── set_todo ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_todo",
		mcp.WithDescription("Check or uncheck a todo block"),
		mcp.WithString("blockId", mcp.Description("Block ID")),
		mcp.WithNumber("position", mcp.Description("Zero-based block position")),
		mcp.WithBoolean("checked", mcp.Description("Checkbox state"), mcp.Required()),
	), s.handleSetTodo)

	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Insert an empty block after a position, or at the end"),
		mcp.WithString("type",
			mcp.Description("Block type: TEXT, HEADING_1, HEADING_2, HEADING_3, BULLET_LIST, NUMBERED_LIST, TODO, QUOTE, CODE, DIVIDER, IMAGE, TABLE, CALENDAR, DATABASE"),
			mcp.Required(),
		),
		mcp.WithNumber("after", mcp.Description("Insert after this position (optional, default: append)")),
		mcp.WithString("content", mcp.Description("Initial text (optional)")),
	), s.handleAddBlock)

	// ── delete_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("Remove a block from the open page. The last remaining block cannot be removed. Undoable."),
		mcp.WithString("blockId", mcp.Description("Block ID")),
		mcp.WithNumber("position", mcp.Description("Zero-based block position")),
	), s.handleDeleteBlock)

	// ── set_cursor ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_cursor",
		mcp.WithDescription("Record caret positions on the open page. Not an edit; not undoable."),
		mcp.WithNumber("titlePosition", mcp.Description("Caret in the title, -1 for none")),
		mcp.WithString("blockId", mcp.Description("Focused block ID (optional)")),
		mcp.WithNumber("blockPosition", mcp.Description("Caret in the focused block, -1 for none")),
	), s.handleSetCursor)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last edit streak on the open page"),
	), s.handleUndo)
	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone edit streak"),
	), s.handleRedo)

	// ── save ───────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save",
		mcp.WithDescription("Save the open page now instead of waiting for autosave"),
	), s.handleSave)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleOpenPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	if err := s.editor.LoadPage(ctx, pageID); err != nil {
		return nil, err
	}
	return s.currentResult()
}

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := s.editor.CreateNewPage(ctx); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	if title := req.GetString("title", ""); title != "" {
		s.editor.UpdateTitle(title)
		if err := s.editor.FlushAndSave(ctx); err != nil {
			return nil, err
		}
	}
	return s.currentResult()
}

func (s *Server) handleCurrentPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.currentResult()
}

func (s *Server) handleUpdateTitle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.editor.Current() == nil {
		return nil, errNoOpenPage
	}
	s.editor.UpdateTitle(req.GetString("title", ""))
	return s.currentResult()
}

func (s *Server) handleUpdateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := s.resolveBlock(req)
	if err != nil {
		return nil, err
	}
	s.editor.UpdateBlockContent(pos, req.GetString("content", ""))
	return s.currentResult()
}

func (s *Server) handleSetTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := s.resolveBlock(req)
	if err != nil {
		return nil, err
	}
	if t := s.editor.Current().Blocks[pos].Type; t != domain.BlockTypeTodo {
		return nil, fmt.Errorf("block at position %d is %s, not TODO", pos, t)
	}
	s.editor.UpdateTodoCheckbox(pos, req.GetBool("checked", false))
	return s.currentResult()
}

func (s *Server) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cur := s.editor.Current()
	if cur == nil {
		return nil, errNoOpenPage
	}
	t, err := domain.ParseBlockType(req.GetString("type", ""))
	if err != nil {
		return nil, err
	}
	after := req.GetInt("after", -1)
	at := after + 1
	if after < 0 || at > len(cur.Blocks) {
		at = len(cur.Blocks)
	}

	s.editor.AddBlock(after, t)
	if content := req.GetString("content", ""); content != "" {
		s.editor.UpdateBlockContent(at, content)
	}
	return s.currentResult()
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := s.resolveBlock(req)
	if err != nil {
		return nil, err
	}
	if len(s.editor.Current().Blocks) <= 1 {
		return nil, fmt.Errorf("cannot delete the only block on a page")
	}
	s.editor.DeleteBlock(pos)
	return s.currentResult()
}

func (s *Server) handleSetCursor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cur := s.editor.Current()
	if cur == nil {
		return nil, errNoOpenPage
	}
	var focused *string
	if id := req.GetString("blockId", ""); id != "" {
		if cur.BlockIndex(id) < 0 {
			return nil, fmt.Errorf("block %s is not on the open page", id)
		}
		focused = &id
	}
	s.editor.UpdateCursorState(
		req.GetInt("titlePosition", domain.NoCursor),
		focused,
		req.GetInt("blockPosition", domain.NoCursor),
	)
	return textResult("Cursor updated"), nil
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.editor.Current() == nil {
		return nil, errNoOpenPage
	}
	if !s.editor.Undo() {
		return textResult("Nothing to undo"), nil
	}
	return s.currentResult()
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.editor.Current() == nil {
		return nil, errNoOpenPage
	}
	if !s.editor.Redo() {
		return textResult("Nothing to redo"), nil
	}
	return s.currentResult()
}

func (s *Server) handleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.editor.FlushAndSave(ctx); err != nil {
		return nil, err
	}
	return textResult("Page saved"), nil
}

// resolveBlock finds the block a tool call targets on the open page.
func (s *Server) resolveBlock(req mcp.CallToolRequest) (int, error) {
	cur := s.editor.Current()
	if cur == nil {
		return 0, errNoOpenPage
	}
	return blockPosition(cur, req.GetArguments())
}

func (s *Server) currentResult() (*mcp.CallToolResult, error) {
	cur := s.editor.Current()
	if cur == nil {
		return nil, errNoOpenPage
	}
	v := viewPage(cur)
	h := s.editor.HistoryState()
	v.History = &h
	return jsonResult(v)
}
