package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("draft_page",
		mcp.WithPromptDescription("Guide through drafting a structured page from a topic"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the page is about"),
			mcp.RequiredArgument(),
		),
	), s.handleDraftPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("checklist",
		mcp.WithPromptDescription("Turn a goal into a page of todo blocks"),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("The goal to break down"),
			mcp.RequiredArgument(),
		),
	), s.handleChecklistPrompt)
}

func (s *Server) handleDraftPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Draft a page about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Draft a page about "%s". Follow these steps:

1. Use create_page with the title "%s".
2. Fill the first block with update_block (position 0) with a one-paragraph summary.
3. Use add_block with type HEADING_2 and content for each section, followed by TEXT or BULLET_LIST blocks.
4. Call current_page to review the result, then save.

If a step goes wrong, undo reverts the last edit streak.`, topic, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handleChecklistPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	goal := req.Params.Arguments["goal"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Checklist for: %s", goal),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Break the goal "%s" into concrete steps on a new page:

1. create_page with a short title for the goal.
2. For each step, add_block with type TODO and the step as content.
3. Use set_todo to check off anything already done.
4. save when finished.`, goal),
				},
			},
		},
	}, nil
}
