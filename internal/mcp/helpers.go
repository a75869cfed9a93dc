package mcpserver

import (
	"encoding/json"
	"fmt"
	"time"

	"pocketpages/internal/domain"
	"pocketpages/internal/editor"
)

func marshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// pageSummary is the list view of a page.
type pageSummary struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Blocks    int        `json:"blocks"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func summarizePages(pages []domain.Page) []pageSummary {
	out := make([]pageSummary, len(pages))
	for i, p := range pages {
		out[i] = pageSummary{
			ID:        p.ID,
			Title:     p.Title,
			Blocks:    len(p.Blocks),
			UpdatedAt: p.UpdatedAt,
			DeletedAt: p.DeletedAt,
		}
	}
	return out
}

// blockView is a block as agents see it, with its position on the page.
type blockView struct {
	Position  int    `json:"position"`
	ID        string `json:"id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	Completed *bool  `json:"completed,omitempty"`
}

type pageView struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Blocks    []blockView          `json:"blocks"`
	UpdatedAt time.Time            `json:"updatedAt"`
	IsDeleted bool                 `json:"isDeleted"`
	History   *editor.HistoryState `json:"history,omitempty"`
}

func viewPage(p *domain.Page) pageView {
	v := pageView{
		ID:        p.ID,
		Title:     p.Title,
		Blocks:    make([]blockView, len(p.Blocks)),
		UpdatedAt: p.UpdatedAt,
		IsDeleted: p.IsDeleted,
	}
	for i, b := range p.Blocks {
		bv := blockView{Position: i, ID: b.ID, Type: string(b.Type), Content: b.Content}
		if b.Type == domain.BlockTypeTodo {
			done := b.Completed()
			bv.Completed = &done
		}
		v.Blocks[i] = bv
	}
	return v
}

// blockPosition resolves a tool's block reference on the open page: blockId
// wins, otherwise position.
func blockPosition(p *domain.Page, args map[string]any) (int, error) {
	if id, ok := args["blockId"].(string); ok && id != "" {
		i := p.BlockIndex(id)
		if i < 0 {
			return 0, fmt.Errorf("block %s is not on the open page", id)
		}
		return i, nil
	}
	if f, ok := args["position"].(float64); ok {
		pos := int(f)
		if !p.ValidPosition(pos) {
			return 0, fmt.Errorf("position %d out of range (page has %d blocks)", pos, len(p.Blocks))
		}
		return pos, nil
	}
	return 0, fmt.Errorf("blockId or position is required")
}
