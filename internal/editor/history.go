package editor

import "pocketpages/internal/domain"

// History is the three-slot undo model: a pending checkpoint for the edit
// streak in progress, plus committed undo and redo stacks.
//
// History is not safe for concurrent use; the Editor guards it with its mutex.
// Every snapshot going in or out is cloned so no two slots share blocks.
type History struct {
	pending *domain.Page
	undo    []*domain.Page
	redo    []*domain.Page
	limit   int // max committed undo entries, 0 = unlimited
}

func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{limit: limit}
}

// Capture records before as the pending checkpoint if no streak is in progress.
// It reports whether a new streak started.
func (h *History) Capture(before *domain.Page) bool {
	if h.pending != nil || before == nil {
		return false
	}
	h.pending = before.Clone()
	return true
}

// Commit moves the pending checkpoint onto the undo stack and invalidates redo.
// It reports whether anything was pending.
func (h *History) Commit() bool {
	if h.pending == nil {
		return false
	}
	h.pushUndo(h.pending)
	h.redo = nil
	h.pending = nil
	return true
}

// Undo returns the state to restore. An in-progress streak is undone first,
// without touching the undo stack. current is pushed onto the redo stack.
func (h *History) Undo(current *domain.Page) (*domain.Page, bool) {
	if h.pending != nil {
		h.pushRedo(current)
		target := h.pending
		h.pending = nil
		return target.Clone(), true
	}
	if len(h.undo) == 0 {
		return nil, false
	}
	h.pushRedo(current)
	target := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	return target.Clone(), true
}

// Redo returns the most recently undone state, pushing current onto the undo stack.
func (h *History) Redo(current *domain.Page) (*domain.Page, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	if current != nil {
		h.pushUndo(current)
	}
	target := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return target.Clone(), true
}

// DiscardPending drops the in-progress checkpoint without committing it.
func (h *History) DiscardPending() {
	h.pending = nil
}

func (h *History) Clear() {
	h.pending = nil
	h.undo = nil
	h.redo = nil
}

func (h *History) CanUndo() bool { return h.pending != nil || len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

func (h *History) HasPending() bool { return h.pending != nil }
func (h *History) UndoDepth() int { return len(h.undo) }
func (h *History) RedoDepth() int { return len(h.redo) }

func (h *History) pushUndo(p *domain.Page) {
	h.undo = append(h.undo, p.Clone())
	if h.limit > 0 && len(h.undo) > h.limit {
		drop := len(h.undo) - h.limit
		h.undo = append(h.undo[:0:0], h.undo[drop:]...)
	}
}

func (h *History) pushRedo(p *domain.Page) {
	if p == nil {
		return
	}
	h.redo = append(h.redo, p.Clone())
}
