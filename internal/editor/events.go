package editor

// Events emitted by the Editor. Payload types are listed next to each name.
const (
	EventPageChanged         = "page:changed"         // *domain.Page, nil when no page is open
	EventCursorRestore       = "cursor:restore"       // CursorSignal
	EventHistoryAvailability = "history:availability" // Availability
	EventBlocksChanged       = "blocks:changed"       // domain.BlockDiff
	EventPageSaved           = "page:saved"           // page id
	EventPageSaveFailed      = "page:save-failed"     // SaveFailure
)

// CursorSignal tells the UI where to put the caret after undo or redo.
type CursorSignal struct {
	BlockID  *string `json:"blockId"`
	Position int     `json:"position"`
}

// Availability reports whether undo and redo currently do anything.
type Availability struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// SaveFailure reports a write the store rejected. The in-memory page is kept.
type SaveFailure struct {
	PageID string `json:"pageId"`
	Err    error  `json:"-"`
}

// HistoryState is a read-only view of the history slots.
type HistoryState struct {
	Pending   bool `json:"pending"`
	UndoDepth int  `json:"undoDepth"`
	RedoDepth int  `json:"redoDepth"`
	CanUndo   bool `json:"canUndo"`
	CanRedo   bool `json:"canRedo"`
}

type emission struct {
	name string
	data any
}
