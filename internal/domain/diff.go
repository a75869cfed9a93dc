package domain

// BlockDiff describes how a page's block list changed between two snapshots.
// Renderers use Structural to decide between a list rebuild and in-place rebinds
// of the ContentChanged blocks.
type BlockDiff struct {
	Inserted       []string `json:"inserted,omitempty"`
	Removed        []string `json:"removed,omitempty"`
	Moved          bool     `json:"moved,omitempty"`
	ContentChanged []string `json:"contentChanged,omitempty"`
}

// Structural reports whether block identity or order changed.
func (d BlockDiff) Structural() bool {
	return len(d.Inserted) > 0 || len(d.Removed) > 0 || d.Moved
}

// Empty reports whether nothing changed.
func (d BlockDiff) Empty() bool {
	return !d.Structural() && len(d.ContentChanged) == 0
}

// DiffBlocks compares two block lists by id. Blocks present in both lists whose
// type, content, properties or children differ are reported as content changes.
func DiffBlocks(old, new []Block) BlockDiff {
	var d BlockDiff

	oldByID := make(map[string]int, len(old))
	for i, b := range old {
		oldByID[b.ID] = i
	}
	newByID := make(map[string]int, len(new))
	for i, b := range new {
		newByID[b.ID] = i
	}

	for _, b := range old {
		if _, ok := newByID[b.ID]; !ok {
			d.Removed = append(d.Removed, b.ID)
		}
	}

	var keptOld, keptNew []string
	for _, b := range old {
		if _, ok := newByID[b.ID]; ok {
			keptOld = append(keptOld, b.ID)
		}
	}
	for _, b := range new {
		oi, ok := oldByID[b.ID]
		if !ok {
			d.Inserted = append(d.Inserted, b.ID)
			continue
		}
		keptNew = append(keptNew, b.ID)
		if !old[oi].sameBody(b) {
			d.ContentChanged = append(d.ContentChanged, b.ID)
		}
	}

	for i := range keptOld {
		if keptOld[i] != keptNew[i] {
			d.Moved = true
			break
		}
	}
	return d
}
