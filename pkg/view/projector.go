package view

import (
	"context"
	"sync"

	"github.com/ld/ainote/pkg/core"
)

// Projector holds the list state of one screen and the rows derived from
// it. Every setter rebuilds the rows from the current state; no row
// survives a rebuild. It is safe for concurrent use.
type Projector struct {
	mu       sync.RWMutex
	notes    []core.Note
	keyword  string
	grouped  bool
	expanded map[string]bool

	// groups caches the partition of the filtered notes. It depends only on
	// notes and keyword, so expand/collapse never re-sorts anything.
	groups   []Group
	filtered []core.Note
	rows     []Row
}

// NewProjector creates an empty flat projector.
func NewProjector() *Projector {
	p := &Projector{expanded: make(map[string]bool)}
	p.refilter()
	p.emit()
	return p
}

// Submit replaces the source notes wholesale.
func (p *Projector) Submit(notes []core.Note) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notes = append([]core.Note(nil), notes...)
	p.refilter()
	p.emit()
}

// SetKeyword sets the case-insensitive filter. Empty clears it.
func (p *Projector) SetKeyword(kw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keyword = kw
	p.refilter()
	p.emit()
}

// SetGrouped switches between flat and grouped mode.
func (p *Projector) SetGrouped(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grouped = on
	p.emit()
}

// SetExpanded replaces the set of expanded categories.
func (p *Projector) SetExpanded(categories []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expanded = make(map[string]bool, len(categories))
	for _, c := range categories {
		p.expanded[c] = true
	}
	if p.grouped {
		p.emit()
	}
}

// Toggle flips a category between expanded and collapsed and reports the
// new state.
func (p *Projector) Toggle(category string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.expanded[category] {
		delete(p.expanded, category)
	} else {
		p.expanded[category] = true
	}
	if p.grouped {
		p.emit()
	}
	return p.expanded[category]
}

// State returns a copy of the current inputs.
func (p *Projector) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	exp := make(map[string]bool, len(p.expanded))
	for k, v := range p.expanded {
		exp[k] = v
	}
	return State{
		Notes:    append([]core.Note(nil), p.notes...),
		Keyword:  p.keyword,
		Grouped:  p.grouped,
		Expanded: exp,
	}
}

// Rows returns a copy of the current rows.
func (p *Projector) Rows() []Row {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Row(nil), p.rows...)
}

// Len returns the number of rows.
func (p *Projector) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rows)
}

// All returns a copy of the source notes.
func (p *Projector) All() []core.Note {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]core.Note(nil), p.notes...)
}

// IsHeader reports whether row i is a header. Out of range is false.
func (p *Projector) IsHeader(i int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return i >= 0 && i < len(p.rows) && p.rows[i].IsHeader()
}

// HeaderAt returns the category of the header at row i.
func (p *Projector) HeaderAt(i int) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i < 0 || i >= len(p.rows) || !p.rows[i].IsHeader() {
		return "", false
	}
	return p.rows[i].Category, true
}

// NoteAt returns the note at row i.
func (p *Projector) NoteAt(i int) (core.Note, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i < 0 || i >= len(p.rows) || p.rows[i].IsHeader() {
		return core.Note{}, false
	}
	return p.rows[i].Note, true
}

// RemoveLocal drops the note row at i from the displayed rows without
// touching the source notes. Header rows are never removed. The removal is
// provisional: the next rebuild, typically the next store snapshot, decides.
func (p *Projector) RemoveLocal(i int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.rows) || p.rows[i].IsHeader() {
		return false
	}
	p.rows = append(p.rows[:i:i], p.rows[i+1:]...)
	return true
}

// Follow feeds every snapshot from snaps into the projector until ctx is
// done or snaps is closed. onChange receives the rebuilt rows; onErr
// receives snapshot errors, which leave the current rows untouched.
func (p *Projector) Follow(ctx context.Context, snaps <-chan core.Snapshot, onChange func([]Row), onErr func(error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if snap.Err != nil {
				if onErr != nil {
					onErr(snap.Err)
				}
				continue
			}
			p.Submit(snap.Notes)
			if onChange != nil {
				onChange(p.Rows())
			}
		}
	}
}

// refilter must be called with p.mu held.
func (p *Projector) refilter() {
	p.filtered = Filter(p.notes, p.keyword)
	p.groups = Partition(p.filtered)
}

// emit must be called with p.mu held.
func (p *Projector) emit() {
	if p.grouped {
		p.rows = groupRows(p.groups, p.expanded)
	} else {
		p.rows = flatRows(p.filtered)
	}
}
