// Package view turns a flat note collection into the rows of a note list:
// keyword filtering, optional grouping by stack, chapter/section ordering
// and per-category expand/collapse.
//
// Project is a pure function of State. Projector keeps the state for a
// screen and rebuilds its rows whenever an input changes.
package view

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ld/ainote/pkg/core"
)

// UnsortedCategory labels notes whose stack is blank.
const UnsortedCategory = "(unsorted)"

// RowKind tells header rows from note rows.
type RowKind int

const (
	RowNote RowKind = iota
	RowHeader
)

func (k RowKind) String() string {
	if k == RowHeader {
		return "header"
	}
	return "note"
}

// Row is one displayable line. Header rows carry Category, ChildCount and
// Expanded; note rows carry Note.
type Row struct {
	Kind       RowKind
	Category   string
	ChildCount int
	Expanded   bool
	Note       core.Note
}

// IsHeader reports whether r is a category header.
func (r Row) IsHeader() bool { return r.Kind == RowHeader }

// State is the full input of a projection.
type State struct {
	Notes    []core.Note
	Keyword  string
	Grouped  bool
	Expanded map[string]bool
}

// Group is one category of filtered notes, already ordered by chapter and
// section.
type Group struct {
	Category string
	Notes    []core.Note
}

// Project computes the rows for st.
func Project(st State) []Row {
	filtered := Filter(st.Notes, st.Keyword)
	if !st.Grouped {
		return flatRows(filtered)
	}
	return groupRows(Partition(filtered), st.Expanded)
}

// Filter keeps the notes whose title or content contains keyword, ignoring
// case. An empty keyword keeps everything. Source order is preserved.
func Filter(notes []core.Note, keyword string) []core.Note {
	out := make([]core.Note, 0, len(notes))
	if keyword == "" {
		return append(out, notes...)
	}
	kw := strings.ToLower(keyword)
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), kw) || strings.Contains(strings.ToLower(n.Content), kw) {
			out = append(out, n)
		}
	}
	return out
}

// CategoryOf returns the trimmed stack of n, or UnsortedCategory when blank.
func CategoryOf(n core.Note) string {
	s := strings.TrimSpace(n.Stack)
	if s == "" {
		return UnsortedCategory
	}
	return s
}

// Partition groups notes by category. Categories appear in the order of
// their first note; notes inside a category are stably sorted by chapter,
// then section.
func Partition(notes []core.Note) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, n := range notes {
		cat := CategoryOf(n)
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, Group{Category: cat})
		}
		groups[i].Notes = append(groups[i].Notes, n)
	}
	for _, g := range groups {
		sort.SliceStable(g.Notes, func(i, j int) bool {
			a, b := g.Notes[i], g.Notes[j]
			if a.Chapter != b.Chapter {
				return a.Chapter < b.Chapter
			}
			return a.Section < b.Section
		})
	}
	return groups
}

func flatRows(notes []core.Note) []Row {
	rows := make([]Row, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, Row{Kind: RowNote, Note: n})
	}
	return rows
}

func groupRows(groups []Group, expanded map[string]bool) []Row {
	var rows []Row
	for _, g := range groups {
		open := expanded[g.Category]
		rows = append(rows, Row{
			Kind:       RowHeader,
			Category:   g.Category,
			ChildCount: len(g.Notes),
			Expanded:   open,
		})
		if !open {
			continue
		}
		for _, n := range g.Notes {
			rows = append(rows, Row{Kind: RowNote, Category: g.Category, Note: n})
		}
	}
	return rows
}

// Prefix is the chapter/section label shown before a title: "c-s" when both
// are set, "c" when only the chapter is set, and "" otherwise.
func Prefix(chapter, section int) string {
	switch {
	case chapter > 0 && section > 0:
		return strconv.Itoa(chapter) + "-" + strconv.Itoa(section)
	case chapter > 0:
		return strconv.Itoa(chapter)
	}
	return ""
}

// DisplayTitle is the title as listed: prefixed with chapter/section and
// with a placeholder for empty titles.
func DisplayTitle(n core.Note) string {
	title := n.Title
	if title == "" {
		title = core.UntitledLabel
	}
	if p := Prefix(n.Chapter, n.Section); p != "" {
		return p + " " + title
	}
	return title
}
