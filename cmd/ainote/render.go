package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ld/ainote/pkg/core"
	"github.com/ld/ainote/pkg/view"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5f9fb0")).Bold(true)
	ownerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c757d"))
)

// renderRows prints rows as a table. Notes owned by someone else are marked
// with their owner.
func renderRows(w io.Writer, user string, rows []view.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no notes")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		if r.IsHeader() {
			marker := "+"
			if r.Expanded {
				marker = "-"
			}
			fmt.Fprintf(tw, "%s\t\t\n", headerStyle.Render(fmt.Sprintf("%s %s (%d)", marker, r.Category, r.ChildCount)))
			continue
		}
		indent := ""
		if r.Category != "" {
			indent = "    "
		}
		from := ""
		if r.Note.OwnerID != "" && r.Note.OwnerID != user {
			from = ownerStyle.Render("from " + r.Note.OwnerID)
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\n", indent, view.DisplayTitle(r.Note), r.Note.ID, from)
	}
	return tw.Flush()
}

// renderMarkdown formats text for the terminal, falling back to the raw
// text when no renderer can be built.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

// renderNote prints a single note with a short header. With markdown set
// the content goes through glamour.
func renderNote(w io.Writer, n core.Note, markdown bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", view.DisplayTitle(n))
	fmt.Fprintf(&b, "id:      %s\n", n.ID)
	fmt.Fprintf(&b, "owner:   %s\n", n.OwnerID)
	fmt.Fprintf(&b, "stack:   %s\n", view.CategoryOf(n))
	if len(n.Collaborators) > 0 {
		fmt.Fprintf(&b, "shared:  %s\n", strings.Join(n.Collaborators, ", "))
	}
	if n.Timestamp != nil {
		fmt.Fprintf(&b, "updated: %s\n", n.Timestamp.Local().Format(time.DateTime))
	}
	b.WriteString("\n")
	content := n.Content
	if markdown {
		content = renderMarkdown(content)
	}
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
