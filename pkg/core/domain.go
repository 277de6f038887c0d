// Package core holds the note domain: entities, the storage port, the
// aggregation of own and shared notes, and the edit session.
package core

import (
	"strings"
	"time"
)

// Note is the central entity of the domain.
// A note belongs to exactly one owner and may be shared with collaborators.
type Note struct {
	ID            string
	OwnerID       string
	Title         string
	Content       string
	Stack         string
	Chapter       int
	Section       int
	Collaborators []string
	// Timestamp is assigned by the store on creation. Nil means the note has
	// not been committed yet.
	Timestamp *time.Time
}

// Friend is a user the owner can share notes with.
type Friend struct {
	UID         string
	DisplayName string
}

// Label is the display name, or the uid when the friend has none.
func (f Friend) Label() string {
	if strings.TrimSpace(f.DisplayName) == "" {
		return f.UID
	}
	return f.DisplayName
}

// Key returns the de-duplication key "ownerID/id".
func (n Note) Key() string {
	return n.OwnerID + "/" + n.ID
}

// HasCollaborator reports whether uid is in the collaborator set.
func (n Note) HasCollaborator(uid string) bool {
	for _, c := range n.Collaborators {
		if c == uid {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or pointers with n.
func (n Note) Clone() Note {
	out := n
	if n.Collaborators != nil {
		out.Collaborators = append([]string(nil), n.Collaborators...)
	}
	if n.Timestamp != nil {
		ts := *n.Timestamp
		out.Timestamp = &ts
	}
	return out
}

// NormalizeCollaborators trims ids, drops empty ones and the owner, and
// removes duplicates while keeping first-seen order.
func NormalizeCollaborators(ownerID string, uids []string) []string {
	out := make([]string, 0, len(uids))
	seen := make(map[string]bool, len(uids))
	for _, uid := range uids {
		uid = strings.TrimSpace(uid)
		if uid == "" || uid == ownerID || seen[uid] {
			continue
		}
		seen[uid] = true
		out = append(out, uid)
	}
	return out
}

// Fields is a partial update. Only non-nil fields are written.
type Fields struct {
	Title         *string
	Content       *string
	Stack         *string
	Chapter       *int
	Section       *int
	Collaborators *[]string
}

// IsEmpty reports whether the update carries no field at all.
func (f Fields) IsEmpty() bool {
	return f.Title == nil && f.Content == nil && f.Stack == nil &&
		f.Chapter == nil && f.Section == nil && f.Collaborators == nil
}

// Apply merges the provided fields into n and returns the result.
func (f Fields) Apply(n Note) Note {
	out := n.Clone()
	if f.Title != nil {
		out.Title = *f.Title
	}
	if f.Content != nil {
		out.Content = *f.Content
	}
	if f.Stack != nil {
		out.Stack = *f.Stack
	}
	if f.Chapter != nil {
		out.Chapter = *f.Chapter
	}
	if f.Section != nil {
		out.Section = *f.Section
	}
	if f.Collaborators != nil {
		out.Collaborators = NormalizeCollaborators(out.OwnerID, *f.Collaborators)
	}
	return out
}

// Snapshot is a full replacement view of a subscribed note collection.
// Exactly one of Notes or Err is meaningful.
type Snapshot struct {
	Notes []Note
	Err   error
}

// Ptr returns a pointer to v. Handy for building Fields.
func Ptr[T any](v T) *T {
	return &v
}
