package core

import (
	"context"
	"fmt"
	"strings"
)

// Session holds the editable fields of a single note on behalf of one user.
// A Session is not safe for concurrent use.
type Session struct {
	svc    *Service
	caller string

	ownerID string
	noteID  string

	Title   string
	Content string
	Stack   string
	Chapter int
	Section int

	collaborators []string
	loaded        *Note
}

// NewSession starts editing a new, unsaved note owned by caller.
func (s *Service) NewSession(caller string) *Session {
	return &Session{svc: s, caller: caller, ownerID: caller}
}

// OpenSession loads an existing note and its collaborators into a session.
// An empty ownerID means the caller's own note.
func (s *Service) OpenSession(ctx context.Context, caller, ownerID, noteID string) (*Session, error) {
	if caller == "" {
		return nil, ErrNotAuthenticated
	}
	if ownerID == "" {
		ownerID = caller
	}
	n, err := s.Get(ctx, caller, ownerID, noteID)
	if err != nil {
		return nil, err
	}
	uids, err := s.Collaborators(ctx, caller, ownerID, noteID)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		svc:           s,
		caller:        caller,
		ownerID:       n.OwnerID,
		noteID:        noteID,
		Title:         n.Title,
		Content:       n.Content,
		Stack:         n.Stack,
		Chapter:       n.Chapter,
		Section:       n.Section,
		collaborators: uids,
		loaded:        &n,
	}
	return sess, nil
}

// ID returns the note id, empty until the note is saved.
func (s *Session) ID() string { return s.noteID }

// OwnerID returns the owner of the edited note.
func (s *Session) OwnerID() string { return s.ownerID }

// IsNew reports whether the note has never been saved.
func (s *Session) IsNew() bool { return s.noteID == "" }

// CanDelete reports whether the acting user owns the note.
func (s *Session) CanDelete() bool {
	return s.noteID != "" && s.caller != "" && s.caller == s.ownerID
}

// Loaded returns the note as it was read from the store, if any.
func (s *Session) Loaded() (Note, bool) {
	if s.loaded == nil {
		return Note{}, false
	}
	return s.loaded.Clone(), true
}

// Collaborators returns the last confirmed collaborator set.
func (s *Session) Collaborators() []string {
	return append([]string(nil), s.collaborators...)
}

// Note returns the current field values as a note.
func (s *Session) Note() Note {
	n := Note{
		ID:            s.noteID,
		OwnerID:       s.ownerID,
		Title:         s.Title,
		Content:       s.Content,
		Stack:         s.Stack,
		Chapter:       s.Chapter,
		Section:       s.Section,
		Collaborators: s.Collaborators(),
	}
	if s.loaded != nil {
		n.Timestamp = s.loaded.Clone().Timestamp
	}
	return n
}

// Validate checks the fields without contacting the store.
func (s *Session) Validate() error {
	title := strings.TrimSpace(s.Title)
	content := strings.TrimSpace(s.Content)
	if title == "" && content == "" {
		return validationError("enter a title or content")
	}
	if strings.TrimSpace(s.Stack) == "" {
		return validationError("stack cannot be empty")
	}
	if s.Chapter < 0 || s.Section < 0 {
		return validationError("chapter and section cannot be negative")
	}
	return nil
}

// Save creates the note when it has no id yet and merge-updates it
// otherwise. Invalid fields are reported without contacting the store.
func (s *Session) Save(ctx context.Context) error {
	if s.caller == "" {
		return ErrNotAuthenticated
	}
	if err := s.Validate(); err != nil {
		return err
	}
	s.Title = strings.TrimSpace(s.Title)
	s.Content = strings.TrimSpace(s.Content)
	s.Stack = strings.TrimSpace(s.Stack)

	if s.noteID == "" {
		id, err := s.svc.Add(ctx, s.caller, Note{
			OwnerID: s.ownerID,
			Title:   s.Title,
			Content: s.Content,
			Stack:   s.Stack,
			Chapter: s.Chapter,
			Section: s.Section,
		})
		if err != nil {
			return err
		}
		s.noteID = id
		return nil
	}

	return s.svc.Update(ctx, s.caller, s.ownerID, s.noteID, Fields{
		Title:   Ptr(s.Title),
		Content: Ptr(s.Content),
		Stack:   Ptr(s.Stack),
		Chapter: Ptr(s.Chapter),
		Section: Ptr(s.Section),
	})
}

// Delete removes the note. Only the owner may delete, and a non-owner is
// refused without contacting the store.
func (s *Session) Delete(ctx context.Context) error {
	if s.caller == "" {
		return ErrNotAuthenticated
	}
	if s.noteID == "" {
		return validationError("note has not been saved")
	}
	if s.caller != s.ownerID {
		return fmt.Errorf("%w: only the owner can delete this note", ErrPermission)
	}
	return s.svc.Delete(ctx, s.caller, s.ownerID, s.noteID)
}

// SetCollaborators replaces the collaborator set. The session's local set
// changes only once the store confirms the write.
func (s *Session) SetCollaborators(ctx context.Context, uids []string) error {
	if s.caller == "" {
		return ErrNotAuthenticated
	}
	if s.noteID == "" {
		return validationError("save the note before sharing it")
	}
	set, err := s.svc.SetCollaborators(ctx, s.caller, s.ownerID, s.noteID, uids)
	if err != nil {
		return err
	}
	s.collaborators = set
	return nil
}
