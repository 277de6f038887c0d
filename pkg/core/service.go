package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ld/ainote/internal/notify"
)

// Service handles the business logic for notes.
// Every operation takes the acting user explicitly; an empty caller is
// rejected with ErrNotAuthenticated before the store is contacted.
type Service struct {
	store              Store
	assistant          Assistant
	logger             *slog.Logger
	sharedErrorHandler func(error)
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAssistant wires the AI collaborator used by Ask.
func WithAssistant(a Assistant) ServiceOption {
	return func(s *Service) {
		s.assistant = a
	}
}

// WithSharedErrorHandler registers a callback for failures of the shared
// notes query, which MyAndShared otherwise only logs.
func WithSharedErrorHandler(fn func(error)) ServiceOption {
	return func(s *Service) {
		s.sharedErrorHandler = fn
	}
}

// NewService creates a new Service.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// Close releases the store when it holds resources.
func (s *Service) Close() error {
	if c, ok := s.store.(Closer); ok {
		return c.Close()
	}
	return nil
}

// Subscribe streams full snapshots of the caller's notes until ctx is done.
// A consumer that falls behind only ever receives the newest snapshot.
func (s *Service) Subscribe(ctx context.Context, caller string) (<-chan Snapshot, error) {
	if caller == "" {
		return nil, ErrNotAuthenticated
	}
	sub, ok := s.store.(Subscribable)
	if !ok {
		return nil, fmt.Errorf("%w: store does not support subscriptions", ErrUnsupported)
	}
	upstream, err := sub.Subscribe(ctx, caller)
	if err != nil {
		return nil, wrapStore("subscribe", err)
	}

	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-upstream:
				if !ok {
					return
				}
				if snap.Err != nil {
					s.logger.Warn("subscription error", "caller", caller, "error", snap.Err)
					snap = Snapshot{Err: wrapStore("subscribe", snap.Err)}
				} else {
					snap.Notes = ownedBy(caller, snap.Notes)
					SortNewestFirst(snap.Notes)
				}
				notify.Offer(out, snap)
			}
		}
	}()
	return out, nil
}

// Get loads a note. An empty ownerID means the caller's own note.
func (s *Service) Get(ctx context.Context, caller, ownerID, noteID string) (Note, error) {
	if caller == "" {
		return Note{}, ErrNotAuthenticated
	}
	if ownerID == "" {
		ownerID = caller
	}
	if noteID == "" {
		return Note{}, validationError("note id cannot be empty")
	}
	n, err := s.store.Get(ctx, ownerID, noteID)
	if err != nil {
		return Note{}, wrapStore("get", err)
	}
	if n.OwnerID == "" {
		n.OwnerID = ownerID
	}
	return n, nil
}

// Add creates a note owned by the caller. A note naming another owner is
// refused with ErrPermission before the store is contacted.
func (s *Service) Add(ctx context.Context, caller string, n Note) (string, error) {
	if caller == "" {
		return "", ErrNotAuthenticated
	}
	if n.OwnerID != "" && n.OwnerID != caller {
		return "", fmt.Errorf("%w: notes can only be created in your own collection", ErrPermission)
	}
	n.OwnerID = caller
	n.ID = ""
	n.Timestamp = nil
	n.Collaborators = NormalizeCollaborators(n.OwnerID, n.Collaborators)

	id, err := s.store.Create(ctx, n)
	if err != nil {
		return "", wrapStore("create", err)
	}
	s.logger.Debug("note created", "owner", n.OwnerID, "id", id)
	return id, nil
}

// Update merges f into an existing note.
func (s *Service) Update(ctx context.Context, caller, ownerID, noteID string, f Fields) error {
	if caller == "" {
		return ErrNotAuthenticated
	}
	if ownerID == "" {
		ownerID = caller
	}
	if noteID == "" {
		return validationError("note id cannot be empty")
	}
	if f.Collaborators != nil {
		uids := NormalizeCollaborators(ownerID, *f.Collaborators)
		f.Collaborators = &uids
	}
	if err := s.store.Update(ctx, ownerID, noteID, f); err != nil {
		return wrapStore("update", err)
	}
	s.logger.Debug("note updated", "owner", ownerID, "id", noteID)
	return nil
}

// Delete removes a note. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, caller, ownerID, noteID string) error {
	if caller == "" {
		return ErrNotAuthenticated
	}
	if ownerID == "" {
		ownerID = caller
	}
	if noteID == "" {
		return validationError("note id cannot be empty")
	}
	if caller != ownerID {
		return fmt.Errorf("%w: only the owner can delete this note", ErrPermission)
	}
	if err := s.store.Delete(ctx, ownerID, noteID); err != nil {
		return wrapStore("delete", err)
	}
	s.logger.Debug("note deleted", "owner", ownerID, "id", noteID)
	return nil
}

// Restore re-creates a deleted note as a new note owned by the caller.
// Collaborators are not restored.
func (s *Service) Restore(ctx context.Context, caller string, deleted Note) (string, error) {
	return s.Add(ctx, caller, Note{
		Title:   deleted.Title,
		Content: deleted.Content,
		Stack:   deleted.Stack,
		Chapter: deleted.Chapter,
		Section: deleted.Section,
	})
}

// Collaborators returns the collaborator ids of a note.
func (s *Service) Collaborators(ctx context.Context, caller, ownerID, noteID string) ([]string, error) {
	if caller == "" {
		return nil, ErrNotAuthenticated
	}
	if ownerID == "" {
		ownerID = caller
	}
	uids, err := s.store.GetCollaborators(ctx, ownerID, noteID)
	if err != nil {
		return nil, wrapStore("get_collaborators", err)
	}
	return NormalizeCollaborators(ownerID, uids), nil
}

// SetCollaborators replaces the collaborator set of a note and returns the
// set actually stored.
func (s *Service) SetCollaborators(ctx context.Context, caller, ownerID, noteID string, uids []string) ([]string, error) {
	if caller == "" {
		return nil, ErrNotAuthenticated
	}
	if ownerID == "" {
		ownerID = caller
	}
	if noteID == "" {
		return nil, validationError("save the note before sharing it")
	}
	set := NormalizeCollaborators(ownerID, uids)
	if err := s.store.SetCollaborators(ctx, ownerID, noteID, set); err != nil {
		return nil, wrapStore("set_collaborators", err)
	}
	s.logger.Debug("collaborators updated", "owner", ownerID, "id", noteID, "count", len(set))
	return set, nil
}

func ownedBy(owner string, notes []Note) []Note {
	out := make([]Note, len(notes))
	for i, n := range notes {
		if strings.TrimSpace(n.OwnerID) == "" {
			n.OwnerID = owner
		}
		out[i] = n
	}
	return out
}
