// Package memory provides an in-process note store. It records every call
// and can be told to fail specific operations, which makes it the store of
// choice for tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ld/ainote/internal/notify"
	"github.com/ld/ainote/pkg/core"
)

// Operation names recorded by the store.
const (
	OpGet                 = "get"
	OpList                = "list"
	OpCreate              = "create"
	OpUpdate              = "update"
	OpDelete              = "delete"
	OpQueryByCollaborator = "query_by_collaborator"
	OpGetCollaborators    = "get_collaborators"
	OpSetCollaborators    = "set_collaborators"
	OpSubscribe           = "subscribe"
	OpFriends             = "friends"
	OpPutFriend           = "put_friend"
	OpRemoveFriend        = "remove_friend"
)

// Call is one recorded store invocation.
type Call struct {
	Op      string
	OwnerID string
	NoteID  string
}

// Store implements core.Store, core.Subscribable and core.FriendStore in
// memory.
type Store struct {
	mu      sync.RWMutex
	notes   map[string]map[string]core.Note   // owner -> id -> note
	friends map[string]map[string]core.Friend // user -> friend uid -> friend
	calls   []Call
	fail    map[string]error
	now     func() time.Time

	hub *notify.Hub[core.Snapshot]
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp new notes.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		notes:   make(map[string]map[string]core.Note),
		friends: make(map[string]map[string]core.Friend),
		fail:    make(map[string]error),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = notify.NewHub(s.snapshot)
	return s
}

// FailOn makes every future call of op return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls returns the recorded calls in order.
func (s *Store) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how many times op was called.
func (s *Store) CallCount(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded calls.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Put stores n as-is, keeping its id and timestamp. Used to seed fixtures.
func (s *Store) Put(n core.Note) {
	s.mu.Lock()
	if s.notes[n.OwnerID] == nil {
		s.notes[n.OwnerID] = make(map[string]core.Note)
	}
	s.notes[n.OwnerID][n.ID] = n.Clone()
	s.mu.Unlock()
	s.hub.Notify(n.OwnerID)
}

// record must be called with s.mu held.
func (s *Store) record(op, owner, id string) error {
	s.calls = append(s.calls, Call{Op: op, OwnerID: owner, NoteID: id})
	return s.fail[op]
}

func (s *Store) Initialize(ctx context.Context) error { return nil }

func (s *Store) Get(ctx context.Context, ownerID, noteID string) (core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpGet, ownerID, noteID); err != nil {
		return core.Note{}, err
	}
	n, ok := s.notes[ownerID][noteID]
	if !ok {
		return core.Note{}, fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
	}
	return n.Clone(), nil
}

func (s *Store) List(ctx context.Context, ownerID string) ([]core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpList, ownerID, ""); err != nil {
		return nil, err
	}
	return s.listLocked(ownerID), nil
}

func (s *Store) listLocked(ownerID string) []core.Note {
	out := make([]core.Note, 0, len(s.notes[ownerID]))
	for _, n := range s.notes[ownerID] {
		out = append(out, n.Clone())
	}
	// Map order is random; sort ids first so equal timestamps stay stable.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	core.SortNewestFirst(out)
	return out
}

func (s *Store) Create(ctx context.Context, n core.Note) (string, error) {
	s.mu.Lock()
	if err := s.record(OpCreate, n.OwnerID, ""); err != nil {
		s.mu.Unlock()
		return "", err
	}
	n = n.Clone()
	n.ID = uuid.NewString()
	ts := s.now()
	n.Timestamp = &ts
	if s.notes[n.OwnerID] == nil {
		s.notes[n.OwnerID] = make(map[string]core.Note)
	}
	s.notes[n.OwnerID][n.ID] = n
	s.mu.Unlock()

	s.hub.Notify(n.OwnerID)
	return n.ID, nil
}

func (s *Store) Update(ctx context.Context, ownerID, noteID string, f core.Fields) error {
	s.mu.Lock()
	if err := s.record(OpUpdate, ownerID, noteID); err != nil {
		s.mu.Unlock()
		return err
	}
	n, ok := s.notes[ownerID][noteID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
	}
	s.notes[ownerID][noteID] = f.Apply(n)
	s.mu.Unlock()

	s.hub.Notify(ownerID)
	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, noteID string) error {
	s.mu.Lock()
	if err := s.record(OpDelete, ownerID, noteID); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.notes[ownerID][noteID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
	}
	delete(s.notes[ownerID], noteID)
	s.mu.Unlock()

	s.hub.Notify(ownerID)
	return nil
}

func (s *Store) QueryByCollaborator(ctx context.Context, userID string) ([]core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpQueryByCollaborator, "", ""); err != nil {
		return nil, err
	}
	var out []core.Note
	for _, byID := range s.notes {
		for _, n := range byID {
			if n.HasCollaborator(userID) {
				out = append(out, n.Clone())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (s *Store) GetCollaborators(ctx context.Context, ownerID, noteID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpGetCollaborators, ownerID, noteID); err != nil {
		return nil, err
	}
	n, ok := s.notes[ownerID][noteID]
	if !ok {
		return []string{}, nil
	}
	return append([]string{}, n.Collaborators...), nil
}

func (s *Store) SetCollaborators(ctx context.Context, ownerID, noteID string, uids []string) error {
	s.mu.Lock()
	if err := s.record(OpSetCollaborators, ownerID, noteID); err != nil {
		s.mu.Unlock()
		return err
	}
	n, ok := s.notes[ownerID][noteID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
	}
	n.Collaborators = append([]string{}, uids...)
	s.notes[ownerID][noteID] = n
	s.mu.Unlock()

	s.hub.Notify(ownerID)
	return nil
}

func (s *Store) Friends(ctx context.Context, uid string) ([]core.Friend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpFriends, uid, ""); err != nil {
		return nil, err
	}
	out := make([]core.Friend, 0, len(s.friends[uid]))
	for _, f := range s.friends[uid] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (s *Store) PutFriend(ctx context.Context, uid string, f core.Friend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpPutFriend, uid, f.UID); err != nil {
		return err
	}
	if s.friends[uid] == nil {
		s.friends[uid] = make(map[string]core.Friend)
	}
	s.friends[uid][f.UID] = f
	return nil
}

func (s *Store) RemoveFriend(ctx context.Context, uid, friendUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpRemoveFriend, uid, friendUID); err != nil {
		return err
	}
	delete(s.friends[uid], friendUID)
	return nil
}

// Subscribe delivers a snapshot of the owner's notes now and after every
// change, until ctx is done.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (<-chan core.Snapshot, error) {
	s.mu.Lock()
	err := s.record(OpSubscribe, ownerID, "")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, ownerID), nil
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	return s.hub.Len()
}

func (s *Store) snapshot(ctx context.Context, ownerID string) core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.Snapshot{Notes: s.listLocked(ownerID)}
}

var _ core.Store = (*Store)(nil)
var _ core.Subscribable = (*Store)(nil)
var _ core.FriendStore = (*Store)(nil)
