package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ld/ainote/pkg/adapters/sqlite"
	"github.com/ld/ainote/pkg/core"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	id, err := s.Create(ctx, core.Note{
		OwnerID:       "u1",
		Title:         "Limits",
		Content:       "epsilon",
		Stack:         "Math",
		Chapter:       2,
		Section:       1,
		Collaborators: []string{"u3", "u2", "u1", "u3"},
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "Limits", got.Title)
	assert.Equal(t, "Math", got.Stack)
	assert.Equal(t, 2, got.Chapter)
	assert.Equal(t, 1, got.Section)
	assert.Equal(t, []string{"u3", "u2"}, got.Collaborators)
	require.NotNil(t, got.Timestamp, "timestamp assigned by the database")
	assert.WithinDuration(t, time.Now(), *got.Timestamp, time.Minute)

	require.NoError(t, s.Update(ctx, "u1", id, core.Fields{
		Content: core.Ptr("delta"),
		Chapter: core.Ptr(3),
	}))
	got, err = s.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "Limits", got.Title)
	assert.Equal(t, "delta", got.Content)
	assert.Equal(t, 3, got.Chapter)

	require.NoError(t, s.Delete(ctx, "u1", id))
	_, err = s.Get(ctx, "u1", id)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "u1", id), core.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, "u1", id, core.Fields{}), core.ErrNotFound)

	uids, err := s.GetCollaborators(ctx, "u1", id)
	require.NoError(t, err)
	assert.Empty(t, uids, "collaborators removed with the note")
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		id, err := s.Create(ctx, core.Note{OwnerID: "u1", Title: title})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := s.Create(ctx, core.Note{OwnerID: "u2", Title: "x"})
	require.NoError(t, err)

	notes, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, ids[2], notes[0].ID)
	assert.Equal(t, ids[1], notes[1].ID)
	assert.Equal(t, ids[0], notes[2].ID)
}

func TestStore_Collaborators(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	a, err := s.Create(ctx, core.Note{OwnerID: "alice", Title: "one"})
	require.NoError(t, err)
	c, err := s.Create(ctx, core.Note{OwnerID: "carol", Title: "two", Collaborators: []string{"bob", "erin"}})
	require.NoError(t, err)
	_, err = s.Create(ctx, core.Note{OwnerID: "carol", Title: "private"})
	require.NoError(t, err)

	require.NoError(t, s.SetCollaborators(ctx, "alice", a, []string{"bob", " dave ", ""}))
	uids, err := s.GetCollaborators(ctx, "alice", a)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "dave"}, uids)

	shared, err := s.QueryByCollaborator(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, shared, 2)
	keys := []string{shared[0].Key(), shared[1].Key()}
	assert.ElementsMatch(t, []string{"alice/" + a, "carol/" + c}, keys)
	for _, n := range shared {
		if n.OwnerID == "carol" {
			assert.Equal(t, []string{"bob", "erin"}, n.Collaborators, "full set, not just the match")
		}
	}

	require.NoError(t, s.Update(ctx, "alice", a, core.Fields{Collaborators: &[]string{}}))
	shared, err = s.QueryByCollaborator(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, shared, 1)

	assert.ErrorIs(t, s.SetCollaborators(ctx, "alice", "missing", []string{"bob"}), core.ErrNotFound)
}

func TestStore_Subscribe(t *testing.T) {
	s := openStore(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.Subscribe(ctx, "u1")
	require.NoError(t, err)

	first := <-ch
	require.NoError(t, first.Err)
	assert.Empty(t, first.Notes)

	_, err = s.Create(ctx, core.Note{OwnerID: "u1", Title: "live"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case snap := <-ch:
			return len(snap.Notes) == 1 && snap.Notes[0].Title == "live"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	for range ch {
	}
	assert.Eventually(t, func() bool { return s.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestStore_Friends(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	none, err := s.Friends(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.PutFriend(ctx, "u1", core.Friend{UID: "u3", DisplayName: "Carol"}))
	require.NoError(t, s.PutFriend(ctx, "u1", core.Friend{UID: "u2", DisplayName: "Bob"}))
	require.NoError(t, s.PutFriend(ctx, "u1", core.Friend{UID: "u2", DisplayName: "Bobby"}))
	require.NoError(t, s.PutFriend(ctx, "u2", core.Friend{UID: "u1"}))

	got, err := s.Friends(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []core.Friend{{UID: "u2", DisplayName: "Bobby"}, {UID: "u3", DisplayName: "Carol"}}, got)

	require.NoError(t, s.RemoveFriend(ctx, "u1", "u3"))
	require.NoError(t, s.RemoveFriend(ctx, "u1", "nobody"))
	got, err = s.Friends(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []core.Friend{{UID: "u2", DisplayName: "Bobby"}}, got)

	other, err := s.Friends(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []core.Friend{{UID: "u1"}}, other)
}
