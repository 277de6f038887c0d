package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ld/ainote/pkg/core"
)

func TestUpdateDocument(t *testing.T) {
	t.Run("nothing to write", func(t *testing.T) {
		assert.Nil(t, updateDocument("u1", core.Fields{}))
	})

	t.Run("only provided fields", func(t *testing.T) {
		got := updateDocument("u1", core.Fields{
			Title:   core.Ptr("New"),
			Chapter: core.Ptr(0),
		})
		assert.Equal(t, bson.M{"$set": bson.M{"title": "New", "chapter": 0}}, got)
	})

	t.Run("collaborators normalized", func(t *testing.T) {
		uids := []string{"u2", "u1", " u2", "u3"}
		got := updateDocument("u1", core.Fields{Collaborators: &uids})
		assert.Equal(t, bson.M{"$set": bson.M{"collaborators": []string{"u2", "u3"}}}, got)
	})
}

func TestCreateDocument(t *testing.T) {
	doc := createDocument(core.Note{
		OwnerID:       "u1",
		Title:         "T",
		Stack:         "S",
		Collaborators: []string{"u1"},
	}, "n1")

	insert := doc["$setOnInsert"].(bson.M)
	assert.Equal(t, "u1", insert["owner_id"])
	assert.Equal(t, "n1", insert["note_id"])
	assert.Equal(t, []string{}, insert["collaborators"], "stored as an empty array, never null")
	assert.Equal(t, bson.M{"timestamp": true}, doc["$currentDate"])
}

func TestKeys(t *testing.T) {
	owner, id := splitKey(key("u1", "abc"))
	assert.Equal(t, "u1", owner)
	assert.Equal(t, "abc", id)

	owner, id = splitKey("org/team/abc")
	assert.Equal(t, "org/team", owner)
	assert.Equal(t, "abc", id)

	owner, id = splitKey("bare")
	assert.Empty(t, owner)
	assert.Equal(t, "bare", id)
}

func TestNoteDoc_DefaultsFromKey(t *testing.T) {
	n := noteDoc{Key: "u1/abc", Title: "legacy"}.note()
	assert.Equal(t, "u1", n.OwnerID)
	assert.Equal(t, "abc", n.ID)
}

// TestStore_Integration runs against a live server when AINOTE_MONGO_URI is
// set, e.g. mongodb://localhost:27017/?replicaSet=rs0.
func TestStore_Integration(t *testing.T) {
	uri := os.Getenv("AINOTE_MONGO_URI")
	if uri == "" {
		t.Skip("AINOTE_MONGO_URI not set")
	}

	ctx := context.Background()
	s, err := Connect(ctx, Config{URI: uri, Database: "ainote_test_" + time.Now().Format("150405")})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.coll.Database().Drop(context.Background())
		_ = s.Close()
	})
	require.NoError(t, s.Initialize(ctx))

	id, err := s.Create(ctx, core.Note{OwnerID: "alice", Title: "hello", Collaborators: []string{"bob"}})
	require.NoError(t, err)

	got, err := s.Get(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	require.NotNil(t, got.Timestamp)

	require.NoError(t, s.Update(ctx, "alice", id, core.Fields{Content: core.Ptr("body")}))
	got, err = s.Get(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, "body", got.Content)

	shared, err := s.QueryByCollaborator(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, id, shared[0].ID)

	require.NoError(t, s.Delete(ctx, "alice", id))
	_, err = s.Get(ctx, "alice", id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestConnect_RequiresURI(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestStore_FriendsIntegration(t *testing.T) {
	uri := os.Getenv("AINOTE_MONGO_URI")
	if uri == "" {
		t.Skip("AINOTE_MONGO_URI not set")
	}

	ctx := context.Background()
	s, err := Connect(ctx, Config{URI: uri, Database: "ainote_friends_" + time.Now().Format("150405")})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.coll.Database().Drop(context.Background())
		_ = s.Close()
	})
	require.NoError(t, s.Initialize(ctx))

	require.NoError(t, s.PutFriend(ctx, "alice", core.Friend{UID: "carol", DisplayName: "Carol"}))
	require.NoError(t, s.PutFriend(ctx, "alice", core.Friend{UID: "bob", DisplayName: "Bob"}))
	require.NoError(t, s.PutFriend(ctx, "alice", core.Friend{UID: "bob", DisplayName: "Bobby"}))

	got, err := s.Friends(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []core.Friend{{UID: "bob", DisplayName: "Bobby"}, {UID: "carol", DisplayName: "Carol"}}, got)

	require.NoError(t, s.RemoveFriend(ctx, "alice", "carol"))
	require.NoError(t, s.RemoveFriend(ctx, "alice", "nobody"))
	got, err = s.Friends(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []core.Friend{{UID: "bob", DisplayName: "Bobby"}}, got)

	none, err := s.Friends(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, none)
}
