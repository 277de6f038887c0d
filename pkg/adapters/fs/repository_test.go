package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ld/ainote/pkg/adapters/fs"
	"github.com/ld/ainote/pkg/core"
)

// setupRepo creates an initialized repository in a temp dir.
func setupRepo(t *testing.T, opts ...func(*fs.Config)) (*fs.Repository, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "notes")
	cfg := fs.Config{
		Path:     root,
		Debounce: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	repo := fs.NewRepository(cfg)
	require.NoError(t, repo.Initialize(context.Background()))
	t.Cleanup(func() { _ = repo.Close() })
	return repo, root
}

func fixedClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		next = next.Add(time.Minute)
		return next
	}
}

func TestInitialize(t *testing.T) {
	t.Run("Creates Directory if Missing", func(t *testing.T) {
		_, root := setupRepo(t)
		info, err := os.Stat(filepath.Join(root, "users"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("Fails if MustExist and Missing", func(t *testing.T) {
		repo := fs.NewRepository(fs.Config{
			Path:      filepath.Join(t.TempDir(), "missing"),
			MustExist: true,
		})
		assert.Error(t, repo.Initialize(context.Background()))
	})
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	repo, root := setupRepo(t, func(c *fs.Config) {
		c.Now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	})

	id, err := repo.Create(ctx, core.Note{
		OwnerID:       "u1",
		Title:         "Cells",
		Content:       "mitochondria\n---\nnot a delimiter",
		Stack:         "Bio",
		Chapter:       1,
		Section:       2,
		Collaborators: []string{"u2", "u1", " u2 "},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = os.Stat(filepath.Join(root, "users", "u1", "notes", id+".md"))
	require.NoError(t, err, "note stored under its owner")

	got, err := repo.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, "Cells", got.Title)
	assert.Equal(t, "mitochondria\n---\nnot a delimiter", got.Content)
	assert.Equal(t, []string{"u2"}, got.Collaborators)
	require.NotNil(t, got.Timestamp)

	require.NoError(t, repo.Update(ctx, "u1", id, core.Fields{Title: core.Ptr("Cell biology")}))
	got, err = repo.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "Cell biology", got.Title)
	assert.Equal(t, "Bio", got.Stack, "unset fields are kept")

	require.NoError(t, repo.Delete(ctx, "u1", id))
	_, err = repo.Get(ctx, "u1", id)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "u1", id), core.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, "u1", id, core.Fields{Title: core.Ptr("x")}), core.ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t, func(c *fs.Config) {
		c.Now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	})

	first, err := repo.Create(ctx, core.Note{OwnerID: "u1", Title: "first"})
	require.NoError(t, err)
	second, err := repo.Create(ctx, core.Note{OwnerID: "u1", Title: "second"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, core.Note{OwnerID: "u2", Title: "other owner"})
	require.NoError(t, err)

	notes, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, second, notes[0].ID)
	assert.Equal(t, first, notes[1].ID)

	empty, err := repo.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestList_HandWrittenFiles(t *testing.T) {
	ctx := context.Background()
	repo, root := setupRepo(t)

	dir := filepath.Join(root, "users", "u1", "notes")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.md"), []byte("just text"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.md"), []byte("---\ntitle: x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored"), 0o644))

	notes, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 1, "broken and non-markdown files are skipped")
	assert.Equal(t, "plain", notes[0].ID)
	assert.Equal(t, "u1", notes[0].OwnerID, "owner defaults to the directory")
	assert.Equal(t, "just text", notes[0].Content)
	assert.Nil(t, notes[0].Timestamp)
}

func TestCollaborators(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	a, err := repo.Create(ctx, core.Note{OwnerID: "alice", Title: "shared"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, core.Note{OwnerID: "alice", Title: "private"})
	require.NoError(t, err)
	c, err := repo.Create(ctx, core.Note{OwnerID: "carol", Title: "also shared", Collaborators: []string{"bob"}})
	require.NoError(t, err)

	require.NoError(t, repo.SetCollaborators(ctx, "alice", a, []string{"bob", "dave", "alice"}))

	uids, err := repo.GetCollaborators(ctx, "alice", a)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "dave"}, uids)

	uids, err = repo.GetCollaborators(ctx, "alice", "missing")
	require.NoError(t, err)
	assert.Empty(t, uids)

	shared, err := repo.QueryByCollaborator(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, shared, 2)
	assert.Equal(t, "alice/"+a, shared[0].Key())
	assert.Equal(t, "carol/"+c, shared[1].Key())

	assert.ErrorIs(t, repo.SetCollaborators(ctx, "alice", "missing", nil), core.ErrNotFound)
}

func TestInvalidSegments(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	for _, bad := range []string{"", "..", "a/b", `a\b`, "*"} {
		_, err := repo.Get(ctx, bad, "x")
		assert.ErrorIs(t, err, core.ErrValidation, "owner %q", bad)
		_, err = repo.Get(ctx, "u1", bad)
		assert.ErrorIs(t, err, core.ErrValidation, "id %q", bad)
	}
	_, err := repo.Create(ctx, core.Note{Title: "no owner"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCachePersists(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "notes")

	repo := fs.NewRepository(fs.Config{Path: root})
	require.NoError(t, repo.Initialize(ctx))
	_, err := repo.Create(ctx, core.Note{OwnerID: "u1", Title: "cached"})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = os.Stat(filepath.Join(root, ".ainote", "index.json"))
	require.NoError(t, err)

	reopened := fs.NewRepository(fs.Config{Path: root})
	require.NoError(t, reopened.Initialize(ctx))
	defer reopened.Close()

	state := reopened.State().(fs.RepositoryState)
	assert.Equal(t, 1, state.CacheSize)

	notes, err := reopened.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "cached", notes[0].Title)
}

func TestFriends(t *testing.T) {
	ctx := context.Background()
	repo, root := setupRepo(t)

	none, err := repo.Friends(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, repo.PutFriend(ctx, "u1", core.Friend{UID: "u3", DisplayName: "Carol"}))
	require.NoError(t, repo.PutFriend(ctx, "u1", core.Friend{UID: "u2", DisplayName: "Bob"}))
	require.NoError(t, repo.PutFriend(ctx, "u1", core.Friend{UID: "u2", DisplayName: "Bobby"}))

	got, err := repo.Friends(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []core.Friend{{UID: "u2", DisplayName: "Bobby"}, {UID: "u3", DisplayName: "Carol"}}, got)

	data, err := os.ReadFile(filepath.Join(root, "users", "u1", "friends.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "display_name: Bobby")

	// Friend lists sit beside notes and never show up as notes.
	notes, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, notes)

	require.NoError(t, repo.RemoveFriend(ctx, "u1", "u3"))
	require.NoError(t, repo.RemoveFriend(ctx, "u1", "nobody"))
	got, err = repo.Friends(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []core.Friend{{UID: "u2", DisplayName: "Bobby"}}, got)

	assert.ErrorIs(t, repo.PutFriend(ctx, "u1", core.Friend{UID: "../x"}), core.ErrValidation)
	_, err = repo.Friends(ctx, "..")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestFriends_CorruptFile(t *testing.T) {
	ctx := context.Background()
	repo, root := setupRepo(t)

	dir := filepath.Join(root, "users", "u1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "friends.yaml"), []byte("uid: [unclosed"), 0o644))

	_, err := repo.Friends(ctx, "u1")
	assert.Error(t, err)
}
