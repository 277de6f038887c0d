package core

import "context"

// Store defines the contract of the note backend.
// Notes live under their owner; the pair (ownerID, noteID) identifies a note.
type Store interface {
	// Get retrieves a note. It returns ErrNotFound when the note does not exist.
	Get(ctx context.Context, ownerID, noteID string) (Note, error)

	// List returns the owner's notes, newest first.
	List(ctx context.Context, ownerID string) ([]Note, error)

	// Create persists a new note and returns the id assigned by the store.
	// The store also assigns the timestamp.
	Create(ctx context.Context, n Note) (string, error)

	// Update merges the provided fields into an existing note.
	Update(ctx context.Context, ownerID, noteID string, f Fields) error

	// Delete removes a note.
	Delete(ctx context.Context, ownerID, noteID string) error

	// QueryByCollaborator returns the notes of every owner that list userID
	// as a collaborator. Backends may fail this query independently (e.g. a
	// missing index).
	QueryByCollaborator(ctx context.Context, userID string) ([]Note, error)

	// GetCollaborators returns the collaborator ids of a note.
	GetCollaborators(ctx context.Context, ownerID, noteID string) ([]string, error)

	// SetCollaborators replaces the collaborator set of a note.
	SetCollaborators(ctx context.Context, ownerID, noteID string, uids []string) error

	// Initialize ensures the underlying storage is ready (directories, schema, indexes).
	Initialize(ctx context.Context) error
}

// Subscribable is implemented by stores that can push live snapshots.
// Cancelling ctx stops delivery and closes the channel.
type Subscribable interface {
	Subscribe(ctx context.Context, ownerID string) (<-chan Snapshot, error)
}

// FriendStore is implemented by stores that keep each user's friends list.
type FriendStore interface {
	// Friends returns the friends of uid.
	Friends(ctx context.Context, uid string) ([]Friend, error)

	// PutFriend adds f to uid's friends, replacing the display name of an
	// existing entry.
	PutFriend(ctx context.Context, uid string, f Friend) error

	// RemoveFriend drops friendUID from uid's friends. Removing an unknown
	// friend is not an error.
	RemoveFriend(ctx context.Context, uid, friendUID string) error
}

// Closer is implemented by stores holding connections.
type Closer interface {
	Close() error
}
