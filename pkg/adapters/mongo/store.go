// Package mongo stores notes in a MongoDB collection. Each note is one
// document keyed by "<owner>/<id>"; collaborators live in an array field
// with a multikey index so shared-note queries stay cheap.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ld/ainote/internal/notify"
	"github.com/ld/ainote/pkg/core"
)

// DefaultDatabase is used when Config.Database is empty.
const DefaultDatabase = "ainote"

const (
	collectionName        = "notes"
	friendsCollectionName = "friends"
)

// Config holds the connection settings.
type Config struct {
	URI      string
	Database string
	Logger   *slog.Logger
}

// noteDoc is the stored shape of a note.
type noteDoc struct {
	Key           string     `bson:"_id"`
	OwnerID       string     `bson:"owner_id"`
	NoteID        string     `bson:"note_id"`
	Title         string     `bson:"title"`
	Content       string     `bson:"content"`
	Stack         string     `bson:"stack"`
	Chapter       int        `bson:"chapter"`
	Section       int        `bson:"section"`
	Collaborators []string   `bson:"collaborators"`
	Timestamp     *time.Time `bson:"timestamp,omitempty"`
}

func (d noteDoc) note() core.Note {
	n := core.Note{
		ID:            d.NoteID,
		OwnerID:       d.OwnerID,
		Title:         d.Title,
		Content:       d.Content,
		Stack:         d.Stack,
		Chapter:       d.Chapter,
		Section:       d.Section,
		Collaborators: d.Collaborators,
		Timestamp:     d.Timestamp,
	}
	if n.OwnerID == "" || n.ID == "" {
		owner, id := splitKey(d.Key)
		if n.OwnerID == "" {
			n.OwnerID = owner
		}
		if n.ID == "" {
			n.ID = id
		}
	}
	return n
}

// Store implements core.Store on MongoDB.
type Store struct {
	client  *mongo.Client
	coll    *mongo.Collection
	friends *mongo.Collection
	logger  *slog.Logger
	hub     *notify.Hub[core.Snapshot]

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// Connect opens a client and pings the server.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: mongo uri is required", core.ErrValidation)
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &Store{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(collectionName),
		friends: client.Database(cfg.Database).Collection(friendsCollectionName),
		logger:  cfg.Logger,
	}
	s.hub = notify.NewHub(s.snapshot)
	return s, nil
}

// Initialize creates the indexes.
func (s *Store) Initialize(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "collaborators", Value: 1}}},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	if _, err := s.friends.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}}}); err != nil {
		return fmt.Errorf("failed to create friend index: %w", err)
	}
	return nil
}

// Close stops the change stream and disconnects.
func (s *Store) Close() error {
	s.mu.Lock()
	cancel, done := s.watchCancel, s.watchDone
	s.watchCancel, s.watchDone = nil, nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	ctx, cancelDisconnect := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDisconnect()
	return s.client.Disconnect(ctx)
}

func (s *Store) Get(ctx context.Context, ownerID, noteID string) (core.Note, error) {
	var doc noteDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key(ownerID, noteID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Note{}, fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
	}
	if err != nil {
		return core.Note{}, fmt.Errorf("find note: %w", err)
	}
	return doc.note(), nil
}

func (s *Store) List(ctx context.Context, ownerID string) ([]core.Note, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID})
}

func (s *Store) QueryByCollaborator(ctx context.Context, userID string) ([]core.Note, error) {
	return s.find(ctx, bson.M{"collaborators": userID})
}

// find returns matching notes newest first. Missing timestamps sort lowest,
// which puts them last.
func (s *Store) find(ctx context.Context, filter bson.M) ([]core.Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}
	var docs []noteDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	notes := make([]core.Note, 0, len(docs))
	for _, d := range docs {
		notes = append(notes, d.note())
	}
	return notes, nil
}

// Create upserts a fresh document and lets the server stamp it.
func (s *Store) Create(ctx context.Context, n core.Note) (string, error) {
	id := uuid.NewString()
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": key(n.OwnerID, id)},
		createDocument(n, id),
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("insert note: %w", err)
	}
	s.hub.Notify(n.OwnerID)
	return id, nil
}

func (s *Store) Update(ctx context.Context, ownerID, noteID string, f core.Fields) error {
	filter := bson.M{"_id": key(ownerID, noteID)}
	update := updateDocument(ownerID, f)
	if update == nil {
		n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("count notes: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
		}
		return nil
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
	}
	s.hub.Notify(ownerID)
	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, noteID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": key(ownerID, noteID)})
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
	}
	s.hub.Notify(ownerID)
	return nil
}

func (s *Store) GetCollaborators(ctx context.Context, ownerID, noteID string) ([]string, error) {
	var doc struct {
		Collaborators []string `bson:"collaborators"`
	}
	err := s.coll.FindOne(ctx,
		bson.M{"_id": key(ownerID, noteID)},
		options.FindOne().SetProjection(bson.M{"collaborators": 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find collaborators: %w", err)
	}
	return append([]string{}, doc.Collaborators...), nil
}

func (s *Store) SetCollaborators(ctx context.Context, ownerID, noteID string, uids []string) error {
	return s.Update(ctx, ownerID, noteID, core.Fields{Collaborators: &uids})
}

func (s *Store) snapshot(ctx context.Context, ownerID string) core.Snapshot {
	notes, err := s.List(ctx, ownerID)
	if err != nil {
		return core.Snapshot{Err: err}
	}
	return core.Snapshot{Notes: notes}
}

// createDocument builds the upsert for a new note. $currentDate stamps the
// note with the server clock.
func createDocument(n core.Note, id string) bson.M {
	collaborators := core.NormalizeCollaborators(n.OwnerID, n.Collaborators)
	return bson.M{
		"$setOnInsert": bson.M{
			"owner_id":      n.OwnerID,
			"note_id":       id,
			"title":         n.Title,
			"content":       n.Content,
			"stack":         n.Stack,
			"chapter":       n.Chapter,
			"section":       n.Section,
			"collaborators": collaborators,
		},
		"$currentDate": bson.M{"timestamp": true},
	}
}

// updateDocument translates a partial update into a $set merge. It returns
// nil when there is nothing to write.
func updateDocument(ownerID string, f core.Fields) bson.M {
	set := bson.M{}
	if f.Title != nil {
		set["title"] = *f.Title
	}
	if f.Content != nil {
		set["content"] = *f.Content
	}
	if f.Stack != nil {
		set["stack"] = *f.Stack
	}
	if f.Chapter != nil {
		set["chapter"] = *f.Chapter
	}
	if f.Section != nil {
		set["section"] = *f.Section
	}
	if f.Collaborators != nil {
		set["collaborators"] = core.NormalizeCollaborators(ownerID, *f.Collaborators)
	}
	if len(set) == 0 {
		return nil
	}
	return bson.M{"$set": set}
}

func key(ownerID, noteID string) string {
	return ownerID + "/" + noteID
}

// splitKey reverses key. Note ids never contain a slash, owner ids may.
func splitKey(k string) (ownerID, noteID string) {
	i := strings.LastIndex(k, "/")
	if i < 0 {
		return "", k
	}
	return k[:i], k[i+1:]
}

var _ core.Store = (*Store)(nil)
var _ core.Subscribable = (*Store)(nil)
var _ core.Closer = (*Store)(nil)
