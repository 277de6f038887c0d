package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ld/ainote/pkg/core"
)

// friendDoc is one entry of a user's friend list, keyed by "<user>/<friend>".
type friendDoc struct {
	Key         string `bson:"_id"`
	UserID      string `bson:"user_id"`
	UID         string `bson:"uid"`
	DisplayName string `bson:"display_name"`
}

func (s *Store) Friends(ctx context.Context, uid string) ([]core.Friend, error) {
	cur, err := s.friends.Find(ctx, bson.M{"user_id": uid}, options.Find().SetSort(bson.D{{Key: "uid", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find friends: %w", err)
	}
	var docs []friendDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode friends: %w", err)
	}
	friends := make([]core.Friend, 0, len(docs))
	for _, d := range docs {
		friends = append(friends, core.Friend{UID: d.UID, DisplayName: d.DisplayName})
	}
	return friends, nil
}

func (s *Store) PutFriend(ctx context.Context, uid string, f core.Friend) error {
	doc := friendDoc{Key: key(uid, f.UID), UserID: uid, UID: f.UID, DisplayName: f.DisplayName}
	_, err := s.friends.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert friend: %w", err)
	}
	return nil
}

func (s *Store) RemoveFriend(ctx context.Context, uid, friendUID string) error {
	if _, err := s.friends.DeleteOne(ctx, bson.M{"_id": key(uid, friendUID)}); err != nil {
		return fmt.Errorf("delete friend: %w", err)
	}
	return nil
}

var _ core.FriendStore = (*Store)(nil)
