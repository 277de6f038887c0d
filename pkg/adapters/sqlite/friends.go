package sqlite

import (
	"context"
	"fmt"

	"github.com/ld/ainote/pkg/core"
)

func (s *Store) Friends(ctx context.Context, uid string) ([]core.Friend, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT friend_uid, display_name FROM friends WHERE user_id = ? ORDER BY friend_uid`, uid)
	if err != nil {
		return nil, fmt.Errorf("query friends: %w", err)
	}
	defer rows.Close()

	friends := []core.Friend{}
	for rows.Next() {
		var f core.Friend
		if err := rows.Scan(&f.UID, &f.DisplayName); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

func (s *Store) PutFriend(ctx context.Context, uid string, f core.Friend) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO friends (user_id, friend_uid, display_name) VALUES (?, ?, ?)
		ON CONFLICT (user_id, friend_uid) DO UPDATE SET display_name = excluded.display_name`,
		uid, f.UID, f.DisplayName)
	if err != nil {
		return fmt.Errorf("upsert friend: %w", err)
	}
	return nil
}

func (s *Store) RemoveFriend(ctx context.Context, uid, friendUID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM friends WHERE user_id = ? AND friend_uid = ?`, uid, friendUID); err != nil {
		return fmt.Errorf("delete friend: %w", err)
	}
	return nil
}

var _ core.FriendStore = (*Store)(nil)
