package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ld/ainote/pkg/core"
)

// friendsFile sits next to the notes directory: users/<uid>/friends.yaml.
const friendsFile = "friends.yaml"

type friendEntry struct {
	UID         string `yaml:"uid"`
	DisplayName string `yaml:"display_name,omitempty"`
}

// Friends reads users/<uid>/friends.yaml. A user without the file has no
// friends.
func (r *Repository) Friends(ctx context.Context, uid string) ([]core.Friend, error) {
	entries, err := r.readFriends(uid)
	if err != nil {
		return nil, err
	}
	out := make([]core.Friend, 0, len(entries))
	for _, e := range entries {
		out = append(out, core.Friend{UID: e.UID, DisplayName: e.DisplayName})
	}
	return out, nil
}

func (r *Repository) PutFriend(ctx context.Context, uid string, f core.Friend) error {
	if err := checkSegment("friend", f.UID); err != nil {
		return err
	}
	return r.modifyFriends(uid, func(entries []friendEntry) []friendEntry {
		for i := range entries {
			if entries[i].UID == f.UID {
				entries[i].DisplayName = f.DisplayName
				return entries
			}
		}
		return append(entries, friendEntry{UID: f.UID, DisplayName: f.DisplayName})
	})
}

func (r *Repository) RemoveFriend(ctx context.Context, uid, friendUID string) error {
	return r.modifyFriends(uid, func(entries []friendEntry) []friendEntry {
		kept := entries[:0]
		for _, e := range entries {
			if e.UID != friendUID {
				kept = append(kept, e)
			}
		}
		return kept
	})
}

func (r *Repository) modifyFriends(uid string, fn func([]friendEntry) []friendEntry) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	entries, err := r.readFriends(uid)
	if err != nil {
		return err
	}
	entries = fn(entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].UID < entries[j].UID })

	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to serialize friends: %w", err)
	}
	if err := writeFileAtomic(r.friendsPath(uid), data); err != nil {
		return fmt.Errorf("failed to write friends: %w", err)
	}
	return nil
}

func (r *Repository) readFriends(uid string) ([]friendEntry, error) {
	if err := checkSegment("owner", uid); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.friendsPath(uid))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read friends: %w", err)
	}
	var entries []friendEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%s: %w", friendsFile, err)
	}
	return entries, nil
}

func (r *Repository) friendsPath(uid string) string {
	return filepath.Join(r.Path, usersDir, uid, friendsFile)
}

var _ core.FriendStore = (*Repository)(nil)
