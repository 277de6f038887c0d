package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ShareOption is one entry of the share picker: a friend and whether the
// note is currently shared with them.
type ShareOption struct {
	Friend
	Checked bool
}

// Friends returns the caller's friends ordered by label. A failing store
// yields an empty list; the failure is only logged.
func (s *Service) Friends(ctx context.Context, caller string) ([]Friend, error) {
	if caller == "" {
		return nil, ErrNotAuthenticated
	}
	fstore, ok := s.store.(FriendStore)
	if !ok {
		return nil, fmt.Errorf("%w: store does not keep friends", ErrUnsupported)
	}
	friends, err := fstore.Friends(ctx, caller)
	if err != nil {
		s.logger.Warn("friends query failed, offering none", "caller", caller, "error", err)
		return []Friend{}, nil
	}
	out := make([]Friend, 0, len(friends))
	for _, f := range friends {
		if f.UID != "" && f.UID != caller {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].Label()), strings.ToLower(out[j].Label())
		if li != lj {
			return li < lj
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}

// AddFriend adds or renames a friend of the caller.
func (s *Service) AddFriend(ctx context.Context, caller string, f Friend) error {
	if caller == "" {
		return ErrNotAuthenticated
	}
	f.UID = strings.TrimSpace(f.UID)
	f.DisplayName = strings.TrimSpace(f.DisplayName)
	if f.UID == "" {
		return validationError("friend uid cannot be empty")
	}
	if f.UID == caller {
		return validationError("you cannot befriend yourself")
	}
	fstore, ok := s.store.(FriendStore)
	if !ok {
		return fmt.Errorf("%w: store does not keep friends", ErrUnsupported)
	}
	if err := fstore.PutFriend(ctx, caller, f); err != nil {
		return wrapStore("put_friend", err)
	}
	s.logger.Debug("friend added", "caller", caller, "friend", f.UID)
	return nil
}

// RemoveFriend drops a friend of the caller. Notes already shared with them
// stay shared.
func (s *Service) RemoveFriend(ctx context.Context, caller, friendUID string) error {
	if caller == "" {
		return ErrNotAuthenticated
	}
	friendUID = strings.TrimSpace(friendUID)
	if friendUID == "" {
		return validationError("friend uid cannot be empty")
	}
	fstore, ok := s.store.(FriendStore)
	if !ok {
		return fmt.Errorf("%w: store does not keep friends", ErrUnsupported)
	}
	if err := fstore.RemoveFriend(ctx, caller, friendUID); err != nil {
		return wrapStore("remove_friend", err)
	}
	return nil
}

// ShareOptions lists friends in order, checking those already in
// collaborators. Collaborators who are not friends are not offered.
func ShareOptions(friends []Friend, collaborators []string) []ShareOption {
	shared := make(map[string]bool, len(collaborators))
	for _, uid := range collaborators {
		shared[uid] = true
	}
	out := make([]ShareOption, 0, len(friends))
	for _, f := range friends {
		out = append(out, ShareOption{Friend: f, Checked: shared[f.UID]})
	}
	return out
}

// ShareOptions builds the share picker for the session's note from the
// caller's friends and the last confirmed collaborator set.
func (s *Session) ShareOptions(ctx context.Context) ([]ShareOption, error) {
	if s.noteID == "" {
		return nil, validationError("save the note before sharing it")
	}
	friends, err := s.svc.Friends(ctx, s.caller)
	if err != nil {
		return nil, err
	}
	return ShareOptions(friends, s.collaborators), nil
}

// Picked returns the uids of the checked options, ready for SetCollaborators.
func Picked(opts []ShareOption) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if o.Checked {
			out = append(out, o.UID)
		}
	}
	return out
}
