package core

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// MyAndShared returns the caller's own notes merged with the notes other
// owners shared with the caller, newest first.
//
// Both queries run concurrently and the result is released only after both
// settle. A failing own-notes query fails the call. A failing shared query is
// reported through the logger and the shared error handler, and the caller
// still gets their own notes.
func (s *Service) MyAndShared(ctx context.Context, caller string) ([]Note, error) {
	if caller == "" {
		return nil, ErrNotAuthenticated
	}

	var own, shared []Note
	var sharedErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		notes, err := s.store.List(gctx, caller)
		if err != nil {
			return wrapStore("list", err)
		}
		own = notes
		return nil
	})
	g.Go(func() error {
		notes, err := s.store.QueryByCollaborator(gctx, caller)
		if err != nil {
			sharedErr = err
			return nil
		}
		shared = notes
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if sharedErr != nil {
		s.logger.Warn("loading shared notes failed, returning own notes only",
			"caller", caller, "error", sharedErr)
		if s.sharedErrorHandler != nil {
			s.sharedErrorHandler(wrapStore("query_by_collaborator", sharedErr))
		}
	}

	return Aggregate(caller, own, shared), nil
}

// Aggregate merges own and shared notes into one de-duplicated sequence keyed
// by "ownerID/id". Own copies win over shared ones, shared notes owned by the
// caller are skipped, and the result is sorted with SortNewestFirst.
func Aggregate(caller string, own, shared []Note) []Note {
	out := make([]Note, 0, len(own)+len(shared))
	seen := make(map[string]bool, len(own)+len(shared))

	add := func(n Note) {
		k := n.Key()
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, n)
	}

	for _, n := range own {
		if n.OwnerID == "" {
			n.OwnerID = caller
		}
		add(n)
	}
	for _, n := range shared {
		if n.OwnerID == "" || n.OwnerID == caller {
			continue
		}
		add(n)
	}

	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders notes by timestamp, newest first. Notes without a
// timestamp go after every timestamped note and keep their relative order.
func SortNewestFirst(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		ti, tj := notes[i].Timestamp, notes[j].Timestamp
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		}
		return ti.After(*tj)
	})
}
