package mongo

import (
	"context"

	"github.com/aretw0/lifecycle"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/ld/ainote/pkg/core"
)

// Subscribe delivers the owner's notes now and after every change. Changes
// made by other clients arrive through a change stream, which needs a
// replica set; on a standalone server only writes through this Store are
// observed.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (<-chan core.Snapshot, error) {
	s.ensureChangeStream(ctx)
	return s.hub.Subscribe(ctx, ownerID), nil
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	return s.hub.Len()
}

type changeEvent struct {
	DocumentKey struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

// changeStream is the part of *mongo.ChangeStream the watch loop uses.
type changeStream interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	Err() error
	Close(ctx context.Context) error
}

func (s *Store) ensureChangeStream(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchCancel != nil {
		return
	}

	cs, err := s.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		s.logger.Warn("change stream unavailable, only local writes will be observed", "error", err)
		return
	}
	s.startWatch(cs)
}

// startWatch runs the loop over cs. Callers hold mu. When the loop ends on
// its own the watch fields are cleared so the next Subscribe opens a new
// stream.
func (s *Store) startWatch(cs changeStream) {
	watchCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.watchCancel, s.watchDone = cancel, done

	lifecycle.Go(watchCtx, func(ctx context.Context) error {
		defer close(done)
		defer s.clearWatch(done)
		defer cs.Close(context.Background())
		for cs.Next(ctx) {
			var ev changeEvent
			if err := cs.Decode(&ev); err != nil {
				s.logger.Debug("undecodable change event", "error", err)
				continue
			}
			owner, _ := splitKey(ev.DocumentKey.ID)
			if owner == "" {
				continue
			}
			s.hub.Notify(owner)
		}
		if ctx.Err() != nil {
			return nil
		}
		return cs.Err()
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("change stream failed", "error", err)
		// Snapshots may now be stale; reload everyone once.
		s.hub.NotifyAll()
	}))
}

// clearWatch forgets the loop identified by done unless Close or a newer
// loop has already replaced it.
func (s *Store) clearWatch(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchDone != done {
		return
	}
	s.watchCancel()
	s.watchCancel, s.watchDone = nil, nil
}
