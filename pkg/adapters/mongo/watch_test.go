package mongo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ld/ainote/internal/notify"
	"github.com/ld/ainote/pkg/core"
)

// scriptedStream replays document keys, then reports err.
type scriptedStream struct {
	mu     sync.Mutex
	keys   []string
	cur    string
	err    error
	closed bool
}

func (s *scriptedStream) Next(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.keys) == 0 || ctx.Err() != nil {
		return false
	}
	s.cur, s.keys = s.keys[0], s.keys[1:]
	return true
}

func (s *scriptedStream) Decode(v any) error {
	ev, ok := v.(*changeEvent)
	if !ok {
		return errors.New("unexpected target")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.DocumentKey.ID = s.cur
	return nil
}

func (s *scriptedStream) Err() error { return s.err }

func (s *scriptedStream) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func newWatchStore(load notify.Loader[core.Snapshot]) *Store {
	s := &Store{logger: slog.New(slog.DiscardHandler)}
	s.hub = notify.NewHub(load)
	return s
}

func (s *Store) watchState() (context.CancelFunc, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchCancel, s.watchDone
}

func TestStartWatch_FailedStreamCanBeReplaced(t *testing.T) {
	s := newWatchStore(func(context.Context, string) core.Snapshot { return core.Snapshot{} })

	first := &scriptedStream{err: errors.New("cursor killed")}
	s.mu.Lock()
	s.startWatch(first)
	done := s.watchDone
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not stop")
	}

	cancel, done := s.watchState()
	assert.Nil(t, cancel, "a stopped loop must not block a new one")
	assert.Nil(t, done)
	first.mu.Lock()
	assert.True(t, first.closed)
	first.mu.Unlock()

	second := &scriptedStream{}
	s.mu.Lock()
	s.startWatch(second)
	s.mu.Unlock()
	_, done = s.watchState()
	require.NotNil(t, done)
	<-done
}

func TestStartWatch_NotifiesOwnerOfChangedDocument(t *testing.T) {
	var mu sync.Mutex
	loads := map[string]int{}
	s := newWatchStore(func(_ context.Context, owner string) core.Snapshot {
		mu.Lock()
		defer mu.Unlock()
		loads[owner]++
		return core.Snapshot{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.hub.Subscribe(ctx, "alice")
	<-ch

	s.mu.Lock()
	s.startWatch(&scriptedStream{keys: []string{"bob/x", "bare", "alice/n1"}})
	s.mu.Unlock()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after change event")
	}

	mu.Lock()
	assert.GreaterOrEqual(t, loads["alice"], 2)
	assert.Zero(t, loads["bob"], "nobody subscribed to bob")
	mu.Unlock()

	cancel()
	s.hub.Wait()
}

func TestStartWatch_DetachedLoopStopsQuietly(t *testing.T) {
	s := newWatchStore(func(context.Context, string) core.Snapshot { return core.Snapshot{} })
	s.mu.Lock()
	s.startWatch(blockingStream{})
	s.mu.Unlock()

	// Detach the way Close does before cancelling.
	s.mu.Lock()
	cancel, done := s.watchCancel, s.watchDone
	s.watchCancel, s.watchDone = nil, nil
	s.mu.Unlock()
	require.NotNil(t, cancel)
	cancel()
	<-done

	c, d := s.watchState()
	assert.Nil(t, c)
	assert.Nil(t, d)
}

// blockingStream yields nothing until its context ends.
type blockingStream struct{}

func (blockingStream) Next(ctx context.Context) bool {
	<-ctx.Done()
	return false
}
func (blockingStream) Decode(any) error            { return nil }
func (blockingStream) Err() error                  { return nil }
func (blockingStream) Close(context.Context) error { return nil }
