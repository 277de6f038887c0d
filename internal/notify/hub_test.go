package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestOffer_LatestWins(t *testing.T) {
	ch := make(chan int, 1)
	Offer(ch, 1)
	Offer(ch, 2)
	Offer(ch, 3)

	assert.Equal(t, 3, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected stale value %d", v)
	default:
	}
}

func TestHub_InitialLoadAndNotify(t *testing.T) {
	defer goleak.VerifyNone(t)

	var version atomic.Int64
	h := NewHub(func(ctx context.Context, key string) int64 {
		return version.Load()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := h.Subscribe(ctx, "alice")

	require.Equal(t, int64(0), receive(t, ch))
	assert.Equal(t, 1, h.Len())

	version.Store(5)
	h.Notify("alice")
	require.Equal(t, int64(5), receive(t, ch))

	cancel()
	for range ch {
	}
	h.Wait()
	assert.Equal(t, 0, h.Len())
}

func TestHub_NotifyIsPerKey(t *testing.T) {
	defer goleak.VerifyNone(t)

	var loads atomic.Int64
	h := NewHub(func(ctx context.Context, key string) string {
		loads.Add(1)
		return key
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.Wait()
	}()
	alice := h.Subscribe(ctx, "alice")
	bob := h.Subscribe(ctx, "bob")
	assert.Equal(t, "alice", receive(t, alice))
	assert.Equal(t, "bob", receive(t, bob))

	h.Notify("bob")
	assert.Equal(t, "bob", receive(t, bob))
	select {
	case v := <-alice:
		t.Fatalf("alice was not notified but got %q", v)
	case <-time.After(50 * time.Millisecond):
	}

	h.NotifyAll()
	assert.Equal(t, "alice", receive(t, alice))
	assert.Equal(t, "bob", receive(t, bob))
	assert.Equal(t, int64(5), loads.Load())
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}
