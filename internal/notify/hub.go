// Package notify fans out "something changed" signals to live subscribers.
//
// A subscriber never receives deltas. Each signal makes the subscriber's own
// goroutine reload the full value and offer it on a one-slot channel, so a
// slow reader only ever sees the latest value.
package notify

import (
	"context"
	"sync"
)

// Loader computes the current value for a key.
type Loader[T any] func(ctx context.Context, key string) T

// Hub tracks subscribers per key.
type Hub[T any] struct {
	load Loader[T]

	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
	wg   sync.WaitGroup
}

// NewHub creates a Hub that reloads values with load.
func NewHub[T any](load Loader[T]) *Hub[T] {
	return &Hub[T]{
		load: load,
		subs: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe registers a subscriber for key and immediately schedules an
// initial load. The returned channel is closed once ctx is done.
func (h *Hub[T]) Subscribe(ctx context.Context, key string) <-chan T {
	dirty := make(chan struct{}, 1)
	dirty <- struct{}{}

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan struct{}]struct{})
	}
	h.subs[key][dirty] = struct{}{}
	h.mu.Unlock()

	out := make(chan T, 1)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer close(out)
		defer h.remove(key, dirty)
		for {
			select {
			case <-ctx.Done():
				return
			case <-dirty:
				v := h.load(ctx, key)
				if ctx.Err() != nil {
					return
				}
				Offer(out, v)
			}
		}
	}()
	return out
}

// Notify marks every subscriber of key as dirty. It never blocks.
func (h *Hub[T]) Notify(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for d := range h.subs[key] {
		select {
		case d <- struct{}{}:
		default:
		}
	}
}

// NotifyAll marks every subscriber of every key as dirty.
func (h *Hub[T]) NotifyAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for d := range set {
			select {
			case d <- struct{}{}:
			default:
			}
		}
	}
}

// Len returns the number of live subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

// Wait blocks until every subscriber goroutine has exited.
func (h *Hub[T]) Wait() {
	h.wg.Wait()
}

func (h *Hub[T]) remove(key string, dirty chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[key], dirty)
	if len(h.subs[key]) == 0 {
		delete(h.subs, key)
	}
}

// Offer puts v on a one-slot channel, replacing any value the reader has not
// taken yet. It must only be called by the channel's single sender.
func Offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
