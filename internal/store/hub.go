package store

import (
	"context"
	"sync"
)

// Hub fans committed snapshots out to subscribers. Each subscriber holds at
// most one pending snapshot: a slow reader skips intermediate states but
// always ends up with the latest one.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	latest map[string]int64
}

type subscription struct {
	ch chan Snapshot
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*subscription]struct{}),
		latest: make(map[string]int64),
	}
}

// Subscribe registers a subscriber for code, primed with initial. The
// channel is closed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, code string, initial Snapshot) <-chan Snapshot {
	sub := &subscription{ch: make(chan Snapshot, 1)}
	sub.ch <- initial.Clone()

	h.mu.Lock()
	group := h.subs[code]
	if group == nil {
		group = make(map[*subscription]struct{})
		h.subs[code] = group
	}
	group[sub] = struct{}{}
	if initial.Game != nil && initial.Game.Version > h.latest[code] {
		h.latest[code] = initial.Game.Version
	}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(code, sub)
	}()
	return sub.ch
}

// Publish delivers snap to every subscriber of code. Snapshots that are not
// newer than the last one published are dropped.
func (h *Hub) Publish(code string, snap Snapshot) bool {
	if snap.Game == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if last, ok := h.latest[code]; ok && snap.Game.Version <= last {
		return false
	}
	h.latest[code] = snap.Game.Version
	for sub := range h.subs[code] {
		sub.offer(snap.Clone())
	}
	return true
}

func (h *Hub) Count(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[code])
}

func (h *Hub) remove(code string, sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.subs[code]
	if group == nil {
		return
	}
	if _, ok := group[sub]; !ok {
		return
	}
	delete(group, sub)
	close(sub.ch)
	if len(group) == 0 {
		delete(h.subs, code)
	}
}

func (s *subscription) offer(snap Snapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}
