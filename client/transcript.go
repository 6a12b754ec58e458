// Package client implements the client-side half of the messaging
// protocol: history/live transcript reconciliation, typing debouncing,
// and a websocket session.
package client

import (
	"sort"
	"sync"
	"time"

	"habitlink/server/internal/models"
)

// Transcript is the visible conversation state. Because a sent message
// arrives both as the synchronous send response and, potentially, as a
// realtime push, every append is deduplicated by server-assigned id.
// Messages without a server id (degraded offline fallback) are never
// deduplicated.
type Transcript struct {
	mu      sync.Mutex
	seen    map[int64]struct{}
	history []models.Message
	live    []models.Message
}

func NewTranscript() *Transcript {
	return &Transcript{seen: make(map[int64]struct{})}
}

// SeedHistory replaces the history section with a fresh chronological
// fetch and seeds the seen-id set from it. History always renders before
// live appends.
func (t *Transcript) SeedHistory(messages []models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = append([]models.Message(nil), messages...)
	for _, m := range messages {
		if m.ID != 0 {
			t.seen[m.ID] = struct{}{}
		}
	}
}

// PrependHistory merges an older page (infinite-scroll-up) in front of the
// current history, dropping ids already present.
func (t *Transcript) PrependHistory(older []models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var fresh []models.Message
	for _, m := range older {
		if m.ID != 0 {
			if _, dup := t.seen[m.ID]; dup {
				continue
			}
			t.seen[m.ID] = struct{}{}
		}
		fresh = append(fresh, m)
	}
	t.history = append(fresh, t.history...)
}

// Append adds a message arriving from either delivery path. It reports
// whether the message was actually appended; a duplicate id is dropped.
// The check and the insert happen under one lock so two identical
// deliveries cannot interleave.
func (t *Transcript) Append(msg models.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if msg.ID != 0 {
		if _, dup := t.seen[msg.ID]; dup {
			return false
		}
		t.seen[msg.ID] = struct{}{}
	}
	t.live = append(t.live, msg)
	return true
}

// Messages returns the rendered transcript: history first, then live
// appends in arrival order.
func (t *Transcript) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.Message, 0, len(t.history)+len(t.live))
	out = append(out, t.history...)
	out = append(out, t.live...)
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history) + len(t.live)
}

// OldestTimestamp is the backward-pagination cursor: the createdAt of the
// oldest message currently held.
func (t *Transcript) OldestTimestamp() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	all := make([]models.Message, 0, len(t.history)+len(t.live))
	all = append(all, t.history...)
	all = append(all, t.live...)
	if len(all) == 0 {
		return time.Time{}, false
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all[0].CreatedAt, true
}
