package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"habitlink/server/internal/models"
)

// MemoryStore is an in-memory MessageStore with the same semantics as the
// Postgres-backed one. It backs local development and tests; nothing
// survives a restart.
type MemoryStore struct {
	mu       sync.Mutex
	seq      int64
	messages []models.Message
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Send(_ context.Context, senderID, receiverID, content string, kind models.MessageKind) (*models.Message, error) {
	if kind == "" {
		kind = models.KindText
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", models.ErrValidation, kind)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot message yourself", models.ErrValidation)
	}
	if kind == models.KindText && strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty content", models.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	now := time.Now()
	// Keep timestamps strictly increasing so the Before cursor never
	// splits messages created within the same clock tick.
	if n := len(s.messages); n > 0 && !now.After(s.messages[n-1].CreatedAt) {
		now = s.messages[n-1].CreatedAt.Add(time.Nanosecond)
	}
	msg := models.Message{
		ID:         s.seq,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Kind:       kind,
		CreatedAt:  now,
	}
	s.messages = append(s.messages, msg)
	out := msg
	return &out, nil
}

func (s *MemoryStore) ListConversation(_ context.Context, userA, userB string, opts ListOptions) ([]models.Message, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Message
	for _, m := range s.messages {
		pair := (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA)
		if !pair {
			continue
		}
		if !opts.Before.IsZero() && !m.CreatedAt.Before(opts.Before) {
			continue
		}
		matched = append(matched, m)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	// Newest page of `limit`, returned chronological.
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func (s *MemoryStore) MarkSeen(_ context.Context, receiverID, senderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for i := range s.messages {
		m := &s.messages[i]
		if m.ReceiverID == receiverID && m.SenderID == senderID && !m.Seen {
			m.Seen = true
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) UnreadCount(_ context.Context, receiverID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, m := range s.messages {
		if m.ReceiverID == receiverID && !m.Seen {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Conversations(_ context.Context, userID string) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := make(map[string]models.Message)
	unread := make(map[string]int64)
	for _, m := range s.messages {
		var peer string
		switch userID {
		case m.SenderID:
			peer = m.ReceiverID
		case m.ReceiverID:
			peer = m.SenderID
		default:
			continue
		}
		if last, ok := latest[peer]; !ok || m.CreatedAt.After(last.CreatedAt) || (m.CreatedAt.Equal(last.CreatedAt) && m.ID > last.ID) {
			latest[peer] = m
		}
		if m.ReceiverID == userID && !m.Seen {
			unread[peer]++
		}
	}

	var conversations []models.Conversation
	for peer, last := range latest {
		conversations = append(conversations, models.Conversation{
			PeerID:      peer,
			LastContent: last.Content,
			LastKind:    last.Kind,
			LastSentAt:  last.CreatedAt,
			UnreadCount: unread[peer],
		})
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastSentAt.After(conversations[j].LastSentAt)
	})
	return conversations, nil
}

var _ MessageStore = (*MemoryStore)(nil)
