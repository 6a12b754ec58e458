package store

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitlink/server/internal/models"
)

const DefaultHistoryLimit = 50

// ListOptions controls backward pagination of a conversation. Before is
// exclusive; the zero value means "newest page".
type ListOptions struct {
	Limit  int
	Before time.Time
}

type MessageStore interface {
	Send(ctx context.Context, senderID, receiverID, content string, kind models.MessageKind) (*models.Message, error)
	ListConversation(ctx context.Context, userA, userB string, opts ListOptions) ([]models.Message, error)
	MarkSeen(ctx context.Context, receiverID, senderID string) (int64, error)
	UnreadCount(ctx context.Context, receiverID string) (int64, error)
	Conversations(ctx context.Context, userID string) ([]models.Conversation, error)
}

type messageStore struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) MessageStore {
	return &messageStore{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func (s *messageStore) Send(ctx context.Context, senderID, receiverID, content string, kind models.MessageKind) (*models.Message, error) {
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

	query := psql.Insert("messages").
		Columns("sender_id", "receiver_id", "content", "kind", "seen", "created_at").
		Values(senderID, receiverID, content, kind, false, squirrel.Expr("NOW()")).
		Suffix("RETURNING id, created_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: build insert: %v", models.ErrStorage, err)
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Kind:       kind,
	}
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		log.Printf("Error saving message from %s to %s: %v", senderID, receiverID, err)
		return nil, fmt.Errorf("%w: insert message: %v", models.ErrStorage, err)
	}
	return msg, nil
}

func (s *messageStore) ListConversation(ctx context.Context, userA, userB string, opts ListOptions) ([]models.Message, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := psql.Select("id", "sender_id", "receiver_id", "content", "kind", "seen", "created_at").
		From("messages").
		Where(squirrel.Or{
			squirrel.And{squirrel.Eq{"sender_id": userA}, squirrel.Eq{"receiver_id": userB}},
			squirrel.And{squirrel.Eq{"sender_id": userB}, squirrel.Eq{"receiver_id": userA}},
		}).
		OrderBy("created_at DESC, id DESC").
		Limit(uint64(limit))

	if !opts.Before.IsZero() {
		query = query.Where(squirrel.Lt{"created_at": opts.Before})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: build select: %v", models.ErrStorage, err)
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error listing conversation %s/%s: %v", userA, userB, err)
		return nil, fmt.Errorf("%w: list conversation: %v", models.ErrStorage, err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Kind, &m.Seen, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", models.ErrStorage, err)
		}
		messages = append(messages, m)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%w: iterate messages: %v", models.ErrStorage, rows.Err())
	}

	// Fetched newest-first for the LIMIT; callers want chronological order.
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func (s *messageStore) MarkSeen(ctx context.Context, receiverID, senderID string) (int64, error) {
	query := psql.Update("messages").
		Set("seen", true).
		Where(squirrel.Eq{
			"receiver_id": receiverID,
			"sender_id":   senderID,
			"seen":        false,
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: build update: %v", models.ErrStorage, err)
	}

	tag, err := s.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error marking messages seen for %s from %s: %v", receiverID, senderID, err)
		return 0, fmt.Errorf("%w: mark seen: %v", models.ErrStorage, err)
	}
	return tag.RowsAffected(), nil
}

func (s *messageStore) UnreadCount(ctx context.Context, receiverID string) (int64, error) {
	query := psql.Select("COUNT(*)").
		From("messages").
		Where(squirrel.Eq{"receiver_id": receiverID, "seen": false})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: build count: %v", models.ErrStorage, err)
	}

	var count int64
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		log.Printf("Error counting unread messages for %s: %v", receiverID, err)
		return 0, fmt.Errorf("%w: unread count: %v", models.ErrStorage, err)
	}
	return count, nil
}

func (s *messageStore) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	// One row per peer carrying the newest message exchanged with them.
	const lastPerPeer = `
        SELECT DISTINCT ON (peer)
               CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS peer,
               content, kind, created_at
        FROM messages
        WHERE sender_id = $1 OR receiver_id = $1
        ORDER BY peer, created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, lastPerPeer, userID)
	if err != nil {
		log.Printf("Error listing conversations for %s: %v", userID, err)
		return nil, fmt.Errorf("%w: list conversations: %v", models.ErrStorage, err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.PeerID, &c.LastContent, &c.LastKind, &c.LastSentAt); err != nil {
			return nil, fmt.Errorf("%w: scan conversation: %v", models.ErrStorage, err)
		}
		conversations = append(conversations, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%w: iterate conversations: %v", models.ErrStorage, rows.Err())
	}

	const unreadPerPeer = `
        SELECT sender_id, COUNT(*)
        FROM messages
        WHERE receiver_id = $1 AND NOT seen
        GROUP BY sender_id`

	unreadRows, err := s.pool.Query(ctx, unreadPerPeer, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: unread per peer: %v", models.ErrStorage, err)
	}
	defer unreadRows.Close()

	unread := make(map[string]int64)
	for unreadRows.Next() {
		var peer string
		var count int64
		if err := unreadRows.Scan(&peer, &count); err != nil {
			return nil, fmt.Errorf("%w: scan unread count: %v", models.ErrStorage, err)
		}
		unread[peer] = count
	}
	if unreadRows.Err() != nil {
		return nil, fmt.Errorf("%w: iterate unread counts: %v", models.ErrStorage, unreadRows.Err())
	}

	for i := range conversations {
		conversations[i].UnreadCount = unread[conversations[i].PeerID]
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastSentAt.After(conversations[j].LastSentAt)
	})
	return conversations, nil
}
