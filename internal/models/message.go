package models

import (
	"time"
)

type MessageKind string

const (
	KindText        MessageKind = "text"
	KindHabitUpdate MessageKind = "habit-update"
	KindSystem      MessageKind = "system"
	KindSticker     MessageKind = "sticker"
)

func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindHabitUpdate, KindSystem, KindSticker:
		return true
	}
	return false
}

type Message struct {
	ID         int64       `json:"id" db:"id"`
	SenderID   string      `json:"sender_id" db:"sender_id"`
	ReceiverID string      `json:"receiver_id" db:"receiver_id"`
	Content    string      `json:"content" db:"content"`
	Kind       MessageKind `json:"kind" db:"kind"`
	Seen       bool        `json:"seen" db:"seen"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`

	// Display names resolved from the user directory, never persisted.
	SenderName   string `json:"sender_name,omitempty"`
	ReceiverName string `json:"receiver_name,omitempty"`
}

// Conversation summarizes one peer for the conversation list: the most
// recent message exchanged and how many of the peer's messages are unseen.
type Conversation struct {
	PeerID      string      `json:"peer_id"`
	PeerName    string      `json:"peer_name,omitempty"`
	LastContent string      `json:"last_content"`
	LastKind    MessageKind `json:"last_kind"`
	LastSentAt  time.Time   `json:"last_sent_at"`
	UnreadCount int64       `json:"unread_count"`
}
