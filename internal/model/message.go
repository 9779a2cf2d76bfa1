package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const optimisticIDPrefix = "optimistic-"

type MessageList []Message

// Message is a single entry of the append-only message log between two users.
// Immutable once persisted, except the is_read flag which only flips false -> true.
type Message struct {
	ID             string    `db:"id" json:"id"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	ReceiverID     string    `db:"receiver_id" json:"receiver_id"`
	Content        string    `db:"content" json:"content"`
	BookingID      *string   `db:"booking_id" json:"booking_id,omitempty"`
	IsRead         bool      `db:"is_read" json:"is_read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	SenderName     string    `db:"sender_name" json:"sender_name,omitempty"`
	SenderAvatar   string    `db:"sender_avatar" json:"sender_avatar,omitempty"`
	ReceiverName   string    `db:"receiver_name" json:"receiver_name,omitempty"`
	ReceiverAvatar string    `db:"receiver_avatar" json:"receiver_avatar,omitempty"`
}

// MessageParams is the payload of an authoritative message write.
type MessageParams struct {
	SenderID   string  `json:"sender_id"`
	ReceiverID string  `json:"receiver_id"`
	Content    string  `json:"content"`
	BookingID  *string `json:"booking_id,omitempty"`
}

// NewOptimistic builds a client-synthesized message shown before server
// confirmation. Its ID is distinguishable from server-assigned uuids.
func NewOptimistic(params MessageParams) Message {
	return Message{
		ID:         optimisticIDPrefix + uuid.New().String(),
		SenderID:   params.SenderID,
		ReceiverID: params.ReceiverID,
		Content:    params.Content,
		BookingID:  params.BookingID,
		IsRead:     false,
		CreatedAt:  time.Now(),
	}
}

func (m Message) Optimistic() bool {
	return strings.HasPrefix(m.ID, optimisticIDPrefix)
}

func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// PeerOf returns the counterparty of the message relative to userID.
func (m Message) PeerOf(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// PeerInfo returns the counterparty profile snapshot carried by the message.
func (m Message) PeerInfo(userID string) UserInfo {
	if m.SenderID == userID {
		return UserInfo{ID: m.ReceiverID, Nickname: m.ReceiverName, AvatarURL: m.ReceiverAvatar}
	}
	return UserInfo{ID: m.SenderID, Nickname: m.SenderName, AvatarURL: m.SenderAvatar}
}

// UnreadBy reports whether the message is addressed to userID and still unread.
func (m Message) UnreadBy(userID string) bool {
	return m.ReceiverID == userID && !m.IsRead
}
