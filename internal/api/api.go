// Package api holds the wire types of the messaging REST surface.
package api

import "github.com/festivo/messaging-service/internal/model"

type SendMessageRequest struct {
	ReceiverId string  `json:"receiver_id"`
	Content    string  `json:"content"`
	BookingId  *string `json:"booking_id,omitempty"`
}

type SendMessageResponse struct {
	Message model.Message `json:"message"`
}

type GetMessagesResponse struct {
	Messages []model.Message `json:"messages"`
}

type GetConversationsResponse struct {
	Conversations []model.Conversation `json:"conversations"`
}

type MarkReadRequest struct {
	SenderId string `json:"sender_id"`
}

type GetUnreadCountResponse struct {
	Count int64 `json:"count"`
}

type GetConnectTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type GetSubscribeTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	Channel   string `json:"channel"`
}

type Error struct {
	Error string `json:"error"`
}
