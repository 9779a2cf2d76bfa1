package model

type ConversationList []Conversation

// Conversation is a derived per-counterparty aggregate of the message log.
// It is never persisted; the aggregator rebuilds it from the log on demand.
type Conversation struct {
	OtherUser   UserInfo `json:"other_user"`
	LastMessage Message  `json:"last_message"`
	UnreadCount int      `json:"unread_count"`
}

type UserInfo struct {
	ID        string `db:"id" json:"id"`
	Nickname  string `db:"nickname" json:"nickname"`
	AvatarURL string `db:"avatar_url" json:"avatar_url"`
}
