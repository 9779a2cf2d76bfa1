//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package rest

import (
	"context"

	"github.com/festivo/messaging-service/internal/api"
	"github.com/festivo/messaging-service/internal/model"
)

type DBRepo interface {
	GetMessages(ctx context.Context, userID, peerID string, bookingID *string) (model.MessageList, error)
	SaveMessage(ctx context.Context, params model.MessageParams) (*model.Message, error)
	MarkMessagesRead(ctx context.Context, senderID, receiverID string) error
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	DeleteMessage(ctx context.Context, messageID string) error
	GetBookingMessages(ctx context.Context, bookingID string) (model.MessageList, error)
	UpsertUser(ctx context.Context, info *model.UserInfo) error
}

type ConversationProvider interface {
	ListConversations(ctx context.Context, userID string) (model.ConversationList, error)
}

type UserClient interface {
	GetUserInfo(ctx context.Context, userID string) (*model.UserInfo, error)
}

type PushClient interface {
	Publish(ctx context.Context, channel string, msg model.Message) error
}

type Validator interface {
	ValidateSendMessage(req *api.SendMessageRequest) error
	ValidateMarkRead(req *api.MarkReadRequest) error
}

type JWTGenerator interface {
	GenerateConnectToken(userID string) (string, int64, error)
	GenerateSubscribeToken(userID, channel string) (string, int64, error)
}
