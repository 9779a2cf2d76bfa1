//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package session

import (
	"context"

	"github.com/festivo/messaging-service/internal/model"
)

type MessageRepo interface {
	GetMessages(ctx context.Context, userID, peerID string, bookingID *string) (model.MessageList, error)
	SaveMessage(ctx context.Context, params model.MessageParams) (*model.Message, error)
	MarkMessagesRead(ctx context.Context, senderID, receiverID string) error
}

type ConversationLister interface {
	ListConversationsCachedFirst(ctx context.Context, userID string, onRefresh func(model.ConversationList)) (model.ConversationList, error)
}

type Feed interface {
	Subscribe(userID string, fn func(model.Message)) Subscription
}

type Subscription interface {
	Close()
}
