//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package conversation

import (
	"context"

	"github.com/festivo/messaging-service/internal/model"
)

type MessageSource interface {
	GetUserMessages(ctx context.Context, userID string) (model.MessageList, error)
}
