package message

import (
	"context"
	"encoding/json"
	"fmt"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/festivo/messaging-service/internal/config"
	"github.com/festivo/messaging-service/internal/model"
)

type MessagePublisher interface {
	Publish(msg model.Message)
}

// Handler republishes message-inserted events from the bus into the
// in-process realtime hub.
type Handler struct {
	hub MessagePublisher
}

func New(hub MessagePublisher) *Handler {
	return &Handler{
		hub: hub,
	}
}

func (h *Handler) Handler(ctx context.Context, in []byte) {
	logger := logger_lib.FromContext(ctx, config.KeyLogger)
	logger.AddFuncName("MessageHandler")

	var msg model.Message
	if err := json.Unmarshal(in, &msg); err != nil {
		logger.Error(fmt.Sprintf("failed to decode message event: %v", err))
		return
	}

	if msg.ReceiverID == "" {
		logger.Error("skipping message event without receiver_id")
		return
	}

	h.hub.Publish(msg)
}
