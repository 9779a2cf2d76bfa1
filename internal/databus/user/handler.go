package user

import (
	"context"
	"encoding/json"
	"fmt"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/festivo/messaging-service/internal/config"
)

type ProfileRepo interface {
	UpdateUserNickname(ctx context.Context, userID, newNickname string) error
	UpdateUserAvatar(ctx context.Context, userID, avatarLink string) error
}

type profileEvent struct {
	UserID    string  `json:"user_id"`
	Nickname  *string `json:"nickname,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Handler keeps the local profile snapshots used for message joins in sync
// with profile updates published by the user service.
type Handler struct {
	repo ProfileRepo
}

func New(repo ProfileRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (h *Handler) Handler(ctx context.Context, in []byte) {
	logger := logger_lib.FromContext(ctx, config.KeyLogger)
	logger.AddFuncName("UserProfileHandler")

	var event profileEvent
	if err := json.Unmarshal(in, &event); err != nil {
		logger.Error(fmt.Sprintf("failed to decode profile event: %v", err))
		return
	}

	if event.UserID == "" {
		logger.Error("skipping profile event without user_id")
		return
	}

	if event.Nickname != nil {
		if err := h.repo.UpdateUserNickname(ctx, event.UserID, *event.Nickname); err != nil {
			logger.Error(fmt.Sprintf("failed to update nickname for %s: %v", event.UserID, err))
		}
	}

	if event.AvatarURL != nil {
		if err := h.repo.UpdateUserAvatar(ctx, event.UserID, *event.AvatarURL); err != nil {
			logger.Error(fmt.Sprintf("failed to update avatar for %s: %v", event.UserID, err))
		}
	}
}
