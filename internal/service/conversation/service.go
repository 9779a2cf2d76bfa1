package conversation

import (
	"context"
	"fmt"
	"sort"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/festivo/messaging-service/internal/cache"
	"github.com/festivo/messaging-service/internal/config"
	"github.com/festivo/messaging-service/internal/model"
)

// Service derives per-counterparty conversation summaries from the raw
// message log.
type Service struct {
	repo  MessageSource
	cache *cache.Cache
}

func New(repo MessageSource, c *cache.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: c,
	}
}

// ListConversations folds the full bidirectional log of userID into one
// summary per counterparty, sorted by last activity, most recent first.
// Single linear pass over the log.
func (s *Service) ListConversations(ctx context.Context, userID string) (model.ConversationList, error) {
	messages, err := s.repo.GetUserMessages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load message log: %w", err)
	}

	byPeer := make(map[string]*model.Conversation)
	order := make([]string, 0)

	for _, message := range messages {
		peerID := message.PeerOf(userID)

		conv, ok := byPeer[peerID]
		if !ok {
			conv = &model.Conversation{
				OtherUser:   message.PeerInfo(userID),
				LastMessage: message,
			}
			byPeer[peerID] = conv
			order = append(order, peerID)
		}

		if message.CreatedAt.After(conv.LastMessage.CreatedAt) {
			conv.LastMessage = message
		}

		if message.UnreadBy(userID) {
			conv.UnreadCount++
		}
	}

	conversations := make(model.ConversationList, 0, len(order))
	for _, peerID := range order {
		conversations = append(conversations, *byPeer[peerID])
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.CreatedAt.After(conversations[j].LastMessage.CreatedAt)
	})

	return conversations, nil
}

// ListConversationsCachedFirst returns the cached list immediately when one
// exists and refreshes it in the background, notifying onRefresh once the
// authoritative list lands. Without a cached list it blocks on the fetch.
func (s *Service) ListConversationsCachedFirst(ctx context.Context, userID string, onRefresh func(model.ConversationList)) (model.ConversationList, error) {
	key := cache.ConversationsKey(userID)

	var cached model.ConversationList
	if _, ok := s.cache.Get(ctx, key, &cached); ok {
		go s.refresh(ctx, userID, key, onRefresh)
		return cached, nil
	}

	fresh, err := s.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, fresh); err != nil {
		logger_lib.FromContext(ctx, config.KeyLogger).Warn(fmt.Sprintf("failed to cache conversations: %v", err))
	}

	return fresh, nil
}

func (s *Service) refresh(ctx context.Context, userID, key string, onRefresh func(model.ConversationList)) {
	logger := logger_lib.FromContext(ctx, config.KeyLogger)

	fresh, err := s.ListConversations(ctx, userID)
	if err != nil {
		logger.Warn(fmt.Sprintf("failed to refresh conversations: %v", err))
		return
	}

	if err := s.cache.Set(ctx, key, fresh); err != nil {
		logger.Warn(fmt.Sprintf("failed to cache conversations: %v", err))
	}

	if onRefresh != nil {
		onRefresh(fresh)
	}
}
