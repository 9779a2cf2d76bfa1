package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/festivo/messaging-service/internal/cache"
	"github.com/festivo/messaging-service/internal/config"
	"github.com/festivo/messaging-service/internal/model"
)

type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
)

// Session is the stateful controller of one user's live conversation view.
// It reconciles three asynchronously-arriving views of the message log
// (persisted cache, authoritative fetch, realtime push) into a single
// ordered, de-duplicated timeline, and supports optimistic send.
//
// All state lives behind one mutex; background completions carry the epoch
// they were started under and are dropped when the session has moved on.
type Session struct {
	user          model.UserInfo
	repo          MessageRepo
	conversations ConversationLister
	cache         *cache.Cache
	feed          Feed

	mu          sync.Mutex
	state       State
	peerID      string
	epoch       int
	timeline    model.MessageList
	pending     map[string]struct{}
	sub         Subscription
	draft       string
	placeholder *model.Conversation

	onUpdate        func(model.MessageList)
	onConversations func(model.ConversationList)
	onPeerActivity  func(peerID string)
}

func New(user model.UserInfo, repo MessageRepo, conversations ConversationLister, c *cache.Cache, feed Feed) *Session {
	return &Session{
		user:          user,
		repo:          repo,
		conversations: conversations,
		cache:         c,
		feed:          feed,
		pending:       make(map[string]struct{}),
	}
}

// OnUpdate registers the timeline observer. Snapshots are copies and the
// callback runs outside the session lock.
func (s *Session) OnUpdate(fn func(model.MessageList)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// OnConversations registers the observer for background conversation-list
// refreshes.
func (s *Session) OnConversations(fn func(model.ConversationList)) {
	s.mu.Lock()
	s.onConversations = fn
	s.mu.Unlock()
}

// OnPeerActivity registers the observer for realtime messages that belong to
// a conversation other than the open one.
func (s *Session) OnPeerActivity(fn func(peerID string)) {
	s.mu.Lock()
	s.onPeerActivity = fn
	s.mu.Unlock()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Peer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerID
}

// Draft holds the content of the last failed send so the user can retry.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Timeline returns a copy of the current timeline.
func (s *Session) Timeline() model.MessageList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(model.MessageList(nil), s.timeline...)
}

// Open switches the session to the conversation with peerID. Any previous
// subscription is torn down first. The timeline resolves cached-first: a
// cached snapshot is applied synchronously and refreshed in the background;
// without one the authoritative fetch blocks. peerName, when known, seeds a
// transient conversation entry until a first message is persisted.
//
// A fetch failure with no cached snapshot leaves the session open on an
// empty timeline and is reported as recoverable, never fatal.
func (s *Session) Open(ctx context.Context, peerID, peerName string) error {
	logger := logger_lib.FromContext(ctx, config.KeyLogger)
	logger.AddFuncName("Open")

	if strings.TrimSpace(peerID) == "" {
		return fmt.Errorf("%w: peer id is required", model.ErrValidation)
	}

	s.mu.Lock()
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
	s.state = StateOpening
	s.peerID = peerID
	s.epoch++
	epoch := s.epoch
	s.timeline = nil
	s.pending = make(map[string]struct{})
	s.draft = ""
	if peerName != "" {
		s.placeholder = &model.Conversation{
			OtherUser:   model.UserInfo{ID: peerID, Nickname: peerName},
			LastMessage: model.Message{IsRead: true, CreatedAt: time.Now()},
		}
	} else {
		s.placeholder = nil
	}
	s.mu.Unlock()

	key := cache.MessagesKey(s.user.ID, peerID, nil)

	var fetchErr error
	var cached model.MessageList
	if _, hit := s.cache.Get(ctx, key, &cached); hit {
		s.applyTimeline(epoch, cached)
		go s.refreshTimeline(ctx, epoch, peerID, key)
	} else {
		fresh, err := s.repo.GetMessages(ctx, s.user.ID, peerID, nil)
		if err != nil {
			logger.Error(fmt.Sprintf("failed to fetch timeline: %v", err))
			s.applyTimeline(epoch, model.MessageList{})
			fetchErr = fmt.Errorf("%w: failed to fetch timeline: %v", model.ErrTransport, err)
		} else {
			if err := s.cache.Set(ctx, key, fresh); err != nil {
				logger.Warn(fmt.Sprintf("failed to cache timeline: %v", err))
			}
			s.applyTimeline(epoch, fresh)
		}
	}

	// Read receipts are best-effort; a failure never surfaces.
	go func() {
		if err := s.repo.MarkMessagesRead(ctx, peerID, s.user.ID); err != nil {
			logger.Error(fmt.Sprintf("failed to mark messages read: %v", err))
		}
	}()

	sub := s.feed.Subscribe(s.user.ID, func(msg model.Message) {
		s.handleIncoming(epoch, msg)
	})

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		sub.Close()
		return fetchErr
	}
	s.sub = sub
	s.mu.Unlock()

	return fetchErr
}

// Send validates the content, appends an optimistic message synchronously and
// performs the authoritative write. On success the optimistic entry is
// replaced in place by the persisted record; on failure it is removed and the
// content is preserved in Draft for resubmission.
func (s *Session) Send(ctx context.Context, content string) (*model.Message, error) {
	logger := logger_lib.FromContext(ctx, config.KeyLogger)
	logger.AddFuncName("Send")

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", model.ErrValidation)
	}

	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no open conversation", model.ErrValidation)
	}
	params := model.MessageParams{
		SenderID:   s.user.ID,
		ReceiverID: s.peerID,
		Content:    trimmed,
	}
	epoch := s.epoch
	optimistic := model.NewOptimistic(params)
	s.timeline = append(s.timeline, optimistic)
	s.pending[optimistic.ID] = struct{}{}
	s.draft = ""
	notify, snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}

	saved, err := s.repo.SaveMessage(ctx, params)
	if err != nil {
		s.rollbackOptimistic(epoch, optimistic.ID, trimmed)
		logger.Error(fmt.Sprintf("failed to send message: %v", err))
		if errors.Is(err, model.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to send message: %v", model.ErrTransport, err)
	}

	s.confirmOptimistic(ctx, epoch, optimistic.ID, *saved)

	return saved, nil
}

// Conversations returns the aggregated conversation list, cached-first, with
// the transient placeholder for a freshly-initiated conversation merged in
// until a real message exists.
func (s *Session) Conversations(ctx context.Context) (model.ConversationList, error) {
	list, err := s.conversations.ListConversationsCachedFirst(ctx, s.user.ID, s.notifyConversations)
	if err != nil {
		return nil, err
	}

	return s.mergePlaceholder(list), nil
}

// Close unsubscribes the feed and drops all pending optimistic state.
func (s *Session) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.state = StateClosed
	s.epoch++
	s.peerID = ""
	s.timeline = nil
	s.pending = make(map[string]struct{})
	s.placeholder = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// handleIncoming merges one realtime delivery. Messages of the open
// conversation are appended in arrival order, never re-sorted, and
// de-duplicated by id; messages for other counterparties only signal
// conversation-list activity.
func (s *Session) handleIncoming(epoch int, msg model.Message) {
	s.mu.Lock()
	if s.epoch != epoch || s.state != StateOpen {
		s.mu.Unlock()
		return
	}

	if !msg.Involves(s.peerID) {
		peerID := msg.PeerOf(s.user.ID)
		fn := s.onPeerActivity
		s.mu.Unlock()
		if fn != nil {
			fn(peerID)
		}
		return
	}

	for _, existing := range s.timeline {
		if existing.ID == msg.ID {
			s.mu.Unlock()
			return
		}
	}

	s.timeline = append(s.timeline, msg)
	notify, snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

// applyTimeline installs an initial timeline and moves the session to Open,
// unless the session has been reopened since.
func (s *Session) applyTimeline(epoch int, messages model.MessageList) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.timeline = append(model.MessageList(nil), messages...)
	s.state = StateOpen
	notify, snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

// refreshTimeline is the background half of the cached-first read. The
// authoritative result replaces the timeline only when the session still
// shows the same conversation; optimistic entries in flight are re-appended.
func (s *Session) refreshTimeline(ctx context.Context, epoch int, peerID, key string) {
	logger := logger_lib.FromContext(ctx, config.KeyLogger)

	fresh, err := s.repo.GetMessages(ctx, s.user.ID, peerID, nil)
	if err != nil {
		// Stale snapshot already on screen; nothing to surface.
		logger.Warn(fmt.Sprintf("failed to refresh timeline: %v", err))
		return
	}

	if err := s.cache.Set(ctx, key, fresh); err != nil {
		logger.Warn(fmt.Sprintf("failed to cache timeline: %v", err))
	}

	s.mu.Lock()
	if s.epoch != epoch || s.peerID != peerID {
		s.mu.Unlock()
		return
	}

	merged := append(model.MessageList(nil), fresh...)
	for _, existing := range s.timeline {
		if _, ok := s.pending[existing.ID]; ok {
			merged = append(merged, existing)
		}
	}
	s.timeline = merged
	s.state = StateOpen
	notify, snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

func (s *Session) confirmOptimistic(ctx context.Context, epoch int, tempID string, saved model.Message) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}

	delete(s.pending, tempID)

	// A background refresh may have landed the persisted row already; in that
	// case the optimistic entry is dropped, never duplicated.
	confirmed := false
	for _, existing := range s.timeline {
		if existing.ID == saved.ID {
			confirmed = true
			break
		}
	}
	if confirmed {
		kept := s.timeline[:0]
		for _, message := range s.timeline {
			if message.ID != tempID {
				kept = append(kept, message)
			}
		}
		s.timeline = kept
	} else {
		for i := range s.timeline {
			if s.timeline[i].ID == tempID {
				// Position preserved; the timeline is never re-sorted under
				// the user.
				s.timeline[i] = saved
				break
			}
		}
	}
	s.placeholder = nil
	peerID := s.peerID
	notify, snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}

	key := cache.MessagesKey(s.user.ID, peerID, nil)
	if err := s.cache.Set(ctx, key, snapshot); err != nil {
		logger_lib.FromContext(ctx, config.KeyLogger).Warn(fmt.Sprintf("failed to cache timeline: %v", err))
	}
}

func (s *Session) rollbackOptimistic(epoch int, tempID, content string) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}

	delete(s.pending, tempID)
	kept := s.timeline[:0]
	for _, message := range s.timeline {
		if message.ID != tempID {
			kept = append(kept, message)
		}
	}
	s.timeline = kept
	s.draft = content
	notify, snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

func (s *Session) notifyConversations(list model.ConversationList) {
	merged := s.mergePlaceholder(list)

	s.mu.Lock()
	fn := s.onConversations
	s.mu.Unlock()

	if fn != nil {
		fn(merged)
	}
}

func (s *Session) mergePlaceholder(list model.ConversationList) model.ConversationList {
	s.mu.Lock()
	placeholder := s.placeholder
	s.mu.Unlock()

	if placeholder == nil {
		return list
	}
	for _, conv := range list {
		if conv.OtherUser.ID == placeholder.OtherUser.ID {
			return list
		}
	}

	return append(model.ConversationList{*placeholder}, list...)
}

// snapshotLocked must be called with the mutex held.
func (s *Session) snapshotLocked() (func(model.MessageList), model.MessageList) {
	return s.onUpdate, append(model.MessageList(nil), s.timeline...)
}
