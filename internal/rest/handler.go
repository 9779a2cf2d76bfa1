package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/festivo/messaging-service/internal/api"
	"github.com/festivo/messaging-service/internal/config"
	"github.com/festivo/messaging-service/internal/model"
)

type Handler struct {
	repository    DBRepo
	conversations ConversationProvider
	userClient    UserClient
	pushClient    PushClient
	validator     Validator
	jwtGenerator  JWTGenerator
}

func New(
	repo DBRepo,
	conversations ConversationProvider,
	userClient UserClient,
	pushClient PushClient,
	validator Validator,
	jwtGenerator JWTGenerator,
) *Handler {
	return &Handler{
		repository:    repo,
		conversations: conversations,
		userClient:    userClient,
		pushClient:    pushClient,
		validator:     validator,
		jwtGenerator:  jwtGenerator,
	}
}

// AttachRoutes mounts the messaging API onto the router.
func (h *Handler) AttachRoutes(router chi.Router) {
	router.Get("/api/messaging/conversations", h.GetConversations)
	router.Get("/api/messaging/messages", h.GetMessages)
	router.Post("/api/messaging/messages", h.SendMessage)
	router.Post("/api/messaging/messages/read", h.MarkRead)
	router.Get("/api/messaging/messages/unread-count", h.GetUnreadCount)
	router.Delete("/api/messaging/messages/{message_id}", h.DeleteMessage)
	router.Get("/api/messaging/bookings/{booking_id}/messages", h.GetBookingMessages)
	router.Get("/api/messaging/realtime/connect-token", h.GetConnectToken)
	router.Post("/api/messaging/realtime/subscribe-token", h.GetSubscribeToken)
}

func (h *Handler) GetConversations(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("GetConversations")

	userUUID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get user UUID")
		h.writeError(w, "failed to get user UUID", http.StatusInternalServerError)
		return
	}

	conversations, err := h.conversations.ListConversations(r.Context(), userUUID)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to list conversations: %v", err))
		h.writeError(w, fmt.Sprintf("failed to list conversations: %v", err), http.StatusInternalServerError)
		return
	}

	response := api.GetConversationsResponse{
		Conversations: conversations,
	}

	h.writeJSON(w, response, http.StatusOK)
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("GetMessages")

	userUUID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get user UUID")
		h.writeError(w, "failed to get user UUID", http.StatusInternalServerError)
		return
	}

	peerID := r.URL.Query().Get("peer_id")
	if peerID == "" {
		logger.Error("peer_id is required")
		h.writeError(w, "peer_id is required", http.StatusBadRequest)
		return
	}

	var bookingID *string
	if booking := r.URL.Query().Get("booking_id"); booking != "" {
		bookingID = &booking
	}

	messages, err := h.repository.GetMessages(r.Context(), userUUID, peerID, bookingID)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to fetch messages: %v", err))
		h.writeError(w, fmt.Sprintf("failed to fetch messages: %v", err), http.StatusInternalServerError)
		return
	}

	response := api.GetMessagesResponse{
		Messages: messages,
	}

	h.writeJSON(w, response, http.StatusOK)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("SendMessage")

	var req api.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error(fmt.Sprintf("failed to decode request: %v", err))
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	senderID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get sender ID")
		h.writeError(w, "failed to get sender ID", http.StatusInternalServerError)
		return
	}

	if err := h.validator.ValidateSendMessage(&req); err != nil {
		logger.Error(fmt.Sprintf("message validation failed: %v", err))
		h.writeError(w, fmt.Sprintf("message validation failed: %v", err), http.StatusBadRequest)
		return
	}

	for _, participantID := range []string{senderID, req.ReceiverId} {
		userInfo, err := h.userClient.GetUserInfo(r.Context(), participantID)
		if err != nil {
			logger.Error(fmt.Sprintf("failed to get user info for %s: %v", participantID, err))
			h.writeError(w, fmt.Sprintf("failed to get user info: %v", err), http.StatusInternalServerError)
			return
		}

		if err := h.repository.UpsertUser(r.Context(), userInfo); err != nil {
			logger.Error(fmt.Sprintf("failed to upsert user %s: %v", participantID, err))
			h.writeError(w, fmt.Sprintf("failed to upsert user: %v", err), http.StatusInternalServerError)
			return
		}
	}

	message, err := h.repository.SaveMessage(r.Context(), model.MessageParams{
		SenderID:   senderID,
		ReceiverID: req.ReceiverId,
		Content:    req.Content,
		BookingID:  req.BookingId,
	})
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			logger.Error(fmt.Sprintf("message validation failed: %v", err))
			h.writeError(w, fmt.Sprintf("message validation failed: %v", err), http.StatusBadRequest)
			return
		}
		logger.Error(fmt.Sprintf("failed to save message: %v", err))
		h.writeError(w, fmt.Sprintf("failed to save message: %v", err), http.StatusInternalServerError)
		return
	}

	if err := h.pushClient.Publish(r.Context(), model.UserChannel(message.ReceiverID), *message); err != nil {
		logger.Error(fmt.Sprintf("failed to publish message: %v", err))
	}

	response := api.SendMessageResponse{
		Message: *message,
	}

	h.writeJSON(w, response, http.StatusOK)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("MarkRead")

	var req api.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error(fmt.Sprintf("failed to decode request: %v", err))
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userUUID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get user UUID")
		h.writeError(w, "failed to get user UUID", http.StatusInternalServerError)
		return
	}

	if err := h.validator.ValidateMarkRead(&req); err != nil {
		logger.Error(fmt.Sprintf("mark read validation failed: %v", err))
		h.writeError(w, fmt.Sprintf("mark read validation failed: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.repository.MarkMessagesRead(r.Context(), req.SenderId, userUUID); err != nil {
		logger.Error(fmt.Sprintf("failed to mark messages read: %v", err))
		h.writeError(w, fmt.Sprintf("failed to mark messages read: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("GetUnreadCount")

	userUUID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get user UUID")
		h.writeError(w, "failed to get user UUID", http.StatusInternalServerError)
		return
	}

	count, err := h.repository.GetUnreadCount(r.Context(), userUUID)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to count unread messages: %v", err))
		h.writeError(w, fmt.Sprintf("failed to count unread messages: %v", err), http.StatusInternalServerError)
		return
	}

	response := api.GetUnreadCountResponse{
		Count: count,
	}

	h.writeJSON(w, response, http.StatusOK)
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("DeleteMessage")

	if _, ok := r.Context().Value(config.KeyUUID).(string); !ok {
		logger.Error("failed to get user UUID")
		h.writeError(w, "failed to get user UUID", http.StatusInternalServerError)
		return
	}

	messageID := chi.URLParam(r, "message_id")
	if messageID == "" {
		logger.Error("message_id is required")
		h.writeError(w, "message_id is required", http.StatusBadRequest)
		return
	}

	if err := h.repository.DeleteMessage(r.Context(), messageID); err != nil {
		logger.Error(fmt.Sprintf("failed to delete message: %v", err))
		h.writeError(w, fmt.Sprintf("failed to delete message: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetBookingMessages(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("GetBookingMessages")

	if _, ok := r.Context().Value(config.KeyUUID).(string); !ok {
		logger.Error("failed to get user UUID")
		h.writeError(w, "failed to get user UUID", http.StatusInternalServerError)
		return
	}

	bookingID := chi.URLParam(r, "booking_id")
	if bookingID == "" {
		logger.Error("booking_id is required")
		h.writeError(w, "booking_id is required", http.StatusBadRequest)
		return
	}

	messages, err := h.repository.GetBookingMessages(r.Context(), bookingID)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to fetch booking messages: %v", err))
		h.writeError(w, fmt.Sprintf("failed to fetch booking messages: %v", err), http.StatusInternalServerError)
		return
	}

	response := api.GetMessagesResponse{
		Messages: messages,
	}

	h.writeJSON(w, response, http.StatusOK)
}

func (h *Handler) GetConnectToken(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("GetConnectToken")

	userUUID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get user UUID")
		h.writeError(w, "failed to get user UUID", http.StatusInternalServerError)
		return
	}

	token, expiresAt, err := h.jwtGenerator.GenerateConnectToken(userUUID)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to generate access token: %v", err))
		h.writeError(w, fmt.Sprintf("failed to generate access token: %v", err), http.StatusInternalServerError)
		return
	}

	response := api.GetConnectTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}

	h.writeJSON(w, response, http.StatusOK)
}

func (h *Handler) GetSubscribeToken(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("GetSubscribeToken")

	userUUID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get user UUID")
		h.writeError(w, "failed to get user UUID", http.StatusInternalServerError)
		return
	}

	channel := model.UserChannel(userUUID)

	token, expiresAt, err := h.jwtGenerator.GenerateSubscribeToken(userUUID, channel)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to generate subscribe token: %v", err))
		h.writeError(w, fmt.Sprintf("failed to generate subscribe token: %v", err), http.StatusInternalServerError)
		return
	}

	response := api.GetSubscribeTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Channel:   channel,
	}

	h.writeJSON(w, response, http.StatusOK)
}

// ----------------------------- helpers -----------------------------

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.Error{Error: message})
}
