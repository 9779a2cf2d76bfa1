package postgres

import (
	"context"
	"fmt"
	"log"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/festivo/messaging-service/internal/config"
	"github.com/festivo/messaging-service/internal/model"
)

type Repository struct {
	connection *sqlx.DB
}

func New(cfg *config.Config) *Repository {
	conStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=disable",
		cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.Host, cfg.Postgres.Port)

	conn, err := sqlx.Connect("postgres", conStr)
	if err != nil {
		log.Fatal("error connect: ", err)
	}

	return &Repository{
		connection: conn,
	}
}

func (r *Repository) Close() {
	_ = r.connection.Close()
}

func messageColumns() sq.SelectBuilder {
	return sq.Select(
		"m.id",
		"m.sender_id",
		"m.receiver_id",
		"m.content",
		"m.booking_id",
		"m.is_read",
		"m.created_at",
		"su.nickname AS sender_name",
		"su.avatar_url AS sender_avatar",
		"ru.nickname AS receiver_name",
		"ru.avatar_url AS receiver_avatar",
	).
		From("messages m").
		Join("users su ON su.id = m.sender_id").
		Join("users ru ON ru.id = m.receiver_id")
}

// GetMessages returns the full log between two users ascending by created_at,
// optionally filtered to one booking.
func (r *Repository) GetMessages(ctx context.Context, userID, peerID string, bookingID *string) (model.MessageList, error) {
	queryBuilder := messageColumns().
		Where(sq.Or{
			sq.And{sq.Eq{"m.sender_id": userID}, sq.Eq{"m.receiver_id": peerID}},
			sq.And{sq.Eq{"m.sender_id": peerID}, sq.Eq{"m.receiver_id": userID}},
		}).
		OrderBy("m.created_at ASC")

	if bookingID != nil && *bookingID != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"m.booking_id": *bookingID})
	}

	query, args, err := queryBuilder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %v", err)
	}

	var messages model.MessageList
	err = r.connection.SelectContext(ctx, &messages, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return messages, nil
}

// GetUserMessages returns the bidirectional log of a user, newest first.
// Single query feeding the conversation fold; no per-conversation lookups.
func (r *Repository) GetUserMessages(ctx context.Context, userID string) (model.MessageList, error) {
	query, args, err := messageColumns().
		Where(sq.Or{
			sq.Eq{"m.sender_id": userID},
			sq.Eq{"m.receiver_id": userID},
		}).
		OrderBy("m.created_at DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %v", err)
	}

	var messages model.MessageList
	err = r.connection.SelectContext(ctx, &messages, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user messages: %w", err)
	}

	return messages, nil
}

// SaveMessage performs the authoritative write and returns the persisted
// record with its server-assigned id and created_at.
func (r *Repository) SaveMessage(ctx context.Context, params model.MessageParams) (*model.Message, error) {
	if strings.TrimSpace(params.Content) == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", model.ErrValidation)
	}

	message := model.Message{
		ID:         uuid.New().String(),
		SenderID:   params.SenderID,
		ReceiverID: params.ReceiverID,
		Content:    params.Content,
		BookingID:  params.BookingID,
	}

	query, args, err := sq.Insert("messages").
		Columns("id", "sender_id", "receiver_id", "content", "booking_id").
		Values(message.ID, message.SenderID, message.ReceiverID, message.Content, message.BookingID).
		Suffix("RETURNING created_at, is_read").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %v", err)
	}

	row := r.connection.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&message.CreatedAt, &message.IsRead); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	return &message, nil
}

// MarkMessagesRead flips all unread messages in the sender -> receiver
// direction to read. Idempotent; no rows to update is not an error.
func (r *Repository) MarkMessagesRead(ctx context.Context, senderID, receiverID string) error {
	query, args, err := sq.Update("messages").
		Set("is_read", true).
		Where(sq.Eq{
			"sender_id":   senderID,
			"receiver_id": receiverID,
			"is_read":     false,
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	_, err = r.connection.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}

	return nil
}

func (r *Repository) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("messages").
		Where(sq.Eq{
			"receiver_id": userID,
			"is_read":     false,
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sql query: %v", err)
	}

	var count int64
	err = r.connection.GetContext(ctx, &count, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}

	return count, nil
}

func (r *Repository) DeleteMessage(ctx context.Context, messageID string) error {
	query, args, err := sq.Delete("messages").
		Where(sq.Eq{"id": messageID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	_, err = r.connection.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}

// GetBookingMessages returns every message correlated with one booking,
// ascending by created_at.
func (r *Repository) GetBookingMessages(ctx context.Context, bookingID string) (model.MessageList, error) {
	query, args, err := messageColumns().
		Where(sq.Eq{"m.booking_id": bookingID}).
		OrderBy("m.created_at ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %v", err)
	}

	var messages model.MessageList
	err = r.connection.SelectContext(ctx, &messages, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking messages: %w", err)
	}

	return messages, nil
}

// UpsertUser refreshes the profile snapshot used for message joins.
func (r *Repository) UpsertUser(ctx context.Context, info *model.UserInfo) error {
	query, args, err := sq.Insert("users").
		Columns("id", "nickname", "avatar_url").
		Values(info.ID, info.Nickname, info.AvatarURL).
		Suffix("ON CONFLICT (id) DO UPDATE SET nickname = excluded.nickname, avatar_url = excluded.avatar_url").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	_, err = r.connection.ExecContext(ctx, query, args...)

	return err
}

func (r *Repository) UpdateUserNickname(ctx context.Context, userID, newNickname string) error {
	query, args, err := sq.Update("users").
		Set("nickname", newNickname).
		Where(sq.Eq{"id": userID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	_, err = r.connection.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateUserAvatar(ctx context.Context, userID, avatarLink string) error {
	query, args, err := sq.Update("users").
		Set("avatar_url", avatarLink).
		Where(sq.Eq{"id": userID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	_, err = r.connection.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	return nil
}
