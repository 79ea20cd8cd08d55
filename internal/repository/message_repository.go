package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
)

const messageColumns = `id, conversation_id, content, message_timestamp, channel, direction, delivery_status`

// MessageRepository stores the message feed in MySQL. Rows keep their
// insertion order through the auto-increment seq column.
type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts msg unless a message with the same id already exists.
func (r *MessageRepository) Append(ctx context.Context, msg domain.NormalizedMessage) (bool, error) {
	query := `
		INSERT IGNORE INTO whatsapp_messages (` + messageColumns + `)
		VALUES (:id, :conversation_id, :content, :message_timestamp, :channel, :direction, :delivery_status)
	`

	msg.Timestamp = msg.Timestamp.UTC()

	result, err := r.db.NamedExecContext(ctx, query, msg)
	if err != nil {
		return false, fmt.Errorf("failed to append message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 1, nil
}

// UpdateStatus applies status when the transition is allowed and returns the
// updated message. It returns nil when the message is unknown or the
// transition was ignored.
func (r *MessageRepository) UpdateStatus(ctx context.Context, id string, status domain.DeliveryStatus) (*domain.NormalizedMessage, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var msg domain.NormalizedMessage
	query := `SELECT ` + messageColumns + ` FROM whatsapp_messages WHERE id = ? FOR UPDATE`
	if err := tx.GetContext(ctx, &msg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	if !msg.DeliveryStatus.CanTransitionTo(status) {
		return nil, nil
	}

	update := `
		UPDATE whatsapp_messages
		SET delivery_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := tx.ExecContext(ctx, update, status, id); err != nil {
		return nil, fmt.Errorf("failed to update message status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	msg.DeliveryStatus = status
	return &msg, nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, page, pageSize int) ([]domain.NormalizedMessage, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	countQuery := "SELECT COUNT(*) FROM whatsapp_messages WHERE conversation_id = ?"
	if err := r.db.GetContext(ctx, &totalCount, countQuery, conversationID); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	query := `
		SELECT ` + messageColumns + `
		FROM whatsapp_messages
		WHERE conversation_id = ?
		ORDER BY seq ASC
		LIMIT ? OFFSET ?
	`

	messages := []domain.NormalizedMessage{}
	if err := r.db.SelectContext(ctx, &messages, query, conversationID, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to get messages: %w", err)
	}

	return messages, totalCount, nil
}

func (r *MessageRepository) Get(ctx context.Context, id string) (*domain.NormalizedMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM whatsapp_messages WHERE id = ?`

	var message domain.NormalizedMessage
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &message, nil
}
