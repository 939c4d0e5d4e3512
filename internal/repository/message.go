package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"team_inbox/internal/domain"
	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

type MessageRepository interface {
	// Create inserts the message and bumps the owning conversation's
	// last_message_at in one transaction. A duplicate (channel, external_id)
	// returns ErrConflict without partial persistence.
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	GetByExternalID(ctx context.Context, channel domain.Channel, externalID string) (*domain.Message, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.MessageStatus, at time.Time) error
	List(ctx context.Context, filter domain.MessageFilter) ([]*domain.Message, error)
	Search(ctx context.Context, query string, filter domain.MessageFilter) ([]*domain.Message, error)
	Stats(ctx context.Context, filter domain.MessageFilter) (*domain.MessageStats, error)
}

const messageColumns = `id, conversation_id, contact_id, sender_id, channel, direction, content, status,
	external_id, attachments, metadata, created_at, sent_at, delivered_at, read_at`

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	attachments, err := json.Marshal(message.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}
	metadata, err := json.Marshal(message.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (id, conversation_id, contact_id, sender_id, channel, direction,
			content, status, external_id, attachments, metadata, created_at, sent_at, delivered_at, read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`

	err = tx.QueryRow(ctx, query,
		message.ID, message.ConversationID, message.ContactID, message.SenderID,
		message.Channel, message.Direction, message.Content, message.Status,
		nullIfEmpty(message.ExternalID), attachments, metadata,
		time.Now(), message.SentAt, message.DeliveredAt, message.ReadAt,
	).Scan(&message.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		r.log.Error("Failed to create message", "error", err)
		return err
	}

	touch := `UPDATE conversations SET last_message_at = $2, updated_at = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, touch, message.ConversationID, message.CreatedAt); err != nil {
		r.log.Error("Failed to touch conversation", "error", err)
		return err
	}

	return tx.Commit(ctx)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *messageRepository) GetByExternalID(ctx context.Context, channel domain.Channel, externalID string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE channel = $1 AND external_id = $2`
	return r.scanOne(r.db.QueryRow(ctx, query, channel, externalID))
}

func (r *messageRepository) scanOne(row pgx.Row) (*domain.Message, error) {
	message := &domain.Message{}
	var externalID *string
	var attachments, metadata []byte

	err := row.Scan(
		&message.ID, &message.ConversationID, &message.ContactID, &message.SenderID,
		&message.Channel, &message.Direction, &message.Content, &message.Status,
		&externalID, &attachments, &metadata,
		&message.CreatedAt, &message.SentAt, &message.DeliveredAt, &message.ReadAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to get message", "error", err)
		return nil, err
	}

	if externalID != nil {
		message.ExternalID = *externalID
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &message.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &message.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return message, nil
}

func (r *messageRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.MessageStatus, at time.Time) error {
	query := `
		UPDATE messages
		SET status = $2,
			sent_at = CASE WHEN $2 = 'sent' THEN $3 ELSE sent_at END,
			delivered_at = CASE WHEN $2 = 'delivered' THEN $3 ELSE delivered_at END,
			read_at = CASE WHEN $2 = 'read' THEN $3 ELSE read_at END
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, status, at)
	if err != nil {
		r.log.Error("Failed to update message status", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMessageNotFound
	}

	return nil
}

func (r *messageRepository) List(ctx context.Context, filter domain.MessageFilter) ([]*domain.Message, error) {
	return r.query(ctx, filter, "")
}

func (r *messageRepository) Search(ctx context.Context, query string, filter domain.MessageFilter) ([]*domain.Message, error) {
	return r.query(ctx, filter, query)
}

func (r *messageRepository) query(ctx context.Context, filter domain.MessageFilter, search string) ([]*domain.Message, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE ($1::uuid IS NULL OR conversation_id = $1)
		  AND ($2::uuid IS NULL OR contact_id = $2)
		  AND ($3::text IS NULL OR channel = $3)
		  AND ($4::text IS NULL OR direction = $4)
		  AND ($5::text IS NULL OR status = $5)
		  AND ($6::text IS NULL OR content ILIKE '%' || $6 || '%')
		ORDER BY created_at DESC
		LIMIT $7 OFFSET $8
	`

	rows, err := r.db.Query(ctx, query,
		filter.ConversationID, filter.ContactID, filter.Channel,
		filter.Direction, filter.Status, nullIfEmpty(search),
		limit, filter.Offset,
	)
	if err != nil {
		r.log.Error("Failed to query messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message, err := r.scanRows(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

func (r *messageRepository) scanRows(rows pgx.Rows) (*domain.Message, error) {
	message := &domain.Message{}
	var externalID *string
	var attachments, metadata []byte

	err := rows.Scan(
		&message.ID, &message.ConversationID, &message.ContactID, &message.SenderID,
		&message.Channel, &message.Direction, &message.Content, &message.Status,
		&externalID, &attachments, &metadata,
		&message.CreatedAt, &message.SentAt, &message.DeliveredAt, &message.ReadAt,
	)
	if err != nil {
		r.log.Error("Failed to scan message", "error", err)
		return nil, err
	}

	if externalID != nil {
		message.ExternalID = *externalID
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &message.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &message.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return message, nil
}

func (r *messageRepository) Stats(ctx context.Context, filter domain.MessageFilter) (*domain.MessageStats, error) {
	query := `
		SELECT status, channel, direction, COUNT(*)
		FROM messages
		WHERE ($1::uuid IS NULL OR conversation_id = $1)
		  AND ($2::uuid IS NULL OR contact_id = $2)
		GROUP BY status, channel, direction
	`

	rows, err := r.db.Query(ctx, query, filter.ConversationID, filter.ContactID)
	if err != nil {
		r.log.Error("Failed to query message stats", "error", err)
		return nil, err
	}
	defer rows.Close()

	stats := &domain.MessageStats{
		ByStatus:    make(map[domain.MessageStatus]int64),
		ByChannel:   make(map[domain.Channel]int64),
		ByDirection: make(map[domain.Direction]int64),
	}

	for rows.Next() {
		var status domain.MessageStatus
		var channel domain.Channel
		var direction domain.Direction
		var count int64
		if err := rows.Scan(&status, &channel, &direction, &count); err != nil {
			r.log.Error("Failed to scan stats row", "error", err)
			return nil, err
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByChannel[channel] += count
		stats.ByDirection[direction] += count
	}

	return stats, rows.Err()
}
