package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"team_inbox/internal/domain"
	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	// FindOpen returns the contact's most recent active conversation on the
	// given channel, or ErrConversationNotFound.
	FindOpen(ctx context.Context, contactID uuid.UUID, channel domain.Channel) (*domain.Conversation, error)
	List(ctx context.Context, status *domain.ConversationStatus, limit, offset int) ([]*domain.Conversation, error)
	Update(ctx context.Context, conversation *domain.Conversation) error
}

const conversationColumns = `id, contact_id, channel, status, priority, last_message_at, created_at, updated_at`

type conversationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewConversationRepository(db *pgxpool.Pool, log logger.Logger) ConversationRepository {
	return &conversationRepository{db: db, log: log}
}

func (r *conversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, contact_id, channel, status, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		conversation.ID, conversation.ContactID, conversation.Channel,
		conversation.Status, conversation.Priority, time.Now(),
	).Scan(&conversation.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create conversation", "error", err)
		return err
	}

	conversation.UpdatedAt = conversation.CreatedAt
	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *conversationRepository) FindOpen(ctx context.Context, contactID uuid.UUID, channel domain.Channel) (*domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE contact_id = $1 AND channel = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, contactID, channel, domain.ConversationStatusActive))
}

func (r *conversationRepository) scanOne(row pgx.Row) (*domain.Conversation, error) {
	conversation := &domain.Conversation{}
	err := row.Scan(
		&conversation.ID, &conversation.ContactID, &conversation.Channel,
		&conversation.Status, &conversation.Priority, &conversation.LastMessageAt,
		&conversation.CreatedAt, &conversation.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to get conversation", "error", err)
		return nil, err
	}
	return conversation, nil
}

func (r *conversationRepository) List(ctx context.Context, status *domain.ConversationStatus, limit, offset int) ([]*domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY last_message_at DESC NULLS LAST
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.log.Error("Failed to list conversations", "error", err)
		return nil, err
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		conversation := &domain.Conversation{}
		err := rows.Scan(
			&conversation.ID, &conversation.ContactID, &conversation.Channel,
			&conversation.Status, &conversation.Priority, &conversation.LastMessageAt,
			&conversation.CreatedAt, &conversation.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan conversation", "error", err)
			return nil, err
		}
		conversations = append(conversations, conversation)
	}

	return conversations, rows.Err()
}

func (r *conversationRepository) Update(ctx context.Context, conversation *domain.Conversation) error {
	query := `
		UPDATE conversations
		SET status = $2, priority = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		conversation.ID, conversation.Status, conversation.Priority, time.Now(),
	)
	if err != nil {
		r.log.Error("Failed to update conversation", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConversationNotFound
	}

	return nil
}
