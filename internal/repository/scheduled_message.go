package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"team_inbox/internal/domain"
	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

type ScheduledMessageRepository interface {
	Create(ctx context.Context, scheduled *domain.ScheduledMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledMessage, error)
	List(ctx context.Context, status *domain.ScheduleStatus, limit, offset int) ([]*domain.ScheduledMessage, error)
	// ListDue returns pending rows with scheduled_for <= now, oldest first,
	// bounded by limit.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledMessage, error)
	// UpdatePending rewrites content/variables/scheduled_for only while the
	// row is still pending; returns ErrInvalidScheduleState otherwise.
	UpdatePending(ctx context.Context, scheduled *domain.ScheduledMessage) error
	CancelPending(ctx context.Context, id uuid.UUID) error
	MarkSent(ctx context.Context, id, messageID uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

const scheduledColumns = `id, conversation_id, contact_id, channel, content, template_id, variables,
	scheduled_for, status, message_id, last_error, created_at, updated_at`

type scheduledMessageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewScheduledMessageRepository(db *pgxpool.Pool, log logger.Logger) ScheduledMessageRepository {
	return &scheduledMessageRepository{db: db, log: log}
}

func (r *scheduledMessageRepository) Create(ctx context.Context, scheduled *domain.ScheduledMessage) error {
	variables, err := json.Marshal(scheduled.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}

	query := `
		INSERT INTO scheduled_messages (id, conversation_id, contact_id, channel, content,
			template_id, variables, scheduled_for, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING created_at
	`

	err = r.db.QueryRow(ctx, query,
		scheduled.ID, scheduled.ConversationID, scheduled.ContactID, scheduled.Channel,
		scheduled.Content, scheduled.TemplateID, variables, scheduled.ScheduledFor,
		scheduled.Status, time.Now(),
	).Scan(&scheduled.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create scheduled message", "error", err)
		return err
	}

	scheduled.UpdatedAt = scheduled.CreatedAt
	return nil
}

func (r *scheduledMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledMessage, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled_messages WHERE id = $1`

	scheduled, err := r.scanOne(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get scheduled message", "error", err)
		return nil, err
	}
	return scheduled, nil
}

func (r *scheduledMessageRepository) scanOne(row pgx.Row) (*domain.ScheduledMessage, error) {
	scheduled := &domain.ScheduledMessage{}
	var variables []byte

	err := row.Scan(
		&scheduled.ID, &scheduled.ConversationID, &scheduled.ContactID, &scheduled.Channel,
		&scheduled.Content, &scheduled.TemplateID, &variables, &scheduled.ScheduledFor,
		&scheduled.Status, &scheduled.MessageID, &scheduled.LastError,
		&scheduled.CreatedAt, &scheduled.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &scheduled.Variables); err != nil {
			return nil, fmt.Errorf("unmarshal variables: %w", err)
		}
	}

	return scheduled, nil
}

func (r *scheduledMessageRepository) List(ctx context.Context, status *domain.ScheduleStatus, limit, offset int) ([]*domain.ScheduledMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT ` + scheduledColumns + `
		FROM scheduled_messages
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY scheduled_for ASC
		LIMIT $2 OFFSET $3
	`

	return r.queryMany(ctx, query, status, limit, offset)
}

func (r *scheduledMessageRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledMessage, error) {
	query := `
		SELECT ` + scheduledColumns + `
		FROM scheduled_messages
		WHERE status = 'pending' AND scheduled_for <= $1
		ORDER BY scheduled_for ASC
		LIMIT $2
	`

	return r.queryMany(ctx, query, now, limit)
}

func (r *scheduledMessageRepository) queryMany(ctx context.Context, query string, args ...any) ([]*domain.ScheduledMessage, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query scheduled messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	var scheduled []*domain.ScheduledMessage
	for rows.Next() {
		item, err := r.scanOne(rows)
		if err != nil {
			r.log.Error("Failed to scan scheduled message", "error", err)
			return nil, err
		}
		scheduled = append(scheduled, item)
	}

	return scheduled, rows.Err()
}

func (r *scheduledMessageRepository) UpdatePending(ctx context.Context, scheduled *domain.ScheduledMessage) error {
	variables, err := json.Marshal(scheduled.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}

	query := `
		UPDATE scheduled_messages
		SET content = $2, template_id = $3, variables = $4, scheduled_for = $5, updated_at = $6
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query,
		scheduled.ID, scheduled.Content, scheduled.TemplateID, variables,
		scheduled.ScheduledFor, time.Now(),
	)
	if err != nil {
		r.log.Error("Failed to update scheduled message", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidScheduleState
	}

	return nil
}

func (r *scheduledMessageRepository) CancelPending(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE scheduled_messages
		SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, id, time.Now())
	if err != nil {
		r.log.Error("Failed to cancel scheduled message", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidScheduleState
	}

	return nil
}

func (r *scheduledMessageRepository) MarkSent(ctx context.Context, id, messageID uuid.UUID) error {
	query := `
		UPDATE scheduled_messages
		SET status = 'sent', message_id = $2, last_error = NULL, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, id, messageID, time.Now())
	if err != nil {
		r.log.Error("Failed to mark scheduled message sent", "error", err)
	}
	return err
}

func (r *scheduledMessageRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE scheduled_messages
		SET status = 'failed', last_error = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, id, reason, time.Now())
	if err != nil {
		r.log.Error("Failed to mark scheduled message failed", "error", err)
	}
	return err
}
