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

type ContactRepository interface {
	Create(ctx context.Context, contact *domain.Contact) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Contact, error)
	GetByEmail(ctx context.Context, email string) (*domain.Contact, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Contact, error)
	// UpsertByAddress resolves a contact by its normalized phone or email,
	// creating it if absent. Safe under concurrent identical webhooks: the
	// unique constraint plus ON CONFLICT makes check-then-insert races
	// impossible.
	UpsertByAddress(ctx context.Context, name string, phone, email *string) (*domain.Contact, error)
}

type contactRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewContactRepository(db *pgxpool.Pool, log logger.Logger) ContactRepository {
	return &contactRepository{db: db, log: log}
}

func (r *contactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	query := `
		INSERT INTO contacts (id, name, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING created_at
	`

	now := time.Now()
	err := r.db.QueryRow(ctx, query,
		contact.ID, contact.Name, contact.Phone, contact.Email, now,
	).Scan(&contact.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		r.log.Error("Failed to create contact", "error", err)
		return err
	}

	contact.UpdatedAt = contact.CreatedAt
	return nil
}

func (r *contactRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	return r.getOne(ctx, `SELECT id, name, phone, email, created_at, updated_at FROM contacts WHERE id = $1`, id)
}

func (r *contactRepository) GetByPhone(ctx context.Context, phone string) (*domain.Contact, error) {
	return r.getOne(ctx, `SELECT id, name, phone, email, created_at, updated_at FROM contacts WHERE phone = $1`, phone)
}

func (r *contactRepository) GetByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	return r.getOne(ctx, `SELECT id, name, phone, email, created_at, updated_at FROM contacts WHERE email = $1`, email)
}

func (r *contactRepository) getOne(ctx context.Context, query string, arg any) (*domain.Contact, error) {
	contact := &domain.Contact{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&contact.ID, &contact.Name, &contact.Phone, &contact.Email,
		&contact.CreatedAt, &contact.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrContactNotFound
		}
		r.log.Error("Failed to get contact", "error", err)
		return nil, err
	}
	return contact, nil
}

func (r *contactRepository) List(ctx context.Context, limit, offset int) ([]*domain.Contact, error) {
	query := `
		SELECT id, name, phone, email, created_at, updated_at
		FROM contacts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to list contacts", "error", err)
		return nil, err
	}
	defer rows.Close()

	var contacts []*domain.Contact
	for rows.Next() {
		contact := &domain.Contact{}
		err := rows.Scan(
			&contact.ID, &contact.Name, &contact.Phone, &contact.Email,
			&contact.CreatedAt, &contact.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan contact", "error", err)
			return nil, err
		}
		contacts = append(contacts, contact)
	}

	return contacts, rows.Err()
}

func (r *contactRepository) UpsertByAddress(ctx context.Context, name string, phone, email *string) (*domain.Contact, error) {
	if phone == nil && email == nil {
		return nil, apperrors.ErrValidation
	}

	// The conflict target depends on which address identifies the contact.
	// The no-op DO UPDATE makes RETURNING yield the existing row.
	var query string
	if phone != nil {
		query = `
			INSERT INTO contacts (id, name, phone, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (phone) DO UPDATE SET updated_at = contacts.updated_at
			RETURNING id, name, phone, email, created_at, updated_at
		`
	} else {
		query = `
			INSERT INTO contacts (id, name, phone, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (email) DO UPDATE SET updated_at = contacts.updated_at
			RETURNING id, name, phone, email, created_at, updated_at
		`
	}

	contact := &domain.Contact{}
	err := r.db.QueryRow(ctx, query, uuid.New(), name, phone, email, time.Now()).Scan(
		&contact.ID, &contact.Name, &contact.Phone, &contact.Email,
		&contact.CreatedAt, &contact.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to upsert contact", "error", err)
		return nil, err
	}

	return contact, nil
}
