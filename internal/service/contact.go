package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"team_inbox/internal/domain"
	"team_inbox/internal/repository"
	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

var (
	phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

type ContactService interface {
	CreateContact(ctx context.Context, contact *domain.Contact) error
	GetContact(ctx context.Context, id uuid.UUID) (*domain.Contact, error)
	ListContacts(ctx context.Context, limit, offset int) ([]*domain.Contact, error)
}

type contactService struct {
	contactRepo repository.ContactRepository
	log         logger.Logger
}

func NewContactService(contactRepo repository.ContactRepository, log logger.Logger) ContactService {
	return &contactService{contactRepo: contactRepo, log: log}
}

func (s *contactService) CreateContact(ctx context.Context, contact *domain.Contact) error {
	fields := map[string]string{}

	contact.Name = strings.TrimSpace(contact.Name)
	if contact.Name == "" {
		fields["name"] = "name is required"
	}
	if contact.Phone == nil && contact.Email == nil {
		fields["contact"] = "at least one of phone or email is required"
	}
	if contact.Phone != nil && !phonePattern.MatchString(*contact.Phone) {
		fields["phone"] = "phone must be in E.164 format"
	}
	if contact.Email != nil && !emailPattern.MatchString(*contact.Email) {
		fields["email"] = "invalid email address"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError(fields)
	}

	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}

	return s.contactRepo.Create(ctx, contact)
}

func (s *contactService) GetContact(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	return s.contactRepo.GetByID(ctx, id)
}

func (s *contactService) ListContacts(ctx context.Context, limit, offset int) ([]*domain.Contact, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.contactRepo.List(ctx, limit, offset)
}
