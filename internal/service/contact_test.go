package service

import (
	"context"
	"errors"
	"testing"

	"team_inbox/internal/domain"
	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

func strPtr(s string) *string { return &s }

func TestCreateContactValidation(t *testing.T) {
	svc := NewContactService(newFakeContactRepo(), logger.NewNop())

	tests := []struct {
		name    string
		contact *domain.Contact
		field   string
	}{
		{"missing name", &domain.Contact{Phone: strPtr("+15551234567")}, "name"},
		{"no address", &domain.Contact{Name: "Ada"}, "contact"},
		{"bad phone", &domain.Contact{Name: "Ada", Phone: strPtr("555-1234")}, "phone"},
		{"bad email", &domain.Contact{Name: "Ada", Email: strPtr("not-an-email")}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateContact(context.Background(), tt.contact)
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}

			var validationErr *apperrors.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatal("expected *ValidationError")
			}
			if _, ok := validationErr.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want entry for %q", validationErr.Fields, tt.field)
			}
		})
	}
}

func TestCreateContactAssignsID(t *testing.T) {
	repo := newFakeContactRepo()
	svc := NewContactService(repo, logger.NewNop())

	contact := &domain.Contact{Name: "Ada Lovelace", Phone: strPtr("+15551234567"), Email: strPtr("ada@example.com")}
	if err := svc.CreateContact(context.Background(), contact); err != nil {
		t.Fatalf("CreateContact: %v", err)
	}

	if contact.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("ID should be assigned")
	}
	if _, err := repo.GetByID(context.Background(), contact.ID); err != nil {
		t.Errorf("contact not persisted: %v", err)
	}
}
