package crm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"crmweb/internal/domain"
)

// ContactService defines the contact operations against the backend.
//
// This interface enables:
// - Mocking in handler tests
// - Clear contract definition for handlers
type ContactService interface {
	// List retrieves all contacts.
	List(ctx context.Context) ([]domain.Contact, error)

	// ListByCompany retrieves the contacts belonging to a company.
	ListByCompany(ctx context.Context, companyID int64) ([]domain.Contact, error)

	// ListByStatus retrieves the contacts with a given status.
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Contact, error)

	// Get retrieves a single contact by ID.
	// Returns domain.ENOTFOUND if the contact does not exist.
	Get(ctx context.Context, id int64) (*domain.Contact, error)

	// Create creates a new contact.
	// Returns domain.EINVALID when the backend rejects the payload.
	Create(ctx context.Context, payload domain.ContactPayload) (*domain.Contact, error)

	// Update replaces an existing contact.
	// Returns domain.ENOTFOUND if the contact does not exist.
	Update(ctx context.Context, id int64, payload domain.ContactPayload) (*domain.Contact, error)

	// Delete removes a contact by ID.
	// Returns domain.ENOTFOUND if the contact does not exist.
	Delete(ctx context.Context, id int64) error
}

type contactService struct {
	client *Client
	logger *slog.Logger
}

func NewContactService(client *Client, logger *slog.Logger) ContactService {
	return &contactService{client: client, logger: logger}
}

func (s *contactService) List(ctx context.Context) ([]domain.Contact, error) {
	const op = "contact.list"

	var contacts []domain.Contact
	if err := s.client.do(ctx, op, http.MethodGet, "/contacts", nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *contactService) ListByCompany(ctx context.Context, companyID int64) ([]domain.Contact, error) {
	const op = "contact.listByCompany"

	var contacts []domain.Contact
	path := fmt.Sprintf("/contacts/company/%d", companyID)
	if err := s.client.do(ctx, op, http.MethodGet, path, nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *contactService) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Contact, error) {
	const op = "contact.listByStatus"

	if !status.IsValid() {
		return nil, domain.Invalid(op, "Unknown status filter")
	}

	var contacts []domain.Contact
	path := "/contacts/status/" + url.PathEscape(string(status))
	if err := s.client.do(ctx, op, http.MethodGet, path, nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *contactService) Get(ctx context.Context, id int64) (*domain.Contact, error) {
	const op = "contact.get"

	var contact domain.Contact
	path := fmt.Sprintf("/contacts/%d", id)
	if err := s.client.do(ctx, op, http.MethodGet, path, nil, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *contactService) Create(ctx context.Context, payload domain.ContactPayload) (*domain.Contact, error) {
	const op = "contact.create"

	var contact domain.Contact
	if err := s.client.do(ctx, op, http.MethodPost, "/contacts", payload, &contact); err != nil {
		return nil, err
	}

	s.logger.Info("contact created", "contact_id", contact.ID)
	return &contact, nil
}

func (s *contactService) Update(ctx context.Context, id int64, payload domain.ContactPayload) (*domain.Contact, error) {
	const op = "contact.update"

	var contact domain.Contact
	path := fmt.Sprintf("/contacts/%d", id)
	if err := s.client.do(ctx, op, http.MethodPut, path, payload, &contact); err != nil {
		return nil, err
	}

	s.logger.Info("contact updated", "contact_id", id)
	return &contact, nil
}

func (s *contactService) Delete(ctx context.Context, id int64) error {
	const op = "contact.delete"

	path := fmt.Sprintf("/contacts/%d", id)
	if err := s.client.do(ctx, op, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}

	s.logger.Info("contact deleted", "contact_id", id)
	return nil
}
