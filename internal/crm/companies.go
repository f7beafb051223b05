package crm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"crmweb/internal/domain"
)

// CompanyService defines the company operations against the backend.
type CompanyService interface {
	// List retrieves all companies.
	List(ctx context.Context) ([]domain.Company, error)

	// ListByIndustry retrieves the companies in a given industry.
	ListByIndustry(ctx context.Context, industry string) ([]domain.Company, error)

	// ListByStatus retrieves the companies with a given status.
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Company, error)

	// Get retrieves a single company by ID.
	// Returns domain.ENOTFOUND if the company does not exist.
	Get(ctx context.Context, id int64) (*domain.Company, error)

	// Create creates a new company.
	// Returns domain.EINVALID when the backend rejects the payload.
	Create(ctx context.Context, payload domain.CompanyPayload) (*domain.Company, error)

	// Update replaces an existing company.
	// Returns domain.ENOTFOUND if the company does not exist.
	Update(ctx context.Context, id int64, payload domain.CompanyPayload) (*domain.Company, error)

	// Delete removes a company by ID.
	// Returns domain.ENOTFOUND if the company does not exist.
	Delete(ctx context.Context, id int64) error
}

type companyService struct {
	client *Client
	logger *slog.Logger
}

func NewCompanyService(client *Client, logger *slog.Logger) CompanyService {
	return &companyService{client: client, logger: logger}
}

func (s *companyService) List(ctx context.Context) ([]domain.Company, error) {
	const op = "company.list"

	var companies []domain.Company
	if err := s.client.do(ctx, op, http.MethodGet, "/companies", nil, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

func (s *companyService) ListByIndustry(ctx context.Context, industry string) ([]domain.Company, error) {
	const op = "company.listByIndustry"

	industry = strings.TrimSpace(industry)
	if industry == "" {
		return nil, domain.Invalid(op, "Industry filter is required")
	}

	var companies []domain.Company
	path := "/companies/industry/" + url.PathEscape(industry)
	if err := s.client.do(ctx, op, http.MethodGet, path, nil, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

func (s *companyService) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Company, error) {
	const op = "company.listByStatus"

	if !status.IsValid() {
		return nil, domain.Invalid(op, "Unknown status filter")
	}

	var companies []domain.Company
	path := "/companies/status/" + url.PathEscape(string(status))
	if err := s.client.do(ctx, op, http.MethodGet, path, nil, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

func (s *companyService) Get(ctx context.Context, id int64) (*domain.Company, error) {
	const op = "company.get"

	var company domain.Company
	path := fmt.Sprintf("/companies/%d", id)
	if err := s.client.do(ctx, op, http.MethodGet, path, nil, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

func (s *companyService) Create(ctx context.Context, payload domain.CompanyPayload) (*domain.Company, error) {
	const op = "company.create"

	var company domain.Company
	if err := s.client.do(ctx, op, http.MethodPost, "/companies", payload, &company); err != nil {
		return nil, err
	}

	s.logger.Info("company created", "company_id", company.ID)
	return &company, nil
}

func (s *companyService) Update(ctx context.Context, id int64, payload domain.CompanyPayload) (*domain.Company, error) {
	const op = "company.update"

	var company domain.Company
	path := fmt.Sprintf("/companies/%d", id)
	if err := s.client.do(ctx, op, http.MethodPut, path, payload, &company); err != nil {
		return nil, err
	}

	s.logger.Info("company updated", "company_id", id)
	return &company, nil
}

func (s *companyService) Delete(ctx context.Context, id int64) error {
	const op = "company.delete"

	path := fmt.Sprintf("/companies/%d", id)
	if err := s.client.do(ctx, op, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}

	s.logger.Info("company deleted", "company_id", id)
	return nil
}
