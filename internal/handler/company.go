// Package handler contains HTTP handlers for the CRM front-end.
//
// This file implements company CRUD handlers backed by the CRM API.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"crmweb/internal/auth"
	"crmweb/internal/crm"
	"crmweb/internal/csrf"
	"crmweb/internal/domain"
)

// =============================================================================
// Template Data Types
// =============================================================================

// CompanyListPageData contains data for the company list page.
type CompanyListPageData struct {
	CurrentPath string           // Current URL path
	User        *domain.User     // Authenticated user
	Companies   []domain.Company // List of companies
	Status      string           // Active status filter (empty for all)
	Industry    string           // Active industry filter (empty for all)
	Flash       *Flash           // Flash message (if any)
	CSRFToken   string           // CSRF token for form protection
}

// CompanyFormPageData contains data for the company create/edit form.
type CompanyFormPageData struct {
	CurrentPath string              // Current URL path
	User        *domain.User        // Authenticated user
	Company     *domain.Company     // Company being edited (nil for create)
	Form        domain.CompanyDraft // Form field values
	Errors      map[string]string   // Field-level validation errors
	Flash       *Flash              // Flash message (if any)
	IsEdit      bool                // true for edit, false for create
	CSRFToken   string              // CSRF token for form protection
}

// =============================================================================
// Handler Configuration
// =============================================================================

// CompanyHandler handles company-related HTTP requests.
type CompanyHandler struct {
	companies crm.CompanyService
	renderer  TemplateRenderer
	logger    *slog.Logger
	isSecure  bool
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(
	companies crm.CompanyService,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *CompanyHandler {
	return &CompanyHandler{
		companies: companies,
		renderer:  renderer,
		logger:    logger,
		isSecure:  isSecure,
	}
}

// =============================================================================
// GET /companies - List Companies
// =============================================================================

// Index renders the company list page.
//
// Query Parameters:
// - status (optional): filter companies by status
// - industry (optional): filter companies by industry
// - created/updated/deleted (optional): "1" shows the matching success flash
func (h *CompanyHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	status := r.URL.Query().Get("status")
	industry := r.URL.Query().Get("industry")

	companies, err := h.listCompanies(r, status, industry)
	flash := companyIndexFlash(r)
	if err != nil {
		h.logger.Error("failed to fetch companies", "error", err, "status", status, "industry", industry)
		companies = []domain.Company{}
		flash = &Flash{Type: "error", Message: "Failed to fetch companies"}
	}

	data := CompanyListPageData{
		CurrentPath: r.URL.Path,
		User:        &sess.User,
		Companies:   companies,
		Status:      status,
		Industry:    industry,
		Flash:       flash,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	h.renderer.RenderHTTP(w, "companies/index", data)
}

// listCompanies fetches the company list applying at most one filter.
// The status filter wins when both are present.
func (h *CompanyHandler) listCompanies(r *http.Request, status, industry string) ([]domain.Company, error) {
	switch {
	case status != "":
		return h.companies.ListByStatus(r.Context(), domain.Status(status))
	case industry != "":
		return h.companies.ListByIndustry(r.Context(), industry)
	default:
		return h.companies.List(r.Context())
	}
}

// companyIndexFlash maps post-mutation query parameters to a flash message.
func companyIndexFlash(r *http.Request) *Flash {
	q := r.URL.Query()
	switch {
	case q.Get("created") == "1":
		return &Flash{Type: "success", Message: "Company created successfully"}
	case q.Get("updated") == "1":
		return &Flash{Type: "success", Message: "Company updated successfully"}
	case q.Get("deleted") == "1":
		return &Flash{Type: "success", Message: "Company deleted successfully"}
	case q.Get("error") == "delete_failed":
		return &Flash{Type: "error", Message: "Failed to delete company"}
	case q.Get("error") == "invalid_token":
		return &Flash{Type: "error", Message: "Invalid security token. Please try again."}
	}
	return nil
}

// =============================================================================
// GET /companies/new - New Company Form
// =============================================================================

// New renders the company creation form.
func (h *CompanyHandler) New(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := CompanyFormPageData{
		CurrentPath: r.URL.Path,
		User:        &sess.User,
		Form:        domain.NewCompanyDraft(),
		Errors:      make(map[string]string),
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	h.renderer.RenderHTTP(w, "companies/new", data)
}

// =============================================================================
// POST /companies - Create Company
// =============================================================================

// Create processes the company creation form.
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderFormError(w, r, sess, domain.NewCompanyDraft(), nil, nil,
			"Invalid form submission.", false)
		return
	}

	draft := companyDraftFromForm(r)

	if !csrf.ValidateRequest(r) {
		h.renderFormError(w, r, sess, draft, nil, nil,
			"Invalid security token. Please try again.", false)
		return
	}

	if errs := draft.Validate(); len(errs) > 0 {
		h.renderFormError(w, r, sess, draft, errs, nil, "", false)
		return
	}

	payload, err := draft.Payload()
	if err != nil {
		h.renderFormError(w, r, sess, draft, nil, nil, domain.ErrorMessage(err), false)
		return
	}

	if _, err := h.companies.Create(r.Context(), payload); err != nil {
		switch domain.ErrorCode(err) {
		case domain.EINVALID:
			h.renderFormError(w, r, sess, draft, nil, nil, domain.ErrorMessage(err), false)
		default:
			h.logger.Error("failed to create company", "error", err)
			h.renderFormError(w, r, sess, draft, nil, nil, "Failed to save company", false)
		}
		return
	}

	http.Redirect(w, r, "/companies?created=1", http.StatusSeeOther)
}

// =============================================================================
// GET /companies/{id}/edit - Edit Company Form
// =============================================================================

// Edit renders the company edit form seeded from the current record.
func (h *CompanyHandler) Edit(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	company, err := h.companies.Get(r.Context(), id)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			NotFoundResponse(w, r, h.logger)
			return
		}
		h.logger.Error("failed to fetch company", "error", err, "company_id", id)
		ErrorResponse(w, r, h.logger, err)
		return
	}

	data := CompanyFormPageData{
		CurrentPath: r.URL.Path,
		User:        &sess.User,
		Company:     company,
		Form:        domain.DraftFromCompany(company),
		Errors:      make(map[string]string),
		IsEdit:      true,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	h.renderer.RenderHTTP(w, "companies/edit", data)
}

// =============================================================================
// POST /companies/{id} - Update Company
// =============================================================================

// Update processes the company edit form.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	// Fetch current record so error re-renders keep the edit context. A
	// transient backend failure must not eat the submitted draft, so only
	// a missing record becomes a 404.
	company, err := h.companies.Get(r.Context(), id)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			NotFoundResponse(w, r, h.logger)
			return
		}
		h.logger.Error("failed to fetch company", "error", err, "company_id", id)
		h.renderFormError(w, r, sess, companyDraftFromForm(r), nil, &domain.Company{ID: id},
			"Failed to save company", true)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderFormError(w, r, sess, domain.DraftFromCompany(company), nil, company,
			"Invalid form submission.", true)
		return
	}

	draft := companyDraftFromForm(r)

	if !csrf.ValidateRequest(r) {
		h.renderFormError(w, r, sess, draft, nil, company,
			"Invalid security token. Please try again.", true)
		return
	}

	if errs := draft.Validate(); len(errs) > 0 {
		h.renderFormError(w, r, sess, draft, errs, company, "", true)
		return
	}

	payload, err := draft.Payload()
	if err != nil {
		h.renderFormError(w, r, sess, draft, nil, company, domain.ErrorMessage(err), true)
		return
	}

	if _, err := h.companies.Update(r.Context(), id, payload); err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND:
			NotFoundResponse(w, r, h.logger)
		case domain.EINVALID:
			h.renderFormError(w, r, sess, draft, nil, company, domain.ErrorMessage(err), true)
		default:
			h.logger.Error("failed to update company", "error", err, "company_id", id)
			h.renderFormError(w, r, sess, draft, nil, company, "Failed to save company", true)
		}
		return
	}

	http.Redirect(w, r, "/companies?updated=1", http.StatusSeeOther)
}

// =============================================================================
// POST /companies/{id}/delete - Delete Company
// =============================================================================

// Delete deletes a company after confirmation.
//
// The form must carry confirm=1; the browser dialog sets it, and the
// server-side check means a stray POST without confirmation is a no-op.
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/companies?error=delete_failed", http.StatusSeeOther)
		return
	}

	if !csrf.ValidateRequest(r) {
		http.Redirect(w, r, "/companies?error=invalid_token", http.StatusSeeOther)
		return
	}

	if r.FormValue("confirm") != "1" {
		http.Redirect(w, r, "/companies", http.StatusSeeOther)
		return
	}

	if err := h.companies.Delete(r.Context(), id); err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			NotFoundResponse(w, r, h.logger)
			return
		}
		h.logger.Error("failed to delete company", "error", err, "company_id", id)
		http.Redirect(w, r, "/companies?error=delete_failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/companies?deleted=1", http.StatusSeeOther)
}

// =============================================================================
// Helper Functions
// =============================================================================

// companyDraftFromForm builds a draft from the submitted form values.
func companyDraftFromForm(r *http.Request) domain.CompanyDraft {
	return domain.CompanyDraft{
		Name:     r.FormValue("name"),
		Industry: r.FormValue("industry"),
		Size:     r.FormValue("size"),
		Website:  r.FormValue("website"),
		Status:   r.FormValue("status"),
		Revenue:  r.FormValue("revenue"),
	}
}

// renderFormError re-renders the company form with errors.
func (h *CompanyHandler) renderFormError(
	w http.ResponseWriter,
	r *http.Request,
	sess *domain.Session,
	draft domain.CompanyDraft,
	fieldErrors map[string]string,
	company *domain.Company,
	flashMessage string,
	isEdit bool,
) {
	if fieldErrors == nil {
		fieldErrors = make(map[string]string)
	}

	var flash *Flash
	if flashMessage != "" {
		flash = &Flash{Type: "error", Message: flashMessage}
	}

	data := CompanyFormPageData{
		CurrentPath: r.URL.Path,
		User:        &sess.User,
		Company:     company,
		Form:        draft,
		Errors:      fieldErrors,
		Flash:       flash,
		IsEdit:      isEdit,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	name := "companies/new"
	if isEdit {
		name = "companies/edit"
	}
	h.renderer.RenderHTTP(w, name, data)
}
