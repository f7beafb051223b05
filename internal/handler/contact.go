// Package handler contains HTTP handlers for the CRM front-end.
//
// This file implements contact CRUD handlers backed by the CRM API.
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

// ContactListPageData contains data for the contact list page.
type ContactListPageData struct {
	CurrentPath string           // Current URL path
	User        *domain.User     // Authenticated user
	Contacts    []domain.Contact // List of contacts
	Status      string           // Active status filter (empty for all)
	CompanyID   string           // Active company filter (empty for all)
	Flash       *Flash           // Flash message (if any)
	CSRFToken   string           // CSRF token for form protection
}

// ContactFormPageData contains data for the contact create/edit form.
type ContactFormPageData struct {
	CurrentPath string              // Current URL path
	User        *domain.User        // Authenticated user
	Contact     *domain.Contact     // Contact being edited (nil for create)
	Companies   []domain.Company    // Companies for the association select
	Form        domain.ContactDraft // Form field values
	Errors      map[string]string   // Field-level validation errors
	Flash       *Flash              // Flash message (if any)
	IsEdit      bool                // true for edit, false for create
	CSRFToken   string              // CSRF token for form protection
}

// =============================================================================
// Handler Configuration
// =============================================================================

// ContactHandler handles contact-related HTTP requests.
type ContactHandler struct {
	contacts  crm.ContactService
	companies crm.CompanyService
	renderer  TemplateRenderer
	logger    *slog.Logger
	isSecure  bool
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(
	contacts crm.ContactService,
	companies crm.CompanyService,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *ContactHandler {
	return &ContactHandler{
		contacts:  contacts,
		companies: companies,
		renderer:  renderer,
		logger:    logger,
		isSecure:  isSecure,
	}
}

// =============================================================================
// GET /contacts - List Contacts
// =============================================================================

// Index renders the contact list page.
//
// Query Parameters:
// - status (optional): filter contacts by status
// - company (optional): filter contacts by company ID
// - created/updated/deleted (optional): "1" shows the matching success flash
//
// A backend failure is not fatal; the page renders with an empty list and
// an error flash so the user can retry.
func (h *ContactHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	status := r.URL.Query().Get("status")
	companyID := r.URL.Query().Get("company")

	contacts, err := h.listContacts(r, status, companyID)
	flash := contactIndexFlash(r)
	if err != nil {
		h.logger.Error("failed to fetch contacts", "error", err, "status", status, "company", companyID)
		contacts = []domain.Contact{}
		flash = &Flash{Type: "error", Message: "Failed to fetch contacts"}
	}

	data := ContactListPageData{
		CurrentPath: r.URL.Path,
		User:        &sess.User,
		Contacts:    contacts,
		Status:      status,
		CompanyID:   companyID,
		Flash:       flash,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	h.renderer.RenderHTTP(w, "contacts/index", data)
}

// listContacts fetches the contact list applying at most one filter.
// The status filter wins when both are present.
func (h *ContactHandler) listContacts(r *http.Request, status, companyID string) ([]domain.Contact, error) {
	switch {
	case status != "":
		return h.contacts.ListByStatus(r.Context(), domain.Status(status))
	case companyID != "":
		id, err := strconv.ParseInt(companyID, 10, 64)
		if err != nil {
			return nil, domain.Invalid("contact.list", "company filter must be a number")
		}
		return h.contacts.ListByCompany(r.Context(), id)
	default:
		return h.contacts.List(r.Context())
	}
}

// contactIndexFlash maps post-mutation query parameters to a flash message.
func contactIndexFlash(r *http.Request) *Flash {
	q := r.URL.Query()
	switch {
	case q.Get("created") == "1":
		return &Flash{Type: "success", Message: "Contact created successfully"}
	case q.Get("updated") == "1":
		return &Flash{Type: "success", Message: "Contact updated successfully"}
	case q.Get("deleted") == "1":
		return &Flash{Type: "success", Message: "Contact deleted successfully"}
	case q.Get("error") == "delete_failed":
		return &Flash{Type: "error", Message: "Failed to delete contact"}
	case q.Get("error") == "invalid_token":
		return &Flash{Type: "error", Message: "Invalid security token. Please try again."}
	}
	return nil
}

// =============================================================================
// GET /contacts/new - New Contact Form
// =============================================================================

// New renders the contact creation form.
func (h *ContactHandler) New(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := ContactFormPageData{
		CurrentPath: r.URL.Path,
		User:        &sess.User,
		Companies:   h.loadCompanies(r),
		Form:        domain.NewContactDraft(),
		Errors:      make(map[string]string),
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	h.renderer.RenderHTTP(w, "contacts/new", data)
}

// loadCompanies fetches companies for the association select. A failure
// degrades to an empty select rather than blocking the form.
func (h *ContactHandler) loadCompanies(r *http.Request) []domain.Company {
	companies, err := h.companies.List(r.Context())
	if err != nil {
		h.logger.Warn("failed to fetch companies for select", "error", err)
		return []domain.Company{}
	}
	return companies
}

// =============================================================================
// POST /contacts - Create Contact
// =============================================================================

// Create processes the contact creation form.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderFormError(w, r, sess, domain.NewContactDraft(), nil, nil,
			"Invalid form submission.", false)
		return
	}

	draft := contactDraftFromForm(r)

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

	if _, err := h.contacts.Create(r.Context(), payload); err != nil {
		switch domain.ErrorCode(err) {
		case domain.EINVALID:
			h.renderFormError(w, r, sess, draft, nil, nil, domain.ErrorMessage(err), false)
		default:
			h.logger.Error("failed to create contact", "error", err)
			h.renderFormError(w, r, sess, draft, nil, nil, "Failed to save contact", false)
		}
		return
	}

	http.Redirect(w, r, "/contacts?created=1", http.StatusSeeOther)
}

// =============================================================================
// GET /contacts/{id}/edit - Edit Contact Form
// =============================================================================

// Edit renders the contact edit form seeded from the current record.
func (h *ContactHandler) Edit(w http.ResponseWriter, r *http.Request) {
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

	contact, err := h.contacts.Get(r.Context(), id)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			NotFoundResponse(w, r, h.logger)
			return
		}
		h.logger.Error("failed to fetch contact", "error", err, "contact_id", id)
		ErrorResponse(w, r, h.logger, err)
		return
	}

	data := ContactFormPageData{
		CurrentPath: r.URL.Path,
		User:        &sess.User,
		Contact:     contact,
		Companies:   h.loadCompanies(r),
		Form:        domain.DraftFromContact(contact),
		Errors:      make(map[string]string),
		IsEdit:      true,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	h.renderer.RenderHTTP(w, "contacts/edit", data)
}

// =============================================================================
// POST /contacts/{id} - Update Contact
// =============================================================================

// Update processes the contact edit form.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	contact, err := h.contacts.Get(r.Context(), id)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			NotFoundResponse(w, r, h.logger)
			return
		}
		h.logger.Error("failed to fetch contact", "error", err, "contact_id", id)
		h.renderFormError(w, r, sess, contactDraftFromForm(r), nil, &domain.Contact{ID: id},
			"Failed to save contact", true)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderFormError(w, r, sess, domain.DraftFromContact(contact), nil, contact,
			"Invalid form submission.", true)
		return
	}

	draft := contactDraftFromForm(r)

	if !csrf.ValidateRequest(r) {
		h.renderFormError(w, r, sess, draft, nil, contact,
			"Invalid security token. Please try again.", true)
		return
	}

	if errs := draft.Validate(); len(errs) > 0 {
		h.renderFormError(w, r, sess, draft, errs, contact, "", true)
		return
	}

	payload, err := draft.Payload()
	if err != nil {
		h.renderFormError(w, r, sess, draft, nil, contact, domain.ErrorMessage(err), true)
		return
	}

	if _, err := h.contacts.Update(r.Context(), id, payload); err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND:
			NotFoundResponse(w, r, h.logger)
		case domain.EINVALID:
			h.renderFormError(w, r, sess, draft, nil, contact, domain.ErrorMessage(err), true)
		default:
			h.logger.Error("failed to update contact", "error", err, "contact_id", id)
			h.renderFormError(w, r, sess, draft, nil, contact, "Failed to save contact", true)
		}
		return
	}

	http.Redirect(w, r, "/contacts?updated=1", http.StatusSeeOther)
}

// =============================================================================
// POST /contacts/{id}/delete - Delete Contact
// =============================================================================

// Delete deletes a contact after confirmation.
//
// The form must carry confirm=1; the browser dialog sets it, and the
// server-side check means a stray POST without confirmation is a no-op.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		http.Redirect(w, r, "/contacts?error=delete_failed", http.StatusSeeOther)
		return
	}

	if !csrf.ValidateRequest(r) {
		http.Redirect(w, r, "/contacts?error=invalid_token", http.StatusSeeOther)
		return
	}

	if r.FormValue("confirm") != "1" {
		http.Redirect(w, r, "/contacts", http.StatusSeeOther)
		return
	}

	if err := h.contacts.Delete(r.Context(), id); err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			NotFoundResponse(w, r, h.logger)
			return
		}
		h.logger.Error("failed to delete contact", "error", err, "contact_id", id)
		http.Redirect(w, r, "/contacts?error=delete_failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/contacts?deleted=1", http.StatusSeeOther)
}

// =============================================================================
// Helper Functions
// =============================================================================

// contactDraftFromForm builds a draft from the submitted form values.
func contactDraftFromForm(r *http.Request) domain.ContactDraft {
	return domain.ContactDraft{
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Email:     r.FormValue("email"),
		Phone:     r.FormValue("phone"),
		Position:  r.FormValue("position"),
		CompanyID: r.FormValue("company_id"),
		Status:    r.FormValue("status"),
	}
}

// renderFormError re-renders the contact form with errors.
func (h *ContactHandler) renderFormError(
	w http.ResponseWriter,
	r *http.Request,
	sess *domain.Session,
	draft domain.ContactDraft,
	fieldErrors map[string]string,
	contact *domain.Contact,
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

	data := ContactFormPageData{
		CurrentPath: r.URL.Path,
		User:        &sess.User,
		Contact:     contact,
		Companies:   h.loadCompanies(r),
		Form:        draft,
		Errors:      fieldErrors,
		Flash:       flash,
		IsEdit:      isEdit,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	name := "contacts/new"
	if isEdit {
		name = "contacts/edit"
	}
	h.renderer.RenderHTTP(w, name, data)
}
