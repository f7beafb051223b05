// Package handler contains HTTP handlers for the CRM front-end.
//
// This file implements the dashboard overview page.
package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"crmweb/internal/auth"
	"crmweb/internal/crm"
	"crmweb/internal/csrf"
	"crmweb/internal/domain"
)

// DashboardPageData contains data for the dashboard page.
type DashboardPageData struct {
	CurrentPath    string           // Current URL path
	User           *domain.User     // Authenticated user
	TotalContacts  int              // Number of contacts in the CRM
	TotalCompanies int              // Number of companies in the CRM
	ActiveDeals    int              // Placeholder until the deals API lands
	TotalRevenue   float64          // Placeholder until the deals API lands
	RecentContacts []domain.Contact // Most recently listed contacts
	Flash          *Flash           // Flash message (if any)
	CSRFToken      string           // CSRF token for form protection
}

// recentContactCount caps the recent activity list on the dashboard.
const recentContactCount = 5

// DashboardHandler handles the dashboard page.
type DashboardHandler struct {
	contacts  crm.ContactService
	companies crm.CompanyService
	renderer  TemplateRenderer
	logger    *slog.Logger
	isSecure  bool
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(
	contacts crm.ContactService,
	companies crm.CompanyService,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *DashboardHandler {
	return &DashboardHandler{
		contacts:  contacts,
		companies: companies,
		renderer:  renderer,
		logger:    logger,
		isSecure:  isSecure,
	}
}

// Show renders the dashboard.
//
// Contact and company counts load concurrently. A failure in either load
// degrades that stat to zero with an error flash instead of failing the
// whole page.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	var (
		wg         sync.WaitGroup
		contacts   []domain.Contact
		companies  []domain.Company
		contactErr error
		companyErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		contacts, contactErr = h.contacts.List(r.Context())
	}()
	go func() {
		defer wg.Done()
		companies, companyErr = h.companies.List(r.Context())
	}()
	wg.Wait()

	var flash *Flash
	if contactErr != nil || companyErr != nil {
		h.logger.Error("failed to load dashboard data",
			"contact_error", contactErr,
			"company_error", companyErr,
		)
		flash = &Flash{Type: "error", Message: "Some dashboard data could not be loaded"}
	}

	recent := contacts
	if len(recent) > recentContactCount {
		recent = recent[:recentContactCount]
	}

	data := DashboardPageData{
		CurrentPath:    r.URL.Path,
		User:           &sess.User,
		TotalContacts:  len(contacts),
		TotalCompanies: len(companies),
		// Deals are not exposed by the backend yet; show the demo figures
		ActiveDeals:    15,
		TotalRevenue:   125000,
		RecentContacts: recent,
		Flash:          flash,
		CSRFToken:      csrf.EnsureToken(w, r, h.isSecure),
	}

	h.renderer.RenderHTTP(w, "dashboard", data)
}
