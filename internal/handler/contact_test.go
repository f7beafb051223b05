package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"crmweb/internal/csrf"
	"crmweb/internal/domain"
)

// =============================================================================
// Mock ContactService Implementation
// =============================================================================

// mockContactService implements the crm.ContactService interface for testing.
type mockContactService struct {
	ListFunc          func(ctx context.Context) ([]domain.Contact, error)
	ListByCompanyFunc func(ctx context.Context, companyID int64) ([]domain.Contact, error)
	ListByStatusFunc  func(ctx context.Context, status domain.Status) ([]domain.Contact, error)
	GetFunc           func(ctx context.Context, id int64) (*domain.Contact, error)
	CreateFunc        func(ctx context.Context, payload domain.ContactPayload) (*domain.Contact, error)
	UpdateFunc        func(ctx context.Context, id int64, payload domain.ContactPayload) (*domain.Contact, error)
	DeleteFunc        func(ctx context.Context, id int64) error
}

func (m *mockContactService) List(ctx context.Context) ([]domain.Contact, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []domain.Contact{}, nil
}

func (m *mockContactService) ListByCompany(ctx context.Context, companyID int64) ([]domain.Contact, error) {
	if m.ListByCompanyFunc != nil {
		return m.ListByCompanyFunc(ctx, companyID)
	}
	return nil, errors.New("ListByCompanyFunc not implemented")
}

func (m *mockContactService) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Contact, error) {
	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, status)
	}
	return nil, errors.New("ListByStatusFunc not implemented")
}

func (m *mockContactService) Get(ctx context.Context, id int64) (*domain.Contact, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, errors.New("GetFunc not implemented")
}

func (m *mockContactService) Create(ctx context.Context, payload domain.ContactPayload) (*domain.Contact, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, payload)
	}
	return nil, errors.New("CreateFunc not implemented")
}

func (m *mockContactService) Update(ctx context.Context, id int64, payload domain.ContactPayload) (*domain.Contact, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, payload)
	}
	return nil, errors.New("UpdateFunc not implemented")
}

func (m *mockContactService) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return errors.New("DeleteFunc not implemented")
}

// =============================================================================
// Test Helpers
// =============================================================================

func newTestContactHandler(contacts *mockContactService, companies *mockCompanyService) (*ContactHandler, *mockRenderer) {
	if companies == nil {
		companies = &mockCompanyService{}
	}
	renderer := &mockRenderer{}
	h := NewContactHandler(contacts, companies, renderer, newTestLogger(), false)
	return h, renderer
}

func testContact(id int64) domain.Contact {
	return domain.Contact{
		ID:        id,
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Status:    domain.StatusActive,
		Company:   &domain.CompanyRef{ID: 3, Name: "Acme"},
	}
}

// =============================================================================
// Index Tests
// =============================================================================

func TestContactIndex_ListsContacts(t *testing.T) {
	svc := &mockContactService{
		ListFunc: func(ctx context.Context) ([]domain.Contact, error) {
			return []domain.Contact{testContact(1), testContact(2)}, nil
		},
	}

	handler, renderer := newTestContactHandler(svc, nil)

	req := withSession(httptest.NewRequest("GET", "/contacts", nil))
	rec := httptest.NewRecorder()

	handler.Index(rec, req)

	if renderer.Name != "contacts/index" {
		t.Fatalf("rendered template = %q, want contacts/index", renderer.Name)
	}
	data, ok := renderer.Data.(ContactListPageData)
	if !ok {
		t.Fatalf("render data is %T, want ContactListPageData", renderer.Data)
	}
	if len(data.Contacts) != 2 {
		t.Errorf("contacts = %d, want 2", len(data.Contacts))
	}
	if data.User == nil || data.User.Username != "alice" {
		t.Errorf("user = %+v, want alice", data.User)
	}
}

func TestContactIndex_StatusFilter_UsesStatusEndpoint(t *testing.T) {
	var gotStatus domain.Status
	svc := &mockContactService{
		ListByStatusFunc: func(ctx context.Context, status domain.Status) ([]domain.Contact, error) {
			gotStatus = status
			return []domain.Contact{testContact(1)}, nil
		},
	}

	handler, renderer := newTestContactHandler(svc, nil)

	req := withSession(httptest.NewRequest("GET", "/contacts?status=Prospect", nil))
	rec := httptest.NewRecorder()

	handler.Index(rec, req)

	if gotStatus != domain.StatusProspect {
		t.Errorf("status filter = %q, want Prospect", gotStatus)
	}
	data := renderer.Data.(ContactListPageData)
	if data.Status != "Prospect" {
		t.Errorf("page status filter = %q, want Prospect", data.Status)
	}
}

func TestContactIndex_CompanyFilter_UsesCompanyEndpoint(t *testing.T) {
	var gotCompanyID int64
	svc := &mockContactService{
		ListByCompanyFunc: func(ctx context.Context, companyID int64) ([]domain.Contact, error) {
			gotCompanyID = companyID
			return []domain.Contact{}, nil
		},
	}

	handler, _ := newTestContactHandler(svc, nil)

	req := withSession(httptest.NewRequest("GET", "/contacts?company=3", nil))
	rec := httptest.NewRecorder()

	handler.Index(rec, req)

	if gotCompanyID != 3 {
		t.Errorf("company filter = %d, want 3", gotCompanyID)
	}
}

func TestContactIndex_FetchFailure_RendersEmptyListWithFlash(t *testing.T) {
	svc := &mockContactService{
		ListFunc: func(ctx context.Context) ([]domain.Contact, error) {
			return nil, domain.Unavailable(errors.New("connection refused"), "contact.list", "backend down")
		},
	}

	handler, renderer := newTestContactHandler(svc, nil)

	req := withSession(httptest.NewRequest("GET", "/contacts", nil))
	rec := httptest.NewRecorder()

	handler.Index(rec, req)

	data := renderer.Data.(ContactListPageData)
	if len(data.Contacts) != 0 {
		t.Errorf("contacts = %d, want 0 on failure", len(data.Contacts))
	}
	if data.Flash == nil || data.Flash.Message != "Failed to fetch contacts" {
		t.Errorf("flash = %+v, want fetch failure message", data.Flash)
	}
}

func TestContactIndex_MutationFlash(t *testing.T) {
	tests := []struct {
		target  string
		message string
		ftype   string
	}{
		{"/contacts?created=1", "Contact created successfully", "success"},
		{"/contacts?updated=1", "Contact updated successfully", "success"},
		{"/contacts?deleted=1", "Contact deleted successfully", "success"},
		{"/contacts?error=delete_failed", "Failed to delete contact", "error"},
		{"/contacts?error=invalid_token", "Invalid security token. Please try again.", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			handler, renderer := newTestContactHandler(&mockContactService{}, nil)

			req := withSession(httptest.NewRequest("GET", tt.target, nil))
			rec := httptest.NewRecorder()

			handler.Index(rec, req)

			data := renderer.Data.(ContactListPageData)
			if data.Flash == nil {
				t.Fatal("expected flash message")
			}
			if data.Flash.Message != tt.message || data.Flash.Type != tt.ftype {
				t.Errorf("flash = %+v, want %s %q", data.Flash, tt.ftype, tt.message)
			}
		})
	}
}

// =============================================================================
// New / Create Tests
// =============================================================================

func TestContactNew_SeedsDraftDefaults(t *testing.T) {
	companies := &mockCompanyService{
		ListFunc: func(ctx context.Context) ([]domain.Company, error) {
			return []domain.Company{{ID: 3, Name: "Acme"}}, nil
		},
	}
	handler, renderer := newTestContactHandler(&mockContactService{}, companies)

	req := withSession(httptest.NewRequest("GET", "/contacts/new", nil))
	rec := httptest.NewRecorder()

	handler.New(rec, req)

	data := renderer.Data.(ContactFormPageData)
	if data.Form.Status != "Active" {
		t.Errorf("draft status = %q, want Active default", data.Form.Status)
	}
	if len(data.Companies) != 1 {
		t.Errorf("companies for select = %d, want 1", len(data.Companies))
	}
	if data.IsEdit {
		t.Error("IsEdit = true, want false for create form")
	}
}

func TestContactCreate_Valid_RedirectsWithFlag(t *testing.T) {
	var gotPayload domain.ContactPayload
	svc := &mockContactService{
		CreateFunc: func(ctx context.Context, payload domain.ContactPayload) (*domain.Contact, error) {
			gotPayload = payload
			c := testContact(9)
			return &c, nil
		},
	}

	handler, _ := newTestContactHandler(svc, nil)

	req := withSession(postForm("/contacts", url.Values{
		"first_name": {"Jane"},
		"last_name":  {"Doe"},
		"email":      {"jane@example.com"},
		"company_id": {"3"},
		"status":     {"Active"},
	}))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/contacts?created=1" {
		t.Errorf("Location = %q, want /contacts?created=1", loc)
	}
	if gotPayload.Company == nil || gotPayload.Company.ID != 3 {
		t.Errorf("payload company = %+v, want ID 3", gotPayload.Company)
	}
}

func TestContactCreate_MissingRequiredFields_RerendersWithDraft(t *testing.T) {
	createCalled := false
	svc := &mockContactService{
		CreateFunc: func(ctx context.Context, payload domain.ContactPayload) (*domain.Contact, error) {
			createCalled = true
			return nil, nil
		},
	}

	handler, renderer := newTestContactHandler(svc, nil)

	req := withSession(postForm("/contacts", url.Values{
		"email":  {"jane@example.com"},
		"status": {"Prospect"},
	}))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if createCalled {
		t.Error("create service called despite validation errors")
	}
	if renderer.Name != "contacts/new" {
		t.Fatalf("rendered template = %q, want contacts/new", renderer.Name)
	}
	data := renderer.Data.(ContactFormPageData)
	if data.Errors["firstName"] == "" {
		t.Error("expected firstName error")
	}
	if data.Errors["lastName"] == "" {
		t.Error("expected lastName error")
	}
	if data.Form.Email != "jane@example.com" {
		t.Errorf("draft email = %q, want preserved value", data.Form.Email)
	}
	if data.Form.Status != "Prospect" {
		t.Errorf("draft status = %q, want preserved value", data.Form.Status)
	}
}

func TestContactCreate_BackendValidationError_RerendersWithMessage(t *testing.T) {
	svc := &mockContactService{
		CreateFunc: func(ctx context.Context, payload domain.ContactPayload) (*domain.Contact, error) {
			return nil, domain.Invalid("contact.create", "Email is already taken")
		},
	}

	handler, renderer := newTestContactHandler(svc, nil)

	req := withSession(postForm("/contacts", url.Values{
		"first_name": {"Jane"},
		"last_name":  {"Doe"},
	}))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	data := renderer.Data.(ContactFormPageData)
	if data.Flash == nil || data.Flash.Message != "Email is already taken" {
		t.Errorf("flash = %+v, want backend message", data.Flash)
	}
}

// =============================================================================
// Edit / Update Tests
// =============================================================================

func TestContactEdit_SeedsDraftFromRecord(t *testing.T) {
	svc := &mockContactService{
		GetFunc: func(ctx context.Context, id int64) (*domain.Contact, error) {
			if id != 5 {
				t.Errorf("get id = %d, want 5", id)
			}
			c := testContact(5)
			return &c, nil
		},
	}

	handler, renderer := newTestContactHandler(svc, nil)

	req := withSession(httptest.NewRequest("GET", "/contacts/5/edit", nil))
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()

	handler.Edit(rec, req)

	data := renderer.Data.(ContactFormPageData)
	if !data.IsEdit {
		t.Error("IsEdit = false, want true")
	}
	if data.Form.FirstName != "Jane" {
		t.Errorf("draft first name = %q, want Jane", data.Form.FirstName)
	}
	if data.Form.CompanyID != "3" {
		t.Errorf("draft company id = %q, want 3", data.Form.CompanyID)
	}
}

func TestContactEdit_NotFound_Returns404(t *testing.T) {
	svc := &mockContactService{
		GetFunc: func(ctx context.Context, id int64) (*domain.Contact, error) {
			return nil, domain.NotFound("contact.get", "contact", strconv.FormatInt(id, 10))
		},
	}

	handler, _ := newTestContactHandler(svc, nil)

	req := withSession(httptest.NewRequest("GET", "/contacts/99/edit", nil))
	req.SetPathValue("id", "99")
	rec := httptest.NewRecorder()

	handler.Edit(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestContactUpdate_Valid_RedirectsWithFlag(t *testing.T) {
	var gotID int64
	svc := &mockContactService{
		GetFunc: func(ctx context.Context, id int64) (*domain.Contact, error) {
			c := testContact(id)
			return &c, nil
		},
		UpdateFunc: func(ctx context.Context, id int64, payload domain.ContactPayload) (*domain.Contact, error) {
			gotID = id
			c := testContact(id)
			return &c, nil
		},
	}

	handler, _ := newTestContactHandler(svc, nil)

	req := withSession(postForm("/contacts/5", url.Values{
		"first_name": {"Janet"},
		"last_name":  {"Doe"},
	}))
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if gotID != 5 {
		t.Errorf("update id = %d, want 5", gotID)
	}
	if loc := rec.Header().Get("Location"); loc != "/contacts?updated=1" {
		t.Errorf("Location = %q, want /contacts?updated=1", loc)
	}
}

func TestContactUpdate_BackendUnavailable_RerendersWithDraft(t *testing.T) {
	svc := &mockContactService{
		GetFunc: func(ctx context.Context, id int64) (*domain.Contact, error) {
			return nil, domain.Unavailable(errors.New("connection refused"), "contact.get", "backend down")
		},
	}

	handler, renderer := newTestContactHandler(svc, nil)

	req := withSession(postForm("/contacts/5", url.Values{
		"first_name": {"Janet"},
		"last_name":  {"Doe"},
		"email":      {"janet@example.com"},
	}))
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code == http.StatusNotFound {
		t.Fatal("transient backend failure produced a 404")
	}
	if renderer.Name != "contacts/edit" {
		t.Fatalf("rendered template = %q, want contacts/edit", renderer.Name)
	}
	data := renderer.Data.(ContactFormPageData)
	if data.Form.FirstName != "Janet" || data.Form.Email != "janet@example.com" {
		t.Errorf("draft = %+v, want submitted values preserved", data.Form)
	}
	if data.Flash == nil || data.Flash.Message != "Failed to save contact" {
		t.Errorf("flash = %+v, want save failure message", data.Flash)
	}
	if data.Contact == nil || data.Contact.ID != 5 {
		t.Errorf("contact = %+v, want ID 5 for the form action", data.Contact)
	}
}

// =============================================================================
// Delete Tests
// =============================================================================

func TestContactDelete_Confirmed_DeletesAndRedirects(t *testing.T) {
	var deletedID int64
	svc := &mockContactService{
		DeleteFunc: func(ctx context.Context, id int64) error {
			deletedID = id
			return nil
		},
	}

	handler, _ := newTestContactHandler(svc, nil)

	req := withSession(postForm("/contacts/5/delete", url.Values{"confirm": {"1"}}))
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if deletedID != 5 {
		t.Errorf("deleted id = %d, want 5", deletedID)
	}
	if loc := rec.Header().Get("Location"); loc != "/contacts?deleted=1" {
		t.Errorf("Location = %q, want /contacts?deleted=1", loc)
	}
}

func TestContactDelete_NotConfirmed_DoesNothing(t *testing.T) {
	deleteCalled := false
	svc := &mockContactService{
		DeleteFunc: func(ctx context.Context, id int64) error {
			deleteCalled = true
			return nil
		},
	}

	handler, _ := newTestContactHandler(svc, nil)

	req := withSession(postForm("/contacts/5/delete", url.Values{}))
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if deleteCalled {
		t.Error("delete service called without confirmation")
	}
	if loc := rec.Header().Get("Location"); loc != "/contacts" {
		t.Errorf("Location = %q, want /contacts", loc)
	}
}

func TestContactDelete_BackendFailure_RedirectsWithError(t *testing.T) {
	svc := &mockContactService{
		DeleteFunc: func(ctx context.Context, id int64) error {
			return domain.Unavailable(errors.New("connection refused"), "contact.delete", "backend down")
		},
	}

	handler, _ := newTestContactHandler(svc, nil)

	req := withSession(postForm("/contacts/5/delete", url.Values{"confirm": {"1"}}))
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if loc := rec.Header().Get("Location"); loc != "/contacts?error=delete_failed" {
		t.Errorf("Location = %q, want /contacts?error=delete_failed", loc)
	}
}

func TestContactDelete_InvalidCSRFToken_RedirectsWithTokenError(t *testing.T) {
	deleteCalled := false
	svc := &mockContactService{
		DeleteFunc: func(ctx context.Context, id int64) error {
			deleteCalled = true
			return nil
		},
	}

	handler, _ := newTestContactHandler(svc, nil)

	form := url.Values{
		"confirm":          {"1"},
		csrf.FormFieldName: {"test-csrf-token"},
	}
	req := httptest.NewRequest("POST", "/contacts/5/delete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: "a-different-token"})
	req = withSession(req)
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if deleteCalled {
		t.Error("delete service called despite invalid security token")
	}
	if loc := rec.Header().Get("Location"); loc != "/contacts?error=invalid_token" {
		t.Errorf("Location = %q, want /contacts?error=invalid_token", loc)
	}
}
