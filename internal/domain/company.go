package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CompanySize represents the size bracket of a company.
type CompanySize string

const (
	CompanySizeSmall  CompanySize = "Small"
	CompanySizeMedium CompanySize = "Medium"
	CompanySizeLarge  CompanySize = "Large"
)

// CompanySizes lists the valid size values in display order.
func CompanySizes() []CompanySize {
	return []CompanySize{CompanySizeSmall, CompanySizeMedium, CompanySizeLarge}
}

// Company represents a CRM company as returned by the backend.
type Company struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Industry string      `json:"industry,omitempty"`
	Size     CompanySize `json:"size,omitempty"`
	Website  string      `json:"website,omitempty"`
	Status   Status      `json:"status,omitempty"`
	Revenue  *float64    `json:"revenue"`
}

// FormattedRevenue returns the revenue for display, or an empty string
// when no revenue is recorded.
func (c *Company) FormattedRevenue() string {
	if c.Revenue == nil {
		return ""
	}
	return fmt.Sprintf("$%.2f", *c.Revenue)
}

// CompanyPayload is the request body for creating or updating a company.
// Revenue is numeric or null, never the raw form string.
type CompanyPayload struct {
	Name     string   `json:"name"`
	Industry string   `json:"industry"`
	Size     string   `json:"size"`
	Website  string   `json:"website"`
	Status   string   `json:"status"`
	Revenue  *float64 `json:"revenue"`
}

// CompanyDraft is the transient, typed form state backing the company
// create/edit dialog. Revenue holds the raw form value until submit.
type CompanyDraft struct {
	Name     string
	Industry string
	Size     string
	Website  string
	Status   string
	Revenue  string
}

// NewCompanyDraft returns a draft with field defaults for create mode.
func NewCompanyDraft() CompanyDraft {
	return CompanyDraft{Status: string(StatusActive)}
}

// DraftFromCompany seeds a draft from an existing record for edit mode.
func DraftFromCompany(c *Company) CompanyDraft {
	d := CompanyDraft{
		Name:     c.Name,
		Industry: c.Industry,
		Size:     string(c.Size),
		Website:  c.Website,
		Status:   string(c.Status),
	}
	if d.Status == "" {
		d.Status = string(StatusActive)
	}
	if c.Revenue != nil {
		d.Revenue = strconv.FormatFloat(*c.Revenue, 'f', -1, 64)
	}
	return d
}

// Validate returns field-level errors for required fields.
func (d CompanyDraft) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(d.Name) == "" {
		errs["name"] = "Company name is required"
	}
	if r := strings.TrimSpace(d.Revenue); r != "" {
		if _, err := strconv.ParseFloat(r, 64); err != nil {
			errs["revenue"] = "Revenue must be a number"
		}
	}
	return errs
}

// Payload converts the draft into the request body sent to the backend,
// coercing the revenue form string into a number (empty becomes null).
func (d CompanyDraft) Payload() (CompanyPayload, error) {
	const op = "company.draft"

	p := CompanyPayload{
		Name:     strings.TrimSpace(d.Name),
		Industry: strings.TrimSpace(d.Industry),
		Size:     d.Size,
		Website:  strings.TrimSpace(d.Website),
		Status:   d.Status,
	}
	if p.Status == "" {
		p.Status = string(StatusActive)
	}

	if r := strings.TrimSpace(d.Revenue); r != "" {
		revenue, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return CompanyPayload{}, Invalid(op, "revenue must be a number")
		}
		p.Revenue = &revenue
	}

	return p, nil
}
