// Package domain contains core business types shared across the application.
//
// This file defines the Contact resource and its form draft. Records are
// owned by the CRM backend; this application only caches the last successful
// fetch and never patches records locally.
package domain

import (
	"strconv"
	"strings"
)

// CompanyRef is a weak reference from a contact to a company.
// Deleting a company does not cascade here; that is a backend concern.
type CompanyRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// Contact represents a CRM contact as returned by the backend.
type Contact struct {
	ID        int64       `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Position  string      `json:"position,omitempty"`
	Status    Status      `json:"status,omitempty"`
	Company   *CompanyRef `json:"company"`
}

// FullName returns the contact's display name.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CompanyName returns the linked company's name, or "N/A" when none is set.
func (c *Contact) CompanyName() string {
	if c.Company == nil || c.Company.Name == "" {
		return "N/A"
	}
	return c.Company.Name
}

// ContactPayload is the request body for creating or updating a contact.
// Company is either a reference object or null, never {"id": ""}.
type ContactPayload struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	Position  string      `json:"position"`
	Status    string      `json:"status"`
	Company   *CompanyRef `json:"company"`
}

// ContactDraft is the transient, typed form state backing the contact
// create/edit dialog. It mirrors the raw form values (CompanyID is the
// select value as submitted) and exists only while the dialog is open.
type ContactDraft struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Position  string
	CompanyID string // raw select value; "" means no company
	Status    string
}

// NewContactDraft returns a draft with field defaults for create mode.
func NewContactDraft() ContactDraft {
	return ContactDraft{Status: string(StatusActive)}
}

// DraftFromContact seeds a draft from an existing record for edit mode.
// Missing fields become empty strings rather than being omitted.
func DraftFromContact(c *Contact) ContactDraft {
	d := ContactDraft{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Position:  c.Position,
		Status:    string(c.Status),
	}
	if d.Status == "" {
		d.Status = string(StatusActive)
	}
	if c.Company != nil {
		d.CompanyID = strconv.FormatInt(c.Company.ID, 10)
	}
	return d
}

// Validate returns field-level errors for required fields.
func (d ContactDraft) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(d.FirstName) == "" {
		errs["firstName"] = "First name is required"
	}
	if strings.TrimSpace(d.LastName) == "" {
		errs["lastName"] = "Last name is required"
	}
	return errs
}

// Payload converts the draft into the request body sent to the backend.
// An empty company selection produces a null relation; a selected company
// id is wrapped into a reference object.
func (d ContactDraft) Payload() (ContactPayload, error) {
	const op = "contact.draft"

	p := ContactPayload{
		FirstName: strings.TrimSpace(d.FirstName),
		LastName:  strings.TrimSpace(d.LastName),
		Email:     strings.TrimSpace(d.Email),
		Phone:     strings.TrimSpace(d.Phone),
		Position:  strings.TrimSpace(d.Position),
		Status:    d.Status,
	}
	if p.Status == "" {
		p.Status = string(StatusActive)
	}

	if id := strings.TrimSpace(d.CompanyID); id != "" {
		companyID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return ContactPayload{}, Invalid(op, "invalid company selection")
		}
		p.Company = &CompanyRef{ID: companyID}
	}

	return p, nil
}
