package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewContactDraft_Defaults(t *testing.T) {
	d := NewContactDraft()
	assert.Equal(t, "Active", d.Status)
	assert.Empty(t, d.FirstName)
	assert.Empty(t, d.CompanyID)
}

func TestDraftFromContact(t *testing.T) {
	tests := []struct {
		name    string
		contact Contact
		want    ContactDraft
	}{
		{
			name: "full contact",
			contact: Contact{
				FirstName: "Jane",
				LastName:  "Doe",
				Email:     "jane@example.com",
				Phone:     "555-0100",
				Position:  "CTO",
				Status:    StatusProspect,
				Company:   &CompanyRef{ID: 42, Name: "Acme"},
			},
			want: ContactDraft{
				FirstName: "Jane",
				LastName:  "Doe",
				Email:     "jane@example.com",
				Phone:     "555-0100",
				Position:  "CTO",
				Status:    "Prospect",
				CompanyID: "42",
			},
		},
		{
			name:    "no company and no status",
			contact: Contact{FirstName: "Sam", LastName: "Lee"},
			want:    ContactDraft{FirstName: "Sam", LastName: "Lee", Status: "Active"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DraftFromContact(&tt.contact)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContactDraft_Validate(t *testing.T) {
	tests := []struct {
		name     string
		draft    ContactDraft
		wantKeys []string
	}{
		{
			name:  "valid",
			draft: ContactDraft{FirstName: "Jane", LastName: "Doe"},
		},
		{
			name:     "missing first name",
			draft:    ContactDraft{LastName: "Doe"},
			wantKeys: []string{"firstName"},
		},
		{
			name:     "whitespace only names",
			draft:    ContactDraft{FirstName: "  ", LastName: "\t"},
			wantKeys: []string{"firstName", "lastName"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.draft.Validate()
			assert.Len(t, errs, len(tt.wantKeys))
			for _, k := range tt.wantKeys {
				assert.Contains(t, errs, k)
			}
		})
	}
}

func TestContactDraft_Payload(t *testing.T) {
	t.Run("empty company becomes null", func(t *testing.T) {
		d := ContactDraft{FirstName: "Jane", LastName: "Doe", Status: "Active"}
		p, err := d.Payload()
		assert.NoError(t, err)
		assert.Nil(t, p.Company)
	})

	t.Run("company id is wrapped in a reference", func(t *testing.T) {
		d := ContactDraft{FirstName: "Jane", LastName: "Doe", Status: "Active", CompanyID: "7"}
		p, err := d.Payload()
		assert.NoError(t, err)
		if assert.NotNil(t, p.Company) {
			assert.Equal(t, int64(7), p.Company.ID)
		}
	})

	t.Run("invalid company id", func(t *testing.T) {
		d := ContactDraft{FirstName: "Jane", LastName: "Doe", CompanyID: "abc"}
		_, err := d.Payload()
		assert.Equal(t, EINVALID, ErrorCode(err))
	})

	t.Run("fields are trimmed", func(t *testing.T) {
		d := ContactDraft{FirstName: " Jane ", LastName: " Doe ", Email: " jane@example.com "}
		p, err := d.Payload()
		assert.NoError(t, err)
		assert.Equal(t, "Jane", p.FirstName)
		assert.Equal(t, "jane@example.com", p.Email)
	})
}

func TestContact_CompanyName(t *testing.T) {
	c := Contact{Company: &CompanyRef{ID: 1, Name: "Acme"}}
	assert.Equal(t, "Acme", c.CompanyName())

	c.Company = nil
	assert.Equal(t, "N/A", c.CompanyName())
}

func TestContact_FullName(t *testing.T) {
	c := Contact{FirstName: "Jane", LastName: "Doe"}
	assert.Equal(t, "Jane Doe", c.FullName())
}
