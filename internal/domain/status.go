package domain

// Status represents the lifecycle state shared by contacts and companies.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
	StatusProspect Status = "Prospect"
)

// Statuses lists the valid status values in display order.
func Statuses() []Status {
	return []Status{StatusActive, StatusInactive, StatusProspect}
}

// IsValid reports whether s is one of the known status values.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusProspect:
		return true
	}
	return false
}
