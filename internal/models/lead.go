package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Lead types
const (
	LeadTypeNew       = "NEW"
	LeadTypeReturning = "RETURNING"
)

// Lead lifecycle statuses
const (
	LeadStatusActive       = "ACTIVE"
	LeadStatusDoNotContact = "DO_NOT_CONTACT"
	LeadStatusLost         = "LOST"
)

// Lead represents a prospect or customer owned by a user
type Lead struct {
	ID              string     `db:"id" json:"id"`
	OwnerID         string     `db:"owner_id" json:"owner_id"`
	Name            string     `db:"name" json:"name"`
	Email           string     `db:"email" json:"email,omitempty"`
	Type            string     `db:"lead_type" json:"type"` // NEW, RETURNING
	Status          string     `db:"status" json:"status"`  // ACTIVE, DO_NOT_CONTACT, LOST
	Company         string     `db:"company" json:"company,omitempty"`
	Query           string     `db:"interest" json:"query,omitempty"`
	LastService     string     `db:"last_service" json:"last_service,omitempty"`
	LastServiceAt   *time.Time `db:"last_service_at" json:"last_service_at,omitempty"`
	NextSuggestedAt *time.Time `db:"next_suggested_at" json:"next_suggested_at,omitempty"`
	Tags            StringList `db:"tags" json:"tags"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// LeadFilter for listing leads
type LeadFilter struct {
	OwnerID string
	Status  string
	Type    string
	Tag     string
	Search  string // Search in name/email/company
	Order   string // asc (arrival order) or desc
	Limit   int
	Offset  int
}

// IsValidLeadType reports whether t is a known lead type
func IsValidLeadType(t string) bool {
	return t == LeadTypeNew || t == LeadTypeReturning
}

// IsValidLeadStatus reports whether s is a known lifecycle status
func IsValidLeadStatus(s string) bool {
	switch s {
	case LeadStatusActive, LeadStatusDoNotContact, LeadStatusLost:
		return true
	}
	return false
}

// StringList is a list of strings stored as a JSON array
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported type for StringList: %T", src)
	}

	if len(data) == 0 {
		*l = StringList{}
		return nil
	}

	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to parse string list: %w", err)
	}
	*l = out
	return nil
}
