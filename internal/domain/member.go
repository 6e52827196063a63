package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used for member join dates.
const DateLayout = "2006-01-02"

// Member is a library patron. Inactive members cannot start new borrows but
// can still return what they hold.
type Member struct {
	Entity
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	JoinedDate time.Time `json:"joined_date"`
	IsActive   bool      `json:"is_active"`
}

// FullName returns "First Last", trimmed when either part is empty.
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// CanBorrow reports whether the member may start a new borrowing.
func (m *Member) CanBorrow() bool {
	return m.IsActive
}

// MemberChanges holds a member edit. Nil fields are left as they are.
type MemberChanges struct {
	FirstName  *string
	LastName   *string
	Email      *string
	Phone      *string
	Address    *string
	JoinedDate *time.Time
	IsActive   *bool
}

// Apply copies the set fields onto the member.
func (m *Member) Apply(c MemberChanges) {
	if c.FirstName != nil {
		m.FirstName = *c.FirstName
	}
	if c.LastName != nil {
		m.LastName = *c.LastName
	}
	if c.Email != nil {
		m.Email = *c.Email
	}
	if c.Phone != nil {
		m.Phone = *c.Phone
	}
	if c.Address != nil {
		m.Address = *c.Address
	}
	if c.JoinedDate != nil {
		m.JoinedDate = *c.JoinedDate
	}
	if c.IsActive != nil {
		m.IsActive = *c.IsActive
	}
	m.Touch()
}

// TruncateToDate drops the clock part of t, keeping the UTC calendar date.
func TruncateToDate(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
