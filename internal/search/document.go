// Package search provides full-text search over the catalog and the member
// registry using Bleve. The SQL store stays the source of truth; the index
// is rebuilt from it on startup when empty or when the mapping changes.
package search

import (
	"github.com/librarydesk/librarydesk-server/internal/domain"
)

// DocType represents the type of document in the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypeBook   DocType = "book"
	DocTypeMember DocType = "member"
)

// Member status keywords.
const (
	statusActive   = "active"
	statusInactive = "inactive"
)

// SearchDocument is the unified document structure for the Bleve index.
// Books and members share one index with type discrimination.
type SearchDocument struct {
	ID   string  `json:"id"`
	Type DocType `json:"type"`

	// Book: title, Member: full name
	Name string `json:"name"`

	// Book-specific fields
	Author          string `json:"author,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	ISBN            string `json:"isbn,omitempty"`
	TotalCopies     int    `json:"total_copies,omitempty"`
	AvailableCopies int    `json:"available_copies,omitempty"`

	// Member-specific fields
	Email  string `json:"email,omitempty"`
	Status string `json:"status,omitempty"`

	// Timestamps for sorting
	CreatedAt int64 `json:"created_at"` // Unix millis
	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map with the field names used by the
// index mapping.
func (d *SearchDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"type":       string(d.Type),
		"name":       d.Name,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	if d.Email != "" {
		m["email"] = d.Email
	}
	if d.Status != "" {
		m["status"] = d.Status
	}
	if d.Type == DocTypeBook {
		// Zero is meaningful for copy counts.
		m["total_copies"] = d.TotalCopies
		m["available_copies"] = d.AvailableCopies
	}

	return m
}

// BookToSearchDocument converts a domain Book to a SearchDocument.
func BookToSearchDocument(book *domain.Book) *SearchDocument {
	return &SearchDocument{
		ID:              book.ID,
		Type:            DocTypeBook,
		Name:            book.Title,
		Author:          book.Author,
		Publisher:       book.Publisher,
		ISBN:            book.ISBN,
		TotalCopies:     book.Total,
		AvailableCopies: book.Available,
		CreatedAt:       book.CreatedAt.UnixMilli(),
		UpdatedAt:       book.UpdatedAt.UnixMilli(),
	}
}

// MemberToSearchDocument converts a domain Member to a SearchDocument.
func MemberToSearchDocument(m *domain.Member) *SearchDocument {
	status := statusInactive
	if m.IsActive {
		status = statusActive
	}
	return &SearchDocument{
		ID:        m.ID,
		Type:      DocTypeMember,
		Name:      m.FullName(),
		Email:     m.Email,
		Status:    status,
		CreatedAt: m.CreatedAt.UnixMilli(),
		UpdatedAt: m.UpdatedAt.UnixMilli(),
	}
}
