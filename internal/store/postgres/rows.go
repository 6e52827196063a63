package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/store/query"
)

type bookRow struct {
	ID              string    `db:"id"`
	Title           string    `db:"title"`
	Author          string    `db:"author"`
	ISBN            string    `db:"isbn"`
	Publisher       string    `db:"publisher"`
	TotalCopies     int       `db:"total_copies"`
	AvailableCopies int       `db:"available_copies"`
	Version         int64     `db:"version"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// toDomain rejects rows whose copy counts break the ledger invariant.
func (r *bookRow) toDomain() (*domain.Book, error) {
	b := &domain.Book{
		Entity: domain.Entity{
			ID:        r.ID,
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
		},
		Ledger:    domain.Ledger{Total: r.TotalCopies, Available: r.AvailableCopies},
		Title:     r.Title,
		Author:    r.Author,
		ISBN:      r.ISBN,
		Publisher: r.Publisher,
		Version:   r.Version,
	}
	if err := b.Ledger.Validate(); err != nil {
		return nil, fmt.Errorf("book %s: %w", r.ID, err)
	}
	return b, nil
}

func booksFromRows(rows []bookRow) ([]*domain.Book, error) {
	books := make([]*domain.Book, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

func bookRecord(b *domain.Book) goqu.Record {
	return goqu.Record{
		"title":            b.Title,
		"author":           b.Author,
		"isbn":             b.ISBN,
		"publisher":        b.Publisher,
		"total_copies":     b.Total,
		"available_copies": b.Available,
		"version":          b.Version,
		"search_text":      query.SearchText(b.Title, b.Author, b.ISBN),
		"updated_at":       b.UpdatedAt.UTC(),
	}
}

type memberRow struct {
	ID         string    `db:"id"`
	FirstName  string    `db:"first_name"`
	LastName   string    `db:"last_name"`
	Email      string    `db:"email"`
	Phone      string    `db:"phone"`
	Address    string    `db:"address"`
	JoinedDate time.Time `db:"joined_date"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *memberRow) toDomain() *domain.Member {
	return &domain.Member{
		Entity: domain.Entity{
			ID:        r.ID,
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
		},
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		Phone:      r.Phone,
		Address:    r.Address,
		JoinedDate: domain.TruncateToDate(r.JoinedDate),
		IsActive:   r.IsActive,
	}
}

func memberRecord(m *domain.Member) goqu.Record {
	return goqu.Record{
		"first_name":  m.FirstName,
		"last_name":   m.LastName,
		"email":       m.Email,
		"phone":       m.Phone,
		"address":     m.Address,
		"joined_date": domain.TruncateToDate(m.JoinedDate),
		"is_active":   m.IsActive,
		"search_text": query.SearchText(m.FirstName, m.LastName, m.Email),
		"updated_at":  m.UpdatedAt.UTC(),
	}
}

type borrowingRow struct {
	ID              string     `db:"id"`
	BookID          string     `db:"book_id"`
	MemberID        string     `db:"member_id"`
	BorrowDate      time.Time  `db:"borrow_date"`
	DueDate         time.Time  `db:"due_date"`
	ReturnDate      *time.Time `db:"return_date"`
	Status          string     `db:"status"`
	BookTitle       string     `db:"book_title"`
	MemberFirstName string     `db:"member_first_name"`
	MemberLastName  string     `db:"member_last_name"`
}

func (r *borrowingRow) toDomain() *domain.Borrowing {
	b := &domain.Borrowing{
		ID:         r.ID,
		BookID:     r.BookID,
		MemberID:   r.MemberID,
		BorrowDate: r.BorrowDate.UTC(),
		DueDate:    r.DueDate.UTC(),
		Status:     domain.BorrowingStatus(r.Status),
		BookTitle:  r.BookTitle,
		MemberName: strings.TrimSpace(r.MemberFirstName + " " + r.MemberLastName),
	}
	if r.ReturnDate != nil {
		t := r.ReturnDate.UTC()
		b.ReturnDate = &t
	}
	return b
}

type eventRow struct {
	ID              string    `db:"id"`
	Type            string    `db:"type"`
	BookID          string    `db:"book_id"`
	MemberID        string    `db:"member_id"`
	BorrowingID     string    `db:"borrowing_id"`
	Delta           int       `db:"delta"`
	TotalCopies     int       `db:"total_copies"`
	AvailableCopies int       `db:"available_copies"`
	OccurredAt      time.Time `db:"occurred_at"`
}

func (r *eventRow) toDomain() *domain.CirculationEvent {
	return &domain.CirculationEvent{
		ID:              r.ID,
		Type:            domain.EventType(r.Type),
		BookID:          r.BookID,
		MemberID:        r.MemberID,
		BorrowingID:     r.BorrowingID,
		Delta:           r.Delta,
		TotalCopies:     r.TotalCopies,
		AvailableCopies: r.AvailableCopies,
		OccurredAt:      r.OccurredAt.UTC(),
	}
}
