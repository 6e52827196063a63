package domain

import (
	"errors"
	"time"
)

// ErrAlreadyReturned is returned when a borrowing is returned a second time.
var ErrAlreadyReturned = errors.New("this book has already been returned")

// BorrowingStatus is the lifecycle state of a borrowing.
type BorrowingStatus string

// Borrowing states. ACTIVE moves to RETURNED exactly once.
const (
	BorrowingActive   BorrowingStatus = "ACTIVE"
	BorrowingReturned BorrowingStatus = "RETURNED"
)

// Valid reports whether s is a known status.
func (s BorrowingStatus) Valid() bool {
	return s == BorrowingActive || s == BorrowingReturned
}

// Borrowing records one member holding one copy of a book.
// Borrowings are never deleted.
type Borrowing struct {
	ID         string          `json:"id"`
	BookID     string          `json:"book_id"`
	MemberID   string          `json:"member_id"`
	BorrowDate time.Time       `json:"borrow_date"`
	DueDate    time.Time       `json:"due_date"`
	ReturnDate *time.Time      `json:"return_date,omitempty"`
	Status     BorrowingStatus `json:"status"`

	// Denormalized for display, filled by list and get queries.
	BookTitle  string `json:"book_title,omitempty"`
	MemberName string `json:"member_name,omitempty"`
}

// NewBorrowing starts an ACTIVE borrowing at now, due after loanPeriod.
func NewBorrowing(id, bookID, memberID string, now time.Time, loanPeriod time.Duration) *Borrowing {
	now = now.UTC()
	return &Borrowing{
		ID:         id,
		BookID:     bookID,
		MemberID:   memberID,
		BorrowDate: now,
		DueDate:    now.Add(loanPeriod),
		Status:     BorrowingActive,
	}
}

// IsActive reports whether the copy is still out.
func (b *Borrowing) IsActive() bool {
	return b.Status == BorrowingActive
}

// MarkReturned moves the borrowing to RETURNED. A second call fails with
// ErrAlreadyReturned and leaves the record unchanged.
func (b *Borrowing) MarkReturned(at time.Time) error {
	if b.Status == BorrowingReturned {
		return ErrAlreadyReturned
	}
	at = at.UTC()
	b.ReturnDate = &at
	b.Status = BorrowingReturned
	return nil
}

// IsOverdue reports whether an active borrowing is past its due date at now.
func (b *Borrowing) IsOverdue(now time.Time) bool {
	return b.IsActive() && now.After(b.DueDate)
}
