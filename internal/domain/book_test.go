package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newTestBook(total, available int) *Book {
	return &Book{
		Entity: Entity{ID: "book-1"},
		Ledger: Ledger{Total: total, Available: available},
		Title:  "Dune",
		Author: "Frank Herbert",
		ISBN:   "9780441013593",
	}
}

func TestBook_Apply_TitleOnlyKeepsAvailable(t *testing.T) {
	b := newTestBook(5, 3)

	changed, err := b.Apply(BookChanges{Title: ptr("Dune Messiah")})
	require.NoError(t, err)

	assert.False(t, changed)
	assert.Equal(t, "Dune Messiah", b.Title)
	assert.Equal(t, Ledger{Total: 5, Available: 3}, b.Ledger)
	assert.Equal(t, int64(1), b.Version)
}

func TestBook_Apply_SameTotalIsNotAnAdjustment(t *testing.T) {
	b := newTestBook(5, 3)

	changed, err := b.Apply(BookChanges{TotalCopies: ptr(5)})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 3, b.Available)
}

func TestBook_Apply_TotalReconcilesAvailable(t *testing.T) {
	b := newTestBook(5, 3)

	changed, err := b.Apply(BookChanges{TotalCopies: ptr(7)})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Ledger{Total: 7, Available: 5}, b.Ledger)
}

func TestBook_Apply_RejectedEditLeavesBookUntouched(t *testing.T) {
	b := newTestBook(5, 1)

	_, err := b.Apply(BookChanges{Title: ptr("Other"), TotalCopies: ptr(2)})
	require.ErrorIs(t, err, ErrInvalidAdjustment)

	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, Ledger{Total: 5, Available: 1}, b.Ledger)
	assert.Equal(t, int64(0), b.Version)
}

func TestBookChanges_IsEmpty(t *testing.T) {
	assert.True(t, BookChanges{}.IsEmpty())
	assert.False(t, BookChanges{Publisher: ptr("")}.IsEmpty())
}

func TestBorrowing_Lifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := NewBorrowing("loan-1", "book-1", "mbr-1", now, 14*24*time.Hour)

	assert.Equal(t, BorrowingActive, b.Status)
	assert.Equal(t, now.Add(14*24*time.Hour), b.DueDate)
	assert.Nil(t, b.ReturnDate)
	assert.False(t, b.IsOverdue(now.Add(24*time.Hour)))
	assert.True(t, b.IsOverdue(now.Add(15*24*time.Hour)))

	returnedAt := now.Add(48 * time.Hour)
	require.NoError(t, b.MarkReturned(returnedAt))
	assert.Equal(t, BorrowingReturned, b.Status)
	require.NotNil(t, b.ReturnDate)
	assert.Equal(t, returnedAt, *b.ReturnDate)
	assert.False(t, b.IsOverdue(now.Add(30*24*time.Hour)))

	err := b.MarkReturned(now.Add(72 * time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyReturned)
	assert.Equal(t, returnedAt, *b.ReturnDate, "second return must not move the return date")
}

func TestMember_FullNameAndCanBorrow(t *testing.T) {
	m := &Member{FirstName: "Ada", LastName: "Lovelace", IsActive: true}
	assert.Equal(t, "Ada Lovelace", m.FullName())
	assert.True(t, m.CanBorrow())

	m.Apply(MemberChanges{IsActive: ptr(false)})
	assert.False(t, m.CanBorrow())

	assert.Equal(t, "Lovelace", (&Member{LastName: "Lovelace"}).FullName())
}

func TestNewCirculationEvent(t *testing.T) {
	b := newTestBook(3, 2)
	loan := NewBorrowing("loan-9", b.ID, "mbr-2", time.Now(), time.Hour)

	e := NewCirculationEvent(EventCheckedOut, b, -1).ForLoan(loan)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EventCheckedOut, e.Type)
	assert.Equal(t, "book-1", e.BookID)
	assert.Equal(t, "mbr-2", e.MemberID)
	assert.Equal(t, "loan-9", e.BorrowingID)
	assert.Equal(t, -1, e.Delta)
	assert.Equal(t, 3, e.TotalCopies)
	assert.Equal(t, 2, e.AvailableCopies)
}
