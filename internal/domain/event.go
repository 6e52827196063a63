package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a change to a book's copy ledger.
type EventType string

// Circulation event types.
const (
	EventBookRegistered EventType = "book.registered"
	EventCopiesAdjusted EventType = "copies.adjusted"
	EventCheckedOut     EventType = "loan.checked_out"
	EventReturned       EventType = "loan.returned"
)

// CirculationEvent is an append-only audit record of one ledger change,
// written in the same transaction as the change itself.
type CirculationEvent struct {
	ID              string    `json:"id"`
	Type            EventType `json:"type"`
	BookID          string    `json:"book_id"`
	MemberID        string    `json:"member_id,omitempty"`
	BorrowingID     string    `json:"borrowing_id,omitempty"`
	Delta           int       `json:"delta"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewCirculationEvent records the book's ledger state after a change.
// IDs are UUIDv7 so they sort by creation time.
func NewCirculationEvent(typ EventType, book *Book, delta int) *CirculationEvent {
	eventID, err := uuid.NewV7()
	if err != nil {
		eventID = uuid.New()
	}
	return &CirculationEvent{
		ID:              eventID.String(),
		Type:            typ,
		BookID:          book.ID,
		Delta:           delta,
		TotalCopies:     book.Total,
		AvailableCopies: book.Available,
		OccurredAt:      time.Now().UTC(),
	}
}

// ForLoan attaches the borrowing and member the event concerns.
func (e *CirculationEvent) ForLoan(b *Borrowing) *CirculationEvent {
	e.BorrowingID = b.ID
	e.MemberID = b.MemberID
	return e
}
