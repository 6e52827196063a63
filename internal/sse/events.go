// Package sse implements Server-Sent Events for live circulation updates.
package sse

import (
	"time"

	"github.com/librarydesk/librarydesk-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBookCreated represents a book creation event.
	EventBookCreated EventType = "book.created"
	// EventBookUpdated represents a book update event.
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted represents a book deletion event.
	EventBookDeleted EventType = "book.deleted"

	// EventMemberCreated represents a member registration event.
	EventMemberCreated EventType = "member.created"
	// EventMemberUpdated represents a member update event.
	EventMemberUpdated EventType = "member.updated"
	// EventMemberDeleted represents a member deletion event.
	EventMemberDeleted EventType = "member.deleted"

	// EventBorrowingCreated is sent after a successful checkout.
	EventBorrowingCreated EventType = "borrowing.created"
	// EventBorrowingReturned is sent after a successful return.
	EventBorrowingReturned EventType = "borrowing.returned"

	// EventLedgerChanged carries a book's copy counts after any ledger change.
	EventLedgerChanged EventType = "ledger.changed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// BookID scopes the event for clients watching a single title.
	// Empty means the event is delivered to every client.
	BookID string `json:"-"`
}

// BookEventData is the data payload for book create and update events.
type BookEventData struct {
	Book *domain.Book `json:"book"`
}

// BookDeletedEventData is the data payload for book delete events.
type BookDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	BookID    string    `json:"book_id"`
}

// MemberEventData is the data payload for member create and update events.
type MemberEventData struct {
	Member *domain.Member `json:"member"`
}

// MemberDeletedEventData is the data payload for member delete events.
type MemberDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	MemberID  string    `json:"member_id"`
}

// BorrowingEventData is the data payload for checkout and return events.
type BorrowingEventData struct {
	Borrowing *domain.Borrowing `json:"borrowing"`
}

// LedgerEventData is the data payload for ledger events.
type LedgerEventData struct {
	BookID          string           `json:"book_id"`
	Cause           domain.EventType `json:"cause"`
	Delta           int              `json:"delta"`
	TotalCopies     int              `json:"total_copies"`
	AvailableCopies int              `json:"available_copies"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewBookCreatedEvent creates a book.created event.
func NewBookCreatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookCreated,
		Data:      BookEventData{Book: book},
		Timestamp: time.Now(),
		BookID:    book.ID,
	}
}

// NewBookUpdatedEvent creates a book.updated event.
func NewBookUpdatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookUpdated,
		Data:      BookEventData{Book: book},
		Timestamp: time.Now(),
		BookID:    book.ID,
	}
}

// NewBookDeletedEvent creates a book.deleted event.
func NewBookDeletedEvent(bookID string) Event {
	now := time.Now()
	return Event{
		Type:      EventBookDeleted,
		Data:      BookDeletedEventData{BookID: bookID, DeletedAt: now},
		Timestamp: now,
		BookID:    bookID,
	}
}

// NewMemberCreatedEvent creates a member.created event.
func NewMemberCreatedEvent(m *domain.Member) Event {
	return Event{
		Type:      EventMemberCreated,
		Data:      MemberEventData{Member: m},
		Timestamp: time.Now(),
	}
}

// NewMemberUpdatedEvent creates a member.updated event.
func NewMemberUpdatedEvent(m *domain.Member) Event {
	return Event{
		Type:      EventMemberUpdated,
		Data:      MemberEventData{Member: m},
		Timestamp: time.Now(),
	}
}

// NewMemberDeletedEvent creates a member.deleted event.
func NewMemberDeletedEvent(memberID string) Event {
	now := time.Now()
	return Event{
		Type:      EventMemberDeleted,
		Data:      MemberDeletedEventData{MemberID: memberID, DeletedAt: now},
		Timestamp: now,
	}
}

// NewBorrowingCreatedEvent creates a borrowing.created event.
func NewBorrowingCreatedEvent(b *domain.Borrowing) Event {
	return Event{
		Type:      EventBorrowingCreated,
		Data:      BorrowingEventData{Borrowing: b},
		Timestamp: time.Now(),
		BookID:    b.BookID,
	}
}

// NewBorrowingReturnedEvent creates a borrowing.returned event.
func NewBorrowingReturnedEvent(b *domain.Borrowing) Event {
	return Event{
		Type:      EventBorrowingReturned,
		Data:      BorrowingEventData{Borrowing: b},
		Timestamp: time.Now(),
		BookID:    b.BookID,
	}
}

// NewLedgerChangedEvent creates a ledger.changed event from a committed
// circulation event.
func NewLedgerChangedEvent(e *domain.CirculationEvent) Event {
	return Event{
		Type: EventLedgerChanged,
		Data: LedgerEventData{
			BookID:          e.BookID,
			Cause:           e.Type,
			Delta:           e.Delta,
			TotalCopies:     e.TotalCopies,
			AvailableCopies: e.AvailableCopies,
		},
		Timestamp: e.OccurredAt,
		BookID:    e.BookID,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
