// Package store defines the persistence interface for the LibraryDesk server.
//
// Two backends implement it: store/sqlite (default, single file) and
// store/postgres. Writes that touch a book's copy ledger always run inside
// WithTx so the ledger row, the borrowing row and the circulation event
// commit or roll back together.
package store

import (
	"context"
	"time"

	"github.com/librarydesk/librarydesk-server/internal/domain"
)

// Store defines the persistence operations used by the services.
type Store interface {
	Close() error
	Ping(ctx context.Context) error

	// Books
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error)
	ListBooks(ctx context.Context, filter BookFilter) ([]*domain.Book, int, error)
	CountBooks(ctx context.Context) (int, error)
	// DeleteBook removes a book and its circulation events.
	// Returns ErrInUse while any borrowing references the book.
	DeleteBook(ctx context.Context, id string) error
	ListBookEvents(ctx context.Context, bookID string, limit int) ([]*domain.CirculationEvent, error)

	// Members
	CreateMember(ctx context.Context, m *domain.Member) error
	GetMember(ctx context.Context, id string) (*domain.Member, error)
	GetMembersByIDs(ctx context.Context, ids []string) ([]*domain.Member, error)
	ListMembers(ctx context.Context, filter MemberFilter) ([]*domain.Member, int, error)
	CountMembers(ctx context.Context) (int, error)
	UpdateMember(ctx context.Context, m *domain.Member) error
	// DeleteMember returns ErrInUse while any borrowing references the member.
	DeleteMember(ctx context.Context, id string) error

	// Borrowings
	GetBorrowing(ctx context.Context, id string) (*domain.Borrowing, error)
	ListBorrowings(ctx context.Context, filter BorrowingFilter) ([]*domain.Borrowing, int, error)

	// WithTx runs fn in a read-write transaction. The transaction commits when
	// fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of ledger-affecting operations that must run atomically.
type Tx interface {
	// GetBookForUpdate loads a book and, where the backend supports it,
	// locks the row until the transaction ends.
	GetBookForUpdate(ctx context.Context, id string) (*domain.Book, error)
	GetMember(ctx context.Context, id string) (*domain.Member, error)
	GetBorrowingForUpdate(ctx context.Context, id string) (*domain.Borrowing, error)

	// InsertBook returns ErrAlreadyExists on a duplicate ISBN.
	InsertBook(ctx context.Context, b *domain.Book) error
	// UpdateBook writes b only if the stored version still equals
	// expectedVersion. Returns ErrConflict otherwise and ErrAlreadyExists
	// on a duplicate ISBN.
	UpdateBook(ctx context.Context, b *domain.Book, expectedVersion int64) error

	InsertBorrowing(ctx context.Context, b *domain.Borrowing) error
	// MarkBorrowingReturned persists a RETURNED borrowing. Returns ErrConflict
	// if the stored row is no longer ACTIVE.
	MarkBorrowingReturned(ctx context.Context, b *domain.Borrowing) error

	AppendEvent(ctx context.Context, e *domain.CirculationEvent) error
}

// Page bounds a list query. A zero Limit means DefaultPageLimit.
type Page struct {
	Limit  int
	Offset int
}

// Page limits.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Normalize clamps the page to valid bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// BookFilter selects books. Results are ordered by title.
type BookFilter struct {
	// Search matches folded title, author and ISBN substrings.
	Search string
	Page
}

// MemberFilter selects members. Results are ordered by last then first name.
type MemberFilter struct {
	Search string
	Active *bool
	Page
}

// Borrowing orderings accepted by ListBorrowings.
const (
	OrderBorrowDateAsc  = "borrow_date"
	OrderBorrowDateDesc = "-borrow_date"
	OrderDueDateAsc     = "due_date"
	OrderDueDateDesc    = "-due_date"
	OrderStatusAsc      = "status"
	OrderStatusDesc     = "-status"
)

// ValidBorrowingOrdering reports whether s is an accepted ordering or empty.
func ValidBorrowingOrdering(s string) bool {
	switch s {
	case "", OrderBorrowDateAsc, OrderBorrowDateDesc, OrderDueDateAsc, OrderDueDateDesc, OrderStatusAsc, OrderStatusDesc:
		return true
	}
	return false
}

// BorrowingFilter selects borrowings. Empty fields do not filter.
type BorrowingFilter struct {
	Status   domain.BorrowingStatus
	MemberID string
	BookID   string
	// OverdueAt, when set, keeps only ACTIVE borrowings due before it.
	OverdueAt *time.Time
	// Ordering is one of the Order* constants; default is newest borrow first.
	Ordering string
	Page
}
