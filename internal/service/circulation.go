package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/id"
	"github.com/librarydesk/librarydesk-server/internal/sse"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/validation"
)

// CirculationService checks books out to members and takes them back.
//
// A checkout or return reads the book inside a write transaction, asks the
// ledger for the next copy counts and writes them back conditioned on the
// version it read. The borrowing row and the circulation event commit in the
// same transaction, so a failure at any step leaves nothing behind.
type CirculationService struct {
	store      store.Store
	search     *SearchService
	notifier   Notifier
	validator  *validation.Validator
	loanPeriod time.Duration
	retry      retryConfig
	now        func() time.Time
	logger     *slog.Logger
}

// NewCirculationService creates a new circulation service. New borrowings
// are due loanPeriod after checkout unless the request sets a due date.
func NewCirculationService(store store.Store, search *SearchService, notifier Notifier, validator *validation.Validator, loanPeriod time.Duration, logger *slog.Logger) *CirculationService {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &CirculationService{
		store:      store,
		search:     search,
		notifier:   notifier,
		validator:  validator,
		loanPeriod: loanPeriod,
		retry:      defaultRetry,
		now:        time.Now,
		logger:     logger,
	}
}

// CheckoutRequest names the book and member of a new borrowing.
type CheckoutRequest struct {
	BookID   string     `json:"book" validate:"required"`
	MemberID string     `json:"member" validate:"required"`
	DueDate  *time.Time `json:"due_date"`
}

// BorrowingListFilter narrows ListBorrowings.
type BorrowingListFilter struct {
	Status   string `json:"status" validate:"omitempty,oneof=ACTIVE RETURNED"`
	MemberID string `json:"member_id"`
	BookID   string `json:"book_id"`
	Overdue  bool   `json:"overdue"`
	Ordering string `json:"ordering" validate:"omitempty,oneof=borrow_date -borrow_date due_date -due_date status -status"`
	store.Page
}

// Checkout lends one copy of a book to an active member.
func (s *CirculationService) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Borrowing, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	if req.DueDate != nil && !req.DueDate.After(now) {
		return nil, domainerrors.ValidationWithDetails("invalid due_date",
			map[string]string{"due_date": "The due date must be in the future."})
	}

	loanID, err := id.Generate(id.PrefixBorrowing)
	if err != nil {
		return nil, fmt.Errorf("generate borrowing ID: %w", err)
	}

	var (
		loan  *domain.Borrowing
		book  *domain.Book
		event *domain.CirculationEvent
	)

	err = retryOnConflict(ctx, s.retry, func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(tx store.Tx) error {
			member, err := tx.GetMember(ctx, req.MemberID)
			if err != nil {
				return memberError(err, req.MemberID)
			}
			if !member.CanBorrow() {
				return domainerrors.MemberInactivef("member %s is not active and cannot borrow books", member.FullName()).
					WithDetails(map[string]string{"member": "This member is inactive."})
			}

			current, err := tx.GetBookForUpdate(ctx, req.BookID)
			if err != nil {
				return bookError(err, req.BookID)
			}

			next, err := current.Decrement()
			if err != nil {
				return ledgerError(err, current)
			}
			expected := current.Version
			current.ApplyLedger(next)
			if err := tx.UpdateBook(ctx, current, expected); err != nil {
				return err
			}

			loan = domain.NewBorrowing(loanID, current.ID, member.ID, now, s.loanPeriod)
			if req.DueDate != nil {
				loan.DueDate = req.DueDate.UTC()
			}
			if err := tx.InsertBorrowing(ctx, loan); err != nil {
				return fmt.Errorf("insert borrowing: %w", err)
			}

			event = domain.NewCirculationEvent(domain.EventCheckedOut, current, -1).ForLoan(loan)
			if err := tx.AppendEvent(ctx, event); err != nil {
				return err
			}

			loan.BookTitle = current.Title
			loan.MemberName = member.FullName()
			book = current
			return nil
		})
	})
	if err != nil {
		return nil, conflictError(err)
	}

	s.logger.Info("book checked out",
		"borrowing_id", loan.ID,
		"book_id", book.ID,
		"member_id", loan.MemberID,
		"available_copies", book.Available,
	)

	s.afterLoanWrite(book, sse.NewBorrowingCreatedEvent(loan), event)
	return loan, nil
}

// Return takes back the copy held by a borrowing. A borrowing can be
// returned once; a second attempt fails with ALREADY_RETURNED and changes
// nothing. Inactive members may still return books.
func (s *CirculationService) Return(ctx context.Context, borrowingID string) (*domain.Borrowing, error) {
	var (
		loan  *domain.Borrowing
		book  *domain.Book
		event *domain.CirculationEvent
	)

	err := retryOnConflict(ctx, s.retry, func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(tx store.Tx) error {
			current, err := tx.GetBorrowingForUpdate(ctx, borrowingID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return domainerrors.BorrowingNotFoundf("borrowing %s not found", borrowingID)
				}
				return err
			}

			if err := current.MarkReturned(s.now()); err != nil {
				return domainerrors.ErrAlreadyReturned.WithCause(err)
			}

			b, err := tx.GetBookForUpdate(ctx, current.BookID)
			if err != nil {
				return bookError(err, current.BookID)
			}

			next, err := b.Increment()
			if err != nil {
				return ledgerError(err, b)
			}
			expected := b.Version
			b.ApplyLedger(next)
			if err := tx.UpdateBook(ctx, b, expected); err != nil {
				return err
			}

			if err := tx.MarkBorrowingReturned(ctx, current); err != nil {
				return err
			}

			event = domain.NewCirculationEvent(domain.EventReturned, b, 1).ForLoan(current)
			if err := tx.AppendEvent(ctx, event); err != nil {
				return err
			}

			loan = current
			book = b
			return nil
		})
	})
	if err != nil {
		return nil, s.returnError(ctx, borrowingID, err)
	}

	s.logger.Info("book returned",
		"borrowing_id", loan.ID,
		"book_id", book.ID,
		"member_id", loan.MemberID,
		"available_copies", book.Available,
	)

	s.afterLoanWrite(book, sse.NewBorrowingReturnedEvent(loan), event)
	return loan, nil
}

// returnError resolves a failed return. When retries ran out because a
// concurrent return won the race, the caller sees ALREADY_RETURNED rather
// than a generic conflict.
func (s *CirculationService) returnError(ctx context.Context, borrowingID string, err error) error {
	if !errors.Is(err, store.ErrConflict) {
		return err
	}
	if loan, getErr := s.store.GetBorrowing(ctx, borrowingID); getErr == nil && !loan.IsActive() {
		return domainerrors.ErrAlreadyReturned.WithCause(err)
	}
	return conflictError(err)
}

// GetBorrowing retrieves a single borrowing by ID.
func (s *CirculationService) GetBorrowing(ctx context.Context, borrowingID string) (*domain.Borrowing, error) {
	loan, err := s.store.GetBorrowing(ctx, borrowingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.BorrowingNotFoundf("borrowing %s not found", borrowingID)
		}
		return nil, err
	}
	return loan, nil
}

// ListBorrowings returns borrowings matching filter, newest first by default.
func (s *CirculationService) ListBorrowings(ctx context.Context, filter BorrowingListFilter) (*ListResult[*domain.Borrowing], error) {
	if err := s.validator.Validate(filter); err != nil {
		return nil, err
	}
	page := filter.Page.Normalize()

	storeFilter := store.BorrowingFilter{
		Status:   domain.BorrowingStatus(filter.Status),
		MemberID: filter.MemberID,
		BookID:   filter.BookID,
		Ordering: filter.Ordering,
		Page:     page,
	}
	if filter.Overdue {
		now := s.now().UTC()
		storeFilter.OverdueAt = &now
	}

	loans, total, err := s.store.ListBorrowings(ctx, storeFilter)
	if err != nil {
		return nil, fmt.Errorf("list borrowings: %w", err)
	}
	return &ListResult[*domain.Borrowing]{Items: loans, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// Now returns the service clock, used to compute overdue flags.
func (s *CirculationService) Now() time.Time {
	return s.now()
}

func (s *CirculationService) afterLoanWrite(book *domain.Book, changed sse.Event, ledger *domain.CirculationEvent) {
	if s.search != nil {
		_ = s.search.IndexBook(book)
	}
	s.notifier.Emit(changed)
	s.notifier.Emit(sse.NewLedgerChangedEvent(ledger))
}
