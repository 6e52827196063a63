package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/id"
	"github.com/librarydesk/librarydesk-server/internal/normalize"
	"github.com/librarydesk/librarydesk-server/internal/search"
	"github.com/librarydesk/librarydesk-server/internal/sse"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/validation"
)

// defaultTotalCopies applies when a new book does not state its copy count.
const defaultTotalCopies = 1

// historyLimit caps the events returned by BookHistory.
const historyLimit = 200

// CatalogService creates and edits books. Changes to a book's total copies
// go through its ledger so copies on loan are never lost.
type CatalogService struct {
	store     store.Store
	search    *SearchService
	notifier  Notifier
	validator *validation.Validator
	retry     retryConfig
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service. search may be nil, in
// which case list searches fall back to the store.
func NewCatalogService(store store.Store, search *SearchService, notifier Notifier, validator *validation.Validator, logger *slog.Logger) *CatalogService {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &CatalogService{
		store:     store,
		search:    search,
		notifier:  notifier,
		validator: validator,
		retry:     defaultRetry,
		logger:    logger,
	}
}

// CreateBookRequest contains the data for a new book.
// TotalCopies defaults to one when omitted.
type CreateBookRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Author      string `json:"author" validate:"required,max=255"`
	ISBN        string `json:"isbn" validate:"required,isbn"`
	Publisher   string `json:"publisher" validate:"max=255"`
	TotalCopies *int   `json:"total_copies" validate:"omitnil,gte=0"`
}

func (r *CreateBookRequest) normalize() {
	r.Title = normalize.Text(r.Title)
	r.Author = normalize.Text(r.Author)
	r.ISBN = normalize.ISBN(r.ISBN)
	r.Publisher = normalize.Text(r.Publisher)
}

// UpdateBookRequest is a partial edit. Nil fields are left unchanged.
// Available copies are derived and cannot be set.
type UpdateBookRequest struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=255"`
	Author      *string `json:"author" validate:"omitnil,min=1,max=255"`
	ISBN        *string `json:"isbn" validate:"omitnil,isbn"`
	Publisher   *string `json:"publisher" validate:"omitnil,max=255"`
	TotalCopies *int    `json:"total_copies" validate:"omitnil"`
}

func (r *UpdateBookRequest) normalize() {
	normalizePtr(r.Title, normalize.Text)
	normalizePtr(r.Author, normalize.Text)
	normalizePtr(r.ISBN, normalize.ISBN)
	normalizePtr(r.Publisher, normalize.Text)
}

func (r UpdateBookRequest) changes() domain.BookChanges {
	return domain.BookChanges{
		Title:       r.Title,
		Author:      r.Author,
		ISBN:        r.ISBN,
		Publisher:   r.Publisher,
		TotalCopies: r.TotalCopies,
	}
}

func normalizePtr(p *string, fn func(string) string) {
	if p != nil {
		*p = fn(*p)
	}
}

// CreateBook catalogues a new title with every copy on the shelf.
func (s *CatalogService) CreateBook(ctx context.Context, req CreateBookRequest) (*domain.Book, error) {
	req.normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	total := defaultTotalCopies
	if req.TotalCopies != nil {
		total = *req.TotalCopies
	}
	ledger, err := domain.NewLedger(total)
	if err != nil {
		return nil, domainerrors.ValidationWithDetails("invalid total_copies",
			map[string]string{"total_copies": "Ensure this value is greater than or equal to 0."})
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.Book{
		Entity:    domain.Entity{ID: bookID},
		Ledger:    ledger,
		Title:     req.Title,
		Author:    req.Author,
		ISBN:      req.ISBN,
		Publisher: req.Publisher,
		Version:   1,
	}
	book.InitTimestamps()

	event := domain.NewCirculationEvent(domain.EventBookRegistered, book, book.Total)

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertBook(ctx, book); err != nil {
			return bookError(err, book.ID)
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book created",
		"book_id", book.ID,
		"isbn", book.ISBN,
		"total_copies", book.Total,
	)

	s.afterBookWrite(book, sse.NewBookCreatedEvent(book), event)
	return book, nil
}

// ReplaceBook applies a full edit: every descriptive field is overwritten.
// A nil TotalCopies keeps the current count.
func (s *CatalogService) ReplaceBook(ctx context.Context, bookID string, req CreateBookRequest) (*domain.Book, error) {
	req.normalize()

	// The ledger judges the new total, not the create rules.
	total := req.TotalCopies
	req.TotalCopies = nil
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	return s.updateBook(ctx, bookID, UpdateBookRequest{
		Title:       &req.Title,
		Author:      &req.Author,
		ISBN:        &req.ISBN,
		Publisher:   &req.Publisher,
		TotalCopies: total,
	})
}

// UpdateBook applies a partial edit. Only a change of total copies touches
// the ledger; descriptive edits leave available copies as they are.
func (s *CatalogService) UpdateBook(ctx context.Context, bookID string, req UpdateBookRequest) (*domain.Book, error) {
	req.normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return s.updateBook(ctx, bookID, req)
}

func (s *CatalogService) updateBook(ctx context.Context, bookID string, req UpdateBookRequest) (*domain.Book, error) {
	changes := req.changes()

	var (
		book  *domain.Book
		event *domain.CirculationEvent
	)

	err := retryOnConflict(ctx, s.retry, func(ctx context.Context) error {
		event = nil
		return s.store.WithTx(ctx, func(tx store.Tx) error {
			current, err := tx.GetBookForUpdate(ctx, bookID)
			if err != nil {
				return bookError(err, bookID)
			}
			if changes.IsEmpty() {
				book = current
				return nil
			}

			expected := current.Version
			oldTotal := current.Total
			ledgerChanged, err := current.Apply(changes)
			if err != nil {
				return ledgerError(err, current)
			}

			if err := tx.UpdateBook(ctx, current, expected); err != nil {
				return bookError(err, bookID)
			}

			if ledgerChanged {
				event = domain.NewCirculationEvent(domain.EventCopiesAdjusted, current, current.Total-oldTotal)
				if err := tx.AppendEvent(ctx, event); err != nil {
					return err
				}
			}

			book = current
			return nil
		})
	})
	if err != nil {
		return nil, conflictError(err)
	}
	if changes.IsEmpty() {
		return book, nil
	}

	s.logger.Info("book updated",
		"book_id", book.ID,
		"version", book.Version,
		"total_copies", book.Total,
		"available_copies", book.Available,
	)

	s.afterBookWrite(book, sse.NewBookUpdatedEvent(book), event)
	return book, nil
}

// GetBook retrieves a single book by ID.
func (s *CatalogService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, bookError(err, bookID)
	}
	return book, nil
}

// ListBooks returns books ordered by title. A search term goes through the
// full-text index when one is configured, and results keep relevance order.
func (s *CatalogService) ListBooks(ctx context.Context, query string, page store.Page) (*ListResult[*domain.Book], error) {
	page = page.Normalize()
	query = normalize.Text(query)

	if query != "" && s.search != nil {
		ids, total, err := s.search.findIDs(ctx, search.SearchParams{Query: query}, search.DocTypeBook, page)
		if err != nil {
			return nil, err
		}
		books, err := s.store.GetBooksByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load books: %w", err)
		}
		return &ListResult[*domain.Book]{
			Items:  orderByIDs(ids, books, func(b *domain.Book) string { return b.ID }),
			Total:  total,
			Limit:  page.Limit,
			Offset: page.Offset,
		}, nil
	}

	books, total, err := s.store.ListBooks(ctx, store.BookFilter{Search: query, Page: page})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return &ListResult[*domain.Book]{Items: books, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// DeleteBook removes a book. Books with borrowing records cannot be deleted.
func (s *CatalogService) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrInUse) {
			return domainerrors.ErrBookInUse.WithDetails(map[string]string{
				"book": "This book has borrowing records and cannot be deleted.",
			})
		}
		return bookError(err, bookID)
	}

	s.logger.Info("book deleted", "book_id", bookID)

	if s.search != nil {
		_ = s.search.Remove(bookID)
	}
	s.notifier.Emit(sse.NewBookDeletedEvent(bookID))
	return nil
}

// BookHistory returns the circulation events of a book, newest first.
func (s *CatalogService) BookHistory(ctx context.Context, bookID string) ([]*domain.CirculationEvent, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, bookError(err, bookID)
	}
	events, err := s.store.ListBookEvents(ctx, bookID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list book events: %w", err)
	}
	return events, nil
}

// afterBookWrite runs the post-commit side effects of a book change.
func (s *CatalogService) afterBookWrite(book *domain.Book, changed sse.Event, ledger *domain.CirculationEvent) {
	if s.search != nil {
		_ = s.search.IndexBook(book)
	}
	s.notifier.Emit(changed)
	if ledger != nil {
		s.notifier.Emit(sse.NewLedgerChangedEvent(ledger))
	}
}
