// Package service provides the business logic of the LibraryDesk server:
// catalog editing, the member registry and circulation.
//
// Services own transactions. Each write runs inside store.WithTx; side
// effects that live outside the database (SSE events, search indexing)
// happen only after the transaction committed.
package service

import (
	"errors"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/sse"
	"github.com/librarydesk/librarydesk-server/internal/store"
)

// Notifier receives committed changes for live clients.
type Notifier interface {
	Emit(event sse.Event)
}

type discardNotifier struct{}

func (discardNotifier) Emit(sse.Event) {}

// ListResult is one page of a list query.
type ListResult[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ledgerError translates a ledger rejection into its coded API error.
func ledgerError(err error, book *domain.Book) error {
	switch {
	case errors.Is(err, domain.ErrOutOfStock):
		return domainerrors.OutOfStockf("no copies of %q are available", book.Title).WithCause(err)
	case errors.Is(err, domain.ErrOverCapacity):
		return domainerrors.OverCapacityf("all %d copies of %q are already on the shelf", book.Total, book.Title).WithCause(err)
	case errors.Is(err, domain.ErrInvalidAdjustment):
		return domainerrors.InvalidAdjustmentf("%s", err.Error()).
			WithDetails(map[string]string{"total_copies": err.Error()})
	default:
		return err
	}
}

// bookError translates store errors raised while reading or writing book id.
func bookError(err error, id string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.BookNotFoundf("book %s not found", id)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.DuplicateISBNf("a book with this ISBN already exists").
			WithDetails(map[string]string{"isbn": "A book with this ISBN already exists."})
	case errors.Is(err, store.ErrInUse):
		return domainerrors.ErrBookInUse.WithCause(err)
	default:
		return err
	}
}

// memberError translates store errors raised while reading or writing member id.
func memberError(err error, id string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.MemberNotFoundf("member %s not found", id)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.DuplicateEmailf("a member with this email already exists").
			WithDetails(map[string]string{"email": "A member with this email already exists."})
	case errors.Is(err, store.ErrInUse):
		return domainerrors.ErrMemberInUse.WithCause(err)
	default:
		return err
	}
}

// conflictError is what a caller sees once retries ran out.
func conflictError(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return domainerrors.Wrap(err, domainerrors.CodeConflict, "the record was modified concurrently, please retry")
	}
	return err
}
