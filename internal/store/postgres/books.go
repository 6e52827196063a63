package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/store/query"
)

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row, err := selectOne[bookRow](ctx, s.pool, s.byID(query.TableBooks, query.BookColumns, id))
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// GetBooksByIDs retrieves the books with the given IDs. Missing IDs are skipped.
func (s *Store) GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := selectAll[bookRow](ctx, s.pool, s.q.ByIDs(query.TableBooks, query.BookColumns, ids))
	if err != nil {
		return nil, err
	}
	return booksFromRows(rows)
}

// ListBooks returns a page of books ordered by title plus the total match count.
func (s *Store) ListBooks(ctx context.Context, filter store.BookFilter) ([]*domain.Book, int, error) {
	list, countDS := s.q.Books(filter)

	total, err := count(ctx, s.pool, countDS)
	if err != nil {
		return nil, 0, err
	}
	rows, err := selectAll[bookRow](ctx, s.pool, list)
	if err != nil {
		return nil, 0, err
	}
	books, err := booksFromRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// DeleteBook removes a book. Circulation events cascade; borrowings block the delete.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	ds := s.q.Dialect().Delete(query.TableBooks).Prepared(true).Where(goqu.C("id").Eq(id))
	return execOne(ctx, s.pool, store.ErrNotFound, ds)
}

func insertBook(ctx context.Context, q querier, qb query.Builder, b *domain.Book) error {
	rec := bookRecord(b)
	rec["id"] = b.ID
	rec["created_at"] = b.CreatedAt.UTC()
	return exec(ctx, q, qb.Dialect().Insert(query.TableBooks).Prepared(true).Rows(rec))
}

func updateBook(ctx context.Context, q querier, qb query.Builder, b *domain.Book, expectedVersion int64) error {
	ds := qb.Dialect().Update(query.TableBooks).Prepared(true).
		Set(bookRecord(b)).
		Where(goqu.C("id").Eq(b.ID), goqu.C("version").Eq(expectedVersion))
	return execOne(ctx, q, store.ErrConflict, ds)
}
