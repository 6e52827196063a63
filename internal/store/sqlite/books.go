package sqlite

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/store/query"
)

// bookRow mirrors query.BookColumns.
type bookRow struct {
	ID              string `db:"id"`
	Title           string `db:"title"`
	Author          string `db:"author"`
	ISBN            string `db:"isbn"`
	Publisher       string `db:"publisher"`
	TotalCopies     int    `db:"total_copies"`
	AvailableCopies int    `db:"available_copies"`
	Version         int64  `db:"version"`
	CreatedAt       string `db:"created_at"`
	UpdatedAt       string `db:"updated_at"`
}

// toDomain rejects rows whose copy counts break the ledger invariant.
func (r *bookRow) toDomain() (*domain.Book, error) {
	b := &domain.Book{
		Entity:    domain.Entity{ID: r.ID},
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
	var err error
	if b.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, fmt.Errorf("book %s created_at: %w", r.ID, err)
	}
	if b.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("book %s updated_at: %w", r.ID, err)
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

func getBook(ctx context.Context, q sqlx.QueryerContext, qb query.Builder, id string) (*domain.Book, error) {
	ds := qb.Dialect().From(query.TableBooks).Prepared(true).
		Select(query.BookColumns...).
		Where(goqu.C("id").Eq(id))

	var row bookRow
	if err := selectOne(ctx, q, ds, &row); err != nil {
		return nil, err
	}
	return row.toDomain()
}

// GetBook retrieves a book by ID.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return getBook(ctx, s.db, s.q, id)
}

// GetBooksByIDs retrieves the books with the given IDs. Missing IDs are skipped.
func (s *Store) GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []bookRow
	if err := selectAll(ctx, s.db, s.q.ByIDs(query.TableBooks, query.BookColumns, ids), &rows); err != nil {
		return nil, err
	}
	return booksFromRows(rows)
}

// ListBooks returns a page of books ordered by title plus the total match count.
func (s *Store) ListBooks(ctx context.Context, filter store.BookFilter) ([]*domain.Book, int, error) {
	list, countDS := s.q.Books(filter)

	total, err := count(ctx, s.db, countDS)
	if err != nil {
		return nil, 0, err
	}

	var rows []bookRow
	if err := selectAll(ctx, s.db, list, &rows); err != nil {
		return nil, 0, err
	}
	books, err := booksFromRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// CountBooks returns the number of catalogued titles.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	return count(ctx, s.db, s.q.Dialect().From(query.TableBooks).Select(goqu.COUNT(goqu.Star())))
}

// DeleteBook removes a book. Circulation events cascade; borrowings block the delete.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	err := execOne(ctx, s.db, store.ErrNotFound, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	s.logger.Debug("book deleted", "book_id", id)
	return nil
}

func insertBook(ctx context.Context, e sqlx.ExecerContext, b *domain.Book) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO books (
			id, title, author, isbn, publisher,
			total_copies, available_copies, version, search_text,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.Title,
		b.Author,
		b.ISBN,
		b.Publisher,
		b.Total,
		b.Available,
		b.Version,
		query.SearchText(b.Title, b.Author, b.ISBN),
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	return mapError(err)
}

func updateBook(ctx context.Context, e sqlx.ExecerContext, b *domain.Book, expectedVersion int64) error {
	return execOne(ctx, e, store.ErrConflict, `
		UPDATE books SET
			title = ?, author = ?, isbn = ?, publisher = ?,
			total_copies = ?, available_copies = ?, version = ?,
			search_text = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		b.Title,
		b.Author,
		b.ISBN,
		b.Publisher,
		b.Total,
		b.Available,
		b.Version,
		query.SearchText(b.Title, b.Author, b.ISBN),
		formatTime(b.UpdatedAt),
		b.ID,
		expectedVersion,
	)
}
