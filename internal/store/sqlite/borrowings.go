package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/store/query"
)

type borrowingRow struct {
	ID              string         `db:"id"`
	BookID          string         `db:"book_id"`
	MemberID        string         `db:"member_id"`
	BorrowDate      string         `db:"borrow_date"`
	DueDate         string         `db:"due_date"`
	ReturnDate      sql.NullString `db:"return_date"`
	Status          string         `db:"status"`
	BookTitle       string         `db:"book_title"`
	MemberFirstName string         `db:"member_first_name"`
	MemberLastName  string         `db:"member_last_name"`
}

func (r *borrowingRow) toDomain() (*domain.Borrowing, error) {
	b := &domain.Borrowing{
		ID:         r.ID,
		BookID:     r.BookID,
		MemberID:   r.MemberID,
		Status:     domain.BorrowingStatus(r.Status),
		BookTitle:  r.BookTitle,
		MemberName: strings.TrimSpace(r.MemberFirstName + " " + r.MemberLastName),
	}
	var err error
	if b.BorrowDate, err = parseTime(r.BorrowDate); err != nil {
		return nil, fmt.Errorf("borrowing %s borrow_date: %w", r.ID, err)
	}
	if b.DueDate, err = parseTime(r.DueDate); err != nil {
		return nil, fmt.Errorf("borrowing %s due_date: %w", r.ID, err)
	}
	if b.ReturnDate, err = parseNullableTime(r.ReturnDate); err != nil {
		return nil, fmt.Errorf("borrowing %s return_date: %w", r.ID, err)
	}
	return b, nil
}

func getBorrowing(ctx context.Context, q sqlx.QueryerContext, qb query.Builder, id string) (*domain.Borrowing, error) {
	var row borrowingRow
	if err := selectOne(ctx, q, qb.Borrowing(id), &row); err != nil {
		return nil, err
	}
	return row.toDomain()
}

// GetBorrowing retrieves a borrowing by ID with its display fields.
// Returns store.ErrNotFound if the borrowing does not exist.
func (s *Store) GetBorrowing(ctx context.Context, id string) (*domain.Borrowing, error) {
	return getBorrowing(ctx, s.db, s.q, id)
}

// ListBorrowings returns a page of borrowings plus the total match count.
func (s *Store) ListBorrowings(ctx context.Context, filter store.BorrowingFilter) ([]*domain.Borrowing, int, error) {
	list, countDS := s.q.Borrowings(filter)

	total, err := count(ctx, s.db, countDS)
	if err != nil {
		return nil, 0, err
	}

	var rows []borrowingRow
	if err := selectAll(ctx, s.db, list, &rows); err != nil {
		return nil, 0, err
	}

	borrowings := make([]*domain.Borrowing, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toDomain()
		if err != nil {
			return nil, 0, err
		}
		borrowings = append(borrowings, b)
	}
	return borrowings, total, nil
}

func insertBorrowing(ctx context.Context, e sqlx.ExecerContext, b *domain.Borrowing) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO borrowings (id, book_id, member_id, borrow_date, due_date, return_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.BookID,
		b.MemberID,
		formatTime(b.BorrowDate),
		formatTime(b.DueDate),
		nullTimeString(b.ReturnDate),
		string(b.Status),
	)
	return mapError(err)
}

func markBorrowingReturned(ctx context.Context, e sqlx.ExecerContext, b *domain.Borrowing) error {
	return execOne(ctx, e, store.ErrConflict, `
		UPDATE borrowings SET status = ?, return_date = ?
		WHERE id = ? AND status = ?`,
		string(domain.BorrowingReturned),
		nullTimeString(b.ReturnDate),
		b.ID,
		string(domain.BorrowingActive),
	)
}
