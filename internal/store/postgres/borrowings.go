package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/store/query"
)

// GetBorrowing retrieves a borrowing by ID with its display fields.
func (s *Store) GetBorrowing(ctx context.Context, id string) (*domain.Borrowing, error) {
	row, err := selectOne[borrowingRow](ctx, s.pool, s.q.Borrowing(id))
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// ListBorrowings returns a page of borrowings plus the total match count.
func (s *Store) ListBorrowings(ctx context.Context, filter store.BorrowingFilter) ([]*domain.Borrowing, int, error) {
	list, countDS := s.q.Borrowings(filter)

	total, err := count(ctx, s.pool, countDS)
	if err != nil {
		return nil, 0, err
	}
	rows, err := selectAll[borrowingRow](ctx, s.pool, list)
	if err != nil {
		return nil, 0, err
	}
	borrowings := make([]*domain.Borrowing, 0, len(rows))
	for i := range rows {
		borrowings = append(borrowings, rows[i].toDomain())
	}
	return borrowings, total, nil
}

func insertBorrowing(ctx context.Context, q querier, qb query.Builder, b *domain.Borrowing) error {
	ds := qb.Dialect().Insert(query.TableBorrowings).Prepared(true).Rows(goqu.Record{
		"id":          b.ID,
		"book_id":     b.BookID,
		"member_id":   b.MemberID,
		"borrow_date": b.BorrowDate.UTC(),
		"due_date":    b.DueDate.UTC(),
		"return_date": b.ReturnDate,
		"status":      string(b.Status),
	})
	return exec(ctx, q, ds)
}

func markBorrowingReturned(ctx context.Context, q querier, qb query.Builder, b *domain.Borrowing) error {
	ds := qb.Dialect().Update(query.TableBorrowings).Prepared(true).
		Set(goqu.Record{
			"status":      string(domain.BorrowingReturned),
			"return_date": b.ReturnDate,
		}).
		Where(goqu.C("id").Eq(b.ID), goqu.C("status").Eq(string(domain.BorrowingActive)))
	return execOne(ctx, q, store.ErrConflict, ds)
}

func appendEvent(ctx context.Context, q querier, qb query.Builder, e *domain.CirculationEvent) error {
	ds := qb.Dialect().Insert(query.TableEvents).Prepared(true).Rows(goqu.Record{
		"id":               e.ID,
		"type":             string(e.Type),
		"book_id":          e.BookID,
		"member_id":        e.MemberID,
		"borrowing_id":     e.BorrowingID,
		"delta":            e.Delta,
		"total_copies":     e.TotalCopies,
		"available_copies": e.AvailableCopies,
		"occurred_at":      e.OccurredAt.UTC(),
	})
	return exec(ctx, q, ds)
}
