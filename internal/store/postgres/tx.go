package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/store/query"
)

// txStore implements store.Tx on a pgx transaction.
type txStore struct {
	tx pgx.Tx
	q  query.Builder
}

var _ store.Tx = (*txStore)(nil)

// GetBookForUpdate locks the book row until the transaction ends.
func (t *txStore) GetBookForUpdate(ctx context.Context, id string) (*domain.Book, error) {
	ds := t.q.Dialect().From(query.TableBooks).Prepared(true).
		Select(query.BookColumns...).
		Where(goqu.C("id").Eq(id)).
		ForUpdate(exp.Wait)
	row, err := selectOne[bookRow](ctx, t.tx, ds)
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (t *txStore) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	ds := t.q.Dialect().From(query.TableMembers).Prepared(true).
		Select(query.MemberColumns...).
		Where(goqu.C("id").Eq(id))
	row, err := selectOne[memberRow](ctx, t.tx, ds)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// GetBorrowingForUpdate locks only the borrowing row, not the joined book
// and member rows.
func (t *txStore) GetBorrowingForUpdate(ctx context.Context, id string) (*domain.Borrowing, error) {
	ds := t.q.Borrowing(id).ForUpdate(exp.Wait, goqu.T("br"))
	row, err := selectOne[borrowingRow](ctx, t.tx, ds)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (t *txStore) InsertBook(ctx context.Context, b *domain.Book) error {
	return insertBook(ctx, t.tx, t.q, b)
}

func (t *txStore) UpdateBook(ctx context.Context, b *domain.Book, expectedVersion int64) error {
	return updateBook(ctx, t.tx, t.q, b, expectedVersion)
}

func (t *txStore) InsertBorrowing(ctx context.Context, b *domain.Borrowing) error {
	return insertBorrowing(ctx, t.tx, t.q, b)
}

func (t *txStore) MarkBorrowingReturned(ctx context.Context, b *domain.Borrowing) error {
	return markBorrowingReturned(ctx, t.tx, t.q, b)
}

func (t *txStore) AppendEvent(ctx context.Context, e *domain.CirculationEvent) error {
	return appendEvent(ctx, t.tx, t.q, e)
}
