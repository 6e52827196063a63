package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/store"
	"github.com/librarydesk/librarydesk-server/internal/store/query"
)

// txStore implements store.Tx. The immediate transaction already holds the
// database write lock, so "for update" reads are plain reads here.
type txStore struct {
	tx *sqlx.Tx
	q  query.Builder
}

var _ store.Tx = (*txStore)(nil)

func (t *txStore) GetBookForUpdate(ctx context.Context, id string) (*domain.Book, error) {
	return getBook(ctx, t.tx, t.q, id)
}

func (t *txStore) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	return getMember(ctx, t.tx, t.q, id)
}

func (t *txStore) GetBorrowingForUpdate(ctx context.Context, id string) (*domain.Borrowing, error) {
	return getBorrowing(ctx, t.tx, t.q, id)
}

func (t *txStore) InsertBook(ctx context.Context, b *domain.Book) error {
	return insertBook(ctx, t.tx, b)
}

func (t *txStore) UpdateBook(ctx context.Context, b *domain.Book, expectedVersion int64) error {
	return updateBook(ctx, t.tx, b, expectedVersion)
}

func (t *txStore) InsertBorrowing(ctx context.Context, b *domain.Borrowing) error {
	return insertBorrowing(ctx, t.tx, b)
}

func (t *txStore) MarkBorrowingReturned(ctx context.Context, b *domain.Borrowing) error {
	return markBorrowingReturned(ctx, t.tx, b)
}

func (t *txStore) AppendEvent(ctx context.Context, e *domain.CirculationEvent) error {
	return appendEvent(ctx, t.tx, e)
}
