package postgres

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/id"
	"github.com/librarydesk/librarydesk-server/internal/store"
)

const dsnEnv = "LIBRARYDESK_TEST_POSTGRES_DSN"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	ctx := context.Background()
	s, err := Open(ctx, dsn, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)

	_, err = s.pool.Exec(ctx, `TRUNCATE circulation_events, borrowings, members, books`)
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func newBook(t *testing.T, isbn string, copies int) *domain.Book {
	t.Helper()
	b := &domain.Book{
		Entity: domain.Entity{ID: id.MustGenerate(id.PrefixBook)},
		Ledger: domain.Ledger{Total: copies, Available: copies},
		Title:  "Dune",
		Author: "Frank Herbert",
		ISBN:   isbn,
	}
	b.InitTimestamps()
	return b
}

func TestBookRow_RejectsBrokenLedger(t *testing.T) {
	row := bookRow{ID: "book-1", TotalCopies: 3, AvailableCopies: 3}
	b, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, domain.Ledger{Total: 3, Available: 3}, b.Ledger)

	for _, bad := range []bookRow{
		{ID: "book-2", TotalCopies: 3, AvailableCopies: 4},
		{ID: "book-3", TotalCopies: 3, AvailableCopies: -1},
	} {
		_, err := bad.toDomain()
		require.ErrorIs(t, err, domain.ErrInvalidLedger)
		assert.Contains(t, err.Error(), bad.ID)
	}

	_, err = booksFromRows([]bookRow{row, {ID: "book-2", TotalCopies: 1, AvailableCopies: 2}})
	require.ErrorIs(t, err, domain.ErrInvalidLedger)
}

func TestBookRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := newBook(t, "9780441172719", 3)
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertBook(ctx, book)
	}))

	got, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, got.Title)
	assert.Equal(t, domain.Ledger{Total: 3, Available: 3}, got.Ledger)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertBook(ctx, newBook(t, "9780441172719", 1))
	})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.GetBook(ctx, "book-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateBook_StaleVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := newBook(t, "9780441172719", 1)
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertBook(ctx, book)
	}))

	err := s.WithTx(ctx, func(tx store.Tx) error {
		book.Title = "Changed"
		book.Version = 9
		return tx.UpdateBook(ctx, book, 3)
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestGetBookForUpdate_Serializes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := newBook(t, "9780441172719", 10)
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertBook(ctx, book)
	}))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTx(ctx, func(tx store.Tx) error {
				b, err := tx.GetBookForUpdate(ctx, book.ID)
				if err != nil {
					return err
				}
				expected := b.Version
				next, err := b.Decrement()
				if err != nil {
					return err
				}
				b.ApplyLedger(next)
				return tx.UpdateBook(ctx, b, expected)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Available)
	assert.Equal(t, int64(8), got.Version)
}

func TestBorrowingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := newBook(t, "9780441172719", 1)
	member := &domain.Member{
		Entity:     domain.Entity{ID: id.MustGenerate(id.PrefixMember)},
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		JoinedDate: domain.TruncateToDate(time.Now()),
		IsActive:   true,
	}
	member.InitTimestamps()
	require.NoError(t, s.CreateMember(ctx, member))

	loan := domain.NewBorrowing(id.MustGenerate(id.PrefixBorrowing), book.ID, member.ID, time.Now(), time.Hour)
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertBook(ctx, book); err != nil {
			return err
		}
		return tx.InsertBorrowing(ctx, loan)
	}))

	got, err := s.GetBorrowing(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.BookTitle)
	assert.Equal(t, "Ada Lovelace", got.MemberName)
	assert.Nil(t, got.ReturnDate)

	assert.ErrorIs(t, s.DeleteMember(ctx, member.ID), store.ErrInUse)

	require.NoError(t, got.MarkReturned(time.Now()))
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		locked, err := tx.GetBorrowingForUpdate(ctx, loan.ID)
		if err != nil {
			return err
		}
		assert.True(t, locked.IsActive())
		return tx.MarkBorrowingReturned(ctx, got)
	}))

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.MarkBorrowingReturned(ctx, got)
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}
