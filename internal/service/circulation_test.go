package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/store"
)

func TestCheckout_Success(t *testing.T) {
	env := setupServices(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	env.circulation.now = func() time.Time { return now }

	b := env.createBook(t, "Dune", "9780441172719", 2)
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")

	loan := env.checkout(t, b.ID, m.ID)

	assert.Contains(t, loan.ID, "loan-")
	assert.Equal(t, domain.BorrowingActive, loan.Status)
	assert.Equal(t, now, loan.BorrowDate)
	assert.Equal(t, now.Add(testLoanPeriod), loan.DueDate)
	assert.Nil(t, loan.ReturnDate)
	assert.Equal(t, "Dune", loan.BookTitle)
	assert.Equal(t, "Ada Lovelace", loan.MemberName)

	assert.Equal(t, domain.Ledger{Total: 2, Available: 1}, env.reloadBook(t, b.ID).Ledger)

	events, err := env.catalog.BookHistory(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventCheckedOut, events[0].Type)
	assert.Equal(t, -1, events[0].Delta)
	assert.Equal(t, loan.ID, events[0].BorrowingID)
	assert.Equal(t, m.ID, events[0].MemberID)
}

func TestCheckout_ExplicitDueDate(t *testing.T) {
	env := setupServices(t)
	b := env.createBook(t, "Dune", "9780441172719", 1)
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")

	due := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	loan, err := env.circulation.Checkout(context.Background(), CheckoutRequest{BookID: b.ID, MemberID: m.ID, DueDate: &due})
	require.NoError(t, err)
	assert.True(t, due.Equal(loan.DueDate))

	past := time.Now().Add(-time.Hour)
	_, err = env.circulation.Checkout(context.Background(), CheckoutRequest{BookID: b.ID, MemberID: m.ID, DueDate: &past})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCheckout_InactiveMember(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	b := env.createBook(t, "Dune", "9780441172719", 2)
	m, err := env.members.CreateMember(ctx, CreateMemberRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		IsActive:  ptr(false),
	})
	require.NoError(t, err)
	before := env.reloadBook(t, b.ID)

	_, err = env.circulation.Checkout(ctx, CheckoutRequest{BookID: b.ID, MemberID: m.ID})
	require.ErrorIs(t, err, domainerrors.ErrMemberInactive)

	after := env.reloadBook(t, b.ID)
	assert.Equal(t, before.Ledger, after.Ledger)
	assert.Equal(t, before.Version, after.Version)

	loans, err := env.circulation.ListBorrowings(ctx, BorrowingListFilter{MemberID: m.ID})
	require.NoError(t, err)
	assert.Zero(t, loans.Total)
}

func TestCheckout_NotFound(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	b := env.createBook(t, "Dune", "9780441172719", 1)
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")

	_, err := env.circulation.Checkout(ctx, CheckoutRequest{BookID: "book-missing", MemberID: m.ID})
	assert.ErrorIs(t, err, domainerrors.ErrBookNotFound)

	_, err = env.circulation.Checkout(ctx, CheckoutRequest{BookID: b.ID, MemberID: "mbr-missing"})
	assert.ErrorIs(t, err, domainerrors.ErrMemberNotFound)

	_, err = env.circulation.Checkout(ctx, CheckoutRequest{})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCheckout_OutOfStock(t *testing.T) {
	env := setupServices(t)
	b := env.createBook(t, "Dune", "9780441172719", 1)
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	env.checkout(t, b.ID, m.ID)

	_, err := env.circulation.Checkout(context.Background(), CheckoutRequest{BookID: b.ID, MemberID: m.ID})
	require.ErrorIs(t, err, domainerrors.ErrOutOfStock)
	assert.Equal(t, domain.Ledger{Total: 1, Available: 0}, env.reloadBook(t, b.ID).Ledger)
}

func TestCheckout_ConcurrentLastCopy(t *testing.T) {
	env := setupServices(t)
	b := env.createBook(t, "Dune", "9780441172719", 1)
	m1 := env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	m2 := env.createMember(t, "Alan", "Turing", "alan@example.com")

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, 2)
	)
	for i, memberID := range []string{m1.ID, m2.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = env.circulation.Checkout(context.Background(), CheckoutRequest{BookID: b.ID, MemberID: memberID})
		}()
	}
	close(start)
	wg.Wait()

	var succeeded, outOfStock int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, domainerrors.ErrOutOfStock):
			outOfStock++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, outOfStock)

	assert.Equal(t, domain.Ledger{Total: 1, Available: 0}, env.reloadBook(t, b.ID).Ledger)
	loans, err := env.circulation.ListBorrowings(context.Background(), BorrowingListFilter{BookID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, loans.Total)
}

func TestCheckout_ConcurrentManyCopies(t *testing.T) {
	env := setupServices(t)
	env.circulation.retry = retryConfig{maxAttempts: 20, baseDelay: time.Millisecond, jitterFactor: 0.3}

	const copies = 3
	const borrowers = 8
	b := env.createBook(t, "Dune", "9780441172719", copies)
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		errs []error
	)
	for range borrowers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.circulation.Checkout(context.Background(), CheckoutRequest{BookID: b.ID, MemberID: m.ID})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				oks++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, copies, oks)
	for _, err := range errs {
		assert.ErrorIs(t, err, domainerrors.ErrOutOfStock)
	}
	assert.Equal(t, domain.Ledger{Total: copies, Available: 0}, env.reloadBook(t, b.ID).Ledger)
}

func TestReturn_Success(t *testing.T) {
	env := setupServices(t)
	b := env.createBook(t, "Dune", "9780441172719", 2)
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	loan := env.checkout(t, b.ID, m.ID)

	returned, err := env.circulation.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.BorrowingReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, domain.Ledger{Total: 2, Available: 2}, env.reloadBook(t, b.ID).Ledger)

	stored, err := env.circulation.GetBorrowing(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BorrowingReturned, stored.Status)
}

func TestReturn_Twice(t *testing.T) {
	env := setupServices(t)
	b := env.createBook(t, "Dune", "9780441172719", 2)
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	loan := env.checkout(t, b.ID, m.ID)

	_, err := env.circulation.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	_, err = env.circulation.Return(context.Background(), loan.ID)
	require.ErrorIs(t, err, domainerrors.ErrAlreadyReturned)

	assert.Equal(t, domain.Ledger{Total: 2, Available: 2}, env.reloadBook(t, b.ID).Ledger)
}

func TestReturn_Concurrent(t *testing.T) {
	env := setupServices(t)
	b := env.createBook(t, "Dune", "9780441172719", 1)
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	loan := env.checkout(t, b.ID, m.ID)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = env.circulation.Return(context.Background(), loan.ID)
		}()
	}
	close(start)
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domainerrors.ErrAlreadyReturned)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, domain.Ledger{Total: 1, Available: 1}, env.reloadBook(t, b.ID).Ledger)
}

func TestReturn_InactiveMemberMayReturn(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	b := env.createBook(t, "Dune", "9780441172719", 1)
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	loan := env.checkout(t, b.ID, m.ID)

	_, err := env.members.UpdateMember(ctx, m.ID, UpdateMemberRequest{IsActive: ptr(false)})
	require.NoError(t, err)

	_, err = env.circulation.Return(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.reloadBook(t, b.ID).Available)
}

func TestReturn_NotFound(t *testing.T) {
	env := setupServices(t)

	_, err := env.circulation.Return(context.Background(), "loan-missing")
	assert.ErrorIs(t, err, domainerrors.ErrBorrowingNotFound)
}

func TestReturn_AfterTotalReduced(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	b := env.createBook(t, "Dune", "9780441172719", 3)
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	loan := env.checkout(t, b.ID, m.ID)

	// Shrink to exactly the copies on loan, then return.
	_, err := env.catalog.UpdateBook(ctx, b.ID, UpdateBookRequest{TotalCopies: ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, domain.Ledger{Total: 1, Available: 0}, env.reloadBook(t, b.ID).Ledger)

	_, err = env.circulation.Return(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Ledger{Total: 1, Available: 1}, env.reloadBook(t, b.ID).Ledger)
}

func TestListBorrowings_Filters(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	dune := env.createBook(t, "Dune", "9780441172719", 3)
	hobbit := env.createBook(t, "The Hobbit", "9780261102217", 3)
	ada := env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	alan := env.createMember(t, "Alan", "Turing", "alan@example.com")

	first := env.checkout(t, dune.ID, ada.ID)
	env.checkout(t, hobbit.ID, ada.ID)
	env.checkout(t, dune.ID, alan.ID)
	_, err := env.circulation.Return(ctx, first.ID)
	require.NoError(t, err)

	all, err := env.circulation.ListBorrowings(ctx, BorrowingListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)

	active, err := env.circulation.ListBorrowings(ctx, BorrowingListFilter{Status: string(domain.BorrowingActive)})
	require.NoError(t, err)
	assert.Equal(t, 2, active.Total)
	for _, loan := range active.Items {
		assert.True(t, loan.IsActive())
	}

	byMember, err := env.circulation.ListBorrowings(ctx, BorrowingListFilter{MemberID: ada.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, byMember.Total)

	byBook, err := env.circulation.ListBorrowings(ctx, BorrowingListFilter{BookID: dune.ID, Status: string(domain.BorrowingReturned)})
	require.NoError(t, err)
	require.Equal(t, 1, byBook.Total)
	assert.Equal(t, first.ID, byBook.Items[0].ID)

	paged, err := env.circulation.ListBorrowings(ctx, BorrowingListFilter{Page: store.Page{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	assert.Equal(t, 3, paged.Total)
	assert.Len(t, paged.Items, 1)

	_, err = env.circulation.ListBorrowings(ctx, BorrowingListFilter{Status: "LOST"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestListBorrowings_Overdue(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	now := time.Now().UTC()
	env.circulation.now = func() time.Time { return now }

	b := env.createBook(t, "Dune", "9780441172719", 2)
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	soon := now.Add(24 * time.Hour)
	late, err := env.circulation.Checkout(ctx, CheckoutRequest{BookID: b.ID, MemberID: m.ID, DueDate: &soon})
	require.NoError(t, err)
	env.checkout(t, b.ID, m.ID)

	env.circulation.now = func() time.Time { return now.Add(48 * time.Hour) }

	overdue, err := env.circulation.ListBorrowings(ctx, BorrowingListFilter{Overdue: true})
	require.NoError(t, err)
	require.Equal(t, 1, overdue.Total)
	assert.Equal(t, late.ID, overdue.Items[0].ID)
	assert.True(t, overdue.Items[0].IsOverdue(env.circulation.Now()))
}
