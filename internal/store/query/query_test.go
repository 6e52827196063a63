package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/store"
)

func sqliteBuilder() Builder {
	return New(DialectSQLite, func(t time.Time) any { return t.UTC().Format(time.RFC3339) })
}

func TestBorrowings_FiltersAndOrdering(t *testing.T) {
	b := sqliteBuilder()

	list, count := b.Borrowings(store.BorrowingFilter{
		Status:   domain.BorrowingActive,
		MemberID: "mbr-1",
		Ordering: store.OrderDueDateAsc,
		Page:     store.Page{Limit: 10, Offset: 20},
	})

	sql, args, err := list.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "`br`.`status` = ?")
	assert.Contains(t, sql, "`br`.`member_id` = ?")
	assert.NotContains(t, sql, "`br`.`book_id` = ?")
	assert.Contains(t, sql, "ORDER BY `br`.`due_date` ASC")
	assert.Contains(t, sql, "LIMIT ? OFFSET ?")
	assert.Contains(t, args, "ACTIVE")
	assert.Contains(t, args, "mbr-1")

	countSQL, countArgs, err := count.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, countSQL, "COUNT(*)")
	assert.NotContains(t, countSQL, "LIMIT")
	assert.Len(t, countArgs, 2)
}

func TestBorrowings_DefaultOrderIsNewestFirst(t *testing.T) {
	list, _ := sqliteBuilder().Borrowings(store.BorrowingFilter{})

	sql, _, err := list.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY `br`.`borrow_date` DESC")
	assert.NotContains(t, sql, "WHERE")
}

func TestBorrowings_Overdue(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	list, _ := sqliteBuilder().Borrowings(store.BorrowingFilter{OverdueAt: &now})

	sql, args, err := list.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "`br`.`due_date` < ?")
	assert.Contains(t, args, "2026-05-01T00:00:00Z")
}

func TestBooks_SearchIsFoldedAndEscaped(t *testing.T) {
	list, _ := sqliteBuilder().Books(store.BookFilter{Search: "Émile 100%"})

	sql, args, err := list.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "search_text LIKE ? ESCAPE '!'")
	assert.Contains(t, args, "%emile 100!%%")
}

func TestMembers_ActiveFilter(t *testing.T) {
	active := false
	list, _ := sqliteBuilder().Members(store.MemberFilter{Active: &active})

	sql, args, err := list.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "is_active = ?")
	assert.Contains(t, args, false)
	assert.Contains(t, sql, "ORDER BY `last_name` ASC, `first_name` ASC")
}

func TestPostgresPlaceholders(t *testing.T) {
	b := New(DialectPostgres, func(t time.Time) any { return t })
	list, _ := b.Borrowings(store.BorrowingFilter{BookID: "book-1"})

	sql, _, err := list.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, `"br"."book_id" = $1`)
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, store.Page{Limit: store.DefaultPageLimit}, store.Page{}.Normalize())
	assert.Equal(t, store.Page{Limit: store.MaxPageLimit, Offset: 0}, store.Page{Limit: 10000, Offset: -3}.Normalize())
}
