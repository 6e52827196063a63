// Package query builds the dynamic list queries shared by the SQL store backends.
//
// Both backends keep the same table layout, so filters, orderings and
// pagination are expressed once with goqu and rendered for each dialect.
package query

import (
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/normalize"
	"github.com/librarydesk/librarydesk-server/internal/store"
)

// Dialect names understood by goqu.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// Table names.
const (
	TableBooks      = "books"
	TableMembers    = "members"
	TableBorrowings = "borrowings"
	TableEvents     = "circulation_events"
)

// BookColumns is the ordered column list for book rows.
var BookColumns = []any{
	"id", "title", "author", "isbn", "publisher",
	"total_copies", "available_copies", "version",
	"created_at", "updated_at",
}

// MemberColumns is the ordered column list for member rows.
var MemberColumns = []any{
	"id", "first_name", "last_name", "email", "phone", "address",
	"joined_date", "is_active", "created_at", "updated_at",
}

// EventColumns is the ordered column list for circulation event rows.
var EventColumns = []any{
	"id", "type", "book_id", "member_id", "borrowing_id",
	"delta", "total_copies", "available_copies", "occurred_at",
}

// Builder renders list queries for one dialect.
type Builder struct {
	d goqu.DialectWrapper
	// timeArg converts a time into the representation the backend stores.
	timeArg func(time.Time) any
}

// New returns a builder for dialect. timeArg converts time filter values
// to the stored column representation.
func New(dialect string, timeArg func(time.Time) any) Builder {
	return Builder{d: goqu.Dialect(dialect), timeArg: timeArg}
}

// Dialect exposes the underlying goqu dialect for ad-hoc statements.
func (b Builder) Dialect() goqu.DialectWrapper {
	return b.d
}

// Books returns the page query and the total-count query for f.
func (b Builder) Books(f store.BookFilter) (list, count *goqu.SelectDataset) {
	ds := b.d.From(TableBooks).Prepared(true)
	if f.Search != "" {
		ds = ds.Where(searchMatch("search_text", f.Search))
	}
	p := f.Page.Normalize()

	count = ds.Select(goqu.COUNT(goqu.Star()))
	list = ds.Select(BookColumns...).
		Order(goqu.C("title").Asc(), goqu.C("id").Asc()).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset))
	return list, count
}

// Members returns the page query and the total-count query for f.
func (b Builder) Members(f store.MemberFilter) (list, count *goqu.SelectDataset) {
	ds := b.d.From(TableMembers).Prepared(true)

	var where []exp.Expression
	if f.Search != "" {
		where = append(where, searchMatch("search_text", f.Search))
	}
	if f.Active != nil {
		where = append(where, goqu.L("is_active = ?", *f.Active))
	}
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	p := f.Page.Normalize()

	count = ds.Select(goqu.COUNT(goqu.Star()))
	list = ds.Select(MemberColumns...).
		Order(goqu.C("last_name").Asc(), goqu.C("first_name").Asc(), goqu.C("id").Asc()).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset))
	return list, count
}

// Borrowings returns the page query and the total-count query for f.
// Rows carry the book title and member name columns used for display.
func (b Builder) Borrowings(f store.BorrowingFilter) (list, count *goqu.SelectDataset) {
	ds := b.borrowingsFrom()

	var where []exp.Expression
	if f.Status != "" {
		where = append(where, goqu.I("br.status").Eq(string(f.Status)))
	}
	if f.MemberID != "" {
		where = append(where, goqu.I("br.member_id").Eq(f.MemberID))
	}
	if f.BookID != "" {
		where = append(where, goqu.I("br.book_id").Eq(f.BookID))
	}
	if f.OverdueAt != nil {
		where = append(where,
			goqu.I("br.status").Eq(string(domain.BorrowingActive)),
			goqu.I("br.due_date").Lt(b.timeArg(*f.OverdueAt)),
		)
	}
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	p := f.Page.Normalize()

	count = ds.Select(goqu.COUNT(goqu.Star()))
	list = ds.Select(borrowingColumns()...).
		Order(borrowingOrder(f.Ordering)...).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset))
	return list, count
}

// Borrowing returns the query for a single borrowing by id.
func (b Builder) Borrowing(id string) *goqu.SelectDataset {
	return b.borrowingsFrom().
		Select(borrowingColumns()...).
		Where(goqu.I("br.id").Eq(id))
}

// BookEvents returns the newest-first circulation events of a book.
func (b Builder) BookEvents(bookID string, limit int) *goqu.SelectDataset {
	if limit <= 0 || limit > store.MaxPageLimit {
		limit = store.DefaultPageLimit
	}
	return b.d.From(TableEvents).Prepared(true).
		Select(EventColumns...).
		Where(goqu.C("book_id").Eq(bookID)).
		Order(goqu.C("occurred_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(limit))
}

// ByIDs returns the query selecting cols from table for a set of ids.
func (b Builder) ByIDs(table string, cols []any, ids []string) *goqu.SelectDataset {
	return b.d.From(table).Prepared(true).
		Select(cols...).
		Where(goqu.C("id").In(ids))
}

func (b Builder) borrowingsFrom() *goqu.SelectDataset {
	return b.d.From(goqu.T(TableBorrowings).As("br")).Prepared(true).
		Join(goqu.T(TableBooks).As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("br.book_id")))).
		Join(goqu.T(TableMembers).As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("br.member_id"))))
}

func borrowingColumns() []any {
	return []any{
		goqu.I("br.id").As("id"),
		goqu.I("br.book_id").As("book_id"),
		goqu.I("br.member_id").As("member_id"),
		goqu.I("br.borrow_date").As("borrow_date"),
		goqu.I("br.due_date").As("due_date"),
		goqu.I("br.return_date").As("return_date"),
		goqu.I("br.status").As("status"),
		goqu.I("b.title").As("book_title"),
		goqu.I("m.first_name").As("member_first_name"),
		goqu.I("m.last_name").As("member_last_name"),
	}
}

func borrowingOrder(ordering string) []exp.OrderedExpression {
	var primary exp.OrderedExpression
	switch ordering {
	case store.OrderBorrowDateAsc:
		primary = goqu.I("br.borrow_date").Asc()
	case store.OrderDueDateAsc:
		primary = goqu.I("br.due_date").Asc()
	case store.OrderDueDateDesc:
		primary = goqu.I("br.due_date").Desc()
	case store.OrderStatusAsc:
		primary = goqu.I("br.status").Asc()
	case store.OrderStatusDesc:
		primary = goqu.I("br.status").Desc()
	default:
		primary = goqu.I("br.borrow_date").Desc()
	}
	return []exp.OrderedExpression{primary, goqu.I("br.borrow_date").Desc(), goqu.I("br.id").Desc()}
}

// searchMatch matches a folded substring against a precomputed folded column.
func searchMatch(col, q string) exp.Expression {
	return goqu.L(col+" LIKE ? ESCAPE '!'", "%"+escapeLike(normalize.Fold(q))+"%")
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

// SearchText is the folded text stored alongside a row for LIKE search.
func SearchText(parts ...string) string {
	return normalize.Fold(strings.Join(parts, " "))
}
