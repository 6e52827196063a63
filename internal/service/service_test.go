package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/librarydesk/librarydesk-server/internal/domain"
	"github.com/librarydesk/librarydesk-server/internal/search"
	"github.com/librarydesk/librarydesk-server/internal/sse"
	"github.com/librarydesk/librarydesk-server/internal/store/sqlite"
	"github.com/librarydesk/librarydesk-server/internal/validation"
)

const testLoanPeriod = 14 * 24 * time.Hour

// recordingNotifier collects emitted events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []sse.Event
}

func (n *recordingNotifier) Emit(e sse.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []sse.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sse.EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	store       *sqlite.Store
	search      *SearchService
	notifier    *recordingNotifier
	catalog     *CatalogService
	members     *MemberService
	circulation *CirculationService
}

// setupServices wires every service against a SQLite store and a search
// index in a temporary directory.
func setupServices(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(dir, "search"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	v := validation.New()
	notifier := &recordingNotifier{}
	searchService := NewSearchService(index, st, logger)

	env := &testEnv{
		store:       st,
		search:      searchService,
		notifier:    notifier,
		catalog:     NewCatalogService(st, searchService, notifier, v, logger),
		members:     NewMemberService(st, searchService, notifier, v, logger),
		circulation: NewCirculationService(st, searchService, notifier, v, testLoanPeriod, logger),
	}
	env.catalog.retry = fastRetry
	env.circulation.retry = fastRetry
	return env
}

func ptr[T any](v T) *T { return &v }

func (e *testEnv) createBook(t *testing.T, title, isbn string, total int) *domain.Book {
	t.Helper()
	b, err := e.catalog.CreateBook(context.Background(), CreateBookRequest{
		Title:       title,
		Author:      "Test Author",
		ISBN:        isbn,
		TotalCopies: ptr(total),
	})
	require.NoError(t, err)
	return b
}

func (e *testEnv) createMember(t *testing.T, first, last, email string) *domain.Member {
	t.Helper()
	m, err := e.members.CreateMember(context.Background(), CreateMemberRequest{
		FirstName: first,
		LastName:  last,
		Email:     email,
	})
	require.NoError(t, err)
	return m
}

func (e *testEnv) checkout(t *testing.T, bookID, memberID string) *domain.Borrowing {
	t.Helper()
	loan, err := e.circulation.Checkout(context.Background(), CheckoutRequest{BookID: bookID, MemberID: memberID})
	require.NoError(t, err)
	return loan
}

func (e *testEnv) reloadBook(t *testing.T, id string) *domain.Book {
	t.Helper()
	b, err := e.store.GetBook(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, b.Validate())
	return b
}
